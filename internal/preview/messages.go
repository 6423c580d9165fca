// Package preview routes point-to-point messages between the engine
// and the sandboxed rendering surface. The engine never interprets
// rendered content; it only moves validated messages to and from the
// right artifact or site page.
package preview

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed set of frame message types.
type Kind string

const (
	// KindUpdateImage is sent to the frame to hot-swap one embedded
	// image inside rendered content.
	KindUpdateImage Kind = "UPDATE_IMAGE"
	// KindImageClick arrives from the frame when the user clicks an
	// image inside rendered content.
	KindImageClick Kind = "IMAGE_CLICK"
	// KindSiteNavigate arrives from the frame when rendered content
	// requests in-site navigation.
	KindSiteNavigate Kind = "SITE_NAVIGATE"
)

// Message is the wire shape shared by all kinds. Which fields are
// required depends on the kind; Decode enforces that at the boundary
// before anything trusts the message.
type Message struct {
	Type       Kind   `json:"type"`
	ArtifactID string `json:"artifactId,omitempty"`
	ImgID      string `json:"imgId,omitempty"`
	Src        string `json:"src,omitempty"`
	PageID     string `json:"pageId,omitempty"`
}

// Decode parses and validates one inbound frame message. Unknown
// kinds and missing required fields are rejected here so handlers can
// trust what they receive.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("preview: invalid message: %w", err)
	}
	switch msg.Type {
	case KindImageClick:
		if msg.ArtifactID == "" || msg.ImgID == "" {
			return Message{}, fmt.Errorf("preview: %s requires artifactId and imgId", msg.Type)
		}
	case KindSiteNavigate:
		if msg.PageID == "" {
			return Message{}, fmt.Errorf("preview: %s requires pageId", msg.Type)
		}
	case KindUpdateImage:
		if msg.ImgID == "" || msg.Src == "" {
			return Message{}, fmt.Errorf("preview: %s requires imgId and src", msg.Type)
		}
	default:
		return Message{}, fmt.Errorf("preview: unknown message type %q", msg.Type)
	}
	return msg, nil
}

// Handler processes one validated message.
type Handler func(msg Message) error

// Dispatcher maps message kinds to handlers. Dispatch of a kind with
// no registered handler is an error, keeping the routed set explicit.
type Dispatcher struct {
	handlers map[Kind]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]Handler)}
}

func (d *Dispatcher) Handle(kind Kind, h Handler) {
	d.handlers[kind] = h
}

func (d *Dispatcher) Dispatch(msg Message) error {
	h, ok := d.handlers[msg.Type]
	if !ok {
		return fmt.Errorf("preview: no handler for %q", msg.Type)
	}
	return h(msg)
}

package preview

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	bridgeWriteWait = 10 * time.Second
	bridgePongWait  = 60 * time.Second
	bridgePingEvery = (bridgePongWait * 9) / 10
)

var bridgeUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type errorOutbound struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Bridge holds the websocket connections of active preview frames,
// keyed by session. Inbound frame messages go through the dispatcher;
// outbound messages (image swaps) are pushed to every frame of a
// session with a drop-oldest policy so a stalled frame never blocks
// the engine.
type Bridge struct {
	mu         sync.Mutex
	conns      map[string]map[*bridgeConn]struct{}
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

type bridgeConn struct {
	writeCh chan any
}

func NewBridge(dispatcher *Dispatcher, logger zerolog.Logger) *Bridge {
	return &Bridge{
		conns:      make(map[string]map[*bridgeConn]struct{}),
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "preview").Logger(),
	}
}

// Push sends a message to every connected frame of the session.
// Sessions with no frame attached drop the message silently.
func (b *Bridge) Push(sessionID string, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.conns[sessionID] {
		pushOutbound(c.writeCh, msg)
	}
}

// HandleWS upgrades the request and runs the connection until the
// frame disconnects. session_id is required.
func (b *Bridge) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	conn, err := bridgeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(bridgePongWait)); err != nil {
		b.logger.Warn().Err(err).Msg("set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(bridgePongWait))
	})

	bc := &bridgeConn{writeCh: make(chan any, 32)}
	b.attach(sessionID, bc)
	defer b.detach(sessionID, bc)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(bridgePingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-bc.writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(bridgeWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(bridgeWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			cancel()
			<-writerDone
			return
		}
		msg, err := Decode(data)
		if err != nil {
			pushOutbound(bc.writeCh, errorOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: err.Error(),
			})
			continue
		}
		if err := b.dispatcher.Dispatch(msg); err != nil {
			b.logger.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(msg.Type)).Msg("dispatch failed")
			pushOutbound(bc.writeCh, errorOutbound{
				Type:    "error",
				Code:    "internal",
				Message: err.Error(),
			})
		}
	}
}

func (b *Bridge) attach(sessionID string, c *bridgeConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.conns[sessionID]
	if !ok {
		set = make(map[*bridgeConn]struct{})
		b.conns[sessionID] = set
	}
	set[c] = struct{}{}
}

func (b *Bridge) detach(sessionID string, c *bridgeConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.conns[sessionID]
	delete(set, c)
	if len(set) == 0 {
		delete(b.conns, sessionID)
	}
}

func pushOutbound(writeCh chan any, out any) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}

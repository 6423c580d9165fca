package preview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeImageClick(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"IMAGE_CLICK","artifactId":"a1","imgId":"img-3"}`))
	require.NoError(t, err)
	require.Equal(t, KindImageClick, msg.Type)
	require.Equal(t, "a1", msg.ArtifactID)
	require.Equal(t, "img-3", msg.ImgID)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"SOMETHING_ELSE"}`))
	require.Error(t, err)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"type":"IMAGE_CLICK","artifactId":"a1"}`,
		`{"type":"SITE_NAVIGATE"}`,
		`{"type":"UPDATE_IMAGE","imgId":"img-1"}`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		require.Error(t, err, raw)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	require.Error(t, err)
}

func TestDispatcherRoutesByKind(t *testing.T) {
	d := NewDispatcher()
	var got Message
	d.Handle(KindSiteNavigate, func(msg Message) error {
		got = msg
		return nil
	})

	msg, err := Decode([]byte(`{"type":"SITE_NAVIGATE","pageId":"p2"}`))
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(msg))
	require.Equal(t, "p2", got.PageID)
}

func TestDispatcherUnregisteredKind(t *testing.T) {
	d := NewDispatcher()
	err := d.Dispatch(Message{Type: KindImageClick, ArtifactID: "a", ImgID: "i"})
	require.Error(t, err)
}

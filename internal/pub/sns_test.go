package pub

import (
	"context"
	"edsync/internal/types"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type TestPublish struct {
	arn      string
	payloads [][]byte
	err      error
}

func (p *TestPublish) PublishRaw(_ context.Context, arn string, payload []byte) error {
	p.arn = arn
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestForwarderEncodesEvent(t *testing.T) {
	tp := &TestPublish{}
	f := NewForwarder(tp, "arn:aws:sns:us-east-1:000000000000:edsync")

	doc := &types.SettingsDocument{SiteID: 3, Raw: []byte(`{"a":1}`)}
	f.Handle(context.Background(), types.NewDocumentEvent(types.FetchEditorSettings, doc, false))

	require.Equal(t, "arn:aws:sns:us-east-1:000000000000:edsync", tp.arn)
	require.Len(t, tp.payloads, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(tp.payloads[0], &got))
	require.Equal(t, float64(3), got["site_id"])
	require.Equal(t, false, got["from_cache"])
	require.Equal(t, map[string]any{"site_id": float64(3), "settings": map[string]any{"a": float64(1)}}, got["document"])
}

func TestForwarderSwallowsPublishErrors(t *testing.T) {
	tp := &TestPublish{err: errors.New("throttled")}
	f := NewForwarder(tp, "arn")
	require.NotPanics(t, func() {
		f.Handle(context.Background(), types.NewErrorEvent(types.FetchEditorSettings, 1, "x"))
	})
	require.Len(t, tp.payloads, 1)
}

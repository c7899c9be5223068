package fetch

import (
	"context"
	"edsync/internal/ports"
	"edsync/internal/types"
)

// Fetcher requests the editor settings route of a site. It never retries.
type Fetcher struct {
	transport ports.Transport
}

func NewFetcher(t ports.Transport) *Fetcher {
	return &Fetcher{transport: t}
}

// Fetch returns the settings document, a *types.TransportError, or types.ErrMalformedResponse
// when the reply has no JSON object body.
func (f *Fetcher) Fetch(ctx context.Context, site types.Site) (*types.SettingsDocument, error) {
	body, err := f.transport.Get(ctx, site, types.EditorSettingsPath, false)
	if err != nil {
		return nil, err
	}
	doc, err := types.NewSettingsDocument(site.ID, body)
	if err != nil {
		return nil, types.ErrMalformedResponse
	}
	return doc, nil
}

package ports

import (
	"context"
	"edsync/internal/types"

	json "github.com/goccy/go-json"
)

// Transport performs authenticated GET requests against a site's REST API root.
// A nil body with a nil error means the server replied without content.
type Transport interface {
	Get(ctx context.Context, site types.Site, path string, cached bool) (json.RawMessage, error)
}

// SettingsFetcher retrieves the editor settings of a site. No retries.
type SettingsFetcher interface {
	Fetch(ctx context.Context, site types.Site) (*types.SettingsDocument, error)
}

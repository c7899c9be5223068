package ports

import (
	"context"
	"edsync/internal/types"
)

// SettingsStore is the persistent cache of editor settings, one document per local site id.
type SettingsStore interface {
	// Get returns the cached document for siteID.
	// If nothing is cached, (nil, nil) MUST be returned.
	Get(ctx context.Context, siteID int64) (*types.SettingsDocument, error)

	// Replace deletes any document for siteID and, when doc is not nil, stores doc in its place.
	// It MUST appear atomic to concurrent readers of the same siteID.
	// Errors MUST wrap types.ErrDataStoreAccess.
	Replace(ctx context.Context, siteID int64, doc *types.SettingsDocument) error
}

package ports

import "edsync/internal/types"

// InvalidAuthListener is notified when a request for a site was rejected as unauthenticated.
type InvalidAuthListener interface {
	OnRequestedWithInvalidAuthentication(siteURL string)
}

// AuthSignal is the upstream side of the invalid-authentication fan-out.
type AuthSignal interface {
	Notify(site types.Site)
}

// SiteDirectory resolves local site ids to sites.
// MUST return an error wrapping types.ErrUnknownSite for unknown ids.
type SiteDirectory interface {
	Site(id int64) (types.Site, error)
}

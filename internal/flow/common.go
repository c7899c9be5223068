package flow

// Outcome is the terminal state of one reconciliation.
type Outcome int

const (
	EmittedFresh         Outcome = iota // No cache or a different document was fetched; it was stored and published.
	Unchanged                           // The fetched document equals the cached one. Only the cached event went out.
	SkippedNetwork                      // Cache present and the caller asked to skip the network.
	EmittedCachedOnError                // Fetch failed; the cached document was published again.
	EmittedError                        // Fetch failed and nothing was cached.
	EmittedMalformed                    // The response had no settings object. The cache was left untouched.
)

var OutcomeTextMap = map[Outcome]string{
	EmittedFresh:         "emitted_fresh",
	Unchanged:            "unchanged",
	SkippedNetwork:       "skipped_network",
	EmittedCachedOnError: "emitted_cached_on_error",
	EmittedError:         "emitted_error",
	EmittedMalformed:     "emitted_malformed",
}

func (o Outcome) String() string {
	if s, ok := OutcomeTextMap[o]; ok {
		return s
	}
	return "unknown"
}

package memory

import (
	"context"
	"edsync/internal/types"
	"sync"
)

// SettingsStore keeps documents in process memory. Used for one-shot runs and tests.
type SettingsStore struct {
	mu   sync.RWMutex
	docs map[int64]types.SettingsDocument
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{docs: make(map[int64]types.SettingsDocument)}
}

func (s *SettingsStore) Get(_ context.Context, siteID int64) (*types.SettingsDocument, error) {
	s.mu.RLock()
	d, ok := s.docs[siteID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	d.Raw = append([]byte(nil), d.Raw...)
	return &d, nil
}

func (s *SettingsStore) Replace(_ context.Context, siteID int64, doc *types.SettingsDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		delete(s.docs, siteID)
		return nil
	}
	d := *doc
	d.SiteID = siteID
	d.Raw = append([]byte(nil), doc.Raw...)
	s.docs[siteID] = d
	return nil
}

// Len returns the number of cached sites.
func (s *SettingsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

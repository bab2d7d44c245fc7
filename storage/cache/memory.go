package cache

import (
	"context"
	"sync"

	"github.com/sutdhousing/portal/core/application"
)

type memoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]application.Draft
}

var _ application.DraftStore = (*memoryDraftStore)(nil)

// NewMemoryDraftStore keeps drafts in process memory. Drafts never expire.
func NewMemoryDraftStore() application.DraftStore {
	return &memoryDraftStore{drafts: make(map[string]application.Draft)}
}

func (s *memoryDraftStore) GetDraft(ctx context.Context, studentID, periodUID string) (application.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[draftKey(studentID, periodUID)]
	if !ok {
		return application.Draft{}, application.ErrDraftNotFound
	}
	return d, nil
}

func (s *memoryDraftStore) SaveDraft(ctx context.Context, d application.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[draftKey(d.StudentID, d.ApplicationPeriodUID)] = d
	return nil
}

func (s *memoryDraftStore) DeleteDraft(ctx context.Context, studentID, periodUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, draftKey(studentID, periodUID))
	return nil
}

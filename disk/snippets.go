package disk

import "sync"

// SnippetIndex maps snippet node ids to their resolved paths. It is an
// explicitly constructed instance owned by whoever owns the orchestrator;
// there is no process-wide registry.
type SnippetIndex struct {
	mu   sync.RWMutex
	byID map[string]string
}

// NewSnippetIndex returns an empty index.
func NewSnippetIndex() *SnippetIndex {
	return &SnippetIndex{byID: make(map[string]string)}
}

// Put records or replaces the path for a snippet id.
func (s *SnippetIndex) Put(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = path
}

// Resolve returns the path registered for id.
func (s *SnippetIndex) Resolve(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.byID[id]
	return path, ok
}

// Forget drops id from the index.
func (s *SnippetIndex) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Len reports how many snippets are indexed.
func (s *SnippetIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

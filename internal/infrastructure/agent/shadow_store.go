package agent

import "sync"

// localShadowStore holds every shadow this device reports, keyed by
// shadow name. The command loop (last-command fields), the shadow-delta
// loop (applying deltas) and the shadow reporter (periodic snapshot) all
// write it, and each write hands back a point-in-time copy to publish —
// a reader-writer lock is adequate (§9 "Concurrency model").
type localShadowStore struct {
	mu       sync.RWMutex
	reported map[string]map[string]interface{}
}

func newLocalShadowStore() *localShadowStore {
	return &localShadowStore{reported: make(map[string]map[string]interface{})}
}

// merge shallow-merges patch into the named shadow's reported state
// (newer overwrites, §4.7) and returns a snapshot copy safe to marshal
// without holding the lock.
func (s *localShadowStore) merge(shadowName string, patch map[string]interface{}) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.reported[shadowName]
	if !ok {
		state = make(map[string]interface{})
		s.reported[shadowName] = state
	}
	for k, v := range patch {
		state[k] = v
	}
	return copyOf(state)
}

// snapshot returns a point-in-time copy of one shadow's reported state.
func (s *localShadowStore) snapshot(shadowName string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyOf(s.reported[shadowName])
}

func copyOf(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

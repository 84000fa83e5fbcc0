package presence

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/maps"
)

const DefaultStaleAfter = 10 * time.Second

// Status is the last reported state of a remote participant. It is replaced wholesale on update.
type Status struct {
	ID                    string
	Name                  string
	Playing               bool
	CurrentMediaURL       string
	CurrentMediaTimestamp int
	CurrentPing           int
	CurrentPlaybackRate   float64
	LastSeen              time.Time
}

// Registry tracks remote participants. Each update swaps in a new map; a map is never written
// to once published. Not safe for concurrent use.
type Registry struct {
	clock      clockwork.Clock
	staleAfter time.Duration
	selfID     string
	entries    map[string]Status
}

func NewRegistry(clock clockwork.Clock, staleAfter time.Duration) *Registry {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Registry{
		clock:      clock,
		staleAfter: staleAfter,
		entries:    map[string]Status{},
	}
}

// Upsert stores status under its id. Statuses for the local participant are ignored.
func (r *Registry) Upsert(status Status) bool {
	if status.ID == "" || status.ID == r.selfID {
		return false
	}

	if status.LastSeen.IsZero() {
		status.LastSeen = r.clock.Now()
	}

	next := maps.Clone(r.entries)
	next[status.ID] = status
	r.entries = next

	return true
}

// Seed replaces the whole registry with list, as received on connect.
func (r *Registry) Seed(selfID string, list []Status) {
	r.selfID = selfID

	now := r.clock.Now()
	next := make(map[string]Status, len(list))
	for _, s := range list {
		if s.ID == "" || s.ID == selfID {
			continue
		}

		if s.LastSeen.IsZero() {
			s.LastSeen = now
		}
		next[s.ID] = s
	}

	r.entries = next
}

func (r *Registry) Remove(id string) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}

	next := maps.Clone(r.entries)
	delete(next, id)
	r.entries = next

	return true
}

// PruneStale drops entries not seen for longer than the staleness timeout and returns their ids.
func (r *Registry) PruneStale() []string {
	now := r.clock.Now()

	var stale []string
	for id, s := range r.entries {
		if now.Sub(s.LastSeen) > r.staleAfter {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return nil
	}

	next := maps.Clone(r.entries)
	for _, id := range stale {
		delete(next, id)
	}
	r.entries = next
	sort.Strings(stale)

	return stale
}

// List returns the statuses ordered by id.
func (r *Registry) List() []Status {
	ids := maps.Keys(r.entries)
	sort.Strings(ids)

	list := make([]Status, 0, len(ids))
	for _, id := range ids {
		list = append(list, r.entries[id])
	}

	return list
}

func (r *Registry) Len() int {
	return len(r.entries)
}

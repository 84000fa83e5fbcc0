package presence

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(list []Status) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func TestRegistryNeverHoldsSelf(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock(), 0)
	r.Seed("a", []Status{{ID: "a", Name: "me"}, {ID: "b", Name: "bob"}})

	assert.False(t, r.Upsert(Status{ID: "a", Name: "me again"}))
	assert.True(t, r.Upsert(Status{ID: "c", Name: "carol"}))

	assert.Equal(t, []string{"b", "c"}, ids(r.List()))
}

func TestRegistryReplacesWholesale(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock(), 0)
	r.Seed("a", nil)

	r.Upsert(Status{ID: "b", Name: "bob", Playing: true, CurrentMediaURL: "https://example.com/v.mp4"})
	r.Upsert(Status{ID: "b", CurrentMediaTimestamp: 42})

	list := r.List()
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Name, "fields must not be merged")
	assert.False(t, list[0].Playing)
	assert.Equal(t, 42, list[0].CurrentMediaTimestamp)
}

func TestRegistryListIsDetached(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock(), 0)
	r.Seed("a", nil)
	r.Upsert(Status{ID: "b", Name: "bob"})

	before := r.List()
	r.Upsert(Status{ID: "b", Name: "robert"})
	r.Upsert(Status{ID: "c"})

	require.Len(t, before, 1)
	assert.Equal(t, "bob", before[0].Name)
	assert.Equal(t, []string{"b", "c"}, ids(r.List()))
}

func TestRegistrySeedEvictsSelf(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock(), 0)
	r.Upsert(Status{ID: "a"})
	r.Upsert(Status{ID: "b"})

	r.Seed("a", []Status{{ID: "a"}, {ID: "b"}})
	assert.Equal(t, []string{"b"}, ids(r.List()))
}

func TestRegistryPruneStale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(clock, 10*time.Second)
	r.Seed("a", nil)

	r.Upsert(Status{ID: "b"})
	clock.Advance(6 * time.Second)
	r.Upsert(Status{ID: "c"})
	clock.Advance(5 * time.Second)

	assert.Equal(t, []string{"b"}, r.PruneStale())
	assert.Nil(t, r.PruneStale())

	r.Upsert(Status{ID: "c"})
	clock.Advance(10 * time.Second)
	assert.Nil(t, r.PruneStale(), "exactly at the timeout is still fresh")
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(clockwork.NewFakeClock(), 0)
	r.Upsert(Status{ID: "b"})

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.Zero(t, r.Len())
}

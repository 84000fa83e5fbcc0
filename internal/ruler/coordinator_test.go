package ruler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferBumpsEpoch(t *testing.T) {
	var c Coordinator
	c.Reset(Token{RulerID: "a", Epoch: 3})

	token := c.Transfer("b")
	assert.Equal(t, Token{RulerID: "b", Epoch: 4}, token)
	assert.True(t, c.IsRuler("b"))
	assert.False(t, c.IsRuler("a"))
}

func TestApplyOrdering(t *testing.T) {
	tests := []struct {
		name    string
		current Token
		in      Token
		applied bool
		want    Token
	}{
		{"higher epoch", Token{"a", 2}, Token{"b", 3}, true, Token{"b", 3}},
		{"stale epoch", Token{"a", 3}, Token{"b", 2}, false, Token{"a", 3}},
		{"tie broken by id", Token{"a", 3}, Token{"c", 3}, true, Token{"c", 3}},
		{"tie lost by id", Token{"c", 3}, Token{"b", 3}, false, Token{"c", 3}},
		{"legacy always applies", Token{"c", 5}, Token{"b", 0}, true, Token{"b", 5}},
		{"empty id ignored", Token{"a", 1}, Token{"", 9}, false, Token{"a", 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coordinator
			c.Reset(tt.current)

			assert.Equal(t, tt.applied, c.Apply(tt.in))
			assert.Equal(t, tt.want, c.Token())
		})
	}
}

func TestSimultaneousTransfersConverge(t *testing.T) {
	var a, b Coordinator
	a.Reset(Token{"x", 1})
	b.Reset(Token{"x", 1})

	fromA := a.Transfer("a")
	fromB := b.Transfer("b")

	a.Apply(fromB)
	b.Apply(fromA)

	assert.Equal(t, a.Token(), b.Token())
	assert.Equal(t, "b", a.RulerID())
}

func TestRulerExclusivityAfterSetLeader(t *testing.T) {
	participants := []string{"a", "b", "c"}
	views := map[string]*Coordinator{}
	for _, id := range participants {
		views[id] = &Coordinator{}
		views[id].Reset(Token{RulerID: "a", Epoch: 1})
	}

	token := views["c"].Transfer("b")
	views["a"].Apply(token)
	views["b"].Apply(token)

	// an unstamped transfer from a legacy peer
	legacy := Token{RulerID: "c"}
	for _, id := range participants {
		views[id].Apply(legacy)
	}

	rulers := 0
	for _, id := range participants {
		if views[id].IsRuler(id) {
			rulers++
		}
		assert.Equal(t, "c", views[id].RulerID())
	}
	assert.Equal(t, 1, rulers)
}

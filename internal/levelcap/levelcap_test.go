package levelcap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"formdist/internal/form"
	"formdist/internal/lookup"
)

func TestLevelCap(t *testing.T) {
	c := New()
	in := Input{ActorID: 0x1A66B, PlayerLevel: 20, OnlyLeveled: true}

	assert.False(t, c.HasHitLevelCap(in))
	c.SetHitLevelCap(in)
	assert.True(t, c.HasHitLevelCap(in))
	assert.True(t, c.HasHitLevelCap(Input{ActorID: in.ActorID, PlayerLevel: 30}))
	assert.False(t, c.HasHitLevelCap(Input{ActorID: in.ActorID, PlayerLevel: 10}))
	assert.False(t, c.HasHitLevelCap(Input{ActorID: 0x1, PlayerLevel: 30}))

	c.SetHitLevelCap(Input{ActorID: in.ActorID, PlayerLevel: 40})
	assert.True(t, c.HasHitLevelCap(in), "a later level must not raise the recorded cap")
}

func TestRejectedEntries(t *testing.T) {
	c := New()
	at5 := Input{ActorID: 0x1A66B, PlayerLevel: 5}
	at6 := Input{ActorID: 0x1A66B, PlayerLevel: 6}

	c.Reject(at5, lookup.Perk, 3)
	assert.True(t, c.IsRejected(at5, lookup.Perk, 3))
	assert.False(t, c.IsRejected(at5, lookup.Spell, 3))
	assert.False(t, c.IsRejected(at5, lookup.Perk, 4))
	assert.False(t, c.IsRejected(at6, lookup.Perk, 3), "a new player level rolls again")

	c.Forget(at5.ActorID)
	assert.False(t, c.IsRejected(at5, lookup.Perk, 3))
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentUse(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(id form.ID) {
			defer wg.Done()
			in := Input{ActorID: id, PlayerLevel: 10}
			c.Reject(in, lookup.Item, 0)
			c.SetHitLevelCap(in)
			_ = c.HasHitLevelCap(in)
		}(form.ID(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

// Package levelcap remembers, per character, when a player-level scaled
// character stopped scaling and which chance rolls already failed at a given
// player level.
package levelcap

import (
	"sync"

	"formdist/internal/form"
	"formdist/internal/lookup"
)

// Input identifies a distribution pass for one character.
type Input struct {
	ActorID     form.ID
	PlayerLevel uint16
	OnlyLeveled bool
}

type entryKey struct {
	category lookup.Category
	index    uint32
}

type actorState struct {
	capped   bool
	cappedAt uint16
	rejected map[uint16]map[entryKey]struct{}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	actors map[form.ID]*actorState
}

func New() *Cache {
	return &Cache{actors: make(map[form.ID]*actorState)}
}

func (c *Cache) state(id form.ID) *actorState {
	s, ok := c.actors[id]
	if !ok {
		s = &actorState{rejected: make(map[uint16]map[entryKey]struct{})}
		c.actors[id] = s
	}
	return s
}

// HasHitLevelCap reports whether the character reached its level cap at or
// below the pass's player level.
func (c *Cache) HasHitLevelCap(in Input) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.actors[in.ActorID]
	return ok && s.capped && s.cappedAt <= in.PlayerLevel
}

// SetHitLevelCap records the lowest player level at which the cap was seen.
func (c *Cache) SetHitLevelCap(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state(in.ActorID)
	if !s.capped || in.PlayerLevel < s.cappedAt {
		s.capped = true
		s.cappedAt = in.PlayerLevel
	}
}

func (c *Cache) IsRejected(in Input, category lookup.Category, index uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.actors[in.ActorID]
	if !ok {
		return false
	}
	_, rejected := s.rejected[in.PlayerLevel][entryKey{category: category, index: index}]
	return rejected
}

// Reject records a failed chance roll so the entry is not rolled again at
// the same player level.
func (c *Cache) Reject(in Input, category lookup.Category, index uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state(in.ActorID)
	byLevel, ok := s.rejected[in.PlayerLevel]
	if !ok {
		byLevel = make(map[entryKey]struct{})
		s.rejected[in.PlayerLevel] = byLevel
	}
	byLevel[entryKey{category: category, index: index}] = struct{}{}
}

// Forget drops everything known about a character.
func (c *Cache) Forget(id form.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.actors, id)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actors)
}

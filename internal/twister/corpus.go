// Package twister holds the tongue-twister reference data: the built-in
// phrase set and the queries the game layer runs against it. Twisters are
// immutable once registered; custom twisters loaded from storage are
// appended at startup and treated identically to the built-in set.
package twister

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Difficulty is the tier a twister is rated at. It drives both the score
// multiplier and the escalation schedules in challenges and duels.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Insane Difficulty = "insane"
)

// IsValid reports whether d is a recognised difficulty tier.
func (d Difficulty) IsValid() bool {
	switch d {
	case Easy, Medium, Hard, Insane:
		return true
	}
	return false
}

// Multiplier returns the score multiplier for this tier. Unknown
// difficulties fall back to 1.0.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case Medium:
		return 1.5
	case Hard:
		return 2.0
	case Insane:
		return 3.0
	default:
		return 1.0
	}
}

// TongueTwister is one immutable corpus entry.
type TongueTwister struct {
	ID         int
	Text       string
	Difficulty Difficulty
	WordCount  int
}

// Corpus is the queryable twister set. Reads vastly outnumber writes (the
// only write path is registering custom twisters at startup or via the
// add command), so a RWMutex guards the slice.
//
// All methods are safe for concurrent use.
type Corpus struct {
	mu       sync.RWMutex
	twisters []TongueTwister
	nextID   int
}

// NewCorpus returns a Corpus seeded with the built-in twister set.
func NewCorpus() *Corpus {
	c := &Corpus{}
	for _, t := range builtins {
		c.twisters = append(c.twisters, t)
		if t.ID >= c.nextID {
			c.nextID = t.ID + 1
		}
	}
	return c
}

// ByID returns the twister with the given ID, or false when no such
// twister exists.
func (c *Corpus) ByID(id int) (TongueTwister, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.twisters {
		if t.ID == id {
			return t, true
		}
	}
	return TongueTwister{}, false
}

// ByDifficulty returns all twisters at the given tier, in registration order.
func (c *Corpus) ByDifficulty(d Difficulty) []TongueTwister {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []TongueTwister
	for _, t := range c.twisters {
		if t.Difficulty == d {
			out = append(out, t)
		}
	}
	return out
}

// Random returns a uniformly random twister. When d is non-empty the draw is
// restricted to that tier; an unknown tier falls back to the whole corpus so
// a game round always gets a phrase.
func (c *Corpus) Random(d Difficulty) TongueTwister {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pool := c.twisters
	if d != "" {
		var filtered []TongueTwister
		for _, t := range c.twisters {
			if t.Difficulty == d {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[rand.IntN(len(pool))]
}

// All returns a snapshot of the full corpus in registration order.
func (c *Corpus) All() []TongueTwister {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TongueTwister, len(c.twisters))
	copy(out, c.twisters)
	return out
}

// Len returns the number of registered twisters.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.twisters)
}

// NewCustom validates and normalises a custom twister. The ID is left zero
// for the caller (typically the store) to assign. When d is empty or unknown
// the difficulty is estimated from the word count.
func NewCustom(text string, d Difficulty) (TongueTwister, error) {
	text = strings.TrimSpace(text)
	words := strings.Fields(text)
	if len(words) < 2 {
		return TongueTwister{}, fmt.Errorf("twister: text %q is too short, need at least two words", text)
	}
	if !d.IsValid() {
		d = estimateDifficulty(len(words))
	}
	return TongueTwister{
		Text:       text,
		Difficulty: d,
		WordCount:  len(words),
	}, nil
}

// Add registers a custom twister and returns it with its assigned ID and
// derived word count.
func (c *Corpus) Add(text string, d Difficulty) (TongueTwister, error) {
	t, err := NewCustom(text, d)
	if err != nil {
		return TongueTwister{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	t.ID = c.nextID
	c.nextID++
	c.twisters = append(c.twisters, t)
	return t, nil
}

// Register appends a twister that already carries an ID, typically a custom
// twister loaded from storage at startup. IDs already present are rejected.
func (c *Corpus) Register(t TongueTwister) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.twisters {
		if existing.ID == t.ID {
			return fmt.Errorf("twister: id %d already registered", t.ID)
		}
	}
	if t.ID >= c.nextID {
		c.nextID = t.ID + 1
	}
	c.twisters = append(c.twisters, t)
	return nil
}

// estimateDifficulty rates a custom twister by length alone. Crude, but
// custom phrases carry no curated tier.
func estimateDifficulty(wordCount int) Difficulty {
	switch {
	case wordCount <= 4:
		return Easy
	case wordCount <= 8:
		return Medium
	default:
		return Hard
	}
}

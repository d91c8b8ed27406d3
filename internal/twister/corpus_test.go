package twister_test

import (
	"strings"
	"testing"

	"github.com/twistvox/twistvox/internal/twister"
)

func TestCorpus_Builtins(t *testing.T) {
	t.Parallel()

	c := twister.NewCorpus()
	if c.Len() != 20 {
		t.Fatalf("Len = %d, want 20 built-in twisters", c.Len())
	}

	tw, ok := c.ByID(1)
	if !ok {
		t.Fatal("ByID(1) not found")
	}
	if tw.Text != "She sells seashells by the seashore" {
		t.Errorf("twister 1 text = %q", tw.Text)
	}
	if tw.Difficulty != twister.Easy {
		t.Errorf("twister 1 difficulty = %s, want easy", tw.Difficulty)
	}

	if _, ok := c.ByID(999); ok {
		t.Error("ByID(999) should not be found")
	}

	// Every entry carries a consistent word count.
	for _, tw := range c.All() {
		if got := len(strings.Fields(tw.Text)); got != tw.WordCount {
			t.Errorf("twister %d: WordCount = %d, text has %d words", tw.ID, tw.WordCount, got)
		}
		if !tw.Difficulty.IsValid() {
			t.Errorf("twister %d: invalid difficulty %q", tw.ID, tw.Difficulty)
		}
	}
}

func TestCorpus_ByDifficulty(t *testing.T) {
	t.Parallel()

	c := twister.NewCorpus()
	counts := map[twister.Difficulty]int{
		twister.Easy:   7,
		twister.Medium: 7,
		twister.Hard:   4,
		twister.Insane: 2,
	}
	for d, want := range counts {
		if got := len(c.ByDifficulty(d)); got != want {
			t.Errorf("ByDifficulty(%s) = %d twisters, want %d", d, got, want)
		}
	}
}

func TestCorpus_Random(t *testing.T) {
	t.Parallel()

	c := twister.NewCorpus()

	for range 50 {
		tw := c.Random(twister.Hard)
		if tw.Difficulty != twister.Hard {
			t.Fatalf("Random(hard) returned %s twister %d", tw.Difficulty, tw.ID)
		}
	}

	// Unknown tier falls back to the full corpus instead of panicking.
	tw := c.Random(twister.Difficulty("nope"))
	if tw.Text == "" {
		t.Error("Random with unknown tier returned empty twister")
	}
	// Empty tier draws from everything.
	tw = c.Random("")
	if tw.Text == "" {
		t.Error("Random(\"\") returned empty twister")
	}
}

func TestCorpus_Add(t *testing.T) {
	t.Parallel()

	c := twister.NewCorpus()

	tw, err := c.Add("  unique New York unique New York  ", twister.Insane)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tw.ID != 21 {
		t.Errorf("assigned ID = %d, want 21", tw.ID)
	}
	if tw.Text != "unique New York unique New York" {
		t.Errorf("text = %q, want trimmed", tw.Text)
	}
	if tw.Difficulty != twister.Insane {
		t.Errorf("difficulty = %s, want insane", tw.Difficulty)
	}
	if tw.WordCount != 6 {
		t.Errorf("word count = %d, want 6", tw.WordCount)
	}

	got, ok := c.ByID(21)
	if !ok || got.Text != tw.Text {
		t.Errorf("ByID(21) = %+v, %v", got, ok)
	}
}

func TestCorpus_AddEstimatesDifficulty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want twister.Difficulty
	}{
		{"toy boat", twister.Easy},
		{"truly rural truly rural truly rural", twister.Medium},
		{"the big black bug bit the big black bear today", twister.Hard},
	}
	c := twister.NewCorpus()
	for _, tc := range cases {
		tw, err := c.Add(tc.text, "")
		if err != nil {
			t.Fatalf("Add(%q): %v", tc.text, err)
		}
		if tw.Difficulty != tc.want {
			t.Errorf("Add(%q) difficulty = %s, want %s", tc.text, tw.Difficulty, tc.want)
		}
	}
}

func TestCorpus_AddRejectsShortText(t *testing.T) {
	t.Parallel()

	c := twister.NewCorpus()
	if _, err := c.Add("toy", twister.Easy); err == nil {
		t.Error("Add with one word should fail")
	}
	if _, err := c.Add("   ", twister.Easy); err == nil {
		t.Error("Add with blank text should fail")
	}
}

func TestDifficulty_Multiplier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d    twister.Difficulty
		want float64
	}{
		{twister.Easy, 1.0},
		{twister.Medium, 1.5},
		{twister.Hard, 2.0},
		{twister.Insane, 3.0},
		{twister.Difficulty("bogus"), 1.0},
	}
	for _, tc := range cases {
		if got := tc.d.Multiplier(); got != tc.want {
			t.Errorf("Multiplier(%s) = %f, want %f", tc.d, got, tc.want)
		}
	}
}

package game

import (
	"fmt"

	"github.com/antzucaro/matchr"
)

// MistakeKind classifies one entry in an attempt's mistake list.
type MistakeKind int

const (
	// MistakeSubstitution is a spoken word that does not match the target
	// word at the same position.
	MistakeSubstitution MistakeKind = iota

	// MistakeMissing is a target word with no spoken word at its position.
	MistakeMissing

	// MistakeExtra is a spoken word beyond the end of the target.
	MistakeExtra

	// MistakeHomophone marks a position that matched through the homophone
	// table rather than literally. Informational — it does not reduce the
	// match count, but callers can surface it as a near miss.
	MistakeHomophone
)

// Mistake describes a single word-level discrepancy between the spoken and
// target text. Mistakes are reported in positional order.
type Mistake struct {
	Kind     MistakeKind
	Position int
	Spoken   string
	Target   string

	// SoundsClose is set on substitutions whose Double Metaphone codes
	// overlap — the player likely said the right word and the transcriber
	// spelled it differently. Display-only; the position still counts as a
	// mismatch.
	SoundsClose bool
}

// String renders the mistake for display.
func (m Mistake) String() string {
	switch m.Kind {
	case MistakeMissing:
		return fmt.Sprintf("Missing word: '%s'", m.Target)
	case MistakeExtra:
		return fmt.Sprintf("Extra word: '%s'", m.Spoken)
	case MistakeHomophone:
		return fmt.Sprintf("'%s' accepted for '%s' (sounds alike)", m.Spoken, m.Target)
	default:
		if m.SoundsClose {
			return fmt.Sprintf("'%s' → '%s' (close)", m.Spoken, m.Target)
		}
		return fmt.Sprintf("'%s' → '%s'", m.Spoken, m.Target)
	}
}

// wordWeight and charWeight blend the two similarity signals. Word-level
// matching dominates because it is what players perceive; the character
// ratio softens the cliff when a single word is slightly off.
const (
	wordWeight = 0.7
	charWeight = 0.3
)

// Accuracy scores spoken against target and returns the accuracy percentage
// in [0, 100] together with the positional mistake list.
//
// The comparison is index-aligned, not an alignment: word i of the spoken
// text is compared with word i of the target. A single inserted or dropped
// word therefore cascades into mismatches for every following position.
// That matches how the scoring has always behaved and keeps historical
// scores comparable.
func Accuracy(spoken, target string) (float64, []Mistake) {
	spokenNorm := Normalize(spoken)
	targetNorm := Normalize(target)

	if spokenNorm == "" || targetNorm == "" {
		var mistakes []Mistake
		if spokenNorm != targetNorm {
			mistakes = append(mistakes, Mistake{Kind: MistakeMissing, Target: targetNorm, Spoken: spokenNorm})
		}
		return 0, mistakes
	}

	spokenWords := splitWords(spokenNorm)
	targetWords := splitWords(targetNorm)

	maxLen := max(len(spokenWords), len(targetWords))
	matches := 0
	var mistakes []Mistake

	for i := range maxLen {
		switch {
		case i >= len(spokenWords):
			mistakes = append(mistakes, Mistake{Kind: MistakeMissing, Position: i, Target: targetWords[i]})
		case i >= len(targetWords):
			mistakes = append(mistakes, Mistake{Kind: MistakeExtra, Position: i, Spoken: spokenWords[i]})
		case spokenWords[i] == targetWords[i]:
			matches++
		case AreHomophones(spokenWords[i], targetWords[i]):
			matches++
			mistakes = append(mistakes, Mistake{
				Kind:     MistakeHomophone,
				Position: i,
				Spoken:   spokenWords[i],
				Target:   targetWords[i],
			})
		default:
			mistakes = append(mistakes, Mistake{
				Kind:        MistakeSubstitution,
				Position:    i,
				Spoken:      spokenWords[i],
				Target:      targetWords[i],
				SoundsClose: soundsClose(spokenWords[i], targetWords[i]),
			})
		}
	}

	wordAccuracy := float64(matches) / float64(maxLen)
	charSimilarity := sequenceRatio(spokenNorm, targetNorm)

	return (wordWeight*wordAccuracy + charWeight*charSimilarity) * 100, mistakes
}

// splitWords splits normalised text into its word sequence.
func splitWords(normalized string) []string {
	if normalized == "" {
		return nil
	}
	var words []string
	start := -1
	for i := range len(normalized) {
		if normalized[i] == ' ' {
			if start >= 0 {
				words = append(words, normalized[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, normalized[start:])
	}
	return words
}

// soundsClose reports whether two words share a Double Metaphone code.
// Used only to annotate substitutions for display.
func soundsClose(a, b string) bool {
	p1, s1 := matchr.DoubleMetaphone(a)
	p2, s2 := matchr.DoubleMetaphone(b)
	if p1 == "" && s1 == "" {
		return false
	}
	return (p1 != "" && (p1 == p2 || p1 == s2)) ||
		(s1 != "" && (s1 == p2 || s1 == s2))
}

// sequenceRatio computes the Ratcliff/Obershelp similarity of two strings:
// twice the number of characters in common matching blocks divided by the
// total length. Matching blocks are found by locating the longest common
// substring and recursing on the unmatched pieces to its left and right.
// Result is in [0, 1].
func sequenceRatio(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	matched := matchingChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the longest
// substring common to a and b. Ties resolve to the earliest occurrence in a,
// then in b, matching difflib's find_longest_match.
func longestCommonSubstring(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// lengths[j] is the length of the common suffix ending at a[i] and
	// b[j-1] from the previous row.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range len(a) {
		for j := 1; j <= len(b); j++ {
			if a[i] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size + 1
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}

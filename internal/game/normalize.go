// Package game implements the scoring core of Twistvox: text
// normalisation, homophone-tolerant accuracy scoring, score calculation,
// the per-player session state machine, and the duel coordinator.
//
// The package is deliberately free of Discord, audio, and storage
// imports — it consumes transcribed text and produces results, so the
// whole game logic is testable without a voice stack.
package game

import (
	"regexp"
	"strings"
)

// nonWord matches every character that is neither a word character nor
// whitespace. Word characters follow the \w class (letters, digits,
// underscore) so transcription artifacts like smart quotes and commas are
// stripped while apostrophe-less contractions survive.
var nonWord = regexp.MustCompile(`[^\w\s]`)

// whitespaceRun matches one or more consecutive whitespace characters.
var whitespaceRun = regexp.MustCompile(`\s+`)

// digitToken matches a bare integer token ("6") or an integer with an
// ordinal suffix ("6th", "1st", "22nd"). Group 1 is the digits, group 2
// the suffix (may be empty).
var digitToken = regexp.MustCompile(`^(\d+)(st|nd|rd|th)?$`)

// cardinalWords maps digit strings to their spoken word form. Whisper
// emits digits for spoken numbers ("six" -> "6"), so both sides of a
// comparison are folded to word form. The table is deliberately small:
// tongue twisters do not contain large numerals.
var cardinalWords = map[string]string{
	"0": "zero", "1": "one", "2": "two", "3": "three", "4": "four",
	"5": "five", "6": "six", "7": "seven", "8": "eight", "9": "nine",
	"10": "ten", "11": "eleven", "12": "twelve", "13": "thirteen",
	"14": "fourteen", "15": "fifteen", "16": "sixteen", "17": "seventeen",
	"18": "eighteen", "19": "nineteen", "20": "twenty", "30": "thirty",
	"40": "forty", "50": "fifty", "60": "sixty", "70": "seventy",
	"80": "eighty", "90": "ninety",
}

// Normalize canonicalises text for comparison: lowercase, numeric tokens
// expanded to word form (including ordinals like "6th" -> "sixth"),
// punctuation stripped, whitespace runs collapsed, surrounding space
// trimmed. Empty input normalises to the empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)

	// Expand numeric tokens before punctuation stripping so ordinal
	// suffixes are still attached to their digits.
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = expandNumeric(f)
	}
	text = strings.Join(fields, " ")

	text = nonWord.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// expandNumeric converts a bare digit token to its cardinal word form and
// a digit+suffix token to its ordinal word form. Tokens that are not
// numeric, or whose value is outside the fixed table, are returned
// unchanged.
func expandNumeric(token string) string {
	m := digitToken.FindStringSubmatch(strings.TrimSuffix(token, "."))
	if m == nil {
		return token
	}
	word, ok := cardinalWords[m[1]]
	if !ok {
		return token
	}
	if m[2] == "" {
		return word
	}
	return ordinalWord(word)
}

// ordinalWord converts a cardinal word to its ordinal form. The irregular
// transforms cover the English ordinals that do not simply append "th".
func ordinalWord(cardinal string) string {
	switch cardinal {
	case "one":
		return "first"
	case "two":
		return "second"
	case "three":
		return "third"
	case "five":
		return "fifth"
	case "eight":
		return "eighth"
	case "nine":
		return "ninth"
	}
	if strings.HasSuffix(cardinal, "y") {
		return cardinal[:len(cardinal)-1] + "ieth"
	}
	return cardinal + "th"
}

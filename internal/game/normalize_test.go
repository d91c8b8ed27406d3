package game_test

import (
	"testing"

	"github.com/twistvox/twistvox/internal/game"
)

func TestNormalize_CaseAndPunctuation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "She Sells SEASHELLS", "she sells seashells"},
		{"strips punctuation", "she sells, seashells!", "she sells seashells"},
		{"collapses whitespace", "she   sells\t\tseashells", "she sells seashells"},
		{"trims edges", "  she sells  ", "she sells"},
		{"apostrophes removed", "sheik's sheep's sick", "sheiks sheeps sick"},
		{"empty input", "", ""},
		{"punctuation only", "?!...,;", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := game.Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_NumberExpansion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"cardinal digit", "6 sheep", "six sheep"},
		{"cardinal zero", "0 sheep", "zero sheep"},
		{"cardinal teens", "13 sheep", "thirteen sheep"},
		{"cardinal tens", "40 sheep", "forty sheep"},
		{"ordinal sixth", "the 6th sheik", "the sixth sheik"},
		{"ordinal first", "1st place", "first place"},
		{"ordinal second", "2nd place", "second place"},
		{"ordinal third", "3rd place", "third place"},
		{"ordinal fifth", "5th place", "fifth place"},
		{"ordinal eighth", "8th place", "eighth place"},
		{"ordinal ninth", "9th place", "ninth place"},
		{"ordinal twelfth", "12th night", "twelfth night"},
		{"ordinal twentieth", "20th time", "twentieth time"},
		{"unmapped number kept", "150 sheep", "150 sheep"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := game.Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"The 6th sick sheik's 6th sheep's sick!",
		"She sells seashells by the seashore.",
		"  Red lorry,   yellow lorry  ",
	}
	for _, in := range inputs {
		once := game.Normalize(in)
		twice := game.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestAreHomophones(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"red", "read", true},
		{"read", "red", true},
		{"lorry", "lori", true},
		{"sells", "cells", true},
		{"by", "buy", true},
		{"the", "thee", true},
		{"seashore", "sea shore", true},
		{"seashells", "seashels", true},
		{"sheik", "shake", true},
		{"red", "red", true},
		{"red", "blue", false},
		{"lorry", "sells", false},
		{"", "", true},
	}
	for _, tc := range cases {
		if got := game.AreHomophones(tc.a, tc.b); got != tc.want {
			t.Errorf("AreHomophones(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

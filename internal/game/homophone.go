package game

import "strings"

// homophoneClasses is the fixed set of sound-alike equivalence classes the
// scorer tolerates. The table is curated against common Whisper
// mis-spellings of the built-in twister set; classes may overlap, and
// multi-token members ("sea shells") are folded to their space-free form
// when indexed. Extending the table is safe — removing entries changes
// scoring behaviour.
var homophoneClasses = [][]string{
	{"red", "read"},
	{"lorry", "lori", "lory", "lowry"},
	{"sells", "sels", "cells"},
	{"six", "6"},
	{"sixth", "6th"},
	{"by", "buy", "bye"},
	{"the", "thee"},
	{"seashore", "sea shore", "seashor"},
	{"seashells", "sea shells", "seashels"},
	{"which", "witch", "wich"},
	{"wood", "would"},
	{"to", "too", "two"},
	{"there", "their", "theyre"},
	{"weather", "whether", "wether"},
	{"see", "sea", "c"},
	{"sheik", "sheikh", "shake", "chic"},
	{"piper", "pyper"},
	{"peck", "pec"},
	{"butter", "buttur"},
	{"bear", "bare"},
	{"hair", "hare"},
	{"new", "knew", "gnu"},
	{"york", "yorke"},
	{"wuzzy", "wuzzie", "wasi"},
	{"ceaseth", "ceases"},
	{"curd", "kurd"},
}

// classIndex maps each folded class member to the set of class indices it
// belongs to. Built once at init; read-only afterwards.
var classIndex = buildClassIndex()

func buildClassIndex() map[string][]int {
	idx := make(map[string][]int)
	for i, class := range homophoneClasses {
		for _, member := range class {
			key := foldMember(member)
			idx[key] = append(idx[key], i)
		}
	}
	return idx
}

// foldMember canonicalises a class member for lookup: lowercase with
// internal spaces removed, so "Sea Shells" indexes as "seashells".
func foldMember(member string) string {
	return strings.ReplaceAll(strings.ToLower(member), " ", "")
}

// AreHomophones reports whether two words sound alike under the fixed
// equivalence table. Identical words are trivially homophones; otherwise
// the words match when their class sets intersect (classes may overlap, so
// a shared class in either direction counts).
func AreHomophones(a, b string) bool {
	a = foldMember(a)
	b = foldMember(b)
	if a == b {
		return true
	}
	ca, ok := classIndex[a]
	if !ok {
		return false
	}
	cb, ok := classIndex[b]
	if !ok {
		return false
	}
	for _, i := range ca {
		for _, j := range cb {
			if i == j {
				return true
			}
		}
	}
	return false
}

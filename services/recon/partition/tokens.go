// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import (
	"cmp"
	"slices"
	"unicode"
)

// maxTopWords is the label size of a component.
const maxTopWords = 10

// SplitCamelCase splits s wherever the character class changes between
// upper case, lower case, digit and other. An upper-case run followed by
// a lower-case letter gives its last letter to the next token, so
// "HTTPServer" splits into "HTTP" and "Server".
func SplitCamelCase(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var tokens []string
	start := 0
	cur := class(runes[0])
	for i := 1; i < len(runes); i++ {
		c := class(runes[i])
		if c == cur {
			continue
		}
		if c == classLower && cur == classUpper {
			if split := i - 1; split > start {
				tokens = append(tokens, string(runes[start:split]))
				start = split
			}
		} else {
			tokens = append(tokens, string(runes[start:i]))
			start = i
		}
		cur = c
	}
	return append(tokens, string(runes[start:]))
}

type charClass int

const (
	classOther charClass = iota
	classUpper
	classLower
	classDigit
)

func class(r rune) charClass {
	switch {
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsLower(r):
		return classLower
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// TopWords returns the ten most frequent name tokens. Tokens without a
// letter are ignored. Ties are ordered by token, descending.
func TopWords(names []string) []string {
	counts := make(map[string]int)
	for _, n := range names {
		for _, tok := range SplitCamelCase(n) {
			if hasLetter(tok) {
				counts[tok]++
			}
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(b, a))
	})
	if len(words) > maxTopWords {
		words = words[:maxTopWords]
	}
	return words
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

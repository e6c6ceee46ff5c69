package database

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// UniversityMatchThreshold is the Jaro-Winkler similarity at which two
// university names are taken to be the same institution.
const UniversityMatchThreshold = 0.92

// normalizeName lowercases and reduces punctuation to single spaces, so
// "Temple Univ." and "temple univ" compare equal.
func normalizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// similarity is the best Jaro-Winkler score between any name in a and any
// name in b. Pairs whose words disagree beyond spelling or abbreviation
// score zero, so "... at Austin" never matches "... at Dallas".
func similarity(a, b []string) float64 {
	best := 0.0
	for _, left := range a {
		left = normalizeName(left)
		if left == "" {
			continue
		}
		for _, right := range b {
			right = normalizeName(right)
			if right == "" {
				continue
			}
			if left == right {
				return 1
			}
			if !sameWords(left, right) {
				continue
			}
			if score := matchr.JaroWinkler(left, right, false); score > best {
				best = score
			}
		}
	}
	return best
}

var fillerWords = map[string]bool{"the": true, "of": true, "at": true}

// sameWords reports whether two normalized names carry the same words once
// shared words are set aside. Each leftover word must pair, in order, with
// one on the other side that abbreviates it or is a near spelling of it.
func sameWords(left, right string) bool {
	l, r := words(left), words(right)
	shared := make(map[string]int)
	for _, w := range l {
		shared[w]++
	}
	var onlyRight []string
	for _, w := range r {
		if shared[w] > 0 {
			shared[w]--
			continue
		}
		onlyRight = append(onlyRight, w)
	}
	var onlyLeft []string
	for _, w := range l {
		if shared[w] > 0 {
			shared[w]--
			onlyLeft = append(onlyLeft, w)
		}
	}
	if len(onlyLeft) != len(onlyRight) {
		return false
	}
	for i := range onlyLeft {
		if !sameWord(onlyLeft[i], onlyRight[i]) {
			return false
		}
	}
	return true
}

func words(name string) []string {
	var out []string
	for _, w := range strings.Fields(name) {
		if !fillerWords[w] {
			out = append(out, w)
		}
	}
	return out
}

func sameWord(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) >= 3 && strings.HasPrefix(b, a) {
		return true
	}
	return matchr.JaroWinkler(a, b, false) >= UniversityMatchThreshold
}

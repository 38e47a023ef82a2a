// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"strconv"
	"strings"
	"unicode"
)

// ReadabilityChecker estimates whether text suits a grade.
type ReadabilityChecker interface {
	// Check returns the estimated grade level of text, the ceiling for grade,
	// and whether the text could be measured at all.
	Check(text, grade string) (level, ceiling float64, ok bool)
}

// SyllableChecker is the Flesch-Kincaid grade formula over a vowel-group
// syllable count.
type SyllableChecker struct {
	// MinWords is the shortest text that is measured (default 8).
	MinWords int
	// Headroom is how many grades above the student's grade are tolerated
	// (default 3).
	Headroom float64
}

// Check implements ReadabilityChecker.
func (c SyllableChecker) Check(text, grade string) (float64, float64, bool) {
	g, ok := ParseGrade(grade)
	if !ok {
		return 0, 0, false
	}
	minWords := c.MinWords
	if minWords <= 0 {
		minWords = 8
	}
	headroom := c.Headroom
	if headroom <= 0 {
		headroom = 3
	}

	words, sentences, syllables := textStats(text)
	if words < minWords {
		return 0, 0, false
	}
	level := FleschKincaidGrade(words, sentences, syllables)
	return level, float64(g) + headroom, true
}

// FleschKincaidGrade computes 0.39 (words/sentences) + 11.8 (syllables/words) - 15.59.
func FleschKincaidGrade(words, sentences, syllables int) float64 {
	if words == 0 {
		return 0
	}
	if sentences == 0 {
		sentences = 1
	}
	return 0.39*float64(words)/float64(sentences) + 11.8*float64(syllables)/float64(words) - 15.59
}

func textStats(text string) (words, sentences, syllables int) {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		words++
		syllables += CountSyllables(w)
	}
	inEnd := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inEnd {
				sentences++
			}
			inEnd = true
			continue
		}
		inEnd = false
	}
	if sentences == 0 && words > 0 {
		sentences = 1
	}
	return words, sentences, syllables
}

// CountSyllables counts vowel groups, discounting a silent trailing e.
// Every word has at least one syllable.
func CountSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	return max(count, 1)
}

// ParseGrade maps "K", "kindergarten", "3", "3rd", "Grade 5" and similar to
// a number; kindergarten and pre-K are 0.
func ParseGrade(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "grade")
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0, false
	case "k", "kg", "kindergarten", "pre-k", "prek", "pk", "tk":
		return 0, true
	}
	digits := strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > 12 {
		return 0, false
	}
	return n, true
}

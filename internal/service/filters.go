package service

import (
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
	"github.com/goombaio/namegenerator"
)

// WordFilter censors profanity in usernames
type WordFilter struct {
	detector *goaway.ProfanityDetector
}

// NewWordFilter creates a profanity filter with the default dictionary
func NewWordFilter() *WordFilter {
	return &WordFilter{detector: goaway.NewProfanityDetector()}
}

// Censor blanks out whole words that are profane. Words that only contain
// a profane substring, like "Hoeleboele", are left alone.
func (f *WordFilter) Censor(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	word := make([]rune, 0, len(s))
	flush := func() {
		if len(word) == 0 {
			return
		}
		if f.profane(string(word)) {
			b.WriteString(strings.Repeat(" ", len(word)))
		} else {
			b.WriteString(string(word))
		}
		word = word[:0]
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			flush()
			b.WriteRune(r)
			continue
		}
		word = append(word, r)
	}
	flush()
	return b.String()
}

// profane reports whether the detected profanity spans the whole word.
// The detector drops separators and undoes leetspeak before matching, so
// only letters and digits count towards the word length.
func (f *WordFilter) profane(word string) bool {
	match := f.detector.ExtractProfanity(word)
	if match == "" {
		return false
	}
	significant := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			significant++
		}
	}
	return utf8.RuneCountInString(match) == significant
}

// RandomNames generates "adjective-noun" style usernames
type RandomNames struct {
	mu        sync.Mutex
	generator namegenerator.Generator
}

// NewRandomNames creates a name generator seeded from the clock
func NewRandomNames() *RandomNames {
	return &RandomNames{generator: namegenerator.NewNameGenerator(time.Now().UTC().UnixNano())}
}

// Generate returns a new random name
func (n *RandomNames) Generate() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generator.Generate()
}

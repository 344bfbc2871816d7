// Package domain contains core concepts of the multilingual chat system.
// This file defines the closed set of supported languages.
// Every language code crossing a boundary is validated against this set;
// lookups past the boundary never deal with arbitrary strings.
package domain

import (
	"fmt"
	"strings"
)

// Language is an ISO 639-1 code drawn from the fixed supported set.
type Language string

const (
	English    Language = "en"
	Spanish    Language = "es"
	French     Language = "fr"
	German     Language = "de"
	Italian    Language = "it"
	Portuguese Language = "pt"
	Chinese    Language = "zh"
	Japanese   Language = "ja"
	Korean     Language = "ko"
	Arabic     Language = "ar"
	Russian    Language = "ru"
	Hindi      Language = "hi"
)

// NumLanguages is the size of the closed enumeration.
const NumLanguages = 12

// SupportedLanguages lists every valid code, in enumeration order.
// The position of a code in this array is its stable index, used by
// fixed-size per-language structures.
var SupportedLanguages = [NumLanguages]Language{
	English, Spanish, French, German, Italian, Portuguese,
	Chinese, Japanese, Korean, Arabic, Russian, Hindi,
}

var languageNames = map[Language]string{
	English:    "English",
	Spanish:    "Spanish",
	French:     "French",
	German:     "German",
	Italian:    "Italian",
	Portuguese: "Portuguese",
	Chinese:    "Chinese",
	Japanese:   "Japanese",
	Korean:     "Korean",
	Arabic:     "Arabic",
	Russian:    "Russian",
	Hindi:      "Hindi",
}

var languageIndex = func() map[Language]int {
	m := make(map[Language]int, NumLanguages)
	for i, l := range SupportedLanguages {
		m[l] = i
	}
	return m
}()

// ParseLanguage validates a raw code against the supported set.
func ParseLanguage(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := languageIndex[l]; !ok {
		return "", fmt.Errorf("unsupported language code %q", code)
	}
	return l, nil
}

// IsSupported reports whether the code belongs to the closed set.
func IsSupported(code string) bool {
	_, err := ParseLanguage(code)
	return err == nil
}

// Name returns the English display name of the language.
func (l Language) Name() string {
	return languageNames[l]
}

// Index returns the stable position of the language in SupportedLanguages.
// Callers must hold a validated Language; an unknown code panics because
// it can only come from a bypassed boundary check.
func (l Language) Index() int {
	i, ok := languageIndex[l]
	if !ok {
		panic(fmt.Sprintf("language %q escaped boundary validation", string(l)))
	}
	return i
}

// TranslationSet holds at most one text per supported language.
// It is the fixed-size replacement for an open string-keyed map:
// invalid codes cannot be represented at all.
type TranslationSet struct {
	texts [NumLanguages]string
	set   [NumLanguages]bool
}

// Put stores a text for the language if no text is present yet.
// It returns false when the slot was already filled, which makes
// re-applied delivery of the same translation a no-op.
func (s *TranslationSet) Put(l Language, text string) bool {
	i := l.Index()
	if s.set[i] {
		return false
	}
	s.texts[i] = text
	s.set[i] = true
	return true
}

// Get returns the stored text for the language, if any.
func (s *TranslationSet) Get(l Language) (string, bool) {
	i := l.Index()
	if !s.set[i] {
		return "", false
	}
	return s.texts[i], true
}

// Has reports whether a text is stored for the language.
func (s *TranslationSet) Has(l Language) bool {
	return s.set[l.Index()]
}

// Len counts the filled slots.
func (s *TranslationSet) Len() int {
	n := 0
	for _, ok := range s.set {
		if ok {
			n++
		}
	}
	return n
}

// AsMap copies the filled slots into a plain map for serialization.
func (s *TranslationSet) AsMap() map[Language]string {
	m := make(map[Language]string, s.Len())
	for i, ok := range s.set {
		if ok {
			m[SupportedLanguages[i]] = s.texts[i]
		}
	}
	return m
}

package domain

import "fmt"

// MaxPreferredLanguages caps the length of a user's ordered language list.
const MaxPreferredLanguages = 3

// Preference is a user's ordered language list. The first entry is the
// primary language (priority 0). Lists are validated at construction:
// length in [1, MaxPreferredLanguages], no duplicates, supported codes only.
type Preference struct {
	UserID    string
	Languages []Language
}

// NewPreference builds a validated preference from raw codes.
func NewPreference(userID string, codes []string) (Preference, error) {
	if len(codes) == 0 {
		return Preference{}, fmt.Errorf("preference for %s: at least one language required", userID)
	}
	if len(codes) > MaxPreferredLanguages {
		return Preference{}, fmt.Errorf("preference for %s: at most %d languages allowed, got %d",
			userID, MaxPreferredLanguages, len(codes))
	}
	seen := make(map[Language]struct{}, len(codes))
	langs := make([]Language, 0, len(codes))
	for _, code := range codes {
		l, err := ParseLanguage(code)
		if err != nil {
			return Preference{}, fmt.Errorf("preference for %s: %w", userID, err)
		}
		if _, dup := seen[l]; dup {
			return Preference{}, fmt.Errorf("preference for %s: duplicate language %q", userID, l)
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}
	return Preference{UserID: userID, Languages: langs}, nil
}

// LegacyPreference lifts a single stored language value into a
// one-element, priority-0 list. Accounts created before ordered lists
// existed only carry this form.
func LegacyPreference(userID string, code string) (Preference, error) {
	return NewPreference(userID, []string{code})
}

// Primary returns the priority-0 language.
func (p Preference) Primary() Language {
	return p.Languages[0]
}

// Usable reports whether the preference carries at least one language.
// Participants without a usable preference are skipped by the resolver.
func (p Preference) Usable() bool {
	return len(p.Languages) > 0
}

// Participant is a room member as seen through the membership directory.
type Participant struct {
	UserID     string
	Preference Preference
}

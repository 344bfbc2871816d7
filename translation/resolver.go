// Package translation holds the language preference resolver, the
// translation fan-out engine and the external provider client.
package translation

import (
	"sort"

	"github.com/samber/lo"

	"babelroom/domain"
)

// Target is one language a message must be translated into, with the
// best (minimum) priority any participant assigned to it.
type Target struct {
	Language domain.Language
	Priority int
}

// ResolveTargets merges the participants' ordered preference lists into
// a deduplicated target set for a message:
//   - priority per language = the minimum priority observed across
//     participants (0 = primary);
//   - the message's own source language is excluded;
//   - participants without a usable preference are skipped;
//   - order is deterministic: priority ascending, then language code.
func ResolveTargets(participants []domain.Participant, source domain.Language) []Target {
	best := make(map[domain.Language]int)
	for _, p := range participants {
		if !p.Preference.Usable() {
			continue
		}
		for priority, lang := range p.Preference.Languages {
			if lang == source {
				continue
			}
			if current, ok := best[lang]; !ok || priority < current {
				best[lang] = priority
			}
		}
	}

	targets := lo.MapToSlice(best, func(lang domain.Language, priority int) Target {
		return Target{Language: lang, Priority: priority}
	})
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Priority != targets[j].Priority {
			return targets[i].Priority < targets[j].Priority
		}
		return targets[i].Language < targets[j].Language
	})
	return targets
}

// Tiers partitions a resolved target set into priority tiers, ordered
// by ascending priority. Languages within one tier are dispatched
// concurrently; tiers are dispatched in order. The input must come from
// ResolveTargets, which sorts by priority.
func Tiers(targets []Target) [][]domain.Language {
	var tiers [][]domain.Language
	for i := 0; i < len(targets); {
		j := i
		for j < len(targets) && targets[j].Priority == targets[i].Priority {
			j++
		}
		tier := make([]domain.Language, 0, j-i)
		for _, t := range targets[i:j] {
			tier = append(tier, t.Language)
		}
		tiers = append(tiers, tier)
		i = j
	}
	return tiers
}

package translation

import (
	"github.com/abadojack/whatlanggo"

	"babelroom/domain"
)

// DetectSourceLanguage guesses the language a message was authored in.
// Detection that is unreliable, or lands outside the supported set,
// falls back to the author's configured primary language.
func DetectSourceLanguage(content string, fallback domain.Language) domain.Language {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return fallback
	}
	lang, err := domain.ParseLanguage(info.Lang.Iso6391())
	if err != nil {
		return fallback
	}
	return lang
}

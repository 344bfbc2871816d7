package translation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"babelroom/domain"
)

func TestDetectSourceLanguage_Detects_Distinct_Scripts(t *testing.T) {
	req := require.New(t)
	req.Equal(domain.Russian,
		DetectSourceLanguage("Сегодня прекрасная погода, и мы собираемся гулять в парке весь день", domain.English))
	req.Equal(domain.Korean,
		DetectSourceLanguage("오늘 날씨가 정말 좋아서 우리는 하루 종일 공원에서 산책할 거예요", domain.English))
	req.Equal(domain.Arabic,
		DetectSourceLanguage("الطقس جميل جدا اليوم وسوف نذهب للتنزه في الحديقة طوال اليوم", domain.English))
}

func TestDetectSourceLanguage_Falls_Back_When_Unreliable(t *testing.T) {
	req := require.New(t)
	// Short or ambiguous content cannot be detected reliably
	req.Equal(domain.French, DetectSourceLanguage("ok", domain.French))
	req.Equal(domain.Spanish, DetectSourceLanguage("123 !!!", domain.Spanish))
}

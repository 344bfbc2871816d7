package repositories

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"babelroom/domain"
)

func Test_Put_Then_Get(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())
	messageID := uuid.New()

	stored, err := repository.Put(messageID, domain.Spanish, "hola")
	req.NoError(err)
	req.Equal("hola", stored)

	text, ok, err := repository.Get(messageID, domain.Spanish)
	req.NoError(err)
	req.True(ok)
	req.Equal("hola", text)
}

func Test_Get_Missing_Key(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())

	_, ok, err := repository.Get(uuid.New(), domain.French)
	req.NoError(err)
	req.False(ok)
}

func Test_Put_Never_Overwrites(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())
	messageID := uuid.New()

	// Given a key already holds a translation
	first, err := repository.Put(messageID, domain.Spanish, "hola")
	req.NoError(err)
	req.Equal("hola", first)

	// When a second writer arrives for the same key
	second, err := repository.Put(messageID, domain.Spanish, "buenas")
	req.NoError(err)

	// Then the loser observes the winner's value
	req.Equal("hola", second)
	text, ok, err := repository.Get(messageID, domain.Spanish)
	req.NoError(err)
	req.True(ok)
	req.Equal("hola", text)
}

func Test_Concurrent_Puts_Converge_On_One_Row(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())
	messageID := uuid.New()

	// When many writers race on the same key with different texts
	const writers = 8
	results := make([]string, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repository.Put(messageID, domain.German, string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	// Then every caller observed the single stored value
	stored, ok, err := repository.Get(messageID, domain.German)
	req.NoError(err)
	req.True(ok)
	for i := 0; i < writers; i++ {
		req.NoError(errs[i])
		req.Equal(stored, results[i])
	}
}

func Test_PutAll_Skips_Filled_Keys(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())
	messageID := uuid.New()

	// Given one key is already cached
	_, err := repository.Put(messageID, domain.Spanish, "hola")
	req.NoError(err)

	// When a bulk batch covering it arrives
	inserted, err := repository.PutAll(messageID, map[domain.Language]string{
		domain.Spanish: "buenas",
		domain.French:  "bonjour",
		domain.German:  "hallo",
	})
	req.NoError(err)

	// Then only the missing keys are reported as inserted
	req.ElementsMatch([]domain.Language{domain.French, domain.German}, inserted)

	text, ok, err := repository.Get(messageID, domain.Spanish)
	req.NoError(err)
	req.True(ok)
	req.Equal("hola", text)
}

func Test_GetForMessage_Collects_All_Cached_Languages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewTranslationRepository(db, slog.Default())
	messageID := uuid.New()
	otherID := uuid.New()

	_, err := repository.Put(messageID, domain.Spanish, "hola")
	req.NoError(err)
	_, err = repository.Put(messageID, domain.Japanese, "こんにちは")
	req.NoError(err)
	_, err = repository.Put(otherID, domain.French, "bonjour")
	req.NoError(err)

	translations, err := repository.GetForMessage(messageID)
	req.NoError(err)
	req.Len(translations, 2)
	req.Equal("hola", translations[domain.Spanish])
	req.Equal("こんにちは", translations[domain.Japanese])
}

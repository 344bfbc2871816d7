package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"babelroom/domain"
)

// TranslationRepository is the translation cache: one row at most per
// (messageID, targetLanguage). It is the only shared mutable resource
// of the core, so writes are first-completer-wins and idempotent under
// concurrent same-key callers.
type TranslationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTranslationRepository(db *badger.DB, log *slog.Logger) TranslationRepository {
	return TranslationRepository{db: db, log: log}
}

type diskTranslation struct {
	Text string `json:"text"`
	At   int64  `json:"at"`
}

// Get returns the cached text for the key, if present.
func (r TranslationRepository) Get(messageID uuid.UUID, target domain.Language) (string, bool, error) {
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(translationKey(messageID, target)))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var dt diskTranslation
	if err := json.Unmarshal(raw, &dt); err != nil {
		return "", false, err
	}
	return dt.Text, true, nil
}

// Put stores a translation unless the key already holds one, and always
// returns the text actually stored. Two concurrent writers for the same
// key therefore converge on a single row: the loser of the race reads
// back the winner's value instead of overwriting it.
func (r TranslationRepository) Put(messageID uuid.UUID, target domain.Language, text string) (string, error) {
	key := []byte(translationKey(messageID, target))
	stored := text
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			return item.Value(func(value []byte) error {
				var dt diskTranslation
				if err := json.Unmarshal(value, &dt); err != nil {
					return err
				}
				stored = dt.Text
				return nil
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		raw, err := json.Marshal(diskTranslation{Text: text, At: time.Now().UTC().UnixNano()})
		if err != nil {
			return err
		}
		return txn.Set(key, raw)
	})
	if err == badger.ErrConflict {
		// Another writer committed the key between our read and write.
		// Re-read so the caller observes the stored value.
		existing, ok, getErr := r.Get(messageID, target)
		if getErr != nil {
			return "", getErr
		}
		if ok {
			return existing, nil
		}
		return "", err
	}
	if err != nil {
		return "", err
	}
	return stored, nil
}

// PutAll commits a bulk set of translations in one transaction: either
// every missing key is written or the batch fails as a whole. It
// returns the languages that were newly stored; already-filled keys are
// left untouched and not reported.
func (r TranslationRepository) PutAll(messageID uuid.UUID, texts map[domain.Language]string) ([]domain.Language, error) {
	var inserted []domain.Language
	at := time.Now().UTC().UnixNano()
	err := r.db.Update(func(txn *badger.Txn) error {
		inserted = inserted[:0]
		for _, lang := range domain.SupportedLanguages {
			text, ok := texts[lang]
			if !ok {
				continue
			}
			key := []byte(translationKey(messageID, lang))
			if _, err := txn.Get(key); err == nil {
				continue
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			raw, err := json.Marshal(diskTranslation{Text: text, At: at})
			if err != nil {
				return err
			}
			if err := txn.Set(key, raw); err != nil {
				return err
			}
			inserted = append(inserted, lang)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk translation insert for %s failed: %w", messageID, err)
	}
	return inserted, nil
}

// GetForMessage collects every cached translation of one message, for
// the authoritative transcript fetch.
func (r TranslationRepository) GetForMessage(messageID uuid.UUID) (map[domain.Language]string, error) {
	result := make(map[domain.Language]string)
	err := r.db.View(func(txn *badger.Txn) error {
		for _, lang := range domain.SupportedLanguages {
			item, err := txn.Get([]byte(translationKey(messageID, lang)))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(value []byte) error {
				var dt diskTranslation
				if err := json.Unmarshal(value, &dt); err != nil {
					return err
				}
				result[lang] = dt.Text
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func translationKey(messageID uuid.UUID, target domain.Language) string {
	return fmt.Sprintf("tr:%s:%s", messageID, target)
}

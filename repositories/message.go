package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"babelroom/domain"
	apperrors "babelroom/errors"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored shape of a message.
type diskMessage struct {
	ID             uuid.UUID `json:"id"`
	Room           string    `json:"room"`
	Author         string    `json:"author"`
	Content        string    `json:"content"`
	SourceLanguage string    `json:"sourceLanguage"`
	At             int64     `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The primary key is "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages arrive at the same nanosecond.
//
// A secondary key "msgid:{uuid}" points at the primary key so single
// messages can be fetched by canonical id.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := messageKey(message)
	bytes, err := json.Marshal(fromDomainMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		return txn.Set([]byte(messageIDKey(message.ID)), []byte(key))
	})
}

// GetMessage resolves a canonical id through the secondary index.
func (m MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var raw []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(messageIDKey(id)))
		if err != nil {
			return err
		}
		primary, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(primary)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, fmt.Errorf("%w: %s", apperrors.ErrMessageNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	var dm diskMessage
	if err := json.Unmarshal(raw, &dm); err != nil {
		return domain.Message{}, err
	}
	return toDomainMessage(dm)
}

// GetMessages retrieves the newest messages of a room using a reverse
// prefix scan. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. It stops once the configured limit is
// reached and returns an opaque cursor for the next page.
func (m MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, b := range rawMessages {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, nil, err
		}
		message, err := toDomainMessage(dm)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, lo.ToPtr(lastKey), nil
}

func messageKey(m domain.Message) string {
	return fmt.Sprintf("msg:%s:%019d:%s", m.Room, m.CreatedAt.UnixNano(), m.ID)
}

func messageIDKey(id uuid.UUID) string {
	return fmt.Sprintf("msgid:%s", id)
}

func fromDomainMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:             m.ID,
		Room:           string(m.Room),
		Author:         m.AuthorID,
		Content:        m.Content,
		SourceLanguage: string(m.SourceLanguage),
		At:             m.CreatedAt.UnixNano(),
	}
}

func toDomainMessage(dm diskMessage) (domain.Message, error) {
	lang, err := domain.ParseLanguage(dm.SourceLanguage)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             dm.ID,
		Room:           domain.RoomID(dm.Room),
		AuthorID:       dm.Author,
		Content:        dm.Content,
		SourceLanguage: lang,
		CreatedAt:      time.Unix(0, dm.At).UTC(),
	}, nil
}

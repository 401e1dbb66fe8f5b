//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const idBandwidth = 64

type IMessageRepository interface {
	SaveMessage(author, content string, isBot bool) (DiskMessage, error)
	GetMessages(limit int) ([]DiskMessage, error)
}

// DiskMessage is the stored representation of one chat message.
// Author already holds the resolved display name (or the sentinel);
// it is empty for bot messages.
type DiskMessage struct {
	ID      int64     `json:"id"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	IsBot   bool      `json:"is_bot"`
	At      time.Time `json:"at"`
}

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// NewMessageRepository allocates the monotonic id sequence backing the
// integer message ids exposed on the wire. Close releases it.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:message"), idBandwidth)
	if err != nil {
		return nil, fmt.Errorf("allocating message id sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// SaveMessage persists a message in BadgerDB and returns the stored record.
// The key is formatted as "msg:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep keys unique if two messages land on the same nanosecond.
func (m *MessageRepository) SaveMessage(author, content string, isBot bool) (DiskMessage, error) {
	id, err := m.seq.Next()
	if err != nil {
		return DiskMessage{}, fmt.Errorf("next message id: %w", err)
	}

	record := DiskMessage{
		// The sequence is zero-based; published ids start at 1.
		ID:      int64(id) + 1,
		Author:  author,
		Content: content,
		IsBot:   isBot,
		At:      time.Now().UTC(),
	}
	bytes, err := json.Marshal(record)
	if err != nil {
		return DiskMessage{}, err
	}

	key := fmt.Sprintf("msg:%019d:%d", record.At.UnixNano(), record.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return record, nil
}

// GetMessages returns the newest `limit` messages in chronological order.
// Thanks to the padded timestamp in the key, a reverse prefix scan yields
// newest-first; the slice is flipped before returning.
func (m *MessageRepository) GetMessages(limit int) ([]DiskMessage, error) {
	var newestFirst []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible timestamp, then walk backwards.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(newestFirst) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			var record DiskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			newestFirst = append(newestFirst, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(newestFirst), nil
}

package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/evanofslack/ddns-sync/metrics"
)

const eventPrefix = "event:"

type Manager interface {
	RecordEvent(ctx context.Context, event Event) error
	Events(ctx context.Context) ([]Event, error)
	Close() error
}

type badgerManager struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func New(path string, metrics *metrics.Metrics) (Manager, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	m := &badgerManager{db: db, metrics: metrics}
	return m, nil
}

func (m *badgerManager) RecordEvent(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		m.metrics.IncStateRequest(false)
		return err
	}

	key := eventPrefix + event.Domain + ":" + event.Type
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	m.metrics.IncStateRequest(err == nil)
	return err
}

// Events returns the last recorded change per target, ordered by key.
func (m *badgerManager) Events(ctx context.Context) ([]Event, error) {
	var events []Event

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(eventPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var event Event
				if err := json.Unmarshal(val, &event); err != nil {
					return err
				}
				events = append(events, event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	m.metrics.IncStateRequest(err == nil)
	return events, err
}

func (m *badgerManager) Close() error {
	return m.db.Close()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"lgp/internal/model"
)

const (
	trainingKeyPrefix  = "training/"
	evolutionKeyPrefix = "evolution/"
)

// BadgerOptions configures the embedded badger backend. InMemory ignores
// Path.
type BadgerOptions struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// BadgerStore keeps records as versioned JSON under prefixed keys.
type BadgerStore struct {
	opts BadgerOptions

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(opts BadgerOptions) *BadgerStore {
	return &BadgerStore{opts: opts}
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	var bopts badger.Options
	if s.opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if s.opts.Path == "" {
			return errors.New("badger path is required")
		}
		if err := os.MkdirAll(s.opts.Path, 0o750); err != nil {
			return fmt.Errorf("create badger directory %s: %w", s.opts.Path, err)
		}
		bopts = badger.DefaultOptions(s.opts.Path)
	}
	bopts = bopts.WithSyncWrites(s.opts.SyncWrites).WithNumVersionsToKeep(1)
	if s.opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: s.opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) SaveTraining(_ context.Context, training model.TrainingRecord) error {
	payload, err := EncodeTraining(training)
	if err != nil {
		return err
	}
	return s.put(trainingKeyPrefix+training.ID, payload)
}

func (s *BadgerStore) GetTraining(_ context.Context, id string) (model.TrainingRecord, bool, error) {
	payload, ok, err := s.get(trainingKeyPrefix + id)
	if err != nil || !ok {
		return model.TrainingRecord{}, false, err
	}
	training, err := DecodeTraining(payload)
	if err != nil {
		return model.TrainingRecord{}, false, fmt.Errorf("decode training %s: %w", id, err)
	}
	return training, true, nil
}

func (s *BadgerStore) ListTrainings(_ context.Context) ([]model.TrainingRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var out []model.TrainingRecord
	prefix := []byte(trainingKeyPrefix)
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				training, err := DecodeTraining(val)
				if err != nil {
					return fmt.Errorf("decode training %s: %w", item.Key()[len(prefix):], err)
				}
				out = append(out, training)
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
	sortTrainings(out)
	return out, nil
}

func (s *BadgerStore) SaveEvolution(_ context.Context, evolution model.EvolutionRecord) error {
	payload, err := EncodeEvolution(evolution)
	if err != nil {
		return err
	}
	return s.put(evolutionKeyPrefix+evolution.ID, payload)
}

func (s *BadgerStore) GetEvolution(_ context.Context, id string) (model.EvolutionRecord, bool, error) {
	payload, ok, err := s.get(evolutionKeyPrefix + id)
	if err != nil || !ok {
		return model.EvolutionRecord{}, false, err
	}
	evolution, err := DecodeEvolution(payload)
	if err != nil {
		return model.EvolutionRecord{}, false, fmt.Errorf("decode evolution %s: %w", id, err)
	}
	return evolution, true, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) put(key string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
}

func (s *BadgerStore) get(key string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// badgerLogger routes badger's printf-style logging to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

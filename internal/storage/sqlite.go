//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"lgp/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTraining(ctx context.Context, training model.TrainingRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTraining(training)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO trainings (id, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, training.ID, training.CreatedAtUTC.UnixNano(), training.SchemaVersion, training.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetTraining(ctx context.Context, id string) (model.TrainingRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.TrainingRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM trainings WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TrainingRecord{}, false, nil
		}
		return model.TrainingRecord{}, false, err
	}

	training, err := DecodeTraining(payload)
	if err != nil {
		return model.TrainingRecord{}, false, fmt.Errorf("decode training %s: %w", id, err)
	}
	return training, true, nil
}

func (s *SQLiteStore) ListTrainings(ctx context.Context) ([]model.TrainingRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM trainings ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrainingRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		training, err := DecodeTraining(payload)
		if err != nil {
			return nil, fmt.Errorf("decode training %s: %w", id, err)
		}
		out = append(out, training)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveEvolution(ctx context.Context, evolution model.EvolutionRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeEvolution(evolution)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evolutions (id, training_id, run, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			training_id = excluded.training_id,
			run = excluded.run,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, evolution.ID, evolution.TrainingID, evolution.Run, evolution.SchemaVersion, evolution.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetEvolution(ctx context.Context, id string) (model.EvolutionRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.EvolutionRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM evolutions WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.EvolutionRecord{}, false, nil
		}
		return model.EvolutionRecord{}, false, err
	}

	evolution, err := DecodeEvolution(payload)
	if err != nil {
		return model.EvolutionRecord{}, false, fmt.Errorf("decode evolution %s: %w", id, err)
	}
	return evolution, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trainings (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS evolutions (
			id TEXT PRIMARY KEY,
			training_id TEXT NOT NULL,
			run INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS evolutions_training ON evolutions (training_id, run);
	`)
	return err
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"authwatch/pkg/biometrics"
	"authwatch/pkg/loginpattern"
)

// Store persists login history, biometrics snapshots, and anomaly scores.
// The scoring cores never touch storage; this boundary is what feeds them.
type Store interface {
	SaveLogin(ctx context.Context, userID string, rec loginpattern.LoginRecord) error
	// LoginHistory returns up to limit most recent logins, oldest first.
	LoginHistory(ctx context.Context, userID string, limit int) ([]loginpattern.LoginRecord, error)
	SaveSnapshot(ctx context.Context, sessionID, userID string, snap biometrics.Snapshot) error
	SaveScore(ctx context.Context, userID, loginID string, score loginpattern.AnomalyScore) error
	Close() error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS login_events (
		id SERIAL PRIMARY KEY,
		login_id VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		ip_address VARCHAR(64),
		user_agent TEXT,
		city VARCHAR(255),
		country VARCHAR(16),
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		has_location BOOLEAN NOT NULL DEFAULT FALSE,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS biometrics_snapshots (
		id SERIAL PRIMARY KEY,
		session_id VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		snapshot JSONB NOT NULL,
		bot_score INT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS anomaly_scores (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		login_id VARCHAR(255) NOT NULL,
		overall INT NOT NULL,
		factors JSONB NOT NULL,
		reasons JSONB NOT NULL,
		impossible_travel BOOLEAN NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_login_events_user_id ON login_events(user_id);
	CREATE INDEX IF NOT EXISTS idx_login_events_occurred_at ON login_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_biometrics_snapshots_session_id ON biometrics_snapshots(session_id);
	CREATE INDEX IF NOT EXISTS idx_anomaly_scores_user_id ON anomaly_scores(user_id);`

	_, err := s.db.Exec(query)
	return err
}

func (s *PostgresStore) SaveLogin(ctx context.Context, userID string, rec loginpattern.LoginRecord) error {
	query := `
	INSERT INTO login_events
	(login_id, user_id, ip_address, user_agent, city, country, lat, lon, has_location, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var city, country string
	var lat, lon float64
	hasLoc := rec.Location != nil
	if hasLoc {
		city, country = rec.Location.City, rec.Location.Country
		lat, lon = rec.Location.Lat, rec.Location.Lon
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, userID, rec.IPAddress, rec.UserAgent,
		city, country, lat, lon, hasLoc, rec.Timestamp)
	return err
}

func (s *PostgresStore) LoginHistory(ctx context.Context, userID string, limit int) ([]loginpattern.LoginRecord, error) {
	query := `
	SELECT login_id, ip_address, user_agent, city, country, lat, lon, has_location, occurred_at
	FROM login_events
	WHERE user_id = $1
	ORDER BY occurred_at DESC
	LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loginpattern.LoginRecord
	for rows.Next() {
		var rec loginpattern.LoginRecord
		var city, country string
		var lat, lon float64
		var hasLoc bool
		if err := rows.Scan(&rec.ID, &rec.IPAddress, &rec.UserAgent,
			&city, &country, &lat, &lon, &hasLoc, &rec.Timestamp); err != nil {
			return nil, err
		}
		if hasLoc {
			rec.Location = &loginpattern.GeoPoint{City: city, Country: country, Lat: lat, Lon: lon}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, sessionID, userID string, snap biometrics.Snapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	query := `
	INSERT INTO biometrics_snapshots (session_id, user_id, snapshot, bot_score)
	VALUES ($1, $2, $3, $4)`
	_, err = s.db.ExecContext(ctx, query, sessionID, userID, string(snapJSON), snap.BotScore)
	return err
}

func (s *PostgresStore) SaveScore(ctx context.Context, userID, loginID string, score loginpattern.AnomalyScore) error {
	factorsJSON, _ := json.Marshal(score.Factors)
	reasonsJSON, _ := json.Marshal(score.Reasons)

	query := `
	INSERT INTO anomaly_scores (user_id, login_id, overall, factors, reasons, impossible_travel)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query,
		userID, loginID, score.Overall, string(factorsJSON), string(reasonsJSON), score.ImpossibleTravel)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// MemoryStore backs DISABLE_DB=true mode and the handler tests.
type MemoryStore struct {
	mu        sync.Mutex
	logins    map[string][]loginpattern.LoginRecord
	snapshots map[string]biometrics.Snapshot
	scores    map[string][]loginpattern.AnomalyScore
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logins:    make(map[string][]loginpattern.LoginRecord),
		snapshots: make(map[string]biometrics.Snapshot),
		scores:    make(map[string][]loginpattern.AnomalyScore),
	}
}

func (s *MemoryStore) SaveLogin(ctx context.Context, userID string, rec loginpattern.LoginRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins[userID] = append(s.logins[userID], rec)
	return nil
}

func (s *MemoryStore) LoginHistory(ctx context.Context, userID string, limit int) ([]loginpattern.LoginRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.logins[userID]
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]loginpattern.LoginRecord, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, sessionID, userID string, snap biometrics.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sessionID] = snap
	return nil
}

func (s *MemoryStore) SaveScore(ctx context.Context, userID, loginID string, score loginpattern.AnomalyScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID] = append(s.scores[userID], score)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

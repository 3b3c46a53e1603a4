// This file implements the PostgreSQL-backed store for sessions, activity
// events, and patient records.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/clivihealth/careflow/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetSession(key models.SessionKey) (*models.Session, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE channel = $1 AND external_user_id = $2`,
		key.Channel, key.ExternalUserID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return &sess, nil
}

func (s *PostgresStore) SaveSession(sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.Key, err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (channel, external_user_id, data, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel, external_user_id) DO UPDATE SET data = EXCLUDED.data, last_activity_at = EXCLUDED.last_activity_at`,
		sess.Key.Channel, sess.Key.ExternalUserID, data, sess.LastActivityAt, sess.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "key", sess.Key)
		return fmt.Errorf("failed to save session %s: %w", sess.Key, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "key", sess.Key, "page", sess.CurrentPage)
	return nil
}

func (s *PostgresStore) DeleteSession(key models.SessionKey) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE channel = $1 AND external_user_id = $2`,
		key.Channel, key.ExternalUserID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT data FROM sessions ORDER BY channel, external_user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	var out []models.Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sess models.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session row: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddEvent(ev models.ActivityEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO activity_events (id, channel, external_user_id, event_type, page_id, severity, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.SessionKey.Channel, ev.SessionKey.ExternalUserID, ev.Type, nilIfEmpty(string(ev.PageID)), ev.Severity, payload, ev.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddEvent failed", "error", err, "type", ev.Type)
		return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetEvents(key models.SessionKey, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT id, event_type, page_id, severity, payload, created_at
		FROM activity_events WHERE channel = $1 AND external_user_id = $2
		ORDER BY created_at DESC LIMIT $3`,
		key.Channel, key.ExternalUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", key, err)
	}
	defer rows.Close()
	return scanEvents(rows, key)
}

func (s *PostgresStore) SavePatient(p models.PatientRecord) error {
	_, err := s.db.Exec(`INSERT INTO patients (id, channel, external_user_id, name_display, plan, plan_status, specialty)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (channel, external_user_id) DO UPDATE SET
			name_display = EXCLUDED.name_display, plan = EXCLUDED.plan,
			plan_status = EXCLUDED.plan_status, specialty = EXCLUDED.specialty`,
		p.ID, p.Channel, p.ExternalUserID, nilIfEmpty(p.NameDisplay), p.Plan, p.PlanStatus, nilIfEmpty(string(p.Specialty)))
	if err != nil {
		slog.Error("PostgresStore SavePatient failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to save patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetPatientByIdentity(channel models.Channel, externalUserID string) (*models.PatientRecord, error) {
	row := s.db.QueryRow(`SELECT id, channel, external_user_id, name_display, plan, plan_status, specialty
		FROM patients WHERE channel = $1 AND external_user_id = $2`, channel, externalUserID)
	return scanPatientRow(row)
}

func (s *PostgresStore) ListPatients() ([]models.PatientRecord, error) {
	rows, err := s.db.Query(`SELECT id, channel, external_user_id, name_display, plan, plan_status, specialty
		FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

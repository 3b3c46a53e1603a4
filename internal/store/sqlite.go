// This file implements the SQLite-backed store for sessions, activity
// events, and patient records.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/clivihealth/careflow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions is used when creating the database directory.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path; the parent directory is created if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetSession(key models.SessionKey) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE channel = ? AND external_user_id = ?`,
		key.Channel, key.ExternalUserID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) SaveSession(sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.Key, err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (channel, external_user_id, data, last_activity_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel, external_user_id) DO UPDATE SET data = excluded.data, last_activity_at = excluded.last_activity_at`,
		sess.Key.Channel, sess.Key.ExternalUserID, string(data), sess.LastActivityAt, sess.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "key", sess.Key)
		return fmt.Errorf("failed to save session %s: %w", sess.Key, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "key", sess.Key, "page", sess.CurrentPage)
	return nil
}

func (s *SQLiteStore) DeleteSession(key models.SessionKey) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE channel = ? AND external_user_id = ?`,
		key.Channel, key.ExternalUserID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT data FROM sessions ORDER BY channel, external_user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	var out []models.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sess models.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session row: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddEvent(ev models.ActivityEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO activity_events (id, channel, external_user_id, event_type, page_id, severity, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionKey.Channel, ev.SessionKey.ExternalUserID, ev.Type, ev.PageID, ev.Severity, string(payload), ev.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddEvent failed", "error", err, "type", ev.Type)
		return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetEvents(key models.SessionKey, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT id, event_type, page_id, severity, payload, created_at
		FROM activity_events WHERE channel = ? AND external_user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		key.Channel, key.ExternalUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", key, err)
	}
	defer rows.Close()
	return scanEvents(rows, key)
}

func (s *SQLiteStore) SavePatient(p models.PatientRecord) error {
	_, err := s.db.Exec(`INSERT INTO patients (id, channel, external_user_id, name_display, plan, plan_status, specialty)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, external_user_id) DO UPDATE SET
			name_display = excluded.name_display, plan = excluded.plan,
			plan_status = excluded.plan_status, specialty = excluded.specialty`,
		p.ID, p.Channel, p.ExternalUserID, p.NameDisplay, p.Plan, p.PlanStatus, p.Specialty)
	if err != nil {
		slog.Error("SQLiteStore SavePatient failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to save patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPatientByIdentity(channel models.Channel, externalUserID string) (*models.PatientRecord, error) {
	row := s.db.QueryRow(`SELECT id, channel, external_user_id, name_display, plan, plan_status, specialty
		FROM patients WHERE channel = ? AND external_user_id = ?`, channel, externalUserID)
	return scanPatientRow(row)
}

func (s *SQLiteStore) ListPatients() ([]models.PatientRecord, error) {
	rows, err := s.db.Query(`SELECT id, channel, external_user_id, name_display, plan, plan_status, specialty
		FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

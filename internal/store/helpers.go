package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clivihealth/careflow/internal/models"
)

func scanEvents(rows *sql.Rows, key models.SessionKey) ([]models.ActivityEvent, error) {
	var out []models.ActivityEvent
	for rows.Next() {
		var ev models.ActivityEvent
		var pageID, payload sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Type, &pageID, &ev.Severity, &payload, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.SessionKey = key
		ev.PageID = models.PageID(pageID.String)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &ev.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode event payload: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanPatientRow(row *sql.Row) (*models.PatientRecord, error) {
	var p models.PatientRecord
	var name, specialty sql.NullString
	err := row.Scan(&p.ID, &p.Channel, &p.ExternalUserID, &name, &p.Plan, &p.PlanStatus, &specialty)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient row: %w", err)
	}
	p.NameDisplay = name.String
	p.Specialty = models.Domain(specialty.String)
	return &p, nil
}

func scanPatients(rows *sql.Rows) ([]models.PatientRecord, error) {
	var out []models.PatientRecord
	for rows.Next() {
		var p models.PatientRecord
		var name, specialty sql.NullString
		if err := rows.Scan(&p.ID, &p.Channel, &p.ExternalUserID, &name, &p.Plan, &p.PlanStatus, &specialty); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		p.NameDisplay = name.String
		p.Specialty = models.Domain(specialty.String)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/clivihealth/careflow/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success("ok"))
}

// identityFromQuery reads the channel/user pair shared by the inspection
// endpoints.
func identityFromQuery(r *http.Request) (models.SessionKey, bool) {
	key := models.SessionKey{
		Channel:        models.Channel(r.URL.Query().Get("channel")),
		ExternalUserID: r.URL.Query().Get("user"),
	}
	return key, key.Validate() == nil
}

// sessionsHandler serves session inspection: a single session when the
// identity is given, otherwise the full list. DELETE resets a session.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if key, ok := identityFromQuery(r); ok {
			sess, err := s.store.GetSession(key)
			if err != nil {
				slog.Error("Server.sessionsHandler: load failed", "error", err, "key", key)
				writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
				return
			}
			if sess == nil {
				writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
				return
			}
			writeJSONResponse(w, http.StatusOK, models.Success(sess))
			return
		}
		sessions, err := s.store.ListSessions()
		if err != nil {
			slog.Error("Server.sessionsHandler: list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list sessions"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(sessions))

	case http.MethodDelete:
		key, ok := identityFromQuery(r)
		if !ok {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("channel and user query parameters are required"))
			return
		}
		if err := s.store.DeleteSession(key); err != nil {
			slog.Error("Server.sessionsHandler: delete failed", "error", err, "key", key)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
			return
		}
		slog.Info("Server.sessionsHandler: session deleted", "key", key)
		writeJSONResponse(w, http.StatusOK, models.Success(nil))

	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// eventsHandler serves the activity event log for one conversation.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key, ok := identityFromQuery(r)
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("channel and user query parameters are required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.store.GetEvents(key, limit)
	if err != nil {
		slog.Error("Server.eventsHandler: query failed", "error", err, "key", key)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load events"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(events))
}

// patientsHandler upserts and lists patient records.
func (s *Server) patientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodPost:
		var p models.PatientRecord
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			slog.Warn("Server.patientsHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		key := models.SessionKey{Channel: p.Channel, ExternalUserID: p.ExternalUserID}
		if err := key.Validate(); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := s.store.SavePatient(p); err != nil {
			slog.Error("Server.patientsHandler: save failed", "error", err, "id", p.ID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save patient"))
			return
		}
		slog.Info("Server.patientsHandler: patient saved", "id", p.ID, "plan", p.Plan, "status", p.PlanStatus)
		writeJSONResponse(w, http.StatusOK, models.Success(p))

	case http.MethodGet:
		if key, ok := identityFromQuery(r); ok {
			p, err := s.store.GetPatientByIdentity(key.Channel, key.ExternalUserID)
			if err != nil {
				writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
				return
			}
			if p == nil {
				writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
				return
			}
			writeJSONResponse(w, http.StatusOK, models.Success(p))
			return
		}
		patients, err := s.store.ListPatients()
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list patients"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(patients))

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// twilioWebhookHandler feeds Twilio form posts into the messaging pipeline.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioWebhookHandler: invalid form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.twilio.IngestWebhook(r.PostForm)
	// Twilio expects an empty TwiML document.
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}

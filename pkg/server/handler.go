package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/repository"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/m-mizutani/wrinkle/pkg/usecase/market"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
)

const connectionErrorMessage = "Connection Error, please try again"

// SessionView is the JSON shape of a session
type SessionView struct {
	Session  *model.Session     `json:"session"`
	Messages []*model.Message   `json:"messages"`
	State    conversation.State `json:"state"`
	Score    int                `json:"score"`
}

// TurnView is the JSON shape of a processed turn
type TurnView struct {
	State       conversation.State      `json:"state"`
	Messages    []*model.Message        `json:"messages"`
	Validation  *model.ValidationResult `json:"validation,omitempty"`
	PointChange *model.PointChange      `json:"pointChange,omitempty"`
	Score       int                     `json:"score"`
}

// ---------------- helpers -----------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "data": v})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ERROR", "message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) engine(w http.ResponseWriter, r *http.Request) *conversation.Engine {
	engine, err := s.manager.Get(r.Context(), model.SessionID(r.PathValue("id")))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil
		}
		logging.From(r.Context()).Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil
	}
	return engine
}

func sessionView(engine *conversation.Engine) *SessionView {
	snapshot := engine.Snapshot()
	return &SessionView{
		Session:  snapshot.Session,
		Messages: snapshot.Messages,
		State:    conversation.StateOf(snapshot.Session),
		Score:    snapshot.Score(),
	}
}

// ---------------- endpoints ----------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "healthy")
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	engine, err := s.manager.Create(r.Context())
	if err != nil {
		logging.From(r.Context()).Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(engine))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := s.manager.List(r.Context(), offset, limit)
	if err != nil {
		logging.From(r.Context()).Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w, r)
	if engine == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(engine))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(r.Context(), model.SessionID(r.PathValue("id"))); err != nil {
		logging.From(r.Context()).Error("failed to delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	engine := s.engine(w, r)
	if engine == nil {
		return
	}

	if _, err := engine.Rename(r.Context(), body.Name); err != nil {
		writeError(w, http.StatusBadRequest, "name must be non-empty and not the default name")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(engine))
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode model.ResponseMode `json:"mode"`
	}
	if !decode(w, r, &body) {
		return
	}
	engine := s.engine(w, r)
	if engine == nil {
		return
	}

	if err := engine.SetResponseMode(r.Context(), body.Mode); err != nil {
		writeError(w, http.StatusBadRequest, "mode must be summary or detailed")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(engine))
}

func (s *Server) handleSetPersona(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Persona string `json:"persona"`
	}
	if !decode(w, r, &body) {
		return
	}
	engine := s.engine(w, r)
	if engine == nil {
		return
	}

	engine.SetPersona(r.Context(), body.Persona)
	writeJSON(w, http.StatusOK, sessionView(engine))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w, r)
	if engine == nil {
		return
	}
	engine.Reset(r.Context())
	writeJSON(w, http.StatusOK, sessionView(engine))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &body) {
		return
	}
	engine := s.engine(w, r)
	if engine == nil {
		return
	}

	result, err := engine.Submit(r.Context(), body.Message)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	case errors.Is(err, conversation.ErrTurnInFlight), errors.Is(err, conversation.ErrStaleTurn):
		writeError(w, http.StatusConflict, "another turn is being processed")
		return
	case errors.Is(err, conversation.ErrConnection):
		writeError(w, http.StatusBadGateway, connectionErrorMessage)
		return
	case err != nil:
		logging.From(r.Context()).Error("turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, connectionErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, &TurnView{
		State:       result.State,
		Messages:    result.Messages,
		Validation:  result.Validation,
		PointChange: result.PointChange,
		Score:       result.Score,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text                 string `json:"text"`
		HasExistingValidIdea bool   `json:"hasExistingValidIdea"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusOK, s.gate.Validate(r.Context(), body.Text, body.HasExistingValidIdea))
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil {
		writeError(w, http.StatusNotImplemented, "market dashboard is not configured")
		return
	}

	var body struct {
		Idea string `json:"idea"`
	}
	if !decode(w, r, &body) {
		return
	}

	tiles, err := s.dashboard.Fetch(r.Context(), body.Idea)
	switch {
	case errors.Is(err, market.ErrNoKeywords):
		writeError(w, http.StatusBadRequest, "idea has no searchable keywords")
		return
	case errors.Is(err, market.ErrStaleFetch):
		writeError(w, http.StatusConflict, "superseded by a newer request")
		return
	case err != nil:
		logging.From(r.Context()).Error("market fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, connectionErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, tiles)
}

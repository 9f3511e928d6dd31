package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediagrab/mediagrab/internal/accounts"
)

type accountPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  *bool  `json:"enabled"`
	Notes    string `json:"notes"`
}

type loadRequest struct {
	Accounts []accountPayload `json:"accounts"`
}

func (s *Server) accountStats(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "", s.pool.Snapshot())
}

// previewNext shows the account the next rotation would pick without
// consuming the turn.
func (s *Server) previewNext(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.pool.PeekNext()
	if !ok {
		writeSuccess(w, "no account currently available", map[string]any{"available": false})
		return
	}
	writeSuccess(w, "", map[string]any{
		"available":          true,
		"username":           a.Username,
		"requests_this_hour": a.RequestsThisHour,
	})
}

// loadAccounts replaces the whole pool with the posted set.
func (s *Server) loadAccounts(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	accs := make([]accounts.Account, 0, len(req.Accounts))
	for _, p := range req.Accounts {
		if p.Username == "" || p.Password == "" {
			continue
		}
		enabled := true
		if p.Enabled != nil {
			enabled = *p.Enabled
		}
		accs = append(accs, accounts.Account{
			Username: p.Username,
			Password: p.Password,
			Enabled:  enabled,
			Notes:    p.Notes,
		})
	}
	s.pool.Load(accs)
	writeSuccess(w, "accounts loaded", map[string]int{"loaded": len(accs)})
}

func (s *Server) addAccount(w http.ResponseWriter, r *http.Request) {
	var p accountPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if p.Username == "" || p.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}
	if !s.pool.Add(p.Username, p.Password, p.Notes) {
		writeJSON(w, http.StatusConflict, envelope{
			Status:  "error",
			Error:   "VALIDATION_ERROR",
			Message: "account " + p.Username + " already exists",
		})
		return
	}
	writeSuccess(w, "account added", map[string]string{"username": p.Username})
}

func (s *Server) removeAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !s.pool.Remove(username) {
		writeNotFound(w, "account "+username+" not found")
		return
	}
	writeSuccess(w, "account removed", map[string]string{"username": username})
}

func (s *Server) enableAccount(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, true)
}

func (s *Server) disableAccount(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, false)
}

func (s *Server) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	username := chi.URLParam(r, "username")
	if !s.pool.SetEnabled(username, enabled) {
		writeNotFound(w, "account "+username+" not found")
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	writeSuccess(w, "account "+state, map[string]any{"username": username, "enabled": enabled})
}

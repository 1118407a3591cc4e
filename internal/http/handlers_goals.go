package http

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/session"
)

type goalRequest struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	Current  string `json:"current"`
	Deadline string `json:"deadline,omitempty"`
}

type goalResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TargetCents  int64   `json:"target_cents"`
	CurrentCents int64   `json:"current_cents"`
	Progress     float64 `json:"progress"`
	Completed    bool    `json:"completed"`
	Deadline     string  `json:"deadline,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  string  `json:"completed_at,omitempty"`
}

func toGoalResponse(g core.Goal) goalResponse {
	resp := goalResponse{
		ID:           g.ID,
		Name:         g.Name,
		TargetCents:  g.Target.Cents,
		CurrentCents: g.Current.Cents,
		Progress:     core.Progress(g),
		Completed:    core.IsCompleted(g),
		CreatedAt:    g.CreatedAt.Format(time.RFC3339),
	}
	if !g.Deadline.IsEmpty() {
		resp.Deadline = g.Deadline.Format("2006-01-02")
	}
	if g.CompletedAt != nil {
		resp.CompletedAt = g.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func toGoalInput(req goalRequest) (session.GoalInput, error) {
	target, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		return session.GoalInput{}, err
	}
	input := session.GoalInput{
		Name:   sanitizeInput(req.Name),
		Target: core.Money{Cents: target},
	}
	current, err := parseNonNegativeCents(req.Current)
	if err != nil {
		return session.GoalInput{}, err
	}
	input.Current = core.Money{Cents: current}
	if strings.TrimSpace(req.Deadline) != "" {
		deadline, err := parseDate(strings.TrimSpace(req.Deadline))
		if err != nil {
			return session.GoalInput{}, err
		}
		input.Deadline = deadline
	}
	return input, nil
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var items []core.Goal
	switch strings.TrimSpace(r.URL.Query().Get("status")) {
	case "completed":
		items = sess.Goals.Completed()
	case "active":
		items = sess.Goals.Active()
	default:
		items = sess.Goals.All()
	}

	out := make([]goalResponse, 0, len(items))
	for _, g := range items {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": out})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := toGoalInput(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := sess.Goals.Add(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Goal create failed", log.FieldOwner, sess.Owner, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := toGoalInput(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := sess.Goals.Update(r.Context(), id, input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Goal update failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	if err := sess.Goals.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Goal delete failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalProgressRequest struct {
	Current string `json:"current"`
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	var req goalProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := parseNonNegativeCents(req.Current)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := sess.Goals.UpdateProgress(r.Context(), id, core.Money{Cents: cents})
	if err != nil {
		slog.ErrorContext(r.Context(), "Goal progress update failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

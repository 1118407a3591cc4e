package http

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"financas/internal/core"
	"financas/internal/log"
)

type challengeResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Week        string `json:"week"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toChallengeResponse(c core.Challenge) challengeResponse {
	resp := challengeResponse{
		ID:          c.ID,
		Description: c.Description,
		Status:      string(c.Status),
		Week:        c.Week,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.CompletedAt != nil {
		resp.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var items []core.Challenge
	if week := strings.TrimSpace(r.URL.Query().Get("week")); week != "" {
		if !core.IsWeekKey(week) {
			writeError(w, http.StatusBadRequest, "invalid week: want YYYY-WW")
			return
		}
		items = sess.Challenges.ByWeek(week)
	} else {
		items = sess.Challenges.All()
	}

	out := make([]challengeResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toChallengeResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenges":   out,
		"current_week": sess.Challenges.CurrentWeek(),
	})
}

func (s *Server) handleCurrentChallenge(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	current := sess.Challenges.CurrentWeekChallenge()
	if current == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"challenge":    nil,
			"current_week": sess.Challenges.CurrentWeek(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge":    toChallengeResponse(*current),
		"current_week": sess.Challenges.CurrentWeek(),
	})
}

func (s *Server) handleGenerateChallenge(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	ch, err := sess.Challenges.GenerateWeekly(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Challenge generation failed", log.FieldOwner, sess.Owner, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeResponse(ch))
}

type challengeStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleChallengeStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	var req challengeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := sess.Challenges.UpdateStatus(r.Context(), id, core.ChallengeStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		slog.ErrorContext(r.Context(), "Challenge status update failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeResponse(updated))
}

func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	if err := sess.Challenges.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Challenge delete failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

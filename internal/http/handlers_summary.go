package http

import (
	"net/http"

	"log/slog"

	"financas/internal/core"
	"financas/internal/log"
)

func summaryCacheKey(owner core.UserID, month string) string {
	return string(owner) + "|" + month
}

func (s *Server) invalidateSummary(owner core.UserID, month string) {
	s.summaryCache.Delete(summaryCacheKey(owner, month))
}

// handleSummary returns the monthly balance plus per-category expense
// totals, cached per (user, month).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	month, err := parseMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := summaryCacheKey(sess.Owner, month)
	if summary, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", log.FieldOwner, sess.Owner, log.FieldMonth, month)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary := sess.Transactions.Summary(month)
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

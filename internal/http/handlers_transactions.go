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

type transactionRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		Date:        t.Date.Format("2006-01-02"),
		Category:    t.Category,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionInput(req transactionRequest) (session.TransactionInput, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return session.TransactionInput{}, err
	}
	date, err := parseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return session.TransactionInput{}, err
	}
	return session.TransactionInput{
		Kind:        core.TransactionKind(strings.TrimSpace(req.Kind)),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    sanitizeInput(req.Category),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	items := sess.Transactions.All()
	if month := strings.TrimSpace(r.URL.Query().Get("month")); month != "" {
		items = sess.Transactions.ByMonth(month)
	}
	if kind := strings.TrimSpace(r.URL.Query().Get("kind")); kind != "" {
		items = filterTransactions(items, func(t core.Transaction) bool {
			return string(t.Kind) == kind
		})
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		items = filterTransactions(items, func(t core.Transaction) bool {
			return t.Category == category
		})
	}

	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions":  out,
		"balance_cents": sess.Transactions.Balance().Cents,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := toTransactionInput(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := sess.Transactions.Add(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction create failed", log.FieldOwner, sess.Owner, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateSummary(sess.Owner, core.MonthKey(created.Date))
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := toTransactionInput(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// The record may move between months; invalidate both sides.
	if prior, ok := findTransaction(sess, id); ok {
		s.invalidateSummary(sess.Owner, core.MonthKey(prior.Date))
	}

	updated, err := sess.Transactions.Update(r.Context(), id, input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction update failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateSummary(sess.Owner, core.MonthKey(updated.Date))
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")

	prior, ok := findTransaction(sess, id)

	if err := sess.Transactions.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Transaction delete failed", log.FieldOwner, sess.Owner, log.FieldRecordID, id, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	if ok {
		s.invalidateSummary(sess.Owner, core.MonthKey(prior.Date))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": sess.Transactions.Categories(),
	})
}

func findTransaction(sess *session.Session, id string) (core.Transaction, bool) {
	for _, t := range sess.Transactions.All() {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

func filterTransactions(items []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(items))
	for _, t := range items {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

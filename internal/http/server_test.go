package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"financas/internal/log"
	"financas/internal/session"
	"financas/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := memory.New()
	mgr := session.NewManager(mem.Stores(), nil, time.Hour)
	srv := NewServer(":0", mgr)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "user-1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-ID, got %d", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","description":"Salário","amount":"3500,00","date":"2024-03-01","category":"Salário"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created transaction has no id")
	}
	if created["amount_cents"].(float64) != 350000 {
		t.Fatalf("amount_cents = %v, want 350000", created["amount_cents"])
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"expense","description":"Mercado","amount":"450,50","date":"2024-03-05","category":"Alimentação"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	list := decodeBody(t, rr)
	if n := len(list["transactions"].([]any)); n != 2 {
		t.Fatalf("listed %d transactions, want 2", n)
	}
	if list["balance_cents"].(float64) != 350000-45050 {
		t.Fatalf("balance_cents = %v, want %d", list["balance_cents"], 350000-45050)
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/transactions?kind=expense", "")
	if n := len(decodeBody(t, rr)["transactions"].([]any)); n != 1 {
		t.Fatalf("kind filter returned %d transactions, want 1", n)
	}

	rr = doRequest(t, srv, http.MethodPut, "/api/transactions/"+id,
		`{"kind":"income","description":"Salário de março","amount":"3600,00","date":"2024-03-01","category":"Salário"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if desc := decodeBody(t, rr)["description"]; desc != "Salário de março" {
		t.Fatalf("updated description = %v", desc)
	}

	rr = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+id, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+id, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","description":"x","amount":"abc","date":"2024-03-01","category":"Salário"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount status=%d, want 422", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"expense","description":"x","amount":"10,00","date":"2024-03-01","category":"Inexistente"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown category status=%d, want 422", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/transactions", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d, want 400", rr.Code)
	}
}

func TestListCategories(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("categories status=%d", rr.Code)
	}
	cats := decodeBody(t, rr)["categories"].([]any)
	if len(cats) != 13 {
		t.Fatalf("got %d categories, want 13", len(cats))
	}
	if cats[0] != "Alimentação" {
		t.Fatalf("first category = %v", cats[0])
	}
}

func TestGoalLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/goals",
		`{"name":"Viagem","target":"2000,00","deadline":"2024-12-31"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	id := created["id"].(string)
	if created["completed"].(bool) {
		t.Fatal("fresh goal must not be completed")
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/goals/"+id+"/progress", `{"current":"2000,00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("progress status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeBody(t, rr)
	if !updated["completed"].(bool) {
		t.Fatal("goal at target should be completed")
	}
	if updated["completed_at"] == nil || updated["completed_at"] == "" {
		t.Fatal("completed goal should carry a completion stamp")
	}
	if updated["progress"].(float64) != 100 {
		t.Fatalf("progress = %v, want 100", updated["progress"])
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/goals?status=completed", "")
	if n := len(decodeBody(t, rr)["goals"].([]any)); n != 1 {
		t.Fatalf("completed filter returned %d goals, want 1", n)
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/goals",
		`{"name":"Sem alvo","target":"0"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero target status=%d, want 422", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodDelete, "/api/goals/"+id, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestChallengeFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/challenges/generate", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status=%d body=%s", rr.Code, rr.Body.String())
	}
	generated := decodeBody(t, rr)
	id := generated["id"].(string)
	if generated["status"] != "pending" {
		t.Fatalf("generated status = %v, want pending", generated["status"])
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/challenges/generate", "")
	if decodeBody(t, rr)["id"] != id {
		t.Fatal("second generate should return the same weekly challenge")
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/challenges/"+id+"/status", `{"status":"accepted"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/challenges/"+id+"/status", `{"status":"abandoned"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid status=%d, want 422", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/challenges/current", "")
	current := decodeBody(t, rr)
	challenge, ok := current["challenge"].(map[string]any)
	if !ok || challenge["id"] != id {
		t.Fatalf("current challenge = %v, want id %s", current["challenge"], id)
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/challenges?week=bad-key", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid week filter status=%d, want 400", rr.Code)
	}
}

func TestSummaryReflectsMutations(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","description":"Salário","amount":"1000,00","date":"2024-03-01","category":"Salário"}`)

	rr := doRequest(t, srv, http.MethodGet, "/api/summary?month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	first := decodeBody(t, rr)
	if first["balanceCents"].(float64) != 100000 {
		t.Fatalf("balanceCents = %v, want 100000", first["balanceCents"])
	}

	// A mutation must invalidate the cached month.
	doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"expense","description":"Mercado","amount":"100,00","date":"2024-03-05","category":"Alimentação"}`)

	rr = doRequest(t, srv, http.MethodGet, "/api/summary?month=2024-03", "")
	second := decodeBody(t, rr)
	if second["balanceCents"].(float64) != 90000 {
		t.Fatalf("balanceCents after mutation = %v, want 90000", second["balanceCents"])
	}
	byCat := second["byCategory"].([]any)
	if len(byCat) != 1 {
		t.Fatalf("byCategory has %d entries, want 1", len(byCat))
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/summary?month=bad", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid month status=%d, want 400", rr.Code)
	}
}

func TestMonthFilterOnList(t *testing.T) {
	srv := newTestServer(t)

	for month := 1; month <= 3; month++ {
		body := fmt.Sprintf(`{"kind":"expense","description":"Conta","amount":"10,00","date":"2024-%02d-10","category":"Moradia"}`, month)
		if rr := doRequest(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("create month %d status=%d", month, rr.Code)
		}
	}

	rr := doRequest(t, srv, http.MethodGet, "/api/transactions?month=2024-02", "")
	if n := len(decodeBody(t, rr)["transactions"].([]any)); n != 1 {
		t.Fatalf("month filter returned %d transactions, want 1", n)
	}
}

func TestRequestLoggingUsesStandardFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	srv := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	out := buf.String()
	for _, field := range []string{
		log.FieldRequestID, log.FieldClientIP, log.FieldMethod,
		log.FieldPath, log.FieldStatusCode, log.FieldDuration,
	} {
		if !strings.Contains(out, field+"=") {
			t.Fatalf("request log missing %s attribute:\n%s", field, out)
		}
	}
}

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/api"
	"github.com/baharkarakas/strichliste-backend/internal/config"
	"github.com/baharkarakas/strichliste-backend/internal/repository/bolt"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

type testServer struct {
	t     *testing.T
	h     http.Handler
	clock *stepClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := &stepClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	cfg := config.Config{DecimalSeparator: ",", CurrencySymbol: "€"}
	ledger := services.NewLedgerService(store, clock, services.GracePolicy{Period: 2 * time.Minute})
	h := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		UserSvc:    services.NewUserService(store, time.Second),
		LedgerSvc:  ledger,
		ArticleSvc: services.NewArticleService(store, time.Second),
		Clock:      clock,
	})
	return &testServer{t: t, h: h, clock: clock}
}

func (s *testServer) do(method, path, body string) (int, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) list(path string) []map[string]any {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		s.t.Fatalf("GET %s: %d %s", path, rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		s.t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestLedgerFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, alice := s.do(http.MethodPost, "/api/v1/users", `{"nickname":"alice","card_number":"1234"}`)
	if code != http.StatusCreated || alice["balance_formatted"] != "0,00€" {
		t.Fatalf("create alice: %d %v", code, alice)
	}
	code, bob := s.do(http.MethodPost, "/api/v1/users", `{"nickname":"bob"}`)
	if code != http.StatusCreated {
		t.Fatalf("create bob: %d %v", code, bob)
	}

	code, body := s.do(http.MethodPost, "/api/v1/users/1/deposit", `{"amount":"10,00"}`)
	if code != http.StatusCreated || body["balance_formatted"] != "10,00€" {
		t.Fatalf("deposit: %d %v", code, body)
	}
	txn := body["transaction"].(map[string]any)
	if txn["money_formatted"] != "+10,00€" || txn["undoable"] != true || txn["t_type"] != "deposit" {
		t.Fatalf("unexpected transaction view: %v", txn)
	}

	code, body = s.do(http.MethodPost, "/api/v1/users/1/transfer", `{"to_user_id":2,"amount":400}`)
	if code != http.StatusCreated || body["sender_balance_formatted"] != "6,00€" || body["receiver_balance_formatted"] != "4,00€" {
		t.Fatalf("transfer: %d %v", code, body)
	}
	sentID := body["sent"].(map[string]any)["id"].(float64)

	history := s.list("/api/v1/users/1/transactions?limit=5")
	if len(history) != 2 || history[0]["t_type"] != "transfer_sent" {
		t.Fatalf("unexpected history: %v", history)
	}

	code, body = s.do(http.MethodPost, "/api/v1/users/1/transactions/"+jsonID(sentID)+"/undo", "")
	if code != http.StatusOK || body["balance_formatted"] != "10,00€" {
		t.Fatalf("undo: %d %v", code, body)
	}
	if n := len(body["reversals"].([]any)); n != 2 {
		t.Fatalf("expected 2 reversals, got %d", n)
	}

	code, body = s.do(http.MethodPost, "/api/v1/users/1/transactions/"+jsonID(sentID)+"/undo", "")
	if code != http.StatusConflict || body["code"] != "already_undone" {
		t.Fatalf("second undo: %d %v", code, body)
	}

	code, body = s.do(http.MethodGet, "/api/v1/users/2/balance", "")
	if code != http.StatusOK || body["balance_formatted"] != "0,00€" {
		t.Fatalf("bob balance: %d %v", code, body)
	}

	code, body = s.do(http.MethodGet, "/api/v1/users/by-card/1234", "")
	if code != http.StatusOK || body["nickname"] != "alice" {
		t.Fatalf("by card: %d %v", code, body)
	}
}

func TestUndoAfterGracePeriod(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/v1/users", `{"nickname":"alice"}`)
	_, body := s.do(http.MethodPost, "/api/v1/users/1/withdraw", `{"amount":150}`)
	id := body["transaction"].(map[string]any)["id"].(float64)

	s.clock.now = s.clock.now.Add(3 * time.Minute)
	history := s.list("/api/v1/users/1/transactions")
	if history[0]["undoable"] != false {
		t.Fatalf("expired entry must not be undoable: %v", history[0])
	}
	code, body := s.do(http.MethodPost, "/api/v1/users/1/transactions/"+jsonID(id)+"/undo", "")
	if code != http.StatusConflict || body["code"] != "grace_period_expired" {
		t.Fatalf("expected grace_period_expired, got %d %v", code, body)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/v1/users", `{"nickname":"alice","card_number":"77"}`)
	s.do(http.MethodPost, "/api/v1/users", `{"nickname":"bob"}`)

	cases := []struct {
		method, path, body string
		status             int
		code               string
	}{
		{http.MethodPost, "/api/v1/users/1/deposit", `{"amount":0}`, http.StatusBadRequest, "invalid_amount"},
		{http.MethodPost, "/api/v1/users/1/deposit", `{"amount":"1.234"}`, http.StatusBadRequest, "invalid_money"},
		{http.MethodPost, "/api/v1/users/9/deposit", `{"amount":100}`, http.StatusNotFound, "user_not_found"},
		{http.MethodPost, "/api/v1/users/1/transfer", `{"to_user_id":1,"amount":100}`, http.StatusBadRequest, "self_transfer"},
		{http.MethodPost, "/api/v1/users/1/purchase", `{"article_id":5}`, http.StatusNotFound, "article_not_found"},
		{http.MethodPut, "/api/v1/users/2", `{"nickname":"bob","card_number":"77"}`, http.StatusConflict, "card_number_in_use"},
		{http.MethodPut, "/api/v1/users/2", `{"nickname":""}`, http.StatusBadRequest, "invalid_nickname"},
		{http.MethodPost, "/api/v1/users/1/transactions/42/undo", "", http.StatusNotFound, "transaction_not_found"},
		{http.MethodGet, "/api/v1/users/abc", "", http.StatusBadRequest, "validation_error"},
		{http.MethodGet, "/api/v1/users/by-card/nobody", "", http.StatusNotFound, "user_not_found"},
		{http.MethodPost, "/api/v1/articles", `{"name":"","price":100}`, http.StatusBadRequest, "invalid_article"},
		{http.MethodPost, "/api/v1/users", `{"nick":"x"}`, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		code, body := s.do(tc.method, tc.path, tc.body)
		if code != tc.status || body["code"] != tc.code {
			t.Errorf("%s %s: got %d %v, want %d %s", tc.method, tc.path, code, body, tc.status, tc.code)
		}
	}
}

func TestArticlesAndPurchase(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/v1/users", `{"nickname":"alice"}`)

	code, body := s.do(http.MethodPost, "/api/v1/articles", `{"name":"Club Mate","price":"1,50"}`)
	if code != http.StatusCreated || body["price_formatted"] != "1,50€" {
		t.Fatalf("create article: %d %v", code, body)
	}
	code, body = s.do(http.MethodPost, "/api/v1/users/1/purchase", `{"article_id":1,"quantity":2}`)
	if code != http.StatusCreated || body["balance_formatted"] != "-3,00€" {
		t.Fatalf("purchase: %d %v", code, body)
	}
	code, body = s.do(http.MethodPost, "/api/v1/users/1/purchase", `{"article_id":1,"quantity":0}`)
	if code != http.StatusBadRequest || body["code"] != "invalid_quantity" {
		t.Fatalf("zero quantity: %d %v", code, body)
	}
	if items := s.list("/api/v1/articles"); len(items) != 1 {
		t.Fatalf("expected one article, got %v", items)
	}
}

func jsonID(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}

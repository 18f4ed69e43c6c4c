package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/reconcile"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/memory"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewMemoryLedgerStore()
	proj := projector.New(store, nil, nil)
	handler := NewRouter(Services{
		Ledger:        ledger.NewLedger(store, proj),
		Registry:      chart.NewRegistry(store, nil),
		Projector:     proj,
		Checker:       reconcile.NewChecker(store, nil, nil),
		Currency:      "USD",
		RetryAttempts: 3,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, t: t}
}

func (s *testServer) do(method, path string, body any, headers ...string) (*http.Response, map[string]any) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		s.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			s.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp, out
}

func (s *testServer) createAccount(code, name, typ string) string {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/accounts", map[string]string{"code": code, "name": name, "type": typ})
	if resp.StatusCode != http.StatusCreated {
		s.t.Fatalf("create account %s: status %d body %v", code, resp.StatusCode, body)
	}
	return body["account"].(map[string]any)["id"].(string)
}

func rentPayment(cash, rentals, amount string) map[string]any {
	return map[string]any{
		"type": "rentals",
		"date": "2024-03-01",
		"entries": []map[string]any{
			{"account_id": cash, "kind": "debit", "amount": amount},
			{"account_id": rentals, "kind": "credit", "amount": amount},
		},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestPostAndReadBalance(t *testing.T) {
	s := newTestServer(t)
	cash := s.createAccount("10002", "Cash", "asset")
	rentals := s.createAccount("40001", "Rentals", "revenue")

	resp, body := s.do(http.MethodPost, "/transactions", rentPayment(cash, rentals, "200.00"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post status = %d, body %v", resp.StatusCode, body)
	}
	txn := body["transaction"].(map[string]any)
	if txn["amount"] != "200" || txn["state"] != "active" {
		t.Errorf("transaction = %v", txn)
	}

	for _, id := range []string{cash, rentals} {
		resp, bal := s.do(http.MethodGet, "/accounts/"+id+"/balance", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("balance status = %d", resp.StatusCode)
		}
		if bal["balance"] != "200" || bal["entry_count"] != float64(1) {
			t.Errorf("balance %s = %v", id, bal)
		}
	}

	resp, entries := s.do(http.MethodGet, "/accounts/"+cash+"/entries", nil)
	if resp.StatusCode != http.StatusOK || len(entries["entries"].([]any)) != 1 {
		t.Errorf("entries = %d %v", resp.StatusCode, entries)
	}
}

func TestPostErrors(t *testing.T) {
	s := newTestServer(t)
	cash := s.createAccount("10002", "Cash", "asset")
	rentals := s.createAccount("40001", "Rentals", "revenue")

	unbalanced := rentPayment(cash, rentals, "300")
	unbalanced["entries"].([]map[string]any)[1]["amount"] = "280"

	unknown := rentPayment(cash, "missing", "10")
	fractional := rentPayment(cash, rentals, "1.005")
	badKind := rentPayment(cash, rentals, "10")
	badKind["entries"].([]map[string]any)[0]["kind"] = "sideways"
	badDate := rentPayment(cash, rentals, "10")
	badDate["date"] = "01/03/2024"
	yen := rentPayment(cash, rentals, "200")
	yen["currency"] = "JPY"
	notCurrency := rentPayment(cash, rentals, "1.00")
	notCurrency["currency"] = "nonsense-currency"

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unbalanced", unbalanced, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown account", unknown, http.StatusNotFound, "not_found"},
		{"fractional cents", fractional, http.StatusBadRequest, "validation_error"},
		{"bad kind", badKind, http.StatusBadRequest, "invalid_request"},
		{"bad date", badDate, http.StatusBadRequest, "validation_error"},
		{"foreign currency", yen, http.StatusBadRequest, "validation_error"},
		{"not a currency", notCurrency, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(http.MethodPost, "/transactions", tt.body)
			if resp.StatusCode != tt.status || body["error"] != tt.code {
				t.Errorf("status = %d body = %v, want %d %s", resp.StatusCode, body, tt.status, tt.code)
			}
		})
	}

	_, tb := s.do(http.MethodGet, "/reconciliation/trial-balance", nil)
	if tb["total_debits"] != float64(0) || tb["balanced"] != true {
		t.Errorf("trial balance after rejected posts = %v", tb)
	}
}

func TestIdempotencyKeyHeader(t *testing.T) {
	s := newTestServer(t)
	cash := s.createAccount("10002", "Cash", "asset")
	rentals := s.createAccount("40001", "Rentals", "revenue")

	first, body1 := s.do(http.MethodPost, "/transactions", rentPayment(cash, rentals, "50"), "Idempotency-Key", "abc")
	second, body2 := s.do(http.MethodPost, "/transactions", rentPayment(cash, rentals, "50"), "Idempotency-Key", "abc")
	if first.StatusCode != http.StatusCreated || second.StatusCode != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 201, 200", first.StatusCode, second.StatusCode)
	}
	id1 := body1["transaction"].(map[string]any)["id"]
	id2 := body2["transaction"].(map[string]any)["id"]
	if id1 != id2 || body2["replayed"] != true {
		t.Errorf("replay = %v, first id %v", body2, id1)
	}

	third, body3 := s.do(http.MethodPost, "/transactions", rentPayment(cash, rentals, "75"), "Idempotency-Key", "abc")
	if third.StatusCode != http.StatusConflict || body3["error"] != "idempotency_conflict" {
		t.Errorf("reused key with other amount = %d %v, want 409 idempotency_conflict", third.StatusCode, body3)
	}
	_, bal := s.do(http.MethodGet, "/accounts/"+cash+"/balance", nil)
	if bal["balance"] != "50" {
		t.Errorf("cash balance = %v, want 50", bal["balance"])
	}
}

func TestVoidFlow(t *testing.T) {
	s := newTestServer(t)
	cash := s.createAccount("10002", "Cash", "asset")
	repairs := s.createAccount("50001", "Repairs", "expense")

	expense := map[string]any{
		"type": "expense",
		"date": "2024-03-02",
		"entries": []map[string]any{
			{"account_id": repairs, "kind": "debit", "amount": 50},
			{"account_id": cash, "kind": "credit", "amount": 50},
		},
	}
	_, body := s.do(http.MethodPost, "/transactions", expense)
	id := body["transaction"].(map[string]any)["id"].(string)

	resp, _ := s.do(http.MethodPost, "/transactions/"+id+"/void", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("void status = %d", resp.StatusCode)
	}
	resp, body = s.do(http.MethodPost, "/transactions/"+id+"/void", nil)
	if resp.StatusCode != http.StatusConflict || body["error"] != "already_voided" {
		t.Errorf("second void = %d %v", resp.StatusCode, body)
	}

	_, got := s.do(http.MethodGet, "/transactions/"+id, nil)
	if got["transaction"].(map[string]any)["state"] != "voided" {
		t.Errorf("transaction = %v", got)
	}

	_, bal := s.do(http.MethodGet, "/accounts/"+cash+"/balance", nil)
	if bal["balance"] != "0" {
		t.Errorf("cash after void = %v", bal)
	}

	resp, rec := s.do(http.MethodPost, "/balances/recompute", nil)
	if resp.StatusCode != http.StatusOK || rec["accounts"] != float64(2) {
		t.Errorf("recompute = %d %v", resp.StatusCode, rec)
	}

	resp, report := s.do(http.MethodGet, "/reconciliation", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reconciliation = %d %v", resp.StatusCode, report)
	}
}

func TestAccountEndpoints(t *testing.T) {
	s := newTestServer(t)
	cash := s.createAccount("10002", "Cash", "asset")
	spare := s.createAccount("50009", "Spare", "expense")

	resp, body := s.do(http.MethodPost, "/accounts", map[string]string{"code": "10002", "name": "Dup", "type": "asset"})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body["error_description"].(string), "already exists") {
		t.Errorf("duplicate = %d %v", resp.StatusCode, body)
	}

	resp, _ = s.do(http.MethodDelete, "/accounts/"+spare, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = s.do(http.MethodGet, "/accounts/"+spare, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted status = %d", resp.StatusCode)
	}

	_, list := s.do(http.MethodGet, "/accounts?type=asset", nil)
	accounts := list["accounts"].([]any)
	if len(accounts) != 1 || accounts[0].(map[string]any)["id"] != cash {
		t.Errorf("asset accounts = %v", accounts)
	}

	resp, _ = s.do(http.MethodGet, "/accounts?type=furniture", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad type filter status = %d", resp.StatusCode)
	}
}

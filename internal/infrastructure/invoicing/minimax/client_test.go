package minimax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
)

func newTestServer(t *testing.T, tokenCalls *int32, got *map[string]json.RawMessage) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/currentuser/orgs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"Rows":[{"OrganisationId":77}]}`))
	})
	mux.HandleFunc("/api/orgs/77/issuedinvoices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Location", "https://example.test/api/orgs/77/issuedinvoices/9001")
		w.WriteHeader(http.StatusCreated)
	})
	return httptest.NewServer(mux)
}

func TestCreateDraft(t *testing.T) {
	var tokenCalls int32
	var got map[string]json.RawMessage
	srv := newTestServer(t, &tokenCalls, &got)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api", TokenURL: srv.URL + "/token"})
	draft := invoicing.Draft{
		CustomerRef:      "42",
		Date:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:          time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		DescriptionAbove: "Kreiran iz radnog naloga: RN-5",
		Rows: []invoicing.Row{{
			ItemName:   "Letak A5",
			Quantity:   types.MustQuantity("2.5"),
			Unit:       "kom",
			Price:      types.MustMoney("10.00"),
			VATPercent: decimal.NewFromInt(25),
		}},
	}

	ref, err := c.CreateDraft(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "9001", ref)

	var inv issuedInvoice
	require.NoError(t, json.Unmarshal(got["issuedInvoice"], &inv))
	assert.Equal(t, "O", inv.Status)
	assert.Equal(t, int64(42), inv.Customer.CustomerID)
	assert.Equal(t, "2026-03-31", inv.DateDue)
	require.Len(t, inv.Rows, 1)
	assert.Equal(t, json.Number("2.5"), inv.Rows[0].Quantity)

	_, err = c.CreateDraft(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestCreateDraft_NonNumericCustomer(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"})

	_, err := c.CreateDraft(context.Background(), invoicing.Draft{CustomerRef: "abc"})
	assert.Error(t, err)
}

func TestCreateDraft_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/currentuser/orgs", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api", TokenURL: srv.URL + "/token"})
	_, err := c.CreateDraft(context.Background(), invoicing.Draft{CustomerRef: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

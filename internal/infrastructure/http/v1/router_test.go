package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/auth"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/export"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/middleware"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/metrics"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/memory"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
}

func newServices() Services {
	store := memory.New()
	txm := store.TxManager()
	st := stock.NewService(store.Stock(), store.Materials(), txm, store)
	return Services{
		Materials: material.NewService(store.Materials(), txm, st),
		Stock:     st,
		Orders: workorder.NewService(workorder.Deps{
			Repo:      store.WorkOrders(),
			Reminders: store.Reminders(),
			Stock:     st,
			Numerator: store,
			Audit:     store,
			Publisher: store,
			TxManager: txm,
		}),
		Reminders: reminder.NewService(store.Reminders(), txm),
	}
}

func newAPI(t *testing.T, validator middleware.JWTValidator) *apiFixture {
	return &apiFixture{t: t, router: NewRouter(RouterConfig{
		Services:     newServices(),
		Logger:       logger.Nop(),
		JWTValidator: validator,
		Metrics:      metrics.New(),
		Storage:      "memory",
	})}
}

// do sends a request as user "ivana"; role may be empty.
func (f *apiFixture) do(method, path, role string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "ivana")
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type created struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func (f *apiFixture) createMaterial(name string, initial float64) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/v1/materials", "", map[string]any{
		"name": name, "unit": "list", "price": "0.5", "initialStock": initial,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[created](f.t, w).ID
}

func (f *apiFixture) createOrder() string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/v1/work-orders", "", map[string]any{
		"customerName": "Tiskara Kos",
		"title":        "Letci A5",
		"date":         "2026-10-19",
		"lines":        []map[string]any{{"name": "Letak A5", "quantity": 500, "price": "0.2"}},
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[created](f.t, w).ID
}

func TestHealth(t *testing.T) {
	f := newAPI(t, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPI(t, nil)
	f.createMaterial("Papir", 10)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "radni_nalozi_http_requests_total")
}

func TestAuth_MissingActor(t *testing.T) {
	f := newAPI(t, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.NotEmpty(t, body.Error)
}

func TestAuth_BearerToken(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("secret"))
	f := newAPI(t, jwtSvc)

	token, _, err := jwtSvc.GenerateAccessToken("ivana", "Ivana", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Gateway headers are not trusted once a secret is configured.
	w = f.do(http.MethodGet, "/api/v1/materials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMaterials_CreateAndLedger(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Papir 80g", 100)

	w := f.do(http.MethodGet, "/api/v1/materials/"+materialID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[map[string]any](t, w)
	assert.Equal(t, "Papir 80g", m["name"])
	assert.EqualValues(t, 100, m["onHand"])
	assert.Equal(t, false, m["lowStock"])

	w = f.do(http.MethodPost, "/api/v1/materials/"+materialID+"/ledger", "", map[string]any{
		"quantity": -5, "kind": "CORRECTION", "note": "inventura",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 95, decode[map[string]any](t, w)["onHand"])

	w = f.do(http.MethodGet, "/api/v1/materials/"+materialID+"/ledger", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]any](t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "CORRECTION", rows[0]["kind"])
	assert.Equal(t, "IN", rows[1]["kind"])
}

func TestMaterials_ValidationEnvelope(t *testing.T) {
	f := newAPI(t, nil)

	w := f.do(http.MethodPost, "/api/v1/materials", "", map[string]any{"name": "Papir", "price": "-1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)

	w = f.do(http.MethodGet, "/api/v1/materials/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/materials/0192f0e6-0000-7000-8000-000000000000", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, w).Code)
}

func TestMaterials_AdjustOutOfRange(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Papir", 100)

	w := f.do(http.MethodPost, "/api/v1/materials/"+materialID+"/ledger", "", map[string]any{
		"quantity": 1000000000000000, "kind": "CORRECTION",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)

	w = f.do(http.MethodPost, "/api/v1/materials/"+materialID+"/ledger", "", map[string]any{
		"quantity": "922337203685477", "kind": "CORRECTION",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)

	w = f.do(http.MethodGet, "/api/v1/materials/"+materialID, "", nil)
	assert.EqualValues(t, 100, decode[map[string]any](t, w)["onHand"])
}

func TestMaterials_ExportLedger(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Toner", 3)

	w := f.do(http.MethodGet, "/api/v1/materials/"+materialID+"/ledger/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.XLSXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "kartica_"+materialID+".xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestArticleNorm(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Karton", 0)

	w := f.do(http.MethodPut, "/api/v1/articles/ART-7/materials", "", map[string]any{
		"materials": []map[string]any{{"materialId": materialID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/articles/ART-7/materials", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lines := decode[[]map[string]any](t, w)
	require.Len(t, lines, 1)
	assert.Equal(t, "Karton", lines[0]["name"])
	assert.EqualValues(t, 2, lines[0]["quantity"])
}

func TestWorkOrders_BookAndReverse(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Papir", 10)
	orderID := f.createOrder()

	w := f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/consumptions", "", map[string]any{
		"materialId": materialID, "quantity": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booked := decode[map[string]any](t, w)
	assert.EqualValues(t, 7, booked["onHand"])
	consumptionID := booked["id"].(string)

	w = f.do(http.MethodGet, "/api/v1/work-orders/"+orderID+"/consumptions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = f.do(http.MethodDelete, "/api/v1/consumptions/"+consumptionID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/materials/"+materialID, "", nil)
	assert.EqualValues(t, 10, decode[map[string]any](t, w)["onHand"])

	w = f.do(http.MethodDelete, "/api/v1/consumptions/"+consumptionID, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkOrders_DeleteAndRestore(t *testing.T) {
	f := newAPI(t, nil)
	materialID := f.createMaterial("Papir", 10)
	orderID := f.createOrder()

	w := f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/consumptions", "", map[string]any{
		"materials": []map[string]any{
			{"materialId": materialID, "quantity": 2},
			{"materialId": materialID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodDelete, "/api/v1/work-orders/"+orderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["returned"])

	w = f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/restore", "", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, w).Code)

	w = f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/restore", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["returned"])

	w = f.do(http.MethodGet, "/api/v1/materials/"+materialID, "", nil)
	assert.EqualValues(t, 7, decode[map[string]any](t, w)["onHand"])

	w = f.do(http.MethodGet, "/api/v1/work-orders/"+orderID+"/history", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)
}

func TestWorkOrders_ListAndGet(t *testing.T) {
	f := newAPI(t, nil)
	orderID := f.createOrder()

	w := f.do(http.MethodGet, "/api/v1/work-orders?search=letci", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, orderID, list[0]["id"])
	assert.Regexp(t, `^RN-\d+$`, list[0]["number"])

	w = f.do(http.MethodGet, "/api/v1/work-orders/"+orderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	assert.Equal(t, "2026-10-19T00:00:00Z", detail["date"])
	assert.Len(t, detail["lines"], 1)
}

func TestWorkOrders_Delivery(t *testing.T) {
	f := newAPI(t, nil)
	orderID := f.createOrder()

	w := f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/delivery", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode[map[string]any](t, w)["data"].(map[string]any)
	assert.Equal(t, true, issued["deliveryIssued"])
	assert.NotEmpty(t, issued["deliveryNumber"])

	w = f.do(http.MethodDelete, "/api/v1/work-orders/"+orderID+"/delivery", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, w)["data"].(map[string]any)["deliveryIssued"])
}

func TestWorkOrders_InvoiceNotConfigured(t *testing.T) {
	f := newAPI(t, nil)
	orderID := f.createOrder()

	w := f.do(http.MethodPost, "/api/v1/work-orders/"+orderID+"/invoice", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminders(t *testing.T) {
	f := newAPI(t, nil)
	orderID := f.createOrder()

	due := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	w := f.do(http.MethodPost, "/api/v1/reminders", "", map[string]any{
		"orderId": orderID, "text": "Nazvati kupca", "priority": "visok", "dueDate": due,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reminderID := decode[created](t, w).ID

	w = f.do(http.MethodGet, "/api/v1/reminders?orderId="+orderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]any](t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "high", rows[0]["priority"])

	w = f.do(http.MethodDelete, "/api/v1/reminders/"+reminderID+"?hard=true", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodDelete, "/api/v1/reminders/"+reminderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/reminders?orderId="+orderID, "", nil)
	assert.Equal(t, true, decode[[]map[string]any](t, w)[0]["done"])

	w = f.do(http.MethodGet, "/api/v1/reminders?orderId=bad", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "handler-secret"

var now = time.Date(2026, 5, 9, 10, 0, 0, 0, time.UTC)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]model.Order
}

func (f *fakeOrders) Create(ctx context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeOrders) FindByID(ctx context.Context, id string) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListByUserID(ctx context.Context, userID string, page, limit int) ([]model.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) ListAdmin(ctx context.Context, filter repository.AdminOrderListFilter) ([]model.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) Update(ctx context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orders[o.ID].Version != o.Version {
		return repository.ErrConflict
	}
	o.Version++
	f.orders[o.ID] = *o
	return nil
}

type fakeAudit struct{ logs []model.AuditLog }

func (f *fakeAudit) Create(ctx context.Context, l model.AuditLog) error {
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, filter repository.AuditLogFilter) ([]model.AuditLog, error) {
	return f.logs, nil
}

type fakeTx struct {
	orders *fakeOrders
	audit  *fakeAudit
}

func (t fakeTx) Orders() repository.OrderRepository { return t.orders }

func (t fakeTx) AuditLogs() repository.AuditLogRepository { return t.audit }

func (t fakeTx) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return fn(t)
}

type noLock struct{}

func (noLock) Lock(ctx context.Context, orderID string) (func(), error) { return func() {}, nil }

type fakeProducts struct{ byID map[string]model.Product }

func (f fakeProducts) ListPublic(ctx context.Context, q repository.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range f.byID {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (f fakeProducts) FindByID(ctx context.Context, id string) (model.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (f fakeProducts) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := map[string]model.Product{}
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f fakeProducts) Create(ctx context.Context, p *model.Product) error {
	f.byID[p.ID] = *p
	return nil
}

type fakeUsers struct{ byID map[string]model.User }

func (f fakeUsers) Create(ctx context.Context, u *model.User) error { return nil }

func (f fakeUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (f fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (f fakeUsers) Update(ctx context.Context, u *model.User) error { return nil }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return now }

// tokens are checked against the wall clock
type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return "id-" + strconv.Itoa(s.n)
}

type pdfStub struct{}

func (pdfStub) Render(o model.Order) ([]byte, error) { return []byte("%PDF-1.3 " + o.ID), nil }

type app struct {
	e      *echo.Echo
	orders *fakeOrders
	audit  *fakeAudit
	tokens map[string]string
}

func newApp(t *testing.T) *app {
	t.Helper()
	log, _ := test.NewNullLogger()

	orders := &fakeOrders{orders: map[string]model.Order{}}
	audit := &fakeAudit{}
	users := fakeUsers{byID: map[string]model.User{
		"u1":      {ID: "u1", Role: model.RoleUser, IsActive: true},
		"admin-1": {ID: "admin-1", Role: model.RoleAdmin, IsActive: true},
	}}
	products := fakeProducts{byID: map[string]model.Product{
		"p1": {ID: "p1", Name: "Tee", MRP: 25, IsActive: true},
	}}
	deps := usecase.Deps{
		Orders:    orders,
		Products:  products,
		Users:     users,
		AuditLogs: audit,
		Tx:        fakeTx{orders: orders, audit: audit},
		Locker:    noLock{},
		Clock:     fixedClock{},
		IDs:       &seqIDs{},
		Log:       log,
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(log)
	guards := NewGuards(jwtSecret, users, middleware.NewRateLimiter(100, 100))

	shipments := usecase.NewShipmentUsecase(deps, nil, usecase.ShipmentOptions{})
	NewOrderHandler(usecase.NewOrderUsecase(deps, shipments, pdfStub{}, usecase.OrderOptions{})).RegisterRoutes(e, guards)
	NewAdminOrderHandler(usecase.NewAdminOrderUsecase(deps)).RegisterRoutes(e, guards)
	NewProductHandler(usecase.NewProductUsecase(deps)).RegisterRoutes(e)
	NewAdminProductHandler(usecase.NewProductUsecase(deps)).RegisterRoutes(e, guards)

	issuer := usecase.NewJWTIssuer(jwtSecret, time.Hour, wallClock{})
	tokens := map[string]string{}
	for id, u := range users.byID {
		tok, _, err := issuer.Issue(u)
		require.NoError(t, err)
		tokens[id] = tok
	}
	return &app{e: e, orders: orders, audit: audit, tokens: tokens}
}

func (a *app) do(method, path, as, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if as != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.tokens[as])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_Mapping(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.GET("/validation", func(c echo.Context) error { return usecase.ValidationError("qty must be at least 1") })
	e.GET("/upstream", func(c echo.Context) error { return usecase.UpstreamError("delhivery", errors.New("pincode not serviceable")) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("db password leaked here") })

	cases := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/validation", http.StatusBadRequest, usecase.CodeValidation, "qty must be at least 1"},
		{"/upstream", http.StatusInternalServerError, usecase.CodeUpstream, "delhivery request failed: pincode not serviceable"},
		{"/boom", http.StatusInternalServerError, usecase.CodeInternal, "internal error"},
		{"/missing", http.StatusNotFound, usecase.CodeNotFound, "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Message)
		})
	}
	assert.NotEmpty(t, hook.AllEntries())
}

func TestOrders_RequireToken(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/orders", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, usecase.CodeUnauthorized, decodeError(t, rec).Code)
}

func TestOrders_CreateAndFetch(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/orders", "u1", `{"items":[{"productId":"p1","quantity":2}],"paymentMethod":"COD"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var o model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, 50.0, o.ItemsPrice)
	assert.Equal(t, 10.0, o.ShippingPrice)
	assert.Equal(t, 60.0, o.TotalPrice)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, model.OrderStageOrdered, o.OrderStage)

	rec = a.do(http.MethodGet, "/orders/"+o.ID, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/orders/my", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = a.do(http.MethodGet, "/orders/"+o.ID+"/invoice", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "invoice-"+o.ID+".pdf")
}

func TestOrders_CreateRejectsBadInput(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/orders", "u1", `{"items":[],"paymentMethod":"COD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/orders", "u1", `{"items":[{"productId":"nope","quantity":1}],"paymentMethod":"COD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/orders", "u1", `{"items":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeError(t, rec).Message)
}

func TestAdminRoutes_RefuseUsers(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/orders", "u1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/orders", "admin-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_UpdateStageAppendsHistory(t *testing.T) {
	a := newApp(t)
	o := model.Order{ID: "o1", UserID: "u1", PaymentMethod: model.PaymentMethodCOD, Items: []model.OrderItem{}}
	o.NewOrderLifecycle()
	a.orders.orders["o1"] = o

	rec := a.do(http.MethodPut, "/orders/o1/stage", "admin-1", `{"stage":"being_made"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.OrderStageBeingMade, got.OrderStage)
	require.Len(t, got.StageHistory, 1)
	assert.Equal(t, "admin:admin-1", got.StageHistory[0].UpdatedBy)
	assert.Len(t, a.audit.logs, 1)

	rec = a.do(http.MethodPut, "/orders/o1/stage", "admin-1", `{"stage":"teleported"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_AuditLogsBadDate(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/admin/audit-logs?from=yesterday", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/admin/audit-logs?from=2026-05-01&to=2026-05-09", "admin-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts_PublicAndAdminCreate(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/products/p1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/products?page=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/admin/products", "u1", `{"name":"Cap","mrp":5}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/admin/products", "admin-1", `{"name":"Cap","mrp":5}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHealth_ReportsFailingCheck(t *testing.T) {
	e := echo.New()
	NewHealthHandler(map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return nil },
		"db":    func(ctx context.Context) error { return errors.New("connection refused") },
	}).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["redis"])
	assert.Equal(t, "connection refused", body.Checks["db"])
}

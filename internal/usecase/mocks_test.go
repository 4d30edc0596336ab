package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/payment"
	"storefront/internal/infra/shipment"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// in-memory order store with version CAS
// =====================

type memOrders struct {
	mu     sync.Mutex
	orders map[string]model.Order
	// bumpBeforeUpdate simulates a concurrent writer landing first.
	bumpBeforeUpdate bool
}

func newMemOrders(orders ...model.Order) *memOrders {
	m := &memOrders{orders: map[string]model.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) Create(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrders) FindByID(ctx context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) ListByUserID(ctx context.Context, userID string, page, limit int) ([]model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) Update(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[o.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if m.bumpBeforeUpdate {
		cur.Version++
		m.orders[o.ID] = cur
	}
	if cur.Version != o.Version {
		return repo.ErrConflict
	}
	o.Version++
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrders) get(id string) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

type memAudit struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (a *memAudit) Create(ctx context.Context, l model.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, l)
	return nil
}

func (a *memAudit) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []model.AuditLog{}
	for _, l := range a.logs {
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (a *memAudit) actions() []model.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AuditAction, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

// =====================
// TxManager / TxRepos
// =====================

type txRepos struct {
	orders repo.OrderRepository
	audit  repo.AuditLogRepository
}

func (r txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r txRepos) AuditLogs() repo.AuditLogRepository { return r.audit }

type passthroughTx struct{ repos txRepos }

func (t passthroughTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(t.repos)
}

// retryingTx runs fn, rolls the order store back, then runs fn again, the
// way mongo's WithTransaction retries after a transient error.
type retryingTx struct {
	repos  txRepos
	orders *memOrders
}

func (t retryingTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	t.orders.mu.Lock()
	saved := make(map[string]model.Order, len(t.orders.orders))
	for id, o := range t.orders.orders {
		saved[id] = o
	}
	t.orders.mu.Unlock()

	if err := fn(t.repos); err != nil {
		return err
	}

	t.orders.mu.Lock()
	t.orders.orders = saved
	t.orders.mu.Unlock()
	return fn(t.repos)
}

type LockerMock struct{ mock.Mock }

func (m *LockerMock) Lock(ctx context.Context, orderID string) (func(), error) {
	args := m.Called(ctx, orderID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context, orderID string) (func(), error) { return func() {}, nil }

// =====================
// Repository mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	args := m.Called(ctx, ids)
	ps, _ := args.Get(0).(map[string]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

type OTPStoreMock struct{ mock.Mock }

func (m *OTPStoreMock) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	args := m.Called(ctx, email, code, ttl)
	return args.Error(0)
}

func (m *OTPStoreMock) Verify(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// =====================
// Gateway mocks
// =====================

type ShipmentGatewayMock struct{ mock.Mock }

func (m *ShipmentGatewayMock) CreateShipment(ctx context.Context, req shipment.ShipmentRequest) (shipment.CreateResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(shipment.CreateResult)
	return r, args.Error(1)
}

func (m *ShipmentGatewayMock) TrackShipment(ctx context.Context, waybill string) (shipment.TrackingResult, error) {
	args := m.Called(ctx, waybill)
	r, _ := args.Get(0).(shipment.TrackingResult)
	return r, args.Error(1)
}

func (m *ShipmentGatewayMock) CancelShipment(ctx context.Context, waybill string) (map[string]interface{}, error) {
	args := m.Called(ctx, waybill)
	r, _ := args.Get(0).(map[string]interface{})
	return r, args.Error(1)
}

type PaymentGatewayMock struct{ mock.Mock }

func (m *PaymentGatewayMock) KeyID() string { return "rzp_test_key" }

func (m *PaymentGatewayMock) CreateOrder(ctx context.Context, amount float64, receipt string, notes map[string]string) (payment.GatewayOrder, error) {
	args := m.Called(ctx, amount, receipt, notes)
	g, _ := args.Get(0).(payment.GatewayOrder)
	return g, args.Error(1)
}

func (m *PaymentGatewayMock) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *PaymentGatewayMock) FetchPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	args := m.Called(ctx, paymentID)
	r, _ := args.Get(0).(map[string]interface{})
	return r, args.Error(1)
}

func (m *PaymentGatewayMock) RefundPayment(ctx context.Context, paymentID string, amount *float64) (map[string]interface{}, error) {
	args := m.Called(ctx, paymentID, amount)
	r, _ := args.Get(0).(map[string]interface{})
	return r, args.Error(1)
}

type SenderMock struct{ mock.Mock }

func (m *SenderMock) SendOTP(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

type stubRenderer struct{ out []byte }

func (r stubRenderer) Render(o model.Order) ([]byte, error) { return r.out, nil }

// =====================
// clock / ids
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

var testNow = time.Date(2026, 5, 9, 10, 0, 0, 0, time.UTC)

var (
	admin = usecase.Caller{UserID: "admin-1", Role: model.RoleAdmin}
	buyer = usecase.Caller{UserID: "u1", Role: model.RoleUser}
	other = usecase.Caller{UserID: "u2", Role: model.RoleUser}
)

// =====================
// fixture
// =====================

type fixture struct {
	orders   *memOrders
	audit    *memAudit
	products *ProductRepoMock
	ship     *ShipmentGatewayMock
	pay      *PaymentGatewayMock
	hook     *test.Hook
	deps     usecase.Deps
}

func newFixture(orders ...model.Order) *fixture {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	f := &fixture{
		orders:   newMemOrders(orders...),
		audit:    &memAudit{},
		products: new(ProductRepoMock),
		ship:     new(ShipmentGatewayMock),
		pay:      new(PaymentGatewayMock),
		hook:     hook,
	}
	f.deps = usecase.Deps{
		Orders:    f.orders,
		Products:  f.products,
		AuditLogs: f.audit,
		Tx:        passthroughTx{repos: txRepos{orders: f.orders, audit: f.audit}},
		Locker:    noopLocker{},
		Clock:     fixedClock{t: testNow},
		IDs:       &seqIDs{},
		Log:       log,
	}
	return f
}

func (f *fixture) shipments() *usecase.ShipmentUsecase {
	return usecase.NewShipmentUsecase(f.deps, f.ship, usecase.ShipmentOptions{SellerName: "Storefront"})
}

func (f *fixture) orderUC(auto bool) *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(f.deps, f.shipments(), stubRenderer{out: []byte("%PDF-1.3")}, usecase.OrderOptions{AutoCreateShipment: auto})
}

func fullAddress() *model.ShippingAddress {
	return &model.ShippingAddress{
		Name:       "Asha Rao",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560038",
		Country:    "India",
		Phone:      "+91 98765 43210",
	}
}

func storedOrder(id string) model.Order {
	o := model.Order{
		ID:              id,
		UserID:          buyer.UserID,
		Items:           []model.OrderItem{{ProductID: "p1", ProductName: "Linen Shirt", UnitPrice: 75, Quantity: 2}},
		ShippingAddress: fullAddress(),
		PaymentMethod:   model.PaymentMethodCOD,
		ItemsPrice:      150,
		TotalPrice:      150,
		CreatedAt:       testNow.Add(-time.Hour),
		UpdatedAt:       testNow.Add(-time.Hour),
	}
	o.NewOrderLifecycle()
	return o
}

func withWaybill(o model.Order, waybill string) model.Order {
	o.Delhivery = &model.DelhiveryShipment{Waybill: waybill, OrderID: o.ID, Scans: []model.ShipmentScan{}}
	return o
}

// =====================
// assertions
// =====================

func assertHTTPError(t *testing.T, err error, status int) *usecase.HTTPError {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want *HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status, he.Error())
	}
	return he
}

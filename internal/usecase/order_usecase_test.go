package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/infra/shipment"
	"storefront/internal/usecase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func catalog() map[string]model.Product {
	return map[string]model.Product{
		"p1": {ID: "p1", Name: "Linen Shirt", MRP: 90, DiscountedPrice: 75, Sizes: map[string]int{"M": 3}, Images: []string{"https://img/p1.jpg"}, IsActive: true},
		"p2": {ID: "p2", Name: "Cotton Tee", MRP: 25, IsActive: true},
		"p3": {ID: "p3", Name: "Retired Cap", MRP: 10, IsActive: false},
	}
}

func TestPlaceOrder_FreeShippingAbove100(t *testing.T) {
	f := newFixture()
	f.products.On("FindByIDs", mock.Anything, []string{"p1"}).Return(catalog(), nil)

	res, err := f.orderUC(false).PlaceOrder(context.Background(), buyer, usecase.PlaceOrderInput{
		Items:           []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 2, Size: "M"}},
		ShippingAddress: fullAddress(),
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)

	assert.Equal(t, 150.0, res.ItemsPrice)
	assert.Equal(t, 0.0, res.ShippingPrice)
	assert.Equal(t, 0.0, res.TaxPrice)
	assert.Equal(t, 150.0, res.TotalPrice)
	assert.Equal(t, model.OrderStatusPending, res.Status)
	assert.Equal(t, model.OrderStageOrdered, res.OrderStage)
	assert.Empty(t, res.StageHistory)
	assert.Nil(t, res.Shipment)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 75.0, res.Items[0].UnitPrice)
	assert.Equal(t, "https://img/p1.jpg", res.Items[0].ImageURL)

	stored := f.orders.get(res.ID)
	assert.Equal(t, buyer.UserID, stored.UserID)
}

func TestPlaceOrder_FlatShippingAtOrBelow100(t *testing.T) {
	f := newFixture()
	f.products.On("FindByIDs", mock.Anything, []string{"p2", "p2"}).Return(catalog(), nil)

	res, err := f.orderUC(false).PlaceOrder(context.Background(), buyer, usecase.PlaceOrderInput{
		Items:         []usecase.PlaceOrderItem{{ProductID: "p2", Quantity: 1}, {ProductID: "p2", Quantity: 1}},
		PaymentMethod: "Razorpay",
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.ItemsPrice)
	assert.Equal(t, 10.0, res.ShippingPrice)
	assert.Equal(t, 60.0, res.TotalPrice)
}

func TestPlaceOrder_ExactlyHundredPaysShipping(t *testing.T) {
	f := newFixture()
	f.products.On("FindByIDs", mock.Anything, []string{"p2"}).Return(catalog(), nil)

	res, err := f.orderUC(false).PlaceOrder(context.Background(), buyer, usecase.PlaceOrderInput{
		Items:         []usecase.PlaceOrderItem{{ProductID: "p2", Quantity: 4}},
		PaymentMethod: "COD",
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.ShippingPrice)
	assert.Equal(t, 110.0, res.TotalPrice)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	cases := []struct {
		name string
		in   usecase.PlaceOrderInput
	}{
		{"no items", usecase.PlaceOrderInput{PaymentMethod: "COD"}},
		{"zero quantity", usecase.PlaceOrderInput{Items: []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 0}}, PaymentMethod: "COD"}},
		{"bad payment method", usecase.PlaceOrderInput{Items: []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 1}}, PaymentMethod: "cash"}},
		{"unknown product", usecase.PlaceOrderInput{Items: []usecase.PlaceOrderItem{{ProductID: "nope", Quantity: 1}}, PaymentMethod: "COD"}},
		{"inactive product", usecase.PlaceOrderInput{Items: []usecase.PlaceOrderItem{{ProductID: "p3", Quantity: 1}}, PaymentMethod: "COD"}},
		{"unknown size", usecase.PlaceOrderInput{Items: []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 1, Size: "XXL"}}, PaymentMethod: "COD"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.products.On("FindByIDs", mock.Anything, mock.Anything).Return(catalog(), nil)

			_, err := f.orderUC(false).PlaceOrder(context.Background(), buyer, tc.in)
			he := assertHTTPError(t, err, http.StatusBadRequest)
			assert.Equal(t, usecase.CodeValidation, he.Code)
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestPlaceOrder_AutoShipmentFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture()
	f.products.On("FindByIDs", mock.Anything, []string{"p1"}).Return(catalog(), nil)
	f.ship.On("CreateShipment", mock.Anything, mock.Anything).Return(shipment.CreateResult{}, errors.New("pincode not serviceable"))

	res, err := f.orderUC(true).PlaceOrder(context.Background(), buyer, usecase.PlaceOrderInput{
		Items:           []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: fullAddress(),
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Shipment)
	assert.True(t, res.Shipment.Attempted)
	assert.False(t, res.Shipment.Succeeded)
	assert.Contains(t, res.Shipment.Error, "pincode not serviceable")
	assert.Equal(t, model.OrderStageOrdered, f.orders.get(res.ID).OrderStage)

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "auto shipment failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestPlaceOrder_AutoShipmentSuccess(t *testing.T) {
	f := newFixture()
	f.products.On("FindByIDs", mock.Anything, []string{"p1"}).Return(catalog(), nil)
	f.ship.On("CreateShipment", mock.Anything, mock.MatchedBy(func(r shipment.ShipmentRequest) bool {
		return r.PaymentMode == "COD" && r.CODAmount == 150 && r.Quantity == 2
	})).Return(shipment.CreateResult{Waybill: "WB1"}, nil)

	res, err := f.orderUC(true).PlaceOrder(context.Background(), buyer, usecase.PlaceOrderInput{
		Items:           []usecase.PlaceOrderItem{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: fullAddress(),
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Shipment)
	assert.True(t, res.Shipment.Succeeded)
	assert.Equal(t, "WB1", res.Shipment.Waybill)
	assert.Equal(t, model.OrderStageShipped, res.OrderStage)
	assert.Equal(t, model.OrderStatusShipped, res.Status)
	require.Len(t, res.StageHistory, 1)
	assert.Equal(t, "system", res.StageHistory[0].UpdatedBy)
}

func TestGetOrder_Access(t *testing.T) {
	f := newFixture(storedOrder("o1"))
	uc := f.orderUC(false)

	o, err := uc.GetOrder(context.Background(), buyer, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = uc.GetOrder(context.Background(), admin, "o1")
	require.NoError(t, err)

	_, err = uc.GetOrder(context.Background(), other, "o1")
	assertHTTPError(t, err, http.StatusForbidden)

	_, err = uc.GetOrder(context.Background(), buyer, "missing")
	assertHTTPError(t, err, http.StatusNotFound)

	_, err = uc.GetOrder(context.Background(), usecase.Caller{}, "o1")
	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestInvoice_OwnerOnly(t *testing.T) {
	f := newFixture(storedOrder("o1"))
	uc := f.orderUC(false)

	pdf, name, err := uc.Invoice(context.Background(), buyer, "o1")
	require.NoError(t, err)
	assert.Equal(t, "invoice-o1.pdf", name)
	assert.NotEmpty(t, pdf)

	_, _, err = uc.Invoice(context.Background(), other, "o1")
	assertHTTPError(t, err, http.StatusForbidden)
}

func TestTrackOrder_NoWaybill(t *testing.T) {
	f := newFixture(storedOrder("o1"))

	_, err := f.orderUC(false).TrackOrder(context.Background(), buyer, "o1")
	assertHTTPError(t, err, http.StatusBadRequest)
	f.ship.AssertNotCalled(t, "TrackShipment", mock.Anything, mock.Anything)
}

func TestTrackOrder_DeliveredOnceAcrossRepeatedCalls(t *testing.T) {
	o := withWaybill(storedOrder("o1"), "WB1")
	require.NoError(t, o.MoveToStage(model.OrderStageShipped, "admin:admin-1", testNow))
	f := newFixture(o)

	f.ship.On("TrackShipment", mock.Anything, "WB1").Return(shipment.TrackingResult{
		Raw:    map[string]interface{}{"ShipmentData": []interface{}{}},
		Status: "Delivered",
		Scans:  []shipment.Scan{{Status: "Delivered", Location: "Bengaluru_Hub", ScannedAt: testNow}},
	}, nil)

	uc := f.orderUC(false)
	first, err := uc.TrackOrder(context.Background(), buyer, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStageDelivered, first.Order.OrderStage)
	assert.Equal(t, model.OrderStatusDelivered, first.Order.Status)
	assert.Equal(t, "Delivered", first.Order.Delhivery.ShipmentStatus)
	require.Len(t, first.Order.Delhivery.Scans, 1)
	assert.Equal(t, "Bengaluru_Hub", first.Order.Delhivery.Scans[0].Location)
	assert.Len(t, first.Order.StageHistory, 2)
	assert.NotNil(t, first.Tracking)

	second, err := uc.TrackOrder(context.Background(), buyer, "o1")
	require.NoError(t, err)
	assert.Len(t, second.Order.StageHistory, 2)
	assert.Equal(t, "delhivery", second.Order.StageHistory[1].UpdatedBy)
}

func TestTrackOrder_InTransitAdvancesOrdered(t *testing.T) {
	f := newFixture(withWaybill(storedOrder("o1"), "WB1"))
	f.ship.On("TrackShipment", mock.Anything, "WB1").Return(shipment.TrackingResult{Status: "In Transit"}, nil)

	res, err := f.orderUC(false).TrackOrder(context.Background(), admin, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStageShipped, res.Order.OrderStage)
	assert.Empty(t, f.audit.actions())
}

func TestTrackOrder_UpstreamError(t *testing.T) {
	f := newFixture(withWaybill(storedOrder("o1"), "WB1"))
	f.ship.On("TrackShipment", mock.Anything, "WB1").Return(shipment.TrackingResult{}, errors.New("503 from carrier"))

	_, err := f.orderUC(false).TrackOrder(context.Background(), buyer, "o1")
	he := assertHTTPError(t, err, http.StatusInternalServerError)
	assert.Equal(t, usecase.CodeUpstream, he.Code)
	assert.Contains(t, he.Message, "503 from carrier")
}

func TestListMyOrders_Defaults(t *testing.T) {
	f := newFixture(storedOrder("o1"))

	out, err := f.orderUC(false).ListMyOrders(context.Background(), buyer, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 100, out.Limit)
	assert.Len(t, out.Items, 1)
}

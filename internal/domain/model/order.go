package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderStage string

const (
	OrderStageOrdered   OrderStage = "ordered"
	OrderStageBeingMade OrderStage = "being_made"
	OrderStageShipped   OrderStage = "shipped"
	OrderStageDelivered OrderStage = "delivered"
	OrderStageCancelled OrderStage = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodRazorpay PaymentMethod = "Razorpay"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func ParseOrderStage(s string) (OrderStage, bool) {
	switch st := OrderStage(s); st {
	case OrderStageOrdered, OrderStageBeingMade, OrderStageShipped, OrderStageDelivered, OrderStageCancelled:
		return st, true
	}
	return "", false
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodCOD, PaymentMethodRazorpay:
		return m, true
	}
	return "", false
}

// OrderItem is a line snapshot taken at checkout. It is never re-derived from the catalog.
type OrderItem struct {
	ProductID   string  `json:"productId" bson:"productId"`
	ProductName string  `json:"productName" bson:"productName"`
	UnitPrice   float64 `json:"unitPrice" bson:"unitPrice"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	Size        string  `json:"size,omitempty" bson:"size,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
}

type ShippingAddress struct {
	Name       string `json:"name" bson:"name"`
	Line1      string `json:"line1" bson:"line1"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
	Phone      string `json:"phone" bson:"phone"`
}

type Refund struct {
	ID        string    `json:"id" bson:"id"`
	Amount    float64   `json:"amount" bson:"amount"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type PaymentResult struct {
	GatewayOrderID string    `json:"gatewayOrderId,omitempty" bson:"gatewayOrderId,omitempty"`
	ID             string    `json:"id,omitempty" bson:"id,omitempty"`
	Status         string    `json:"status,omitempty" bson:"status,omitempty"`
	Signature      string    `json:"signature,omitempty" bson:"signature,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
	Refund         *Refund   `json:"refund,omitempty" bson:"refund,omitempty"`
}

type StageHistoryEntry struct {
	Stage     OrderStage `json:"stage" bson:"stage"`
	Timestamp time.Time  `json:"timestamp" bson:"timestamp"`
	UpdatedBy string     `json:"updatedBy" bson:"updatedBy"`
}

type ShipmentScan struct {
	Status       string    `json:"status" bson:"status"`
	Location     string    `json:"location,omitempty" bson:"location,omitempty"`
	Instructions string    `json:"instructions,omitempty" bson:"instructions,omitempty"`
	ScannedAt    time.Time `json:"scannedAt" bson:"scannedAt"`
}

// DelhiveryShipment is the carrier sub-record. An empty Waybill means no live shipment.
type DelhiveryShipment struct {
	Waybill        string         `json:"waybill,omitempty" bson:"waybill,omitempty"`
	OrderID        string         `json:"orderId,omitempty" bson:"orderId,omitempty"`
	ShipmentStatus string         `json:"shipmentStatus,omitempty" bson:"shipmentStatus,omitempty"`
	Scans          []ShipmentScan `json:"scans" bson:"scans"`
	LastUpdated    *time.Time     `json:"lastUpdated,omitempty" bson:"lastUpdated,omitempty"`
}

type Order struct {
	ID              string              `json:"id" bson:"_id"`
	UserID          string              `json:"userId" bson:"userId"`
	Items           []OrderItem         `json:"items" bson:"items"`
	ShippingAddress *ShippingAddress    `json:"shippingAddress,omitempty" bson:"shippingAddress,omitempty"`
	PaymentMethod   PaymentMethod       `json:"paymentMethod" bson:"paymentMethod"`
	PaymentResult   *PaymentResult      `json:"paymentResult,omitempty" bson:"paymentResult,omitempty"`
	IsPaid          bool                `json:"isPaid" bson:"isPaid"`
	PaidAt          *time.Time          `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	ItemsPrice      float64             `json:"itemsPrice" bson:"itemsPrice"`
	TaxPrice        float64             `json:"taxPrice" bson:"taxPrice"`
	ShippingPrice   float64             `json:"shippingPrice" bson:"shippingPrice"`
	TotalPrice      float64             `json:"totalPrice" bson:"totalPrice"`
	Status          OrderStatus         `json:"status" bson:"status"`
	OrderStage      OrderStage          `json:"orderStage" bson:"orderStage"`
	StageHistory    []StageHistoryEntry `json:"stageHistory" bson:"stageHistory"`
	Delhivery       *DelhiveryShipment  `json:"delhivery,omitempty" bson:"delhivery,omitempty"`
	Version         int64               `json:"version" bson:"version"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

func (o Order) Waybill() string {
	if o.Delhivery == nil {
		return ""
	}
	return o.Delhivery.Waybill
}

func (o Order) HasWaybill() bool {
	return o.Waybill() != ""
}

func (o Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

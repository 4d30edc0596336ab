package shipment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	createPath = "/api/cmu/create.json"
	trackPath  = "/api/v1/packages/json/"
	cancelPath = "/api/p/edit"
)

// ShipmentRequest is what the caller knows about a consignment. The client
// normalises it into the carrier payload.
type ShipmentRequest struct {
	OrderID       string
	Name          string
	AddressLine   string
	City          string
	State         string
	PostalCode    string
	Country       string
	Phone         string
	PaymentMode   string
	CODAmount     float64
	TotalAmount   float64
	Quantity      int
	ProductsDesc  string
	WeightKg      float64
	OrderDate     time.Time
	SellerName    string
	ReturnAddress string
}

type CreateResult struct {
	Waybill string
	Raw     map[string]interface{}
}

type Config struct {
	BaseURL        string
	Token          string
	PickupLocation string
	Timeout        time.Duration
}

type DelhiveryClient struct {
	baseURL string
	token   string
	pickup  string
	http    *http.Client
}

func NewDelhiveryClient(cfg Config) *DelhiveryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DelhiveryClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		pickup:  cfg.PickupLocation,
		http:    &http.Client{Timeout: timeout},
	}
}

type shipmentPayload struct {
	Name         string `json:"name"`
	Add          string `json:"add"`
	Pin          string `json:"pin"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Order        string `json:"order"`
	PaymentMode  string `json:"payment_mode"`
	CODAmount    string `json:"cod_amount"`
	TotalAmount  string `json:"total_amount"`
	Quantity     string `json:"quantity"`
	ProductsDesc string `json:"products_desc"`
	Weight       string `json:"weight"`
	OrderDate    string `json:"order_date"`
	SellerName   string `json:"seller_name,omitempty"`
	ReturnAdd    string `json:"return_add,omitempty"`
	ShippingMode string `json:"shipping_mode"`
	AddressType  string `json:"address_type"`
}

type createPayload struct {
	Shipments      []shipmentPayload `json:"shipments"`
	PickupLocation pickupLocation    `json:"pickup_location"`
}

type pickupLocation struct {
	Name string `json:"name"`
}

var (
	nonDigits  = regexp.MustCompile(`\D`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizePhone keeps digits only and at most the last ten of them.
func NormalizePhone(phone string) string {
	d := nonDigits.ReplaceAllString(phone, "")
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	return d
}

func normalizeText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func gramsFromKg(kg float64) string {
	return decimal.NewFromFloat(kg).Mul(decimal.NewFromInt(1000)).Round(0).String()
}

//money formats rupees with two decimals.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

//buildPayload fills carrier defaults for fields the order left empty.
func (c *DelhiveryClient) buildPayload(req ShipmentRequest) createPayload {
	country := req.Country
	if country == "" {
		country = "India"
	}
	mode := req.PaymentMode
	if mode == "" {
		mode = "Prepaid"
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	date := req.OrderDate
	if date.IsZero() {
		date = time.Now()
	}

	return createPayload{
		Shipments: []shipmentPayload{{
			Name:         normalizeText(req.Name),
			Add:          normalizeText(req.AddressLine),
			Pin:          strings.TrimSpace(req.PostalCode),
			City:         normalizeText(req.City),
			State:        normalizeText(req.State),
			Country:      country,
			Phone:        NormalizePhone(req.Phone),
			Order:        req.OrderID,
			PaymentMode:  mode,
			CODAmount:    money(req.CODAmount),
			TotalAmount:  money(req.TotalAmount),
			Quantity:     fmt.Sprint(qty),
			ProductsDesc: normalizeText(req.ProductsDesc),
			Weight:       gramsFromKg(req.WeightKg),
			OrderDate:    date.Format("2006-01-02"),
			SellerName:   normalizeText(req.SellerName),
			ReturnAdd:    normalizeText(req.ReturnAddress),
			ShippingMode: "Surface",
			AddressType:  "home",
		}},
		PickupLocation: pickupLocation{Name: c.pickup},
	}
}

// CreateShipment books a consignment and returns the assigned waybill with the raw response.
func (c *DelhiveryClient) CreateShipment(ctx context.Context, req ShipmentRequest) (CreateResult, error) {
	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return CreateResult{}, err
	}
// the create API takes the JSON as a form field
	form := url.Values{}
	form.Set("format", "json")
	form.Set("data", string(body))

	raw, status, err := c.do(ctx, http.MethodPost, createPath, nil, form)
	if err != nil {
		return CreateResult{}, fmt.Errorf("delhivery create shipment: %w", err)
	}

	var res createResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return CreateResult{}, fmt.Errorf("delhivery create shipment: decode response (HTTP %d): %w", status, err)
	}
	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)

// a 200 with success=false or no waybill is still a failure
	waybill := res.waybill()
	if status/100 != 2 || (res.Success != nil && !*res.Success) || waybill == "" {
		return CreateResult{Raw: rawMap}, fmt.Errorf("delhivery create shipment: %s", res.remark(status))
	}
	return CreateResult{Waybill: waybill, Raw: rawMap}, nil
}

type createResponse struct {
	Success   *bool           `json:"success"`
	Rmk       string          `json:"rmk"`
	UploadWBN string          `json:"upload_wbn"`
	Packages  []createPackage `json:"packages"`
}

type createPackage struct {
	Waybill string          `json:"waybill"`
	Status  string          `json:"status"`
	Remarks json.RawMessage `json:"remarks"`
}

func (r createResponse) waybill() string {
	if len(r.Packages) > 0 && r.Packages[0].Waybill != "" {
		return r.Packages[0].Waybill
	}
	return r.UploadWBN
}

func (r createResponse) remark(status int) string {
	if r.Rmk != "" {
		return r.Rmk
	}
	if len(r.Packages) > 0 {
		if s := remarksText(r.Packages[0].Remarks); s != "" {
			return s
		}
	}
	if status/100 != 2 {
		return fmt.Sprintf("HTTP %d", status)
	}
	return "no waybill in response"
}

// remarksText accepts a string or a list of strings.
func remarksText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// TrackShipment fetches verbose tracking for a waybill.
func (c *DelhiveryClient) TrackShipment(ctx context.Context, waybill string) (TrackingResult, error) {
	q := url.Values{}
	q.Set("waybill", waybill)
	q.Set("verbose", "3")

	raw, status, err := c.do(ctx, http.MethodGet, trackPath, q, nil)
	if err != nil {
		return TrackingResult{}, fmt.Errorf("delhivery track %s: %w", waybill, err)
	}
	if status/100 != 2 {
		return TrackingResult{}, fmt.Errorf("delhivery track %s: HTTP %d: %s", waybill, status, snippet(raw))
	}
	res, err := ParseTracking(raw)
	if err != nil {
		return TrackingResult{}, fmt.Errorf("delhivery track %s: %w", waybill, err)
	}
	return res, nil
}

// CancelShipment asks the carrier to cancel the consignment.
func (c *DelhiveryClient) CancelShipment(ctx context.Context, waybill string) (map[string]interface{}, error) {
	form := url.Values{}
	form.Set("waybill", waybill)
	form.Set("cancellation", "true")

	raw, status, err := c.do(ctx, http.MethodPost, cancelPath, nil, form)
	if err != nil {
		return nil, fmt.Errorf("delhivery cancel %s: %w", waybill, err)
	}

	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	if status/100 != 2 {
		msg := snippet(raw)
		if out != nil {
			if s, ok := out["remark"].(string); ok && s != "" {
				msg = s
			} else if s, ok := out["error"].(string); ok && s != "" {
				msg = s
			}
		}
		return out, fmt.Errorf("delhivery cancel %s: HTTP %d: %s", waybill, status, msg)
	}
	if out != nil {
		if ok, present := out["status"].(bool); present && !ok {
			msg, _ := out["remark"].(string)
			return out, fmt.Errorf("delhivery cancel %s: %s", waybill, msg)
		}
	}
	return out, nil
}

func (c *DelhiveryClient) do(ctx context.Context, method, path string, query url.Values, form url.Values) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func snippet(raw []byte) string {
	if len(raw) == 0 {
		return "empty response body"
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

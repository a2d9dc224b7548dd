package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client defines the typed operations the reconciliation engine needs from
// the payment gateway. All calls are network I/O and return *Error values
// classified by ErrorKind so callers can distinguish retry from abort.
type Client interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, input UpdateCustomerInput) (*Customer, error)

	CreateSubscription(ctx context.Context, intent SubscriptionIntent) (*CreateSubscriptionResult, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error)
	// CancelSubscription is idempotent: canceling an already-canceled or
	// missing subscription is not an error.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	GetPayment(ctx context.Context, paymentID string) (*PaymentAttempt, error)
	// ListPayments returns the most recent payment attempts for a
	// subscription, newest first.
	ListPayments(ctx context.Context, subscriptionID string, limit int) ([]PaymentAttempt, error)
}

// HTTPClient implements Client over the gateway's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// NewHTTPClient creates a gateway client from config.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gateway: API key is required")
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Wire representations. The gateway speaks upper-case status strings, decimal
// currency values and holds our user ID in externalReference.

type wireCustomer struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	CpfCnpj           string `json:"cpfCnpj,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

type wireSubscription struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	Status            string  `json:"status"`
	DateCreated       string  `json:"dateCreated,omitempty"`
	NextDueDate       string  `json:"nextDueDate,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
	Description       string  `json:"description,omitempty"`
}

type wirePayment struct {
	ID           string  `json:"id"`
	Subscription string  `json:"subscription"`
	Value        float64 `json:"value"`
	Status       string  `json:"status"`
	DueDate      string  `json:"dueDate,omitempty"`
	PaymentDate  string  `json:"paymentDate,omitempty"`
	PixPayload   string  `json:"pixPayload,omitempty"`
}

type wireList[T any] struct {
	Data []T `json:"data"`
}

type wireError struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// CreateCustomer registers the user as a gateway customer. A missing tax ID is
// allowed; the gateway defers billing capability until one is supplied.
func (c *HTTPClient) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error) {
	body := wireCustomer{
		Name:              input.Name,
		Email:             input.Email,
		CpfCnpj:           input.TaxID,
		ExternalReference: input.UserID.String(),
	}

	var out wireCustomer
	if err := c.do(ctx, "CreateCustomer", http.MethodPost, "/customers", body, &out); err != nil {
		return nil, err
	}
	return customerFromWire(out), nil
}

// GetCustomer fetches a customer by gateway ID.
func (c *HTTPClient) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out wireCustomer
	if err := c.do(ctx, "GetCustomer", http.MethodGet, "/customers/"+url.PathEscape(customerID), nil, &out); err != nil {
		return nil, err
	}
	return customerFromWire(out), nil
}

// UpdateCustomer patches customer fields, typically supplying a tax ID that
// was absent at signup.
func (c *HTTPClient) UpdateCustomer(ctx context.Context, customerID string, input UpdateCustomerInput) (*Customer, error) {
	body := wireCustomer{
		Name:    input.Name,
		Email:   input.Email,
		CpfCnpj: input.TaxID,
	}

	var out wireCustomer
	if err := c.do(ctx, "UpdateCustomer", http.MethodPut, "/customers/"+url.PathEscape(customerID), body, &out); err != nil {
		return nil, err
	}
	return customerFromWire(out), nil
}

// CreateSubscription creates a subscription and resolves the first payment
// attempt the gateway opened for it. The payment ID is what callers hand to
// the status poller.
func (c *HTTPClient) CreateSubscription(ctx context.Context, intent SubscriptionIntent) (*CreateSubscriptionResult, error) {
	body := wireSubscription{
		Customer:          intent.CustomerID,
		BillingType:       string(intent.BillingMethod),
		Value:             float64(intent.Value.Amount) / 100,
		NextDueDate:       time.Now().UTC().Format("2006-01-02"),
		ExternalReference: intent.UserID.String(),
		Description:       intent.PlanID,
	}

	var sub wireSubscription
	if err := c.do(ctx, "CreateSubscription", http.MethodPost, "/subscriptions", body, &sub); err != nil {
		return nil, err
	}

	// The gateway opens the first charge asynchronously with the subscription;
	// it is exposed only through the payment listing.
	payments, err := c.ListPayments(ctx, sub.ID, 1)
	if err != nil {
		return nil, err
	}

	result := &CreateSubscriptionResult{
		SubscriptionID: sub.ID,
		Status:         mapSubscriptionStatus(sub.Status),
	}
	if len(payments) > 0 {
		result.PaymentID = payments[0].ID
	}
	return result, nil
}

// ListPayments fetches the newest payment attempts opened for a subscription.
func (c *HTTPClient) ListPayments(ctx context.Context, subscriptionID string, limit int) ([]PaymentAttempt, error) {
	if limit <= 0 {
		limit = 10
	}

	var out wireList[wirePayment]
	path := "/payments?subscription=" + url.QueryEscape(subscriptionID) + "&limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, "ListPayments", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	payments := make([]PaymentAttempt, 0, len(out.Data))
	for _, w := range out.Data {
		payments = append(payments, *paymentFromWire(w))
	}
	return payments, nil
}

// GetSubscription fetches the authoritative subscription record.
func (c *HTTPClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error) {
	var out wireSubscription
	if err := c.do(ctx, "GetSubscription", http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return subscriptionFromWire(out), nil
}

// CancelSubscription cancels a subscription. Fails silently when the
// subscription is already gone so repeated cancels are safe.
func (c *HTTPClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	err := c.do(ctx, "CancelSubscription", http.MethodDelete, "/subscriptions/"+url.PathEscape(subscriptionID), nil, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// GetPayment fetches a single payment attempt.
func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (*PaymentAttempt, error) {
	var out wirePayment
	if err := c.do(ctx, "GetPayment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &out); err != nil {
		return nil, err
	}
	return paymentFromWire(out), nil
}

// do executes one HTTP round trip and maps transport and gateway failures to
// the Error taxonomy. Mutating requests carry an idempotency key so a retried
// submit cannot double-charge.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindValidation, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindUnreachable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindUnreachable, Op: op, Message: "malformed response body", Err: err}
		}
		return nil
	}

	return c.mapFailure(op, resp)
}

// mapFailure converts a non-2xx response into a classified Error.
func (c *HTTPClient) mapFailure(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var code, description string
	var wire wireError
	if err := json.Unmarshal(raw, &wire); err == nil && len(wire.Errors) > 0 {
		code = wire.Errors[0].Code
		description = wire.Errors[0].Description
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Op: op, ReasonCode: code, Message: description}
	case resp.StatusCode == http.StatusBadRequest && isValidationCode(code):
		return &Error{Kind: KindValidation, Op: op, ReasonCode: code, Message: description}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &Error{Kind: KindRejected, Op: op, ReasonCode: code, Message: description}
	default:
		return &Error{
			Kind:    KindUnreachable,
			Op:      op,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
}

// isValidationCode separates malformed-input codes from business-rule
// rejections sharing the 400 status.
func isValidationCode(code string) bool {
	switch code {
	case "invalid_cpfCnpj", "invalid_email", "invalid_value", "invalid_billingType":
		return true
	}
	return false
}

func customerFromWire(w wireCustomer) *Customer {
	c := &Customer{
		ID:    w.ID,
		Name:  w.Name,
		Email: w.Email,
		TaxID: w.CpfCnpj,
	}
	if id, err := uuid.Parse(w.ExternalReference); err == nil {
		c.UserID = id
	}
	return c
}

func subscriptionFromWire(w wireSubscription) *SubscriptionRecord {
	r := &SubscriptionRecord{
		ID:            w.ID,
		Status:        mapSubscriptionStatus(w.Status),
		PaymentMethod: BillingMethod(strings.ToUpper(w.BillingType)),
		PlanID:        w.Description,
	}
	if id, err := uuid.Parse(w.ExternalReference); err == nil {
		r.UserID = id
	}
	if t, err := time.Parse("2006-01-02", w.DateCreated); err == nil {
		r.StartDate = t
	}
	if t, err := time.Parse("2006-01-02", w.NextDueDate); err == nil {
		r.NextBillingDate = t
	}
	return r
}

func paymentFromWire(w wirePayment) *PaymentAttempt {
	p := &PaymentAttempt{
		ID:             w.ID,
		SubscriptionID: w.Subscription,
		Value:          Money{Amount: int64(math.Round(w.Value * 100)), Currency: "BRL"},
		Status:         mapPaymentStatus(w.Status),
		PixPayload:     w.PixPayload,
	}
	if t, err := time.Parse("2006-01-02", w.DueDate); err == nil {
		p.DueDate = t
	}
	if t, err := time.Parse("2006-01-02", w.PaymentDate); err == nil {
		p.PaidDate = &t
	}
	return p
}

// mapPaymentStatus normalizes gateway payment statuses. RECEIVED and CONFIRMED
// both mean the money cleared. Unknown values are preserved lower-cased so the
// open set survives round trips without ever crashing a caller.
func mapPaymentStatus(wire string) PaymentStatus {
	switch strings.ToUpper(wire) {
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return PaymentPending
	case "CONFIRMED", "RECEIVED", "RECEIVED_IN_CASH":
		return PaymentConfirmed
	case "OVERDUE":
		return PaymentOverdue
	case "REFUNDED":
		return PaymentRefunded
	case "CANCELED", "CANCELLED", "PAYMENT_DELETED":
		return PaymentCanceled
	default:
		return PaymentStatus(strings.ToLower(wire))
	}
}

// mapSubscriptionStatus normalizes gateway subscription statuses. Unknown
// values map to SubscriptionUnknown.
func mapSubscriptionStatus(wire string) SubscriptionStatus {
	switch strings.ToUpper(wire) {
	case "ACTIVE":
		return SubscriptionActive
	case "PENDING", "INACTIVE":
		return SubscriptionPending
	case "OVERDUE", "PAST_DUE":
		return SubscriptionOverdue
	case "CANCELED", "CANCELLED", "EXPIRED":
		return SubscriptionCanceled
	default:
		return SubscriptionUnknown
	}
}

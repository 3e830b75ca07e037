// Package ledger is the HTTP client for the school ledger backend that owns
// transactions and payments.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

const maxErrorBody = 512

// APIError is returned for non-2xx ledger responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("ledger %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// CreateTransactionRequest is the body of POST /api/transaction.
type CreateTransactionRequest struct {
	UserID                string      `json:"user_id"`
	CashRegisterSessionID string      `json:"cash_register_session_id"`
	TransactionDate       time.Time   `json:"transaction_date"`
	TotalAmount           money.Money `json:"total_amount"`
	TransactionType       string      `json:"transaction_type"`
}

// PaymentMethodLine is one entry of the payment methods array.
type PaymentMethodLine struct {
	ID      string      `json:"id"`
	Montant money.Money `json:"montant"`
}

// CreatePaymentRequest is the body of POST /api/payment.
type CreatePaymentRequest struct {
	StudentID      string              `json:"student_id"`
	InstallmentID  string              `json:"installment_id"`
	CashRegisterID string              `json:"cash_register_id"`
	CashierID      string              `json:"cashier_id"`
	Amount         money.Money         `json:"amount"`
	TransactionID  string              `json:"transaction_id"`
	Methods        []PaymentMethodLine `json:"methods"`
}

// Config configures the ledger client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the ledger backend over JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a ledger client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: cfg.BaseURL, token: cfg.Token, httpClient: httpClient, logger: logger}
}

// CreateTransaction posts a cash register transaction.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transaction", nil, req, &tx); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		return nil, fmt.Errorf("ledger POST /api/transaction: response without id")
	}
	return &tx, nil
}

// DeleteTransaction removes a transaction. It reports whether the backend accepted the delete.
func (c *Client) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	path := "/api/transaction/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

// CreatePayment posts a payment referencing a transaction.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPost, "/api/payment", nil, req, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" {
		return nil, fmt.Errorf("ledger POST /api/payment: response without id")
	}
	return &payment, nil
}

// ListTransactions returns transactions, optionally filtered by cash register session.
func (c *Client) ListTransactions(ctx context.Context, sessionID string) ([]models.Transaction, error) {
	query := url.Values{}
	if sessionID != "" {
		query.Set("cash_register_session_id", sessionID)
	}
	txs := make([]models.Transaction, 0)
	if err := c.do(ctx, http.MethodGet, "/api/transaction", query, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ListPayments returns payments, optionally filtered by student.
func (c *Client) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := url.Values{}
	if studentID != "" {
		query.Set("student_id", studentID)
	}
	payments := make([]models.Payment, 0)
	if err := c.do(ctx, http.MethodGet, "/api/payment", query, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode ledger %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := requestid.FromContext(ctx)
	if reqID != "" {
		req.Header.Set(requestid.HeaderKey, reqID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ledger %s %s: %w", method, path, err)
	}
	c.logger.Debug("ledger_request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(raw)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: excerpt}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("decode ledger %s %s: %w", method, path, err)
	}
	return nil
}

// unwrapData accepts both bare payloads and {"data": ...} envelopes.
func unwrapData(raw []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if data, ok := envelope["data"]; ok && len(data) > 0 {
		return data
	}
	return raw
}

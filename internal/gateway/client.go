package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusmint/backend/internal/apperr"
	"github.com/campusmint/backend/internal/models"
	"github.com/campusmint/backend/internal/observability"
)

// Client talks to the ledger service over its JSON API. The API key is
// attached per request, not per connection, and every call carries the
// configured timeout. There is deliberately no retry here: a transfer whose
// outcome is unknown must surface to the orchestrator, which marks the bill
// FAILED rather than risking a double spend.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
	metrics *observability.Metrics
}

// NewClient builds a ledger client. metrics may be nil in tests.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
		metrics: metrics,
	}
}

type accountResponse struct {
	AccountID    uuid.UUID `json:"accountId"`
	Balance      int64     `json:"balance"`
	CanOverdraft bool      `json:"canOverdraft"`
}

func (a accountResponse) toModel() models.Account {
	return models.Account{AccountID: a.AccountID, Balance: a.Balance, CanOverdraft: a.CanOverdraft}
}

// GetAccount fetches a single account.
func (c *Client) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var resp accountResponse
	err := c.call(ctx, "get_account", http.MethodGet, "/v1/accounts/"+accountID.String(), nil, &resp)
	if err != nil {
		return nil, err
	}
	account := resp.toModel()
	return &account, nil
}

// GetAccounts fetches a batch of accounts in one round trip.
func (c *Client) GetAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]models.Account, error) {
	req := struct {
		AccountIDs []uuid.UUID `json:"accountIds"`
	}{AccountIDs: accountIDs}

	var resp struct {
		Accounts []accountResponse `json:"accounts"`
	}
	if err := c.call(ctx, "get_accounts", http.MethodPost, "/v1/accounts/batch-get", req, &resp); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, a.toModel())
	}
	return accounts, nil
}

// Transfer executes a balance movement on the ledger.
func (c *Client) Transfer(ctx context.Context, from, to uuid.UUID, amount int64, idempotencyKey, description string) error {
	req := struct {
		FromAccountID  uuid.UUID `json:"fromAccountId"`
		ToAccountID    uuid.UUID `json:"toAccountId"`
		Amount         int64     `json:"amount"`
		IdempotencyKey string    `json:"idempotencyKey"`
		Description    string    `json:"description,omitempty"`
	}{from, to, amount, idempotencyKey, description}

	return c.call(ctx, "transfer", http.MethodPost, "/v1/transfers", req, nil)
}

// CreateAccount opens a new ledger account.
func (c *Client) CreateAccount(ctx context.Context, canOverdraft bool) (*models.Account, error) {
	req := struct {
		CanOverdraft bool `json:"canOverdraft"`
	}{CanOverdraft: canOverdraft}

	var resp accountResponse
	if err := c.call(ctx, "create_account", http.MethodPost, "/v1/accounts", req, &resp); err != nil {
		return nil, err
	}
	account := resp.toModel()
	return &account, nil
}

func (c *Client) call(ctx context.Context, method, httpMethod, path string, body, out any) error {
	start := time.Now()
	err := c.doCall(ctx, httpMethod, path, body, out)
	if c.metrics != nil {
		c.metrics.GatewayDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = resultLabel(err)
		}
		c.metrics.GatewayCalls.WithLabelValues(method, result).Inc()
	}
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Msg("ledger gateway call failed")
	}
	return err
}

func (c *Client) doCall(ctx context.Context, httpMethod, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(err, "encoding gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.baseURL+path, reader)
	if err != nil {
		return apperr.Internal(err, "building gateway request")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and refused connections are transient from the ledger's
		// point of view, even though the caller's bill still fails.
		return apperr.Unavailable("ledger service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Internal(err, "decoding gateway response")
		}
		return nil
	}

	return classifyStatus(resp)
}

// classifyStatus maps the ledger's response codes onto the error taxonomy.
func classifyStatus(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusPaymentRequired:
		return apperr.BadRequest("insufficient balance: %s", msg)
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFound("account not found: %s", msg)
	case resp.StatusCode >= 500:
		return apperr.Unavailable("ledger service error (%d): %s", resp.StatusCode, msg)
	default:
		return apperr.Internal(
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg),
			"ledger gateway call",
		)
	}
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil || payload.Error == "" {
		return "no detail"
	}
	return payload.Error
}

func resultLabel(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeBadRequest:
		return "insufficient_balance"
	case apperr.CodeNotFound:
		return "not_found"
	case apperr.CodeUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

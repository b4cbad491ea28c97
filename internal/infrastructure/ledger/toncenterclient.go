// Package ledger implements the ledger RPC client against a toncenter-style
// HTTP API.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	appledger "github.com/tonpass-inc/tonpass/internal/application/reconcile/ledger"
	"github.com/tonpass-inc/tonpass/internal/shared/config"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 500 * time.Millisecond
	transactionPageLimit  = 50
)

// rawTransaction represents a transaction entry from the toncenter API
type rawTransaction struct {
	TransactionID struct {
		Hash string `json:"hash"`
		Lt   string `json:"lt"`
	} `json:"transaction_id"`
	Utime int64 `json:"utime"`
	InMsg struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Value       string `json:"value"`
		Message     string `json:"message"`
	} `json:"in_msg"`
}

// transactionsResponse represents the getTransactions API response
type transactionsResponse struct {
	OK     bool             `json:"ok"`
	Result []rawTransaction `json:"result"`
	Error  string           `json:"error"`
}

// addressStateResponse represents the getAddressInformation API response
type addressStateResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Balance string `json:"balance"`
		State   string `json:"state"`
		Data    struct {
			SubscriberCount int    `json:"subscriber_count"`
			TotalForwarded  string `json:"total_forwarded"`
		} `json:"data"`
	} `json:"result"`
	Error string `json:"error"`
}

// TONCenterClient reads confirmed transactions and contract state from a
// toncenter-compatible HTTP endpoint.
type TONCenterClient struct {
	endpoint    string
	apiKey      string
	maxAttempts uint64
	baseDelay   time.Duration
	httpClient  *http.Client
	logger      logger.Interface
}

// NewTONCenterClient creates a new TONCenterClient from configuration
func NewTONCenterClient(cfg *config.LedgerConfig, logger logger.Interface) *TONCenterClient {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeoutSecs > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSecs) * time.Second
	}

	maxAttempts := uint64(defaultMaxAttempts)
	if cfg.RetryMaxAttempts > 0 {
		maxAttempts = uint64(cfg.RetryMaxAttempts)
	}

	baseDelay := defaultBaseDelay
	if cfg.RetryBaseDelayMillis > 0 {
		baseDelay = time.Duration(cfg.RetryBaseDelayMillis) * time.Millisecond
	}

	return &TONCenterClient{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetTransactions returns confirmed inbound transactions on the address with
// a confirmation time at or after since, oldest first.
func (c *TONCenterClient) GetTransactions(ctx context.Context, address string, since time.Time) ([]appledger.Transaction, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("limit", strconv.Itoa(transactionPageLimit))
	params.Set("archival", "true")

	var apiResp transactionsResponse
	if err := c.getJSON(ctx, "getTransactions", params, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("ledger API request failed: %s", apiResp.Error)
	}

	var txs []appledger.Transaction
	for _, raw := range apiResp.Result {
		// Outbound and zero-value entries are not payments
		if raw.InMsg.Destination != address || raw.InMsg.Value == "" {
			continue
		}

		amount, err := strconv.ParseInt(raw.InMsg.Value, 10, 64)
		if err != nil {
			c.logger.Warnw("failed to parse transaction amount",
				"tx_hash", raw.TransactionID.Hash,
				"value", raw.InMsg.Value,
				"error", err,
			)
			continue
		}
		if amount <= 0 {
			continue
		}

		confirmedAt := time.Unix(raw.Utime, 0).UTC()
		if confirmedAt.Before(since) {
			continue
		}

		lt, _ := strconv.ParseUint(raw.TransactionID.Lt, 10, 64)

		txs = append(txs, appledger.Transaction{
			Hash:        raw.TransactionID.Hash,
			FromAddress: raw.InMsg.Source,
			ToAddress:   raw.InMsg.Destination,
			Amount:      amount,
			Comment:     raw.InMsg.Message,
			LogicalTime: lt,
			ConfirmedAt: confirmedAt,
		})
	}

	// API returns newest first; callers expect oldest first
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}

	return txs, nil
}

// GetContractState fetches the current state of a deployed contract
func (c *TONCenterClient) GetContractState(ctx context.Context, address string) (*appledger.ContractState, error) {
	params := url.Values{}
	params.Set("address", address)

	var apiResp addressStateResponse
	if err := c.getJSON(ctx, "getAddressInformation", params, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to fetch contract state: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("ledger API request failed: %s", apiResp.Error)
	}

	balance, err := strconv.ParseInt(apiResp.Result.Balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract balance: %w", err)
	}

	totalForwarded, _ := strconv.ParseInt(apiResp.Result.Data.TotalForwarded, 10, 64)

	return &appledger.ContractState{
		Address:         address,
		Balance:         balance,
		SubscriberCount: apiResp.Result.Data.SubscriberCount,
		TotalForwarded:  totalForwarded,
	}, nil
}

// Ping verifies the provider is reachable
func (c *TONCenterClient) Ping(ctx context.Context) error {
	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.getJSON(ctx, "getMasterchainInfo", url.Values{}, &apiResp); err != nil {
		return fmt.Errorf("ledger unreachable: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("ledger API request failed: %s", apiResp.Error)
	}
	return nil
}

// getJSON performs a GET request with exponential backoff. Server errors and
// rate limits are retried; client errors fail immediately.
func (c *TONCenterClient) getJSON(ctx context.Context, method string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s", c.endpoint, method)
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	backoff := retry.WithMaxRetries(c.maxAttempts, retry.NewExponential(c.baseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("ledger API returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ledger API returned status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	})
}

package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// AptosApi is the subset of the Aptos fullnode REST API the adapter needs. Responses are returned as parsed JSON so
// callers can pick the fields they care about.
type AptosApi interface {
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)
	GetAccountResource(ctx context.Context, address string, resourceType string) (gjson.Result, error)
	GetTableItem(ctx context.Context, handle string, req TableItemRequest) (gjson.Result, error)
	GetLedgerInfo(ctx context.Context) (gjson.Result, error)
}

// Error codes the fullnode reports for lookups of things that do not exist.
var notFoundCodes = map[string]bool{
	"resource_not_found":    true,
	"account_not_found":     true,
	"table_item_not_found":  true,
	"transaction_not_found": true,
	"module_not_found":      true,
}

// ApiError is a non-2xx response from the fullnode.
type ApiError struct {
	Status      int
	Message     string
	ErrorCode   string
	VMErrorCode int64
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("aptos api error (status %d, code %s): %s", e.Status, e.ErrorCode, e.Message)
}

func (e *ApiError) NotFound() bool {
	return e.Status == http.StatusNotFound && (e.ErrorCode == "" || notFoundCodes[e.ErrorCode])
}

// Is makes everything except well-defined "not found" answers match common.ErrRpcFailure.
func (e *ApiError) Is(target error) bool {
	return target == common.ErrRpcFailure && !e.NotFound()
}

// IsNotFound reports whether err is the fullnode saying the requested object does not exist.
func IsNotFound(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

type AptosApiConnection struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

const maxResponseSize = 4 << 20

// NewAptosApiConnection creates a client for the fullnode at rpc, e.g. https://fullnode.mainnet.aptoslabs.com. A
// nil limiter disables pacing.
func NewAptosApiConnection(rpc string, timeout time.Duration, limiter *rate.Limiter) AptosApi {
	return &AptosApiConnection{
		baseURL: strings.TrimSuffix(strings.TrimSuffix(rpc, "/"), "/v1"),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (c *AptosApiConnection) do(ctx context.Context, method string, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrRpcFailure, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", common.ErrRpcFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		parsed := gjson.ParseBytes(respBody)
		return nil, &ApiError{
			Status:      resp.StatusCode,
			Message:     parsed.Get("message").String(),
			ErrorCode:   parsed.Get("error_code").String(),
			VMErrorCode: parsed.Get("vm_error_code").Int(),
		}
	}

	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("%w: %s %s returned invalid json", common.ErrRpcFailure, method, path)
	}
	return respBody, nil
}

func (c *AptosApiConnection) GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/transactions/by_hash/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, err
	}
	return parseTransaction(gjson.ParseBytes(body))
}

func (c *AptosApiConnection) GetAccountResource(ctx context.Context, address string, resourceType string) (gjson.Result, error) {
	path := fmt.Sprintf("/v1/accounts/%s/resource/%s", url.PathEscape(address), url.PathEscape(resourceType))
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

func (c *AptosApiConnection) GetTableItem(ctx context.Context, handle string, req TableItemRequest) (gjson.Result, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/tables/%s/item", url.PathEscape(handle)), req)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

func (c *AptosApiConnection) GetLedgerInfo(ctx context.Context) (gjson.Result, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1", nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

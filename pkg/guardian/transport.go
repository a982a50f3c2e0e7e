package guardian

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/certusone/wormhole/connect/pkg/vaa"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ErrNotSigned is returned by a Transport when a host has no signed VAA for the message yet.
var ErrNotSigned = errors.New("vaa not yet signed")

// Transport fetches one signed VAA from one guardian host.
type Transport interface {
	FetchSignedVAA(ctx context.Context, host string, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error)
}

// HTTPTransport talks to the guardian public REST API.
type HTTPTransport struct {
	client  *http.Client
	limiter *rate.Limiter
}

const maxResponseSize = 1 << 20

// NewHTTPTransport creates a transport with the given per-request timeout. A nil limiter disables pacing.
func NewHTTPTransport(timeout time.Duration, limiter *rate.Limiter) *HTTPTransport {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	transport.MaxIdleConnsPerHost = 4
	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout, Transport: transport},
		limiter: limiter,
	}
}

func signedVAAURL(host string, chain vaa.ChainID, emitter vaa.Address, sequence uint64) string {
	return fmt.Sprintf("%s/v1/signed_vaa/%d/%s/%d", strings.TrimSuffix(host, "/"), chain, emitter, sequence)
}

func (t *HTTPTransport) FetchSignedVAA(ctx context.Context, host string, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedVAAURL(host, chain, emitter, sequence), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotSigned
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, gjson.GetBytes(body, "message").String())
	}

	encoded := gjson.GetBytes(body, "vaaBytes")
	if !encoded.Exists() {
		return nil, errors.New("response is missing vaaBytes")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode vaaBytes: %w", err)
	}
	return raw, nil
}

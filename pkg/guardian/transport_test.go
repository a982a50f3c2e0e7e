package guardian

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/certusone/wormhole/connect/pkg/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestHTTPTransportFetchSignedVAA(t *testing.T) {
	good := signedVAA(t, vaa.ChainIDAptos, testEmitter, testSequence)
	okPath := fmt.Sprintf("/v1/signed_vaa/22/%s/42", testEmitter)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case okPath:
			fmt.Fprintf(w, `{"vaaBytes":%q}`, base64.StdEncoding.EncodeToString(good))
		case fmt.Sprintf("/v1/signed_vaa/22/%s/43", testEmitter):
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":5,"message":"requested VAA not found in store"}`)
		case fmt.Sprintf("/v1/signed_vaa/22/%s/44", testEmitter):
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"boom"}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	transport := NewHTTPTransport(5*time.Second, rate.NewLimiter(rate.Inf, 1))
	ctx := context.Background()

	raw, err := transport.FetchSignedVAA(ctx, srv.URL+"/", vaa.ChainIDAptos, testEmitter, 42)
	require.NoError(t, err)
	assert.Equal(t, good, raw)

	_, err = transport.FetchSignedVAA(ctx, srv.URL, vaa.ChainIDAptos, testEmitter, 43)
	assert.ErrorIs(t, err, ErrNotSigned)

	_, err = transport.FetchSignedVAA(ctx, srv.URL, vaa.ChainIDAptos, testEmitter, 44)
	assert.ErrorContains(t, err, "unexpected status 500: boom")

	_, err = transport.FetchSignedVAA(ctx, srv.URL, vaa.ChainIDAptos, testEmitter, 45)
	assert.ErrorContains(t, err, "missing vaaBytes")
}

func TestSignedVAAURL(t *testing.T) {
	assert.Equal(t,
		"https://wormhole-v2-mainnet-api.mcf.rocks/v1/signed_vaa/22/0000000000000000000000000000000000000000000000000000000000000001/42",
		signedVAAURL("https://wormhole-v2-mainnet-api.mcf.rocks/", vaa.ChainIDAptos, testEmitter, 42))
}

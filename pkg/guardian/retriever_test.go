package guardian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testEmitter = vaa.Address{31: 0x01}

const testSequence = uint64(42)

func signedVAA(t *testing.T, chain vaa.ChainID, emitter vaa.Address, sequence uint64) []byte {
	t.Helper()
	v := &vaa.VAA{
		Version:          vaa.SupportedVAAVersion,
		GuardianSetIndex: 4,
		Signatures:       []*vaa.Signature{{Index: 0}},
		Timestamp:        time.Unix(1700000000, 0),
		EmitterChain:     chain,
		EmitterAddress:   emitter,
		Sequence:         sequence,
		Payload:          []byte{1, 2, 3},
	}
	b, err := v.Marshal()
	require.NoError(t, err)
	return b
}

// mockTransport answers per host from a fixed script and records every call.
type mockTransport struct {
	mu        sync.Mutex
	responses map[string]func(call int) ([]byte, error)
	calls     []string
}

func (m *mockTransport) FetchSignedVAA(ctx context.Context, host string, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, host)
	n := 0
	for _, c := range m.calls {
		if c == host {
			n++
		}
	}
	m.mu.Unlock()

	if f, ok := m.responses[host]; ok {
		return f(n)
	}
	return nil, ErrNotSigned
}

func fastConfig(hosts ...string) Config {
	return Config{Hosts: hosts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetrieveSucceedsIfAnyHostAnswers(t *testing.T) {
	good := signedVAA(t, vaa.ChainIDAptos, testEmitter, testSequence)
	transport := &mockTransport{responses: map[string]func(int) ([]byte, error){
		"https://a": func(int) ([]byte, error) { return nil, context.DeadlineExceeded },
		"https://b": func(int) ([]byte, error) { return nil, errors.New("connection refused") },
		"https://c": func(int) ([]byte, error) { return good, nil },
	}}

	r, err := NewRetriever(zap.NewNop(), transport, fastConfig("https://a", "https://b", "https://c"))
	require.NoError(t, err)

	raw, err := r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	require.NoError(t, err)
	assert.Equal(t, good, raw)
	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, transport.calls)
}

func TestRetrieveExhaustsBudget(t *testing.T) {
	transport := &mockTransport{}
	cfg := fastConfig("https://a", "https://b")
	cfg.MaxAttempts = 5

	r, err := NewRetriever(zap.NewNop(), transport, cfg)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrVaaNotAvailable)
	assert.ErrorIs(t, err, ErrNotSigned)
	assert.Equal(t, []string{"https://a", "https://b", "https://a", "https://b", "https://a"}, transport.calls)
}

func TestRetrieveDefaultBudgetIsOnePassOverHosts(t *testing.T) {
	transport := &mockTransport{}
	r, err := NewRetriever(zap.NewNop(), transport, fastConfig("https://a", "https://b", "https://c"))
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	assert.ErrorIs(t, err, common.ErrVaaNotAvailable)
	assert.Len(t, transport.calls, 3)
}

func TestRetrieveEventuallySigned(t *testing.T) {
	good := signedVAA(t, vaa.ChainIDAptos, testEmitter, testSequence)
	transport := &mockTransport{responses: map[string]func(int) ([]byte, error){
		"https://a": func(call int) ([]byte, error) {
			if call < 3 {
				return nil, ErrNotSigned
			}
			return good, nil
		},
	}}
	cfg := fastConfig("https://a")
	cfg.MaxAttempts = 10

	r, err := NewRetriever(zap.NewNop(), transport, cfg)
	require.NoError(t, err)

	raw, err := r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	require.NoError(t, err)
	assert.Equal(t, good, raw)
	assert.Len(t, transport.calls, 3)
}

func TestRetrieveSkipsInvalidResponses(t *testing.T) {
	good := signedVAA(t, vaa.ChainIDAptos, testEmitter, testSequence)
	wrongMessage := signedVAA(t, vaa.ChainIDAptos, testEmitter, testSequence+1)
	transport := &mockTransport{responses: map[string]func(int) ([]byte, error){
		"https://garbage": func(int) ([]byte, error) { return []byte{0x01, 0x02}, nil },
		"https://wrong":   func(int) ([]byte, error) { return wrongMessage, nil },
		"https://good":    func(int) ([]byte, error) { return good, nil },
	}}

	r, err := NewRetriever(zap.NewNop(), transport, fastConfig("https://garbage", "https://wrong", "https://good"))
	require.NoError(t, err)

	raw, err := r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	require.NoError(t, err)
	assert.Equal(t, good, raw)

	r, err = NewRetriever(zap.NewNop(), transport, fastConfig("https://garbage", "https://wrong"))
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), vaa.ChainIDAptos, testEmitter, testSequence)
	assert.ErrorIs(t, err, common.ErrVaaNotAvailable)
	assert.ErrorIs(t, err, common.ErrMalformedVaa)
}

func TestRetrieveHonorsCancellation(t *testing.T) {
	transport := &mockTransport{}
	cfg := Config{Hosts: []string{"https://a"}, MaxAttempts: 1000, InitialInterval: time.Hour, MaxInterval: time.Hour}
	r, err := NewRetriever(zap.NewNop(), transport, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = r.Retrieve(ctx, vaa.ChainIDAptos, testEmitter, testSequence)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, common.ErrVaaNotAvailable)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Len(t, transport.calls, 1)
}

func TestNewRetrieverRequiresHosts(t *testing.T) {
	_, err := NewRetriever(zap.NewNop(), &mockTransport{}, Config{})
	assert.ErrorIs(t, err, common.ErrNotConfigured)

	_, err = NewRetriever(zap.NewNop(), nil, fastConfig("https://a"))
	assert.Error(t, err)
}

func TestPollStateAdvance(t *testing.T) {
	s := &pollState{remaining: 4}
	assert.False(t, s.advance(2))
	assert.True(t, s.advance(2))
	assert.False(t, s.advance(2))
	assert.Equal(t, 1, s.remaining)
	assert.Equal(t, 1, s.host)
}

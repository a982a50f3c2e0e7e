// Package guardian retrieves signed VAAs from the guardian network's public REST hosts.
package guardian

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
	"go.uber.org/zap"
)

type Config struct {
	Hosts []string
	// MaxAttempts is the total number of requests spread round-robin across Hosts. Zero means one attempt per host.
	MaxAttempts int
	// InitialInterval and MaxInterval bound the exponential backoff applied after each full pass over the hosts.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

const (
	defaultInitialInterval = time.Second
	defaultMaxInterval     = 30 * time.Second
)

type Retriever struct {
	logger      *zap.Logger
	transport   Transport
	hosts       []string
	maxAttempts int
	newBackOff  func() backoff.BackOff
}

func NewRetriever(logger *zap.Logger, transport Transport, cfg Config) (*Retriever, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("%w: no guardian hosts", common.ErrNotConfigured)
	}
	if transport == nil {
		return nil, errors.New("guardian transport is required")
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = len(cfg.Hosts)
	}
	initial, maxInterval := cfg.InitialInterval, cfg.MaxInterval
	if initial <= 0 {
		initial = defaultInitialInterval
	}
	if maxInterval <= 0 {
		maxInterval = defaultMaxInterval
	}

	return &Retriever{
		logger:      logger.With(zap.String("component", "vaa_retriever")),
		transport:   transport,
		hosts:       append([]string{}, cfg.Hosts...),
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = initial
			bo.MaxInterval = maxInterval
			// The attempt budget bounds the loop, so the backoff itself never gives up.
			bo.MaxElapsedTime = 0
			bo.Reset()
			return bo
		},
	}, nil
}

// pollState tracks one Retrieve call: which host is next, how many requests are left and why earlier ones failed.
type pollState struct {
	host      int
	remaining int
	errs      []error
}

func (s *pollState) fail(host string, err error) {
	s.errs = append(s.errs, fmt.Errorf("%s: %w", host, err))
}

// advance moves to the next host and reports whether a full pass over the hosts just completed.
func (s *pollState) advance(numHosts int) bool {
	s.remaining--
	s.host = (s.host + 1) % numHosts
	return s.host == 0
}

// Retrieve polls the guardian hosts until one of them returns a structurally valid VAA for the message or the
// attempt budget is spent, in which case the error wraps common.ErrVaaNotAvailable.
func (r *Retriever) Retrieve(ctx context.Context, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error) {
	id := vaa.MessageID(chain, emitter, sequence)
	state := &pollState{remaining: r.maxAttempts}
	bo := r.newBackOff()

	for state.remaining > 0 {
		host := r.hosts[state.host]
		raw, err := r.fetch(ctx, host, chain, emitter, sequence)
		if err == nil {
			r.logger.Debug("retrieved signed vaa", zap.String("message_id", id), zap.String("host", host))
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("retrieving %s: %w", id, ctx.Err())
		}

		fetchFailures.WithLabelValues(host).Inc()
		state.fail(host, err)
		if errors.Is(err, ErrNotSigned) {
			r.logger.Debug("vaa not available yet", zap.String("message_id", id), zap.String("host", host))
		} else {
			r.logger.Warn("failed to fetch vaa", zap.String("message_id", id), zap.String("host", host), zap.Error(err))
		}

		if state.advance(len(r.hosts)) && state.remaining > 0 {
			if err := sleep(ctx, bo.NextBackOff()); err != nil {
				return nil, fmt.Errorf("retrieving %s: %w", id, err)
			}
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %w", common.ErrVaaNotAvailable, id, r.maxAttempts, errors.Join(state.errs...))
}

func (r *Retriever) fetch(ctx context.Context, host string, chain vaa.ChainID, emitter vaa.Address, sequence uint64) ([]byte, error) {
	fetchAttempts.WithLabelValues(host).Inc()
	raw, err := r.transport.FetchSignedVAA(ctx, host, chain, emitter, sequence)
	if err != nil {
		return nil, err
	}

	// A host that serves garbage counts as a failed attempt; the next host may have it right.
	v, err := vaa.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	if v.EmitterChain != chain || v.EmitterAddress != emitter || v.Sequence != sequence {
		return nil, fmt.Errorf("%w: host returned %s", common.ErrMalformedVaa, v.MessageID())
	}
	return raw, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d == backoff.Stop {
		return errors.New("backoff stopped")
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

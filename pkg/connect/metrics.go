package connect

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

var rpcErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "connect_rpc_errors_total",
		Help: "Total number of chain RPC failures seen while serving adapter calls",
	}, []string{"chain"})

// observeRpcFailure counts err against chain if it is an RPC failure and returns it unchanged.
func observeRpcFailure(chain vaa.ChainID, err error) error {
	if errors.Is(err, common.ErrRpcFailure) {
		rpcErrors.WithLabelValues(chain.String()).Inc()
	}
	return err
}

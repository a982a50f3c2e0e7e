package common

import "errors"

// Error kinds returned by the chain adapters. Callers match them with errors.Is; adapters wrap them with
// additional context using fmt.Errorf("...: %w", ...).
var (
	ErrNotConfigured              = errors.New("chain or contract not configured")
	ErrInvalidAssetFormat         = errors.New("invalid asset format")
	ErrAssetNotRegistered         = errors.New("asset not registered")
	ErrRecipientAccountUnresolved = errors.New("could not resolve recipient account")
	ErrNotUserTransaction         = errors.New("not a user transaction")
	ErrMessageNotFound            = errors.New("no wormhole message found in transaction")
	ErrVaaNotAvailable            = errors.New("vaa not available")
	ErrMalformedVaa               = errors.New("malformed vaa")
	ErrMalformedTransferPayload   = errors.New("malformed transfer payload")
	ErrUnsupportedOperation       = errors.New("operation not supported on this chain")
	ErrRpcFailure                 = errors.New("rpc failure")
)

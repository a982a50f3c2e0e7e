package connect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const (
	maxBodySize     = 1024 * 1024
	requestIDHeader = "X-Request-Id"
)

// errInvalidRequest marks malformed path or body parameters.
var errInvalidRequest = errors.New("invalid request")

type httpServer struct {
	logger    *zap.Logger
	registry  *connect.Registry
	retriever connect.VaaRetriever
}

// NewHTTPServer serves the adapter operations as a read-only JSON API, plus /health and /metrics.
func NewHTTPServer(addr string, logger *zap.Logger, registry *connect.Registry, retriever connect.VaaRetriever) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           newRouter(logger, registry, retriever),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newRouter(logger *zap.Logger, registry *connect.Registry, retriever connect.VaaRetriever) *mux.Router {
	s := &httpServer{
		logger:    logger.With(zap.String("component", "http_server")),
		registry:  registry,
		retriever: retriever,
	}
	r := mux.NewRouter()
	r.Use(s.withRequestID)
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/chains", s.handleChains).Methods("GET")
	api.HandleFunc("/foreign_asset/{chain}/{tokenChain}/{token}", s.handleForeignAsset).Methods("GET")
	api.HandleFunc("/balance/{chain}/{wallet}", s.handleBalance).Methods("GET")
	api.HandleFunc("/vaa/{chain}/{tx}", s.handleVaa).Methods("GET")
	api.HandleFunc("/signed_vaa/{chain}/{emitter}/{sequence}", s.handleSignedVaa).Methods("GET")
	api.HandleFunc("/transfer_status", s.handleTransferStatus).Methods("POST")
	return r
}

// withRequestID echoes the caller's request id or assigns a new one.
func (s *httpServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *httpServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("health check")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok")
}

// statusCode maps the adapter error kinds onto HTTP.
func statusCode(err error) int {
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, common.ErrInvalidAssetFormat),
		errors.Is(err, common.ErrMalformedVaa),
		errors.Is(err, common.ErrMalformedTransferPayload),
		errors.Is(err, common.ErrRecipientAccountUnresolved):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrAssetNotRegistered),
		errors.Is(err, common.ErrMessageNotFound),
		errors.Is(err, common.ErrNotUserTransaction),
		errors.Is(err, common.ErrVaaNotAvailable):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotConfigured),
		errors.Is(err, common.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, common.ErrRpcFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *httpServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Stringer("url", r.URL),
			zap.Int("status", code),
			zap.Error(err))
	} else {
		s.logger.Debug("request rejected",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Stringer("url", r.URL),
			zap.Int("status", code),
			zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}

func (s *httpServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

func (s *httpServer) handleChains(w http.ResponseWriter, r *http.Request) {
	type chainView struct {
		Chain        string               `json:"chain"`
		ID           vaa.ChainID          `json:"id"`
		Capabilities connect.Capabilities `json:"capabilities"`
	}
	var out []chainView
	for _, id := range s.registry.Chains() {
		c, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, chainView{Chain: id.String(), ID: id, Capabilities: c.Capabilities()})
	}
	s.writeJSON(w, out)
}

func (s *httpServer) handleForeignAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	dest, err := vaa.ChainIDFromString(vars["chain"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err))
		return
	}
	token, err := parseToken(vars["tokenChain"], vars["token"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err))
		return
	}

	asset, ok, err := s.registry.GetForeignAsset(r.Context(), token, dest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]any{"registered": ok, "asset": asset})
}

func (s *httpServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain, err := vaa.ChainIDFromString(vars["chain"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}
	token, err := parseToken(r.URL.Query().Get("tokenChain"), r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", common.ErrInvalidAssetFormat, err))
		return
	}
	c, err := s.registry.Get(chain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	balance, err := c.GetTokenBalance(r.Context(), vars["wallet"], token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]string{"balance": balance.String()})
}

func (s *httpServer) handleVaa(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain, err := vaa.ChainIDFromString(vars["chain"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}

	info, err := s.registry.GetVaa(r.Context(), chain, vars["tx"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := map[string]any{"vaa": newVaaView(info.Vaa, info.RawVaa)}
	if parse, _ := strconv.ParseBool(r.URL.Query().Get("parse")); parse {
		c, err := s.registry.Get(chain)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		msg, err := c.ParseMessage(r.Context(), info)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out["message"] = newMessageView(msg)
	}
	s.writeJSON(w, out)
}

// handleSignedVaa answers in the guardian REST format so this server can itself be used as a guardian host.
func (s *httpServer) handleSignedVaa(w http.ResponseWriter, r *http.Request) {
	if s.retriever == nil {
		s.writeError(w, r, fmt.Errorf("%w: guardian hosts", common.ErrNotConfigured))
		return
	}
	vars := mux.Vars(r)
	chainID, err := strconv.ParseUint(vars["chain"], 10, 16)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: chain: %w", errInvalidRequest, err))
		return
	}
	emitter, err := vaa.StringToAddress(vars["emitter"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: emitter: %w", errInvalidRequest, err))
		return
	}
	sequence, err := strconv.ParseUint(vars["sequence"], 10, 64)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: sequence: %w", errInvalidRequest, err))
		return
	}

	raw, err := s.retriever.Retrieve(r.Context(), vaa.ChainID(chainID), emitter, sequence)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]string{"vaaBytes": base64.StdEncoding.EncodeToString(raw)})
}

type transferStatusRequest struct {
	Vaa string `json:"vaa"`
}

func (s *httpServer) handleTransferStatus(w http.ResponseWriter, r *http.Request) {
	var req transferStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body: %w", errInvalidRequest, err))
		return
	}
	raw, p, err := decodeTransferVAA(req.Vaa)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	done, err := s.registry.IsTransferCompleted(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]any{"chain": p.ToChain.String(), "completed": done})
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"simplestorage/internal/application"
	"simplestorage/internal/config"
	"simplestorage/internal/domain"
	"simplestorage/internal/infrastructure/ratelimit"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

const corsMaxAgeSeconds = 600

type StorageGateway interface {
	GetLatestValue(ctx context.Context) (domain.StoredValue, error)
	GetValueUpdatedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]domain.ValueUpdatedEvent, error)
	MaxBlockSpan() uint64
}

type RPCStatus interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// pinger is implemented by limiters backed by a remote store.
type pinger interface {
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

type Server struct {
	cfg       config.Config
	gateway   StorageGateway
	rpc       RPCStatus
	limiter   Limiter
	metrics   *Metrics
	buildInfo BuildInfo
}

// NewServer wires the HTTP surface. limiter may be nil to disable throttling.
func NewServer(cfg config.Config, gateway StorageGateway, rpc RPCStatus, limiter Limiter, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if gateway == nil || rpc == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		cfg:       cfg,
		gateway:   gateway,
		rpc:       rpc,
		limiter:   limiter,
		metrics:   metrics,
		buildInfo: buildInfo,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.instrument("/healthz", readOnly(s.handleHealth)))
	mux.HandleFunc("/readyz", s.instrument("/readyz", readOnly(s.handleReady)))
	mux.HandleFunc("/version", s.instrument("/version", readOnly(s.handleVersion)))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/documentation", http.RedirectHandler("/documentation/index.html", http.StatusMovedPermanently))
	mux.HandleFunc("/documentation/", s.instrument("/documentation", httpSwagger.Handler(
		httpSwagger.URL("/documentation/doc.json"),
	)))
	mux.HandleFunc("/blockchain/value", s.instrument("/blockchain/value", readOnly(s.throttle(s.handleValue))))
	mux.HandleFunc("/blockchain/events", s.instrument("/blockchain/events", readOnly(s.throttle(s.handleEvents))))
	mux.HandleFunc("/", s.instrument("unmatched", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
	}))
	// A "*" origin allows any caller.
	return cors.New(cors.Options{
		AllowedOrigins:       s.cfg.CORSOrigins,
		AllowedMethods:       []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		MaxAge:               corsMaxAgeSeconds,
		OptionsSuccessStatus: http.StatusNoContent,
	}).Handler(mux)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	block, err := s.rpc.LatestBlockNumber(ctx)
	if err != nil {
		slog.Warn("readiness check failed", "err", err)
		respondError(w, http.StatusServiceUnavailable, "rpc not ready")
		return
	}
	if store, ok := s.limiter.(pinger); ok {
		if err := store.Ping(ctx); err != nil {
			slog.Warn("throttle store check failed", "err", err)
			respondError(w, http.StatusServiceUnavailable, "throttle store not ready")
			return
		}
	}
	s.metrics.OnLatestBlock(block)
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready", "latestBlock": block})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

type valueResponse struct {
	Value string `json:"value" example:"12345"`
}

// handleValue reads the stored value from the contract.
//
//	@Summary	Get the latest stored value
//	@Tags		simple-storage
//	@Produce	json
//	@Success	200	{object}	valueResponse
//	@Failure	429	{object}	errorBody
//	@Failure	500	{object}	errorBody
//	@Failure	503	{object}	errorBody
//	@Router		/blockchain/value [get]
func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	value, err := s.gateway.GetLatestValue(r.Context())
	if err != nil {
		s.respondGatewayError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, valueResponse{Value: value.String()})
}

// handleEvents lists ValueUpdated events in an inclusive block range.
//
//	@Summary	Get ValueUpdated events
//	@Tags		simple-storage
//	@Produce	json
//	@Param		fromBlock	query		int	true	"First block of the range, inclusive"	minimum(0)	example(100000)
//	@Param		toBlock		query		int	true	"Last block of the range, inclusive"	minimum(0)	example(100100)
//	@Success	200			{array}		domain.ValueUpdatedView
//	@Failure	400			{object}	errorBody
//	@Failure	429			{object}	errorBody
//	@Failure	500			{object}	errorBody
//	@Failure	503			{object}	errorBody
//	@Router		/blockchain/events [get]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	blockRange, err := application.ParseBlockRange(query.Get("fromBlock"), query.Get("toBlock"), s.gateway.MaxBlockSpan())
	if err != nil {
		s.respondGatewayError(w, r, err)
		return
	}
	events, err := s.gateway.GetValueUpdatedEvents(r.Context(), blockRange.From, blockRange.To)
	if err != nil {
		s.respondGatewayError(w, r, err)
		return
	}
	views := make([]domain.ValueUpdatedView, 0, len(events))
	for _, event := range events {
		views = append(views, event.View())
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) respondGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	normalized := application.NormalizeRPCError(err)
	status := statusForKind(normalized.Kind)
	if normalized.Kind != application.KindInvalidInput {
		s.metrics.IncRPCError(normalized.Kind.String())
		slog.Warn("blockchain read failed",
			"path", r.URL.Path,
			"kind", normalized.Kind.String(),
			"status", status,
			"err", normalized.Err,
		)
	}
	respondError(w, status, normalized.Message)
}

func statusForKind(kind application.ErrorKind) int {
	switch kind {
	case application.KindInvalidInput:
		return http.StatusBadRequest
	case application.KindTimeout, application.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Message    string `json:"message" example:"toBlock must be greater than or equal to fromBlock"`
	Error      string `json:"error" example:"Bad Request"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
	})
}

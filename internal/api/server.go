package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"CarMania-Agent/internal/access"
	"CarMania-Agent/internal/agent"
	xerrors "CarMania-Agent/internal/errors"
	"CarMania-Agent/internal/history"
	"CarMania-Agent/internal/transport"
	"CarMania-Agent/internal/txbuilder"
	"CarMania-Agent/pkg/logger"
)

// Server exposes the agent over REST for webhook ingestion and operations.
type Server struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	dispatcher   *agent.Dispatcher
	builder      *txbuilder.Builder
	cache        access.Cache
	store        history.Store
}

// Option configures the Server.
type Option func(*Server)

// WithTimeouts overrides the listener read/write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithCache exposes cache maintenance endpoints over the given cache.
func WithCache(cache access.Cache) Option {
	return func(s *Server) { s.cache = cache }
}

// WithHistory exposes the interaction history endpoint over the given store.
func WithHistory(store history.Store) Option {
	return func(s *Server) { s.store = store }
}

// NewServer constructs an API server around the dispatcher and builder.
func NewServer(addr string, dispatcher *agent.Dispatcher, builder *txbuilder.Builder, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		readTimeout:  15 * time.Second,
		writeTimeout: 30 * time.Second,
		dispatcher:   dispatcher,
		builder:      builder,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start serves HTTP until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/messages", s.handleMessages)
	mux.HandleFunc("/api/v1/actions/execute", s.handleExecuteAction)
	mux.HandleFunc("/api/v1/transactions/provenance", s.handleProvenanceTx)
	mux.HandleFunc("/api/v1/transactions/community", s.handleCommunityTx)
	mux.HandleFunc("/api/v1/transactions/verify", s.handleVerifyTx)
	mux.HandleFunc("/api/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/v1/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/api/v1/history", s.handleHistory)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("api server listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleMessages ingests one chat message from a webhook and runs it through
// the pipeline synchronously.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var msg transport.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message body", http.StatusBadRequest)
		return
	}
	if msg.SenderAddress == "" || msg.Content == "" {
		http.Error(w, "sender_address and content are required", http.StatusBadRequest)
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := s.dispatcher.Process(r.Context(), msg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processed"})
}

type executeActionRequest struct {
	ActionID      string `json:"action_id"`
	SenderAddress string `json:"sender_address"`
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req executeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ActionID == "" || req.SenderAddress == "" {
		http.Error(w, "action_id and sender_address are required", http.StatusBadRequest)
		return
	}
	if err := s.dispatcher.ExecuteAction(r.Context(), req.ActionID, req.SenderAddress); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}

type provenanceTxRequest struct {
	SenderAddress     string             `json:"sender_address"`
	TokenID           string             `json:"token_id"`
	CollectionAddress string             `json:"collection_address"`
	Story             txbuilder.CarStory `json:"story"`
}

func (s *Server) handleProvenanceTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req provenanceTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	batch, err := s.builder.BuildProvenanceTransaction(req.SenderAddress, req.Story, req.TokenID, req.CollectionAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

type communityTxRequest struct {
	SenderAddress string                    `json:"sender_address"`
	Action        txbuilder.CommunityAction `json:"action"`
	Payload       map[string]any            `json:"payload"`
}

func (s *Server) handleCommunityTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req communityTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	batch, err := s.builder.BuildCommunityTransaction(req.SenderAddress, req.Action, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleVerifyTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		http.Error(w, "hash query parameter is required", http.StatusBadRequest)
		return
	}
	confirmed := s.builder.VerifyTransaction(r.Context(), hash)
	writeJSON(w, http.StatusOK, map[string]any{"hash": hash, "confirmed": confirmed})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		http.Error(w, "cache not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		http.Error(w, "cache not configured", http.StatusServiceUnavailable)
		return
	}
	s.cache.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case xerrors.CodeActionNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// withContext rejects new requests once the root context is cancelled.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}

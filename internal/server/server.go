package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/whalehunter/whale-tracker/internal/config"
	"github.com/whalehunter/whale-tracker/internal/scanner"
	"github.com/whalehunter/whale-tracker/internal/storage"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 2000
)

// WalletStore is the persistence surface the admin API needs.
type WalletStore interface {
	AddWallet(ctx context.Context, w storage.Wallet) error
	RemoveWallet(ctx context.Context, address string) error
	ListWallets(ctx context.Context) ([]storage.Wallet, error)
	RecentObservations(ctx context.Context, limit int) ([]storage.BalanceEvent, error)
}

// Scanner triggers on-demand scan cycles.
type Scanner interface {
	Scan(ctx context.Context) error
}

// Notifier sends test notifications.
type Notifier interface {
	Dispatch(ctx context.Context, message string)
}

// Server is the administrative HTTP surface: wallet CRUD, scan-now,
// test notifications, and observation export.
type Server struct {
	store  WalletStore
	engine Scanner
	alerts Notifier
	cfg    *config.Config
	health http.HandlerFunc
	logger *slog.Logger
}

func New(store WalletStore, engine Scanner, alerts Notifier, cfg *config.Config, health http.HandlerFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		engine: engine,
		alerts: alerts,
		cfg:    cfg,
		health: health,
		logger: logger.With("component", "server"),
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if s.health != nil {
		r.Get("/health", s.health)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/wallets", s.handleListWallets)
		r.Post("/wallets", s.handleAddWallet)
		r.Delete("/wallets/{address}", s.handleRemoveWallet)
		r.Post("/scan", s.handleScanNow)
		r.Post("/notify/test", s.handleTestNotification)
		r.Get("/events", s.handleEvents)
		r.Get("/events/export", s.handleExport)
	})

	return r
}

type walletJSON struct {
	Address           string `json:"address"`
	Label             string `json:"label"`
	Chain             string `json:"chain"`
	NativeThreshold   string `json:"native_threshold"`
	StableThreshold   string `json:"stable_threshold"`
	LastNativeBalance string `json:"last_native_balance"`
	LastStableBalance string `json:"last_stable_balance"`
}

func toWalletJSON(w storage.Wallet) walletJSON {
	return walletJSON{
		Address:           w.Address,
		Label:             w.Label,
		Chain:             w.Chain,
		NativeThreshold:   w.NativeThreshold.String(),
		StableThreshold:   w.StableThreshold.String(),
		LastNativeBalance: w.LastNativeBalance.String(),
		LastStableBalance: w.LastStableBalance.String(),
	}
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.ListWallets(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list wallets")
		return
	}
	out := make([]walletJSON, 0, len(wallets))
	for _, wallet := range wallets {
		out = append(out, toWalletJSON(wallet))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type addWalletRequest struct {
	Address         string `json:"address"`
	Label           string `json:"label"`
	Chain           string `json:"chain"`
	NativeThreshold string `json:"native_threshold"`
	StableThreshold string `json:"stable_threshold"`
}

func (s *Server) handleAddWallet(w http.ResponseWriter, r *http.Request) {
	var req addWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if _, ok := s.cfg.Chains[req.Chain]; !ok {
		s.writeError(w, http.StatusBadRequest, "unknown chain")
		return
	}

	nativeTh, err := parseThreshold(req.NativeThreshold, s.cfg.NativeThreshold())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid native_threshold")
		return
	}
	stableTh, err := parseThreshold(req.StableThreshold, s.cfg.StableThreshold())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid stable_threshold")
		return
	}

	wallet := storage.Wallet{
		Address:         common.HexToAddress(req.Address).Hex(),
		Label:           req.Label,
		Chain:           req.Chain,
		NativeThreshold: nativeTh,
		StableThreshold: stableTh,
	}
	if err := s.store.AddWallet(r.Context(), wallet); err != nil {
		s.logger.Error("Add wallet failed", "address", wallet.Address, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to add wallet")
		return
	}
	s.writeJSON(w, http.StatusCreated, toWalletJSON(wallet))
}

func parseThreshold(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return decimal.NewFromString(s)
}

func (s *Server) handleRemoveWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if err := s.store.RemoveWallet(r.Context(), common.HexToAddress(address).Hex()); err != nil {
		s.logger.Error("Remove wallet failed", "address", address, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to remove wallet")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScanNow starts a scan cycle. A quick return means the engine
// either refused (cycle in progress, 409) or failed outright; otherwise
// the cycle keeps running detached and the request gets 202.
func (s *Server) handleScanNow(w http.ResponseWriter, r *http.Request) {
	errCh := make(chan error, 1)
	go func() {
		err := s.engine.Scan(context.WithoutCancel(r.Context()))
		if err != nil && !errors.Is(err, scanner.ErrScanInProgress) {
			s.logger.Error("Triggered scan failed", "error", err)
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, scanner.ErrScanInProgress) {
			s.writeError(w, http.StatusConflict, "scan already in progress")
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "scan failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	case <-time.After(200 * time.Millisecond):
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "running"})
	}
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	s.alerts.Dispatch(r.Context(), "👋 Test notification from whale-tracker")
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.RecentObservations(r.Context(), eventLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	s.writeJSON(w, http.StatusOK, toEventRows(events))
}

func eventLimit(r *http.Request) int {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	return limit
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

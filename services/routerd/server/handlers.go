package server

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"liquidroute/crypto"
	"liquidroute/native/pool"
)

type reservesResponse struct {
	StableReserve string `json:"stableReserve"`
	AssetReserve  string `json:"assetReserve"`
}

type sharesResponse struct {
	Provider    string `json:"provider"`
	Shares      string `json:"shares"`
	TotalShares string `json:"totalShares"`
}

type statsResponse struct {
	TotalBought string `json:"totalBought"`
	TotalSold   string `json:"totalSold"`
	ProtocolFee string `json:"protocolFee"`
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
}

type quoteRequest struct {
	AssetIn string `json:"assetIn"`
}

type quoteResponse struct {
	StableOut    string `json:"stableOut"`
	FeeBps       uint32 `json:"feeBps"`
	FromPool     string `json:"fromPool"`
	FromExternal string `json:"fromExternal"`
}

type tradeResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Account      string `json:"account"`
	AmountIn     string `json:"amountIn"`
	AmountOut    string `json:"amountOut"`
	FeeBps       uint32 `json:"feeBps"`
	ExternalUsed bool   `json:"externalUsed"`
	CreatedAt    string `json:"createdAt"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReserves(w http.ResponseWriter, _ *http.Request) {
	stable, asset, err := s.engine.Ledger().Reserves()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reservesResponse{
		StableReserve: stable.String(),
		AssetReserve:  asset.String(),
	})
}

func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "addr")
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	var provider [20]byte
	copy(provider[:], addr.Bytes())
	shares, err := s.engine.Ledger().SharesOf(provider)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	total, err := s.engine.Ledger().TotalShares()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sharesResponse{
		Provider:    addr.String(),
		Shares:      shares.String(),
		TotalShares: total.String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.engine.Ledger().Stats()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		TotalBought: stats.TotalBought.String(),
		TotalSold:   stats.TotalSold.String(),
		ProtocolFee: stats.ProtocolFee.String(),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	sources, err := s.engine.Sources()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	resp := sourcesResponse{Sources: make([]string, 0, len(sources))}
	for _, src := range sources {
		resp.Sources = append(resp.Sources, crypto.NewAddress(crypto.LiqPrefix, src[:]).String())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	assetIn, ok := new(big.Int).SetString(req.AssetIn, 10)
	if !ok {
		s.fail(w, http.StatusBadRequest, errors.New("assetIn must be a base-10 integer"))
		return
	}
	quote, err := s.engine.QuoteSell(assetIn)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pool.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		s.fail(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quoteResponse{
		StableOut:    quote.StableOut.String(),
		FeeBps:       quote.FeeBps,
		FromPool:     quote.FromPool.String(),
		FromExternal: quote.FromExternal.String(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		s.fail(w, http.StatusServiceUnavailable, errors.New("trade history unavailable"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.fail(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	records, err := s.trades.ListTrades(r.Context(), limit)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]tradeResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, tradeResponse{
			ID:           rec.ID,
			Kind:         rec.Kind,
			Account:      rec.Account,
			AmountIn:     rec.AmountIn,
			AmountOut:    rec.AmountOut,
			FeeBps:       rec.FeeBps,
			ExternalUsed: rec.ExternalUsed,
			CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

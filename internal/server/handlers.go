package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"coinfeed_go/internal/domain"

	"github.com/shopspring/decimal"
)

type orderRequest struct {
	ID       string          `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// handlePriceLookup resolves the current reference price for a coin, priming
// the same per-coin cache the order intake validates against.
func (s *Server) handlePriceLookup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	price, cached, err := s.refs.Resolve(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"price":  price,
		"cached": cached,
	})
}

// handleSubmitOrder validates and persists a proposed buy order.
func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "malformed request body",
		})
		return
	}

	order, err := s.intake.Submit(r.Context(), req.ID, req.Price, req.Quantity, req.Total)
	if err != nil {
		s.writeRejection(w, req.ID, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order confirmed",
		"order":   order,
	})
}

// handleHealth reports liveness plus connection gauges.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"connectedClients": s.hub.Count(),
		"uniqueClients":    s.hub.UniqueCount(),
		"uptime":           int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, domain.ErrCoinNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "no market data found",
			"id":      id,
		})
	default:
		s.logger.Warn("Reference price lookup failed", slog.String("coin", id), slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"message": "reference price unavailable",
		})
	}
}

func (s *Server) writeRejection(w http.ResponseWriter, id string, err error) {
	var priceErr *domain.PriceMismatchError
	var totalErr *domain.TotalMismatchError

	switch {
	case errors.As(err, &priceErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":         "price does not match latest reference",
			"referencePrice":  priceErr.Reference,
			"variancePercent": priceErr.VariancePercent(),
		})
	case errors.As(err, &totalErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":         "total does not match unit price and quantity",
			"expectedTotal":   totalErr.Expected,
			"variancePercent": totalErr.VariancePercent(),
		})
	case errors.Is(err, domain.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": err.Error(),
		})
	case errors.Is(err, domain.ErrCoinNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "no market data found",
			"id":      id,
		})
	case errors.Is(err, domain.ErrReferenceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"message": "reference price unavailable",
		})
	default:
		s.logger.Error("Order submit failed", slog.String("coin", id), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "internal server error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/application"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/adapter"
)

const maxWebhookBody = 1 << 20

// GatewayRetriever fetches the current checkout-session state for the
// client-initiated refresh poll.
type GatewayRetriever interface {
	RetrieveSessionEvent(ctx context.Context, sessionID string) ([]byte, error)
}

// Deduper is the webhook fast-path dedupe, satisfied by *idempotency.Store.
type Deduper interface {
	EventKey(provider, reference string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Handler struct {
	log           *slog.Logger
	tracer        trace.Tracer
	dispatcher    *application.Dispatcher
	cardGateway   adapter.Adapter
	manualCrypto  adapter.Adapter
	gateway       GatewayRetriever
	orders        application.OrderRepository
	manual        application.ManualPaymentRepository
	catalog       application.CatalogRepository
	notifier      application.Notifier
	idem          Deduper
	webhookSecret string
}

func NewHandler(
	log *slog.Logger,
	dispatcher *application.Dispatcher,
	gateway GatewayRetriever,
	orders application.OrderRepository,
	manual application.ManualPaymentRepository,
	catalog application.CatalogRepository,
	notifier application.Notifier,
	idem Deduper,
	webhookSecret string,
) *Handler {
	return &Handler{
		log:           log,
		tracer:        otel.Tracer("fulfillment-http"),
		dispatcher:    dispatcher,
		cardGateway:   adapter.NewCardGateway(),
		manualCrypto:  adapter.NewManualCrypto(),
		gateway:       gateway,
		orders:        orders,
		manual:        manual,
		catalog:       catalog,
		notifier:      notifier,
		idem:          idem,
		webhookSecret: webhookSecret,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/card-gateway", h.cardGatewayWebhook)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/refresh", h.refreshOrder)
	r.Post("/admin/crypto-payments/{id}/approve", h.approveCryptoPayment)
	r.Post("/admin/crypto-payments/{id}/reject", h.rejectCryptoPayment)
	return r
}

func (h *Handler) cardGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CardGatewayWebhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if err := verifySignature(h.webhookSecret, r.Header.Get("Gateway-Signature"), body, time.Now()); err != nil {
		h.log.Warn("webhook signature rejected", "err", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	ev, err := h.cardGateway.Normalize(body)
	if err != nil {
		h.log.Warn("webhook payload rejected", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// fast-path dedupe of redelivered webhooks; the atomic order claim is
	// the actual correctness guard, so a redis failure only logs
	claimed := false
	if h.idem != nil && ev.Reference != "" {
		key := h.idem.EventKey(ev.Provider, ev.Reference)
		seen, err := h.idem.Seen(ctx, key)
		if err != nil {
			h.log.Error("idempotency check failed", "reference", ev.Reference, "err", err)
		} else if seen {
			h.log.Info("duplicate webhook delivery skipped", "provider", ev.Provider, "reference", ev.Reference)
			writeJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
			return
		} else {
			claimed = true
		}
	}

	if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
		h.log.Error("dispatch failed", "provider", ev.Provider, "reference", ev.Reference, "err", err)
		// release the dedupe key so the gateway's retry is processed, not
		// skipped as a duplicate
		if claimed {
			if err := h.idem.Forget(ctx, h.idem.EventKey(ev.Provider, ev.Reference)); err != nil {
				h.log.Error("idempotency release failed", "reference", ev.Reference, "err", err)
			}
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, application.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeOrder(w, order)
}

// refreshOrder lets the client poll after returning from checkout. The
// session state is fetched from the gateway and fed through the same adapter
// and dispatch path as a webhook, so a poll racing a webhook resolves at the
// claim, not here.
func (h *Handler) refreshOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefreshOrder")
	defer span.End()

	id := chi.URLParam(r, "id")
	order, err := h.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, application.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if order.Status == domain.StatusRequiresPayment && order.Gateway.SessionID != "" {
		raw, err := h.gateway.RetrieveSessionEvent(ctx, order.Gateway.SessionID)
		if err != nil {
			h.log.Error("gateway session retrieve failed", "order_id", id, "err", err)
			http.Error(w, "gateway unavailable", http.StatusBadGateway)
			return
		}
		ev, err := h.cardGateway.Normalize(raw)
		if err != nil {
			h.log.Error("gateway session payload rejected", "order_id", id, "err", err)
			http.Error(w, "gateway unavailable", http.StatusBadGateway)
			return
		}
		if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if order, err = h.orders.Get(ctx, id); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	writeOrder(w, order)
}

func (h *Handler) approveCryptoPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ApproveCryptoPayment")
	defer span.End()

	id := chi.URLParam(r, "id")
	mp, err := h.manual.Get(ctx, id)
	if err != nil {
		http.Error(w, "manual payment not found", http.StatusNotFound)
		return
	}
	switch mp.Status {
	case domain.ManualPending:
		if err := h.manual.MarkVerified(ctx, id); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	case domain.ManualVerified:
		// re-approve after a failed dispatch; the order claim makes the
		// redelivery safe
	default:
		http.Error(w, "manual payment is not pending", http.StatusConflict)
		return
	}

	raw, err := json.Marshal(map[string]any{
		"payment_id": mp.ID,
		"order_id":   mp.OrderID,
		"status":     domain.ManualVerified,
		"amount":     mp.Amount,
		"currency":   mp.Currency,
		"network":    mp.Network,
		"txid":       mp.TxID,
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	ev, err := h.manualCrypto.Normalize(raw)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
		h.log.Error("dispatch failed", "payment_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "order_id": mp.OrderID})
}

// rejectCryptoPayment stays outside the dispatch path: it needs the
// operator's rejection reason for the buyer notification.
func (h *Handler) rejectCryptoPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RejectCryptoPayment")
	defer span.End()

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		http.Error(w, "rejection reason is required", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	mp, err := h.manual.Get(ctx, id)
	if err != nil {
		http.Error(w, "manual payment not found", http.StatusNotFound)
		return
	}
	if err := h.manual.MarkRejected(ctx, id, req.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err := h.orders.MarkFailed(ctx, mp.OrderID); err != nil && !errors.Is(err, application.ErrOrderNotFound) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if order, err := h.orders.Get(ctx, mp.OrderID); err == nil {
		if buyer, err := h.catalog.BuyerByID(ctx, order.BuyerID); err == nil {
			if err := h.notifier.PaymentRejected(ctx, buyer, order, req.Reason); err != nil {
				h.log.Error("rejection notification failed", "order_id", order.ID, "err", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected", "order_id": mp.OrderID})
}

func writeOrder(w http.ResponseWriter, order domain.Order) {
	resp := map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"total":    order.TotalAmount,
		"currency": order.Currency,
	}
	if order.PaidAt != nil {
		resp["paid_at"] = order.PaidAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

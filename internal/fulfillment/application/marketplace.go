package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	paydomain "github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

// MarketplaceHandler applies payment outcomes to marketplace orders. On
// success it claims the order atomically; only the claim winner runs the
// promo, license, payout, and notification steps.
type MarketplaceHandler struct {
	log      *slog.Logger
	orders   OrderRepository
	catalog  CatalogRepository
	licenses *LicenseOrchestrator
	payouts  *PayoutCalculator
	notifier Notifier
}

func NewMarketplaceHandler(
	log *slog.Logger,
	orders OrderRepository,
	catalog CatalogRepository,
	licenses *LicenseOrchestrator,
	payouts *PayoutCalculator,
	notifier Notifier,
) *MarketplaceHandler {
	return &MarketplaceHandler{
		log:      log,
		orders:   orders,
		catalog:  catalog,
		licenses: licenses,
		payouts:  payouts,
		notifier: notifier,
	}
}

func (h *MarketplaceHandler) Handle(ctx context.Context, ev paydomain.PaymentEvent) error {
	orderID := ev.OrderID()
	if orderID == "" {
		h.log.Warn("marketplace event without order id", "provider", ev.Provider, "reference", ev.Reference)
		return nil
	}

	switch ev.Status {
	case paydomain.StatusSuccess:
		return h.fulfill(ctx, orderID, ev)
	case paydomain.StatusFailed:
		return h.terminal(ctx, orderID, h.orders.MarkFailed)
	case paydomain.StatusCanceled:
		return h.terminal(ctx, orderID, h.orders.MarkCanceled)
	default:
		h.log.Debug("ignoring pending payment event", "order_id", orderID, "reference", ev.Reference)
		return nil
	}
}

// terminal applies a terminal-negative status. Idempotent to re-apply, so no
// claim race matters here.
func (h *MarketplaceHandler) terminal(ctx context.Context, orderID string, mark func(context.Context, string) error) error {
	if err := mark(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			h.log.Warn("payment event for unknown order", "order_id", orderID)
			return nil
		}
		return err
	}
	return nil
}

func (h *MarketplaceHandler) fulfill(ctx context.Context, orderID string, ev paydomain.PaymentEvent) error {
	order, claimed, err := h.orders.ClaimPaid(ctx, orderID, gatewayBlock(ev), time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			h.log.Warn("payment event for unknown order", "order_id", orderID, "reference", ev.Reference)
			return nil
		}
		return err
	}
	if !claimed {
		h.log.Info("duplicate payment event: order already claimed",
			"order_id", orderID, "provider", ev.Provider, "reference", ev.Reference)
		return nil
	}

	h.log.Info("order claimed", "order_id", orderID, "provider", ev.Provider, "reference", ev.Reference)

	// Downstream steps are independently idempotent; one step's failure must
	// not block the others or un-pay the order.
	h.applyPromoUsage(ctx, order)

	if _, err := h.licenses.EnsureLicenses(ctx, order); err != nil {
		h.log.Error("license orchestration failed", "order_id", orderID, "err", err)
	}
	if err := h.payouts.EnsurePayouts(ctx, order); err != nil {
		h.log.Error("payout computation failed", "order_id", orderID, "err", err)
	}

	h.notify(ctx, order)
	return nil
}

func (h *MarketplaceHandler) applyPromoUsage(ctx context.Context, order domain.Order) {
	counts := map[string]int{}
	for _, item := range order.Items {
		if item.PromoCode != "" {
			counts[item.PromoCode]++
		}
	}
	for code, n := range counts {
		if err := h.catalog.IncrementPromoUsage(ctx, code, n); err != nil {
			h.log.Error("promo usage increment failed", "order_id", order.ID, "code", code, "err", err)
		}
	}
}

func (h *MarketplaceHandler) notify(ctx context.Context, order domain.Order) {
	buyer, err := h.catalog.BuyerByID(ctx, order.BuyerID)
	if err != nil {
		h.log.Error("buyer lookup for notification failed", "order_id", order.ID, "err", err)
	} else if err := h.notifier.OrderConfirmation(ctx, buyer, order); err != nil {
		h.log.Error("order confirmation failed", "order_id", order.ID, "err", err)
	}

	type saleAgg struct {
		titles   []string
		subtotal int64
	}
	perSeller := map[string]*saleAgg{}
	for _, item := range order.Items {
		if item.SellerID == "" {
			continue
		}
		agg := perSeller[item.SellerID]
		if agg == nil {
			agg = &saleAgg{}
			perSeller[item.SellerID] = agg
		}
		agg.titles = append(agg.titles, item.Title)
		agg.subtotal += item.UnitAmountCents * int64(item.Qty)
	}
	for sellerID, agg := range perSeller {
		seller, err := h.catalog.SellerByID(ctx, sellerID)
		if err != nil {
			h.log.Error("seller lookup for notification failed", "order_id", order.ID, "seller_id", sellerID, "err", err)
			continue
		}
		if err := h.notifier.SaleNotification(ctx, seller, order, agg.titles, float64(agg.subtotal)/100); err != nil {
			h.log.Error("sale notification failed", "order_id", order.ID, "seller_id", sellerID, "err", err)
		}
	}
}

func gatewayBlock(ev paydomain.PaymentEvent) domain.GatewayBlock {
	return domain.GatewayBlock{
		SessionID:        ev.Meta("session_id"),
		IntentID:         ev.Meta("payment_intent"),
		ChargeID:         ev.Meta("charge_id"),
		ReceiptURL:       ev.Meta("receipt_url"),
		AmountTotalCents: ev.AmountCents,
	}
}

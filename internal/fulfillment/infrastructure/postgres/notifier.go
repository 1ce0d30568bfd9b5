package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	"github.com/avirek21/Marketplace-Fulfillment-System/pkg/outbox"
	"github.com/avirek21/Marketplace-Fulfillment-System/pkg/tracing"
)

// Notification event types carried on the outbox.
const (
	EventOrderConfirmation = "OrderConfirmation"
	EventSaleNotification  = "SaleNotification"
	EventLicenseIssued     = "LicenseIssued"
	EventLicenseRenewed    = "LicenseRenewed"
	EventPaymentRejected   = "PaymentRejected"
)

// OutboxNotifier implements the Notifier port by appending outbox rows; the
// relay ships them to the notification topic asynchronously, so a slow mail
// path never sits inside the fulfillment request.
type OutboxNotifier struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxNotifier(log *slog.Logger, pool *pgxpool.Pool) *OutboxNotifier {
	return &OutboxNotifier{log: log, pool: pool}
}

func (n *OutboxNotifier) OrderConfirmation(ctx context.Context, buyer domain.Buyer, order domain.Order) error {
	return n.append(ctx, "order", order.ID, EventOrderConfirmation, domain.OrderConfirmationEvent{
		OrderID:    order.ID,
		BuyerEmail: buyer.Email,
		BuyerName:  buyer.Name,
		Total:      order.TotalAmount,
		Currency:   order.Currency,
	})
}

func (n *OutboxNotifier) SaleNotification(ctx context.Context, seller domain.Seller, order domain.Order, titles []string, subtotal float64) error {
	return n.append(ctx, "order", order.ID, EventSaleNotification, domain.SaleNotificationEvent{
		OrderID:     order.ID,
		SellerID:    seller.ID,
		SellerEmail: seller.Email,
		Titles:      titles,
		NetAmount:   subtotal,
		Currency:    order.Currency,
	})
}

func (n *OutboxNotifier) LicenseIssued(ctx context.Context, buyer domain.Buyer, lic domain.License, productTitle string, renewal bool) error {
	eventType := EventLicenseIssued
	if renewal {
		eventType = EventLicenseRenewed
	}
	payload := domain.LicenseIssuedEvent{
		OrderID:      lic.OrderID,
		BuyerEmail:   buyer.Email,
		ProductTitle: productTitle,
		LicenseKey:   lic.Key,
		Renewal:      renewal,
	}
	if lic.ExpiresAt != nil {
		payload.ExpiresAt = lic.ExpiresAt.Format(time.RFC3339)
	}
	return n.append(ctx, "license", lic.ID, eventType, payload)
}

func (n *OutboxNotifier) PaymentRejected(ctx context.Context, buyer domain.Buyer, order domain.Order, reason string) error {
	return n.append(ctx, "order", order.ID, EventPaymentRejected, domain.PaymentRejectedEvent{
		OrderID:    order.ID,
		BuyerEmail: buyer.Email,
		Reason:     reason,
	})
}

func (n *OutboxNotifier) append(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	headers := map[string]string{"source": "fulfillment-service"}
	_, err = n.pool.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
	`, aggregateType, aggregateID, eventType, body, headers, tracing.Traceparent(ctx), outbox.StatusPending)
	return err
}

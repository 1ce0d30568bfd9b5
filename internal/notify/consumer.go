// Package notify consumes relayed notification events from kafka and sends
// the outbound mail. Everything here is fire-and-forget with respect to
// fulfillment: a send failure is logged, never retried into the pipeline.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/infrastructure/postgres"
	"github.com/avirek21/Marketplace-Fulfillment-System/pkg/idempotency"
	"github.com/avirek21/Marketplace-Fulfillment-System/pkg/tracing"
)

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	sender EmailSender
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, sender EmailSender, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		sender: sender,
		idem:   idem,
		tracer: otel.Tracer("notify-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.MessageKey(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "SendNotification")

		eventType := headerValue(msg.Headers, "event_type")
		if err := c.send(msgCtx, eventType, msg.Value); err != nil {
			c.log.Error("notification send failed", "type", eventType, "err", err)
		} else {
			c.log.Info("notification sent", "type", eventType)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) send(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case postgres.EventOrderConfirmation:
		var ev domain.OrderConfirmationEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		return c.sender.Send(ctx, ev.BuyerEmail,
			fmt.Sprintf("Your order %s is confirmed", ev.OrderID),
			fmt.Sprintf("Thanks %s, we received your payment of %.2f %s.", ev.BuyerName, ev.Total, strings.ToUpper(ev.Currency)))
	case postgres.EventSaleNotification:
		var ev domain.SaleNotificationEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		return c.sender.Send(ctx, ev.SellerEmail,
			fmt.Sprintf("You made a sale on order %s", ev.OrderID),
			fmt.Sprintf("Sold: %s. Subtotal %.2f %s.", strings.Join(ev.Titles, ", "), ev.NetAmount, strings.ToUpper(ev.Currency)))
	case postgres.EventLicenseIssued, postgres.EventLicenseRenewed:
		var ev domain.LicenseIssuedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		subject := fmt.Sprintf("Your license for %s", ev.ProductTitle)
		body := fmt.Sprintf("License key: %s", ev.LicenseKey)
		if ev.Renewal {
			subject = fmt.Sprintf("Your license for %s was renewed", ev.ProductTitle)
		}
		if ev.ExpiresAt != "" {
			body += fmt.Sprintf("\nValid until: %s", ev.ExpiresAt)
		}
		return c.sender.Send(ctx, ev.BuyerEmail, subject, body)
	case postgres.EventPaymentRejected:
		var ev domain.PaymentRejectedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		return c.sender.Send(ctx, ev.BuyerEmail,
			fmt.Sprintf("Payment for order %s was rejected", ev.OrderID),
			fmt.Sprintf("Reason: %s", ev.Reason))
	default:
		c.log.Warn("unknown notification type dropped", "type", eventType)
		return nil
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}

package integration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

type Env struct {
	PG        *postgres.PostgresContainer
	Kafka     *kafka.KafkaContainer
	Redis     *redis.RedisContainer
	PGURL     string
	KAddr     []string
	RedisAddr string
	Cancel    context.CancelFunc
}

func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fulfillment"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	kafkaAddress, err := kafkaC.Brokers(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	redisC, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		cancel()
		return nil, err
	}
	redisAddr, err := redisC.ConnectionString(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{
		PG:        pgC,
		Kafka:     kafkaC,
		Redis:     redisC,
		PGURL:     pgURL,
		KAddr:     kafkaAddress,
		RedisAddr: redisAddr,
		Cancel:    cancel,
	}, nil
}

// ApplySchema creates every table the service touches. Tests call it once
// per Env right after Setup.
func (e *Env) ApplySchema(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, e.PGURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, schema)
	return err
}

func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	_ = e.Redis.Terminate(ctx)
	_ = e.Kafka.Terminate(ctx)
	_ = e.PG.Terminate(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id      TEXT PRIMARY KEY,
    email   TEXT NOT NULL,
    name    TEXT,
    surname TEXT,
    phone   TEXT
);

CREATE TABLE IF NOT EXISTS sellers (
    id      TEXT PRIMARY KEY REFERENCES users(id),
    balance NUMERIC(12,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS categories (
    id             TEXT PRIMARY KEY,
    parent_id      TEXT REFERENCES categories(id),
    commission_pct NUMERIC(5,2)
);

CREATE TABLE IF NOT EXISTS products (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    kind              TEXT NOT NULL DEFAULT 'standard',
    subscription      BOOLEAN NOT NULL DEFAULT FALSE,
    billing_interval  TEXT,
    license_enabled   BOOLEAN NOT NULL DEFAULT FALSE,
    seller_id         TEXT NOT NULL,
    shop_id           TEXT NOT NULL DEFAULT '',
    category_id       TEXT REFERENCES categories(id),
    unit_amount_cents BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS promo_codes (
    code       TEXT PRIMARY KEY,
    used_count INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS orders (
    id                  TEXT PRIMARY KEY,
    buyer_id            TEXT NOT NULL REFERENCES users(id),
    currency            TEXT NOT NULL,
    total_amount        NUMERIC(12,2) NOT NULL,
    total_amount_cents  BIGINT NOT NULL,
    status              TEXT NOT NULL DEFAULT 'requires_payment',
    promo_applied       BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at             TIMESTAMPTZ,
    session_id          TEXT,
    intent_id           TEXT,
    charge_id           TEXT,
    receipt_url         TEXT,
    amount_total_cents  BIGINT NOT NULL DEFAULT 0,
    crypto_reference    TEXT,
    crypto_network      TEXT,
    crypto_verification TEXT,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
    order_id          TEXT NOT NULL REFERENCES orders(id),
    position          INT NOT NULL,
    product_id        TEXT NOT NULL,
    title             TEXT NOT NULL,
    unit_amount_cents BIGINT NOT NULL,
    qty               INT NOT NULL,
    seller_id         TEXT NOT NULL,
    shop_id           TEXT NOT NULL DEFAULT '',
    promo_code        TEXT,
    PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS licenses (
    id          TEXT PRIMARY KEY,
    order_id    TEXT NOT NULL,
    product_id  TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    status      TEXT NOT NULL,
    license_key TEXT NOT NULL DEFAULT '',
    expires_at  TIMESTAMPTZ,
    last_error  TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_id, product_id)
);

CREATE TABLE IF NOT EXISTS seller_payouts (
    id                TEXT PRIMARY KEY,
    order_id          TEXT NOT NULL,
    product_id        TEXT NOT NULL,
    seller_id         TEXT NOT NULL,
    shop_id           TEXT NOT NULL DEFAULT '',
    gross_cents       BIGINT NOT NULL,
    commission_cents  BIGINT NOT NULL,
    net_cents         BIGINT NOT NULL,
    gross_amount      NUMERIC(12,2) NOT NULL,
    commission_amount NUMERIC(12,2) NOT NULL,
    net_amount        NUMERIC(12,2) NOT NULL,
    commission_pct    NUMERIC(5,2) NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_id, product_id, seller_id)
);

CREATE TABLE IF NOT EXISTS admin_commissions (
    id             TEXT PRIMARY KEY,
    order_id       TEXT NOT NULL,
    product_id     TEXT NOT NULL,
    seller_id      TEXT NOT NULL,
    amount_cents   BIGINT NOT NULL,
    amount         NUMERIC(12,2) NOT NULL,
    commission_pct NUMERIC(5,2) NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_id, product_id, seller_id)
);

CREATE TABLE IF NOT EXISTS manual_payments (
    id            TEXT PRIMARY KEY,
    order_id      TEXT NOT NULL REFERENCES orders(id),
    amount        NUMERIC(12,2) NOT NULL,
    currency      TEXT NOT NULL,
    network       TEXT,
    txid          TEXT,
    status        TEXT NOT NULL DEFAULT 'pending',
    reject_reason TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscription_payments (
    reference  TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    plan       TEXT NOT NULL,
    period_end TIMESTAMPTZ,
    status     TEXT NOT NULL,
    last_error TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS course_enrollments (
    reference  TEXT PRIMARY KEY,
    course_id  TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outbox (
    id             BIGSERIAL PRIMARY KEY,
    aggregate_type TEXT NOT NULL,
    aggregate_id   TEXT NOT NULL,
    type           TEXT NOT NULL,
    payload        JSONB NOT NULL,
    headers        JSONB NOT NULL DEFAULT '{}',
    traceparent    TEXT,
    status         TEXT NOT NULL DEFAULT 'pending',
    relay_id       TEXT,
    lease_until    TIMESTAMPTZ,
    retry_count    INT NOT NULL DEFAULT 0,
    last_error     TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

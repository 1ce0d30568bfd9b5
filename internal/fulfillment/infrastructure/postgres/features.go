package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository records paid subscription periods, idempotent on the
// payment event's stable reference.
type SubscriptionRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(log *slog.Logger, pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{log: log, pool: pool}
}

func (r *SubscriptionRepository) RecordPayment(ctx context.Context, userID, plan, reference string, periodEnd time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO subscription_payments (user_id, plan, reference, period_end, status, created_at)
		VALUES ($1,$2,$3,$4,'paid',now())
		ON CONFLICT (reference) DO NOTHING
	`, userID, plan, reference, periodEnd)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *SubscriptionRepository) RecordFailure(ctx context.Context, userID, plan, reference, reason string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscription_payments (user_id, plan, reference, status, last_error, created_at)
		VALUES ($1,$2,$3,'failed',$4,now())
		ON CONFLICT (reference) DO NOTHING
	`, userID, plan, reference, reason)
	return err
}

// EnrollmentRepository marks course enrollments paid, idempotent on the
// payment event's stable reference.
type EnrollmentRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(log *slog.Logger, pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{log: log, pool: pool}
}

func (r *EnrollmentRepository) MarkPaid(ctx context.Context, courseID, userID, reference string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO course_enrollments (course_id, user_id, reference, status, created_at)
		VALUES ($1,$2,$3,'paid',now())
		ON CONFLICT (reference) DO NOTHING
	`, courseID, userID, reference)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EnrollmentRepository) MarkFailed(ctx context.Context, courseID, userID, reference string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO course_enrollments (course_id, user_id, reference, status, created_at)
		VALUES ($1,$2,$3,'failed',now())
		ON CONFLICT (reference) DO NOTHING
	`, courseID, userID, reference)
	return err
}

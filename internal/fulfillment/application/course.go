package application

import (
	"context"
	"log/slog"

	paydomain "github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

// CourseHandler marks course enrollments paid. Idempotent on the event's
// stable reference.
type CourseHandler struct {
	log         *slog.Logger
	enrollments EnrollmentRepository
}

func NewCourseHandler(log *slog.Logger, enrollments EnrollmentRepository) *CourseHandler {
	return &CourseHandler{log: log, enrollments: enrollments}
}

func (h *CourseHandler) Handle(ctx context.Context, ev paydomain.PaymentEvent) error {
	courseID := ev.Meta("course_id")
	userID := ev.Meta("user_id")
	if courseID == "" || userID == "" {
		h.log.Warn("course event missing course or user id", "provider", ev.Provider, "reference", ev.Reference)
		return nil
	}

	switch ev.Status {
	case paydomain.StatusSuccess:
		applied, err := h.enrollments.MarkPaid(ctx, courseID, userID, ev.Reference)
		if err != nil {
			return err
		}
		if !applied {
			h.log.Info("duplicate course payment", "course_id", courseID, "user_id", userID, "reference", ev.Reference)
			return nil
		}
		h.log.Info("course enrollment paid", "course_id", courseID, "user_id", userID)
		return nil
	case paydomain.StatusFailed, paydomain.StatusCanceled:
		return h.enrollments.MarkFailed(ctx, courseID, userID, ev.Reference)
	default:
		return nil
	}
}

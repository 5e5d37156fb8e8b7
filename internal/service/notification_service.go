package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/pkg/jobs"
	"github.com/noah-isme/hostel-booking-api/pkg/notify"
)

// notifier sends receipts and credentials without blocking the caller.
type notifier interface {
	PaymentReceipt(ctx context.Context, booking *models.Booking, payment *models.BookingPayment)
	ResidentReceipt(ctx context.Context, resident *models.Resident, payment *models.LedgerPayment, balance decimal.Decimal)
	CheckInCredentials(ctx context.Context, booking *models.Booking, registration *models.RegistrationResult)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

const notificationJobType = "notification"

// NotificationService turns financial events into notify messages and hands them to a worker
// queue. Every failure is logged and counted; none reaches the caller.
type NotificationService struct {
	publisher notify.Publisher
	queue     jobEnqueuer
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs NotificationService. A nil publisher discards messages.
func NewNotificationService(publisher notify.Publisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, metrics: metrics, logger: logger, now: time.Now}
}

// UseQueue attaches the queue that delivers messages. Until then messages are dropped.
func (s *NotificationService) UseQueue(queue jobEnqueuer) {
	if s == nil {
		return
	}
	s.queue = queue
}

// Handle is the queue handler publishing one message.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return err
	}
	s.metrics.RecordNotification(msg.Kind, "sent")
	return nil
}

// GiveUp records a message that exhausted its retries.
func (s *NotificationService) GiveUp(job jobs.Job, err error) {
	kind := "unknown"
	if msg, ok := job.Payload.(notify.Message); ok {
		kind = msg.Kind
	}
	s.metrics.RecordNotification(kind, "failed")
	s.logger.Warn("notification dropped", zap.String("job_id", job.ID), zap.String("kind", kind), zap.Error(err))
}

// PaymentReceipt notifies the booking's student of a payment.
func (s *NotificationService) PaymentReceipt(ctx context.Context, booking *models.Booking, payment *models.BookingPayment) {
	if s == nil || booking == nil || payment == nil {
		return
	}
	data := map[string]interface{}{
		"booking_id":     booking.ID,
		"payment_id":     payment.ID,
		"amount":         payment.Amount.StringFixed(2),
		"method":         string(payment.Method),
		"amount_due":     booking.AmountDue.StringFixed(2),
		"amount_paid":    booking.AmountPaid.StringFixed(2),
		"balance":        booking.Outstanding().StringFixed(2),
		"payment_status": string(booking.PaymentStatus),
	}
	if booking.VerificationCode != nil {
		data["verification_code"] = *booking.VerificationCode
	}
	s.dispatch(ctx, notify.KindPaymentReceipt, notify.Recipient{
		Name:  booking.StudentName,
		Email: booking.StudentEmail,
		Phone: booking.StudentPhone,
	}, data)
}

// ResidentReceipt notifies a resident of a ledger payment.
func (s *NotificationService) ResidentReceipt(ctx context.Context, resident *models.Resident, payment *models.LedgerPayment, balance decimal.Decimal) {
	if s == nil || resident == nil || payment == nil {
		return
	}
	s.dispatch(ctx, notify.KindPaymentReceipt, notify.Recipient{
		Name:  resident.FullName,
		Email: resident.Email,
		Phone: resident.Phone,
	}, map[string]interface{}{
		"resident_id": resident.ID,
		"payment_id":  payment.ID,
		"amount":      payment.Amount.StringFixed(2),
		"method":      string(payment.Method),
		"balance":     balance.StringFixed(2),
	})
}

// CheckInCredentials sends login details to a newly checked-in resident. Existing accounts get a
// welcome without a password.
func (s *NotificationService) CheckInCredentials(ctx context.Context, booking *models.Booking, registration *models.RegistrationResult) {
	if s == nil || booking == nil || registration == nil {
		return
	}
	data := map[string]interface{}{
		"booking_id":  booking.ID,
		"resident_id": registration.ResidentID,
		"username":    booking.StudentEmail,
		"new_account": registration.Created,
	}
	if booking.RoomID != nil {
		data["room_id"] = *booking.RoomID
	}
	if registration.Created && registration.TemporaryPassword != "" {
		data["temporary_password"] = registration.TemporaryPassword
	}
	s.dispatch(ctx, notify.KindCheckInCredentials, notify.Recipient{
		Name:  booking.StudentName,
		Email: booking.StudentEmail,
		Phone: booking.StudentPhone,
	}, data)
}

func (s *NotificationService) dispatch(ctx context.Context, kind string, recipient notify.Recipient, data map[string]interface{}) {
	if s.queue == nil {
		s.logger.Debug("notifications disabled, dropping message", zap.String("kind", kind))
		return
	}
	msg := notify.Message{
		ID:         uuid.NewString(),
		Kind:       kind,
		Recipient:  recipient,
		Data:       data,
		OccurredAt: s.now().UTC(),
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: msg.ID, Type: notificationJobType, Payload: msg}); err != nil {
		s.metrics.RecordNotification(kind, "dropped")
		s.logger.Warn("notification enqueue failed",
			zap.String("kind", kind),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordNotification(kind, "queued")
}

package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/setting"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cmlabs-hris/leave-backend-go/internal/service/leave"

type LeaveServiceImpl struct {
	tx leave.Transactor
	leave.LeaveTypeRepository
	leave.BalanceRepository
	leave.MonthlyUsageRepository
	leave.LeaveRequestRepository
	users    user.Repository
	settings setting.Repository
	notifier notification.Sink

	policy leave.Policy
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures a LeaveServiceImpl
type Option func(*LeaveServiceImpl)

// WithPolicy replaces the default organisation policy
func WithPolicy(policy leave.Policy) Option {
	return func(s *LeaveServiceImpl) {
		s.policy = policy
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *LeaveServiceImpl) {
		s.now = now
	}
}

// WithTracerProvider uses tp instead of the global tracer provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *LeaveServiceImpl) {
		s.tracer = tp.Tracer(tracerName)
	}
}

func NewLeaveService(
	tx leave.Transactor,
	leaveTypeRepo leave.LeaveTypeRepository,
	balanceRepo leave.BalanceRepository,
	monthlyUsageRepo leave.MonthlyUsageRepository,
	leaveRequestRepo leave.LeaveRequestRepository,
	userRepo user.Repository,
	settingRepo setting.Repository,
	notifier notification.Sink,
	opts ...Option,
) *LeaveServiceImpl {
	s := &LeaveServiceImpl{
		tx:                     tx,
		LeaveTypeRepository:    leaveTypeRepo,
		BalanceRepository:      balanceRepo,
		MonthlyUsageRepository: monthlyUsageRepo,
		LeaveRequestRepository: leaveRequestRepo,
		users:                  userRepo,
		settings:               settingRepo,
		notifier:               notifier,
		policy:                 leave.DefaultPolicy(),
		now:                    time.Now,
		tracer:                 otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.Location == nil {
		s.policy.Location = time.UTC
	}
	return s
}

var _ leave.LeaveService = (*LeaveServiceImpl)(nil)

// inTransaction runs fn in one transaction. Rule violations come back unchanged,
// anything else is reported as a transaction failure.
func (l *LeaveServiceImpl) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := l.tx.WithinTransaction(ctx, fn)
	if err == nil {
		return nil
	}
	if isPassThrough(err) {
		return err
	}
	return fmt.Errorf("%w: %w", leave.ErrTransactionFailure, err)
}

func isPassThrough(err error) bool {
	if leave.IsBusinessError(err) {
		return true
	}
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs) ||
		errors.Is(err, user.ErrUserNotFound) ||
		errors.Is(err, user.ErrUserInactive) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// endSpan records err on span before ending it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// activeUser loads id from the directory and rejects deactivated accounts
func (l *LeaveServiceImpl) activeUser(ctx context.Context, id string) (user.User, error) {
	u, err := l.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if !u.IsActive {
		return user.User{}, user.ErrUserInactive
	}
	return u, nil
}

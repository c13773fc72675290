package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// resetSampleSize caps how many prior balances are copied into the audit entry
const resetSampleSize = 10

// RunAnnualReset implements leave.LeaveService. Each user is reset in a transaction of its
// own; a failing user is recorded and skipped, users already reset stay committed.
func (l *LeaveServiceImpl) RunAnnualReset(ctx context.Context, req leave.AnnualResetRequest) (resp leave.AnnualResetResponse, err error) {
	ctx, span := l.tracer.Start(ctx, "leave.RunAnnualReset", trace.WithAttributes(
		attribute.Int("leave.year", req.Year),
		attribute.Bool("leave.rollover", req.Rollover),
	))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return leave.AnnualResetResponse{}, err
	}

	audit := leave.AnnualResetAudit{Year: req.Year, Rollover: req.Rollover}
	resp = leave.AnnualResetResponse{Year: req.Year, Errors: []string{}}

	users, err := l.users.ListActive(ctx)
	if err != nil {
		return resp, l.recordResetFailure(ctx, audit, fmt.Errorf("failed to list active users: %w", err))
	}
	leaveTypes, err := l.LeaveTypeRepository.ListByCodes(ctx, l.policy.AutoEnrollCodes)
	if err != nil {
		return resp, l.recordResetFailure(ctx, audit, fmt.Errorf("failed to list leave types: %w", err))
	}

	for _, u := range users {
		err := l.inTransaction(ctx, func(ctx context.Context) error {
			for _, lt := range leaveTypes {
				if len(audit.PriorSample) < resetSampleSize {
					prior, err := l.BalanceRepository.Get(ctx, u.ID, lt.ID, req.Year-1)
					switch {
					case err == nil:
						audit.PriorSample = append(audit.PriorSample, leave.BalanceSnapshot{
							UserID:        prior.UserID,
							LeaveTypeID:   prior.LeaveTypeID,
							LeaveTypeCode: lt.Code,
							Year:          prior.Year,
							TotalDays:     prior.TotalDays,
							UsedDays:      prior.UsedDays,
							PendingDays:   prior.PendingDays,
							RemainingDays: prior.RemainingDays,
						})
					case !errors.Is(err, leave.ErrBalanceNotFound):
						return err
					}
				}

				if _, err := l.BalanceRepository.Reset(ctx, u.ID, lt.ID, req.Year, l.policy.ResetTotalDays); err != nil {
					return err
				}
			}

			if _, err := l.MonthlyUsageRepository.DeleteByUserYear(ctx, u.ID, req.Year-1); err != nil {
				return err
			}

			if req.Rollover {
				if _, err := l.rollover(ctx, u.ID, req.Year-1); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			audit.UsersFailed++
			audit.Errors = append(audit.Errors, fmt.Sprintf("user %s: %v", u.ID, err))
			slog.Error("Annual leave reset failed for user", "user_id", u.ID, "year", req.Year, "error", err)
			continue
		}
		audit.UsersReset++
	}

	audit.ExecutedAt = l.now()
	resp.UsersReset = audit.UsersReset
	resp.Errors = append(resp.Errors, audit.Errors...)

	if audit.UsersReset == 0 && audit.UsersFailed > 0 {
		return resp, l.recordResetFailure(ctx, audit, errors.New("no user could be reset"))
	}

	if err := l.settings.Upsert(ctx, leave.AnnualResetSettingKey(req.Year), audit); err != nil {
		return resp, fmt.Errorf("%w: failed to record annual reset: %w", leave.ErrTransactionFailure, err)
	}

	span.SetAttributes(attribute.Int("leave.users_reset", audit.UsersReset), attribute.Int("leave.users_failed", audit.UsersFailed))
	slog.Info("Annual leave reset completed",
		"year", req.Year,
		"users_reset", audit.UsersReset,
		"users_failed", audit.UsersFailed,
		"rollover", req.Rollover,
	)
	return resp, nil
}

// recordResetFailure stores the error entry for the run and returns the wrapped cause
func (l *LeaveServiceImpl) recordResetFailure(ctx context.Context, audit leave.AnnualResetAudit, cause error) error {
	audit.ExecutedAt = l.now()
	audit.ErrorMessage = cause.Error()

	if err := l.settings.Upsert(ctx, leave.AnnualResetErrorSettingKey(audit.Year), audit); err != nil {
		slog.Error("Failed to record annual reset error", "year", audit.Year, "error", err)
	}
	slog.Error("Annual leave reset failed", "year", audit.Year, "error", cause)
	return fmt.Errorf("%w: %w", leave.ErrAnnualResetFailed, cause)
}

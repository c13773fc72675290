package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
)

// EnsureInitialized implements leave.LeaveService. It creates the year's balance row for
// every auto-enrolled leave type and leaves existing rows untouched.
func (l *LeaveServiceImpl) EnsureInitialized(ctx context.Context, userID string, year int) error {
	if !validator.IsValidYear(year) {
		return validator.ValidationErrors{{Field: "year", Message: "year must be a valid year"}}
	}
	return l.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := l.activeUser(ctx, userID); err != nil {
			return err
		}
		return l.initializeBalances(ctx, userID, year)
	})
}

func (l *LeaveServiceImpl) initializeBalances(ctx context.Context, userID string, year int) error {
	leaveTypes, err := l.LeaveTypeRepository.ListByCodes(ctx, l.policy.AutoEnrollCodes)
	if err != nil {
		return fmt.Errorf("failed to list auto-enrolled leave types: %w", err)
	}
	for _, lt := range leaveTypes {
		if err := l.ensureBalanceRow(ctx, userID, lt, year); err != nil {
			return err
		}
	}
	return nil
}

func (l *LeaveServiceImpl) ensureBalanceRow(ctx context.Context, userID string, lt leave.LeaveType, year int) error {
	err := l.BalanceRepository.InsertIfAbsent(ctx, leave.LeaveBalance{
		UserID:      userID,
		LeaveTypeID: lt.ID,
		Year:        year,
		TotalDays:   lt.AnnualDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize %s balance for user %s: %w", lt.Code, userID, err)
	}
	return nil
}

// GetBalance implements leave.LeaveService. Missing rows are initialized for active users only;
// a deactivated user's existing rows are listed as they are.
func (l *LeaveServiceImpl) GetBalance(ctx context.Context, userID string, year int) ([]leave.BalanceResponse, error) {
	if !validator.IsValidYear(year) {
		return nil, validator.ValidationErrors{{Field: "year", Message: "year must be a valid year"}}
	}
	err := l.inTransaction(ctx, func(ctx context.Context) error {
		u, err := l.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !u.IsActive {
			return nil
		}
		return l.initializeBalances(ctx, userID, year)
	})
	if err != nil {
		return nil, err
	}

	balances, err := l.BalanceRepository.ListByUserYear(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave balances: %w", err)
	}

	responses := make([]leave.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		responses = append(responses, leave.NewBalanceResponse(b))
	}
	return responses, nil
}

// GetMonthlyUsage implements leave.LeaveService.
func (l *LeaveServiceImpl) GetMonthlyUsage(ctx context.Context, userID string, year, month int) ([]leave.MonthlyUsageResponse, error) {
	var errs validator.ValidationErrors
	if !validator.IsValidYear(year) {
		errs.Add("year", "year must be a valid year")
	}
	if !validator.IsValidMonth(month) {
		errs.Add("month", "month must be between 1 and 12")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	usages, err := l.MonthlyUsageRepository.ListByUserMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly usage: %w", err)
	}

	responses := make([]leave.MonthlyUsageResponse, 0, len(usages))
	for _, u := range usages {
		responses = append(responses, leave.NewMonthlyUsageResponse(u))
	}
	return responses, nil
}

// RolloverBalances implements leave.LeaveService. For every leave type that allows carry-forward,
// the next year's row gets min(prior remaining, type cap) carried over.
func (l *LeaveServiceImpl) RolloverBalances(ctx context.Context, userID string, fromYear int) ([]leave.BalanceResponse, error) {
	req := leave.RolloverRequest{UserID: userID, FromYear: fromYear}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var rolled []leave.LeaveBalance
	err := l.inTransaction(ctx, func(ctx context.Context) error {
		if _, err := l.users.GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		rolled, err = l.rollover(ctx, userID, fromYear)
		return err
	})
	if err != nil {
		return nil, err
	}

	responses := make([]leave.BalanceResponse, 0, len(rolled))
	for _, b := range rolled {
		responses = append(responses, leave.NewBalanceResponse(b))
	}
	return responses, nil
}

func (l *LeaveServiceImpl) rollover(ctx context.Context, userID string, fromYear int) ([]leave.LeaveBalance, error) {
	leaveTypes, err := l.LeaveTypeRepository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}

	var rolled []leave.LeaveBalance
	for _, lt := range leaveTypes {
		if lt.CarryForwardDays <= 0 {
			continue
		}

		prior, err := l.BalanceRepository.Get(ctx, userID, lt.ID, fromYear)
		if errors.Is(err, leave.ErrBalanceNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		carry := prior.RemainingDays
		if carry > lt.CarryForwardDays {
			carry = lt.CarryForwardDays
		}

		next, err := l.BalanceRepository.SetCarryForward(ctx, userID, lt.ID, fromYear+1, carry, lt.AnnualDays)
		if err != nil {
			return nil, err
		}
		code, name := lt.Code, lt.Name
		next.LeaveTypeCode, next.LeaveTypeName = &code, &name
		rolled = append(rolled, next)

		slog.Debug("Balance rolled over", "user_id", userID, "leave_type", lt.Code, "from_year", fromYear, "carry_forward_days", carry)
	}
	return rolled, nil
}

// CanViewUser implements leave.LeaveService.
func (l *LeaveServiceImpl) CanViewUser(ctx context.Context, principal user.Principal, userID string) error {
	if principal.UserID == userID || principal.Can(user.PermissionLeaveViewAll) {
		return nil
	}
	if !principal.Can(user.PermissionLeaveViewTeam) {
		return leave.ErrForbidden
	}

	target, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !target.IsManagedBy(principal.UserID) {
		return leave.ErrForbidden
	}
	return nil
}

// applyLedgerEffect performs the balance mutation that accompanies a transition
func (l *LeaveServiceImpl) applyLedgerEffect(ctx context.Context, req leave.LeaveRequest, effect leave.LedgerEffect) (*leave.LeaveBalance, error) {
	var (
		b   leave.LeaveBalance
		err error
	)
	switch effect {
	case leave.EffectCommitUsage:
		b, err = l.BalanceRepository.CommitUsage(ctx, req.UserID, req.LeaveTypeID, req.Year(), req.TotalDays)
	case leave.EffectRevertPending:
		b, err = l.BalanceRepository.AdjustPending(ctx, req.UserID, req.LeaveTypeID, req.Year(), -req.TotalDays)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s for request %s: %w", effect, req.ID, err)
	}
	return &b, nil
}

// checkMonthlyLimit enforces the per-month cap for a throttled, non-emergency request
func (l *LeaveServiceImpl) checkMonthlyLimit(ctx context.Context, userID, leaveTypeID string, year, month, days int) error {
	used := 0
	maxAllowed := l.policy.MonthlyMaxDays

	usage, err := l.MonthlyUsageRepository.Get(ctx, userID, leaveTypeID, year, month)
	switch {
	case err == nil:
		used = usage.UsedDays
		maxAllowed = usage.MaxAllowed
	case !errors.Is(err, leave.ErrMonthlyUsageNotFound):
		return err
	}

	if used+days > maxAllowed {
		return leave.ErrMonthlyLimitExceeded
	}
	return nil
}

package leave

import (
	"context"
	"time"
)

// Transactor runs fn inside one database transaction. Repositories called with the
// context passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LeaveTypeRepository - interface for leave_types table
type LeaveTypeRepository interface {
	Create(ctx context.Context, leaveType LeaveType) (LeaveType, error)
	GetByID(ctx context.Context, id string) (LeaveType, error)
	GetByCode(ctx context.Context, code string) (LeaveType, error)
	List(ctx context.Context) ([]LeaveType, error)
	ListByCodes(ctx context.Context, codes []string) ([]LeaveType, error)
	Update(ctx context.Context, leaveType LeaveType) (LeaveType, error)
}

// BalanceRepository - interface for leave_balances table. Every mutation is a single
// atomic statement that returns the row as it stands afterwards.
type BalanceRepository interface {
	Get(ctx context.Context, userID, leaveTypeID string, year int) (LeaveBalance, error)
	GetForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (LeaveBalance, error)
	ListByUserYear(ctx context.Context, userID string, year int) ([]LeaveBalance, error)

	// InsertIfAbsent creates the row or leaves an existing one untouched
	InsertIfAbsent(ctx context.Context, balance LeaveBalance) error
	AdjustPending(ctx context.Context, userID, leaveTypeID string, year, delta int) (LeaveBalance, error)
	CommitUsage(ctx context.Context, userID, leaveTypeID string, year, days int) (LeaveBalance, error)
	AddUsed(ctx context.Context, userID, leaveTypeID string, year, days int) (LeaveBalance, error)

	// Reset upserts the row to totalDays with used, pending and carry-forward cleared
	Reset(ctx context.Context, userID, leaveTypeID string, year, totalDays int) (LeaveBalance, error)
	// SetCarryForward upserts the row, creating it with totalDays when absent
	SetCarryForward(ctx context.Context, userID, leaveTypeID string, year, carryForward, totalDays int) (LeaveBalance, error)
}

// MonthlyUsageRepository - interface for monthly_usage table
type MonthlyUsageRepository interface {
	Get(ctx context.Context, userID, leaveTypeID string, year, month int) (MonthlyUsage, error)
	ListByUserMonth(ctx context.Context, userID string, year, month int) ([]MonthlyUsage, error)
	Increment(ctx context.Context, userID, leaveTypeID string, year, month, days, maxAllowed int) (MonthlyUsage, error)
	DeleteByUserYear(ctx context.Context, userID string, year int) (int64, error)
}

// LeaveRequestRepository - interface for leave_requests table
type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	GetForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	UpdateTransition(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error)
	List(ctx context.Context, query RequestQuery) ([]LeaveRequest, int64, error)

	// LockUser serialises submissions by the same user for the rest of the transaction
	LockUser(ctx context.Context, userID string) error
}

package leave

import (
	"context"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
)

type LeaveService interface {
	// Type registry
	ListLeaveTypes(ctx context.Context) ([]LeaveTypeResponse, error)
	GetLeaveType(ctx context.Context, idOrCode string) (LeaveTypeResponse, error)
	CreateLeaveType(ctx context.Context, principal user.Principal, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	UpdateLeaveType(ctx context.Context, principal user.Principal, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error)

	// Lifecycle
	SubmitRequest(ctx context.Context, principal user.Principal, req SubmitRequest) (SubmitResponse, error)
	Transition(ctx context.Context, principal user.Principal, requestID string, req TransitionRequest) (TransitionResponse, error)
	GetRequest(ctx context.Context, principal user.Principal, requestID string) (LeaveRequestResponse, error)
	ListRequests(ctx context.Context, principal user.Principal, filter RequestFilter) (ListRequestsResponse, error)

	// Ledger
	GetBalance(ctx context.Context, userID string, year int) ([]BalanceResponse, error)
	GetMonthlyUsage(ctx context.Context, userID string, year, month int) ([]MonthlyUsageResponse, error)
	EnsureInitialized(ctx context.Context, userID string, year int) error
	RolloverBalances(ctx context.Context, userID string, fromYear int) ([]BalanceResponse, error)
	CanViewUser(ctx context.Context, principal user.Principal, userID string) error

	// Annual reset
	RunAnnualReset(ctx context.Context, req AnnualResetRequest) (AnnualResetResponse, error)
}

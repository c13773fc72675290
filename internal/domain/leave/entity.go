package leave

import (
	"strconv"
	"time"
)

// Well-known leave type codes
const (
	CodeCasual = "casual"
	CodeHealth = "health"
)

// LeaveType is admin-managed reference data
type LeaveType struct {
	ID          string
	Code        string
	Name        string
	Description *string

	AnnualDays         int
	MaxConsecutiveDays *int
	NoticePeriodDays   int
	CarryForwardDays   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaveBalance is keyed by (UserID, LeaveTypeID, Year)
type LeaveBalance struct {
	ID          string
	UserID      string
	LeaveTypeID string
	Year        int

	TotalDays        int
	UsedDays         int
	PendingDays      int
	CarryForwardDays int
	RemainingDays    int // Computed field

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	LeaveTypeCode *string
	LeaveTypeName *string
}

// MonthlyUsage is keyed by (UserID, LeaveTypeID, Year, Month)
type MonthlyUsage struct {
	ID          string
	UserID      string
	LeaveTypeID string
	Year        int
	Month       int

	UsedDays   int
	MaxAllowed int

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	LeaveTypeCode *string
	LeaveTypeName *string
}

type LeaveRequestStatus string

const (
	StatusPending         LeaveRequestStatus = "pending"
	StatusHRPending       LeaveRequestStatus = "hr_pending"
	StatusManagerApproved LeaveRequestStatus = "manager_approved"
	StatusManagerRejected LeaveRequestStatus = "manager_rejected"
	StatusAdminApproved   LeaveRequestStatus = "admin_approved"
	StatusAdminRejected   LeaveRequestStatus = "admin_rejected"
	StatusCancelled       LeaveRequestStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
func AllStatuses() []LeaveRequestStatus {
	return []LeaveRequestStatus{
		StatusPending,
		StatusHRPending,
		StatusManagerApproved,
		StatusManagerRejected,
		StatusAdminApproved,
		StatusAdminRejected,
		StatusCancelled,
	}
}

// IsValid reports whether s is a known status
func (s LeaveRequestStatus) IsValid() bool {
	for _, st := range AllStatuses() {
		if st == s {
			return true
		}
	}
	return false
}

// Action is a lifecycle command issued by an approver or the owner
type Action string

const (
	ActionApproveManager Action = "approveManager"
	ActionRejectManager  Action = "rejectManager"
	ActionApproveAdmin   Action = "approveAdmin"
	ActionRejectAdmin    Action = "rejectAdmin"
	ActionCancel         Action = "cancel"
)

// LeaveRequest entity
type LeaveRequest struct {
	ID          string
	UserID      string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time
	TotalDays int

	Reason    string
	Emergency bool

	ManagerID *string
	AdminID   *string
	Status    LeaveRequestStatus

	ManagerComments   *string
	AdminComments     *string
	ManagerApprovedAt *time.Time
	ManagerRejectedAt *time.Time
	AdminApprovedAt   *time.Time
	AdminRejectedAt   *time.Time

	CancelledBy *string
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	LeaveTypeCode *string
	LeaveTypeName *string
	UserName      *string
}

// Year is the ledger year the request is booked against
func (r LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// BalanceSnapshot is a compact copy of a balance row kept in reset audit entries
type BalanceSnapshot struct {
	UserID        string `json:"user_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	LeaveTypeCode string `json:"leave_type_code,omitempty"`
	Year          int    `json:"year"`
	TotalDays     int    `json:"total_days"`
	UsedDays      int    `json:"used_days"`
	PendingDays   int    `json:"pending_days"`
	RemainingDays int    `json:"remaining_days"`
}

// AnnualResetAudit is persisted in the system settings store after each reset run
type AnnualResetAudit struct {
	Year         int               `json:"year"`
	ExecutedAt   time.Time         `json:"executed_at"`
	UsersReset   int               `json:"users_reset"`
	UsersFailed  int               `json:"users_failed"`
	Rollover     bool              `json:"rollover"`
	PriorSample  []BalanceSnapshot `json:"prior_sample,omitempty"`
	Errors       []string          `json:"errors,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// AnnualResetSettingKey is where the audit entry for year is stored
func AnnualResetSettingKey(year int) string {
	return "leave.annual_reset." + strconv.Itoa(year)
}

// AnnualResetErrorSettingKey is where a failed run for year is recorded
func AnnualResetErrorSettingKey(year int) string {
	return AnnualResetSettingKey(year) + ".error"
}

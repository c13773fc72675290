package leave

import (
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
)

// LedgerEffect is the balance mutation that accompanies a transition
type LedgerEffect int

const (
	EffectNone LedgerEffect = iota
	EffectCommitUsage
	EffectRevertPending
)

func (e LedgerEffect) String() string {
	switch e {
	case EffectCommitUsage:
		return "commit_usage"
	case EffectRevertPending:
		return "revert_pending"
	default:
		return "none"
	}
}

type transitionRule struct {
	from   []LeaveRequestStatus
	to     LeaveRequestStatus
	effect LedgerEffect
}

// transitionRules is the complete lifecycle table. Anything not listed is rejected.
var transitionRules = map[Action]transitionRule{
	ActionRejectManager: {
		from:   []LeaveRequestStatus{StatusPending},
		to:     StatusManagerRejected,
		effect: EffectRevertPending,
	},
	ActionApproveManager: {
		from:   []LeaveRequestStatus{StatusPending},
		to:     StatusHRPending,
		effect: EffectNone,
	},
	ActionApproveAdmin: {
		from:   []LeaveRequestStatus{StatusManagerApproved, StatusHRPending, StatusPending},
		to:     StatusAdminApproved,
		effect: EffectCommitUsage,
	},
	ActionRejectAdmin: {
		from:   []LeaveRequestStatus{StatusPending, StatusManagerApproved, StatusHRPending},
		to:     StatusAdminRejected,
		effect: EffectRevertPending,
	},
	ActionCancel: {
		from:   []LeaveRequestStatus{StatusPending, StatusHRPending, StatusManagerApproved},
		to:     StatusCancelled,
		effect: EffectRevertPending,
	},
}

// IsValid reports whether a is a known action
func (a Action) IsValid() bool {
	_, ok := transitionRules[a]
	return ok
}

// IsManagerAction reports whether a is decided at the manager stage
func (a Action) IsManagerAction() bool {
	return a == ActionApproveManager || a == ActionRejectManager
}

// IsAdminAction reports whether a is decided at the HR/admin stage
func (a Action) IsAdminAction() bool {
	return a == ActionApproveAdmin || a == ActionRejectAdmin
}

// NextStatus resolves the target status and ledger effect for action applied to current
func NextStatus(current LeaveRequestStatus, action Action) (LeaveRequestStatus, LedgerEffect, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", EffectNone, ErrInvalidAction
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, rule.effect, nil
		}
	}
	return "", EffectNone, &StateTransitionError{Current: current, Action: action}
}

// IsTerminal reports whether no further transitions are possible from s
func (s LeaveRequestStatus) IsTerminal() bool {
	switch s {
	case StatusManagerRejected, StatusAdminRejected, StatusAdminApproved, StatusCancelled:
		return true
	}
	return false
}

// BlocksOverlap reports whether a request in status s still occupies its dates
func (s LeaveRequestStatus) BlocksOverlap() bool {
	switch s {
	case StatusManagerRejected, StatusAdminRejected, StatusCancelled:
		return false
	}
	return true
}

// InitialStatus is the status a freshly submitted request starts in
func InitialStatus(role user.Role) LeaveRequestStatus {
	switch role {
	case user.RoleAdmin:
		return StatusAdminApproved
	case user.RoleManager:
		return StatusHRPending
	default:
		return StatusPending
	}
}

// DateOnly truncates t to its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// CountDays is the inclusive calendar-day count between start and end
func CountDays(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	return int((e.Unix()-s.Unix())/secondsPerDay) + 1
}

// RemainingDays derives the remaining balance, floored at zero
func RemainingDays(total, used, pending, carryForward int) int {
	remaining := total - used - pending + carryForward
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Recompute refreshes the derived RemainingDays field
func (b *LeaveBalance) Recompute() {
	b.RemainingDays = RemainingDays(b.TotalDays, b.UsedDays, b.PendingDays, b.CarryForwardDays)
}

// Policy holds the organisation-wide leave rules
type Policy struct {
	MonthlyMaxDays    int
	ResetTotalDays    int
	AutoEnrollCodes   []string
	ThrottledCodes    []string
	DesignatedAdminID string
	Location          *time.Location
}

// DefaultPolicy matches the historical behaviour: casual and health, 12 days, 1 day a month
func DefaultPolicy() Policy {
	return Policy{
		MonthlyMaxDays:  1,
		ResetTotalDays:  12,
		AutoEnrollCodes: []string{CodeCasual, CodeHealth},
		ThrottledCodes:  []string{CodeCasual, CodeHealth},
		Location:        time.UTC,
	}
}

// IsThrottled reports whether a request counts towards monthly usage
func (p Policy) IsThrottled(code string, emergency bool) bool {
	if emergency {
		return true
	}
	return containsCode(p.ThrottledCodes, code)
}

// IsAutoEnrolled reports whether a leave type gets a balance row without being requested
func (p Policy) IsAutoEnrolled(code string) bool {
	return containsCode(p.AutoEnrollCodes, code)
}

// Today is the current calendar date in the policy's location
func (p Policy) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(now.In(loc))
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

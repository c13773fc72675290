package leave

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
)

var (
	ErrInvalidLeaveType          = errors.New("invalid leave type")
	ErrInvalidDateRange          = errors.New("invalid date range")
	ErrExceedsMaxConsecutiveDays = errors.New("request exceeds maximum consecutive days")
	ErrMonthlyLimitExceeded      = errors.New("monthly leave limit exceeded")
	ErrInsufficientBalance       = errors.New("insufficient leave balance")
	ErrOverlappingRequest        = errors.New("leave request overlaps an existing request")
	ErrInvalidStateTransition    = errors.New("invalid state transition")
	ErrInvalidAction             = errors.New("invalid leave action")
	ErrForbidden                 = errors.New("not allowed to perform this action")
	ErrTransactionFailure        = errors.New("transaction failure")

	ErrLeaveRequestNotFound = errors.New("leave request not found")
	ErrLeaveTypeNotFound    = errors.New("leave type not found")
	ErrBalanceNotFound      = errors.New("leave balance not found")
	ErrMonthlyUsageNotFound = errors.New("monthly usage not found")

	ErrLeaveTypeCodeExists = errors.New("leave type code already exists")
	ErrNoFieldsToUpdate    = errors.New("no fields to update")
	ErrAnnualResetFailed   = errors.New("annual reset failed")
)

// StateTransitionError carries the status a request was in when an action was refused
type StateTransitionError struct {
	Current LeaveRequestStatus
	Action  Action
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a leave request in status %q", e.Action, e.Current)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidLeaveType, "INVALID_LEAVE_TYPE"},
	{ErrInvalidDateRange, "INVALID_DATE_RANGE"},
	{ErrExceedsMaxConsecutiveDays, "EXCEEDS_MAX_CONSECUTIVE_DAYS"},
	{ErrMonthlyLimitExceeded, "MONTHLY_LIMIT_EXCEEDED"},
	{ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
	{ErrOverlappingRequest, "OVERLAPPING_REQUEST"},
	{ErrInvalidStateTransition, "INVALID_STATE_TRANSITION"},
	{ErrInvalidAction, "INVALID_ACTION"},
	{ErrForbidden, "FORBIDDEN"},
	{ErrLeaveRequestNotFound, "NOT_FOUND"},
	{ErrLeaveTypeNotFound, "NOT_FOUND"},
	{ErrBalanceNotFound, "NOT_FOUND"},
	{ErrMonthlyUsageNotFound, "NOT_FOUND"},
	{ErrLeaveTypeCodeExists, "CONFLICT"},
	{ErrNoFieldsToUpdate, "BAD_REQUEST"},
	{ErrAnnualResetFailed, "ANNUAL_RESET_FAILED"},
	{ErrTransactionFailure, "TRANSACTION_FAILURE"},
}

// Code returns the stable error code for err, or "" if err is not a leave domain error
func Code(err error) string {
	if err == nil {
		return ""
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return "VALIDATION_ERROR"
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// IsBusinessError reports whether err is a rule violation rather than a storage failure
func IsBusinessError(err error) bool {
	code := Code(err)
	return code != "" && code != "TRANSACTION_FAILURE"
}

package leave

import (
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
)

// ============= Leave Type DTOs =============

type CreateLeaveTypeRequest struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	Description        *string `json:"description,omitempty"`
	AnnualDays         int     `json:"annual_days"`
	MaxConsecutiveDays *int    `json:"max_consecutive_days,omitempty"`
	NoticePeriodDays   int     `json:"notice_period_days"`
	CarryForwardDays   int     `json:"carry_forward_days"`
}

func (r *CreateLeaveTypeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Code) {
		errs.Add("code", "code is required")
	} else if len(r.Code) > 50 {
		errs.Add("code", "code must not exceed 50 characters")
	}

	if validator.IsEmpty(r.Name) {
		errs.Add("name", "name is required")
	} else if len(r.Name) > 255 {
		errs.Add("name", "name must not exceed 255 characters")
	}

	validateDayFields(&errs, &r.AnnualDays, r.MaxConsecutiveDays, &r.NoticePeriodDays, &r.CarryForwardDays)

	return errs.Err()
}

// UpdateLeaveTypeRequest only carries the mutable fields; anything else is rejected at decode time
type UpdateLeaveTypeRequest struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	AnnualDays         *int    `json:"annual_days,omitempty"`
	MaxConsecutiveDays *int    `json:"max_consecutive_days,omitempty"`
	NoticePeriodDays   *int    `json:"notice_period_days,omitempty"`
	CarryForwardDays   *int    `json:"carry_forward_days,omitempty"`
}

func (r *UpdateLeaveTypeRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Name == nil && r.Description == nil && r.AnnualDays == nil &&
		r.MaxConsecutiveDays == nil && r.NoticePeriodDays == nil && r.CarryForwardDays == nil {
		return ErrNoFieldsToUpdate
	}

	if r.Name != nil {
		if validator.IsEmpty(*r.Name) {
			errs.Add("name", "name must not be empty")
		}
		if len(*r.Name) > 255 {
			errs.Add("name", "name must not exceed 255 characters")
		}
	}

	// 0 clears the limit, so only negatives are rejected here
	if r.MaxConsecutiveDays != nil && *r.MaxConsecutiveDays < 0 {
		errs.Add("max_consecutive_days", "max_consecutive_days must not be negative")
	}
	validateDayFields(&errs, r.AnnualDays, nil, r.NoticePeriodDays, r.CarryForwardDays)

	return errs.Err()
}

// Apply copies the set fields onto lt. A max_consecutive_days of 0 removes the limit.
func (r *UpdateLeaveTypeRequest) Apply(lt *LeaveType) {
	if r.Name != nil {
		lt.Name = *r.Name
	}
	if r.Description != nil {
		lt.Description = r.Description
	}
	if r.AnnualDays != nil {
		lt.AnnualDays = *r.AnnualDays
	}
	if r.MaxConsecutiveDays != nil {
		if *r.MaxConsecutiveDays == 0 {
			lt.MaxConsecutiveDays = nil
		} else {
			limit := *r.MaxConsecutiveDays
			lt.MaxConsecutiveDays = &limit
		}
	}
	if r.NoticePeriodDays != nil {
		lt.NoticePeriodDays = *r.NoticePeriodDays
	}
	if r.CarryForwardDays != nil {
		lt.CarryForwardDays = *r.CarryForwardDays
	}
}

func validateDayFields(errs *validator.ValidationErrors, annual, maxConsecutive, notice, carry *int) {
	if annual != nil && *annual < 0 {
		errs.Add("annual_days", "annual_days must not be negative")
	}
	if maxConsecutive != nil && *maxConsecutive < 1 {
		errs.Add("max_consecutive_days", "max_consecutive_days must be at least 1")
	}
	if notice != nil && *notice < 0 {
		errs.Add("notice_period_days", "notice_period_days must not be negative")
	}
	if carry != nil && *carry < 0 {
		errs.Add("carry_forward_days", "carry_forward_days must not be negative")
	}
}

type LeaveTypeResponse struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	AnnualDays         int       `json:"annual_days"`
	MaxConsecutiveDays *int      `json:"max_consecutive_days,omitempty"`
	NoticePeriodDays   int       `json:"notice_period_days"`
	CarryForwardDays   int       `json:"carry_forward_days"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func NewLeaveTypeResponse(lt LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:                 lt.ID,
		Code:               lt.Code,
		Name:               lt.Name,
		Description:        lt.Description,
		AnnualDays:         lt.AnnualDays,
		MaxConsecutiveDays: lt.MaxConsecutiveDays,
		NoticePeriodDays:   lt.NoticePeriodDays,
		CarryForwardDays:   lt.CarryForwardDays,
		CreatedAt:          lt.CreatedAt,
		UpdatedAt:          lt.UpdatedAt,
	}
}

// ============= Leave Request DTOs =============

type SubmitRequest struct {
	LeaveType string `json:"leave_type"` // id or code
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
	Emergency bool   `json:"emergency"`

	// Parsed by Validate
	start time.Time
	end   time.Time
}

func (r *SubmitRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.LeaveType) {
		errs.Add("leave_type", "leave_type is required")
	}

	if validator.IsEmpty(r.StartDate) {
		errs.Add("start_date", "start_date is required")
	} else if d, ok := validator.IsValidDate(r.StartDate); !ok {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	} else if !validator.IsValidYear(d.Year()) {
		errs.Add("start_date", "start_date must be between 2000-01-01 and 9999-12-31")
	} else {
		r.start = d
	}

	if validator.IsEmpty(r.EndDate) {
		errs.Add("end_date", "end_date is required")
	} else if d, ok := validator.IsValidDate(r.EndDate); !ok {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	} else if !validator.IsValidYear(d.Year()) {
		errs.Add("end_date", "end_date must be between 2000-01-01 and 9999-12-31")
	} else {
		r.end = d
	}

	if len(r.Reason) > 1000 {
		errs.Add("reason", "reason must not exceed 1000 characters")
	}

	return errs.Err()
}

// Dates returns the parsed start and end dates; only meaningful after a successful Validate
func (r *SubmitRequest) Dates() (time.Time, time.Time) {
	return r.start, r.end
}

type SubmitResponse struct {
	ID        string             `json:"id"`
	Status    LeaveRequestStatus `json:"status"`
	TotalDays int                `json:"total_days"`
}

type TransitionRequest struct {
	Action   Action  `json:"action"`
	Comments *string `json:"comments,omitempty"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Action == "" {
		errs.Add("action", "action is required")
	} else if !r.Action.IsValid() {
		errs.Add("action", "action must be one of approveManager, rejectManager, approveAdmin, rejectAdmin, cancel")
	}
	if r.Comments != nil && len(*r.Comments) > 1000 {
		errs.Add("comments", "comments must not exceed 1000 characters")
	}

	return errs.Err()
}

type TransitionResponse struct {
	ID     string             `json:"id"`
	Status LeaveRequestStatus `json:"status"`
}

type LeaveRequestResponse struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	UserName          *string            `json:"user_name,omitempty"`
	LeaveTypeID       string             `json:"leave_type_id"`
	LeaveTypeCode     *string            `json:"leave_type_code,omitempty"`
	LeaveTypeName     *string            `json:"leave_type_name,omitempty"`
	StartDate         string             `json:"start_date"`
	EndDate           string             `json:"end_date"`
	TotalDays         int                `json:"total_days"`
	Reason            string             `json:"reason"`
	Emergency         bool               `json:"emergency"`
	Status            LeaveRequestStatus `json:"status"`
	ManagerID         *string            `json:"manager_id,omitempty"`
	AdminID           *string            `json:"admin_id,omitempty"`
	ManagerComments   *string            `json:"manager_comments,omitempty"`
	AdminComments     *string            `json:"admin_comments,omitempty"`
	ManagerApprovedAt *time.Time         `json:"manager_approved_at,omitempty"`
	ManagerRejectedAt *time.Time         `json:"manager_rejected_at,omitempty"`
	AdminApprovedAt   *time.Time         `json:"admin_approved_at,omitempty"`
	AdminRejectedAt   *time.Time         `json:"admin_rejected_at,omitempty"`
	CancelledBy       *string            `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func NewLeaveRequestResponse(r LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:                r.ID,
		UserID:            r.UserID,
		UserName:          r.UserName,
		LeaveTypeID:       r.LeaveTypeID,
		LeaveTypeCode:     r.LeaveTypeCode,
		LeaveTypeName:     r.LeaveTypeName,
		StartDate:         r.StartDate.Format(validator.DateLayout),
		EndDate:           r.EndDate.Format(validator.DateLayout),
		TotalDays:         r.TotalDays,
		Reason:            r.Reason,
		Emergency:         r.Emergency,
		Status:            r.Status,
		ManagerID:         r.ManagerID,
		AdminID:           r.AdminID,
		ManagerComments:   r.ManagerComments,
		AdminComments:     r.AdminComments,
		ManagerApprovedAt: r.ManagerApprovedAt,
		ManagerRejectedAt: r.ManagerRejectedAt,
		AdminApprovedAt:   r.AdminApprovedAt,
		AdminRejectedAt:   r.AdminRejectedAt,
		CancelledBy:       r.CancelledBy,
		CancelledAt:       r.CancelledAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// RequestFilter is the caller-facing list filter. Role scoping is applied by the service.
type RequestFilter struct {
	Status      *string `json:"status,omitempty"`
	LeaveTypeID *string `json:"leave_type_id,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	Department  *string `json:"department,omitempty"`
	From        *string `json:"from,omitempty"`
	To          *string `json:"to,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func (f *RequestFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !LeaveRequestStatus(*f.Status).IsValid() {
		errs.Add("status", "status is not a valid leave request status")
	}

	var from, to time.Time
	var fromOK, toOK bool
	if f.From != nil {
		if from, fromOK = validator.IsValidDate(*f.From); !fromOK {
			errs.Add("from", "from must be in YYYY-MM-DD format")
		}
	}
	if f.To != nil {
		if to, toOK = validator.IsValidDate(*f.To); !toOK {
			errs.Add("to", "to must be in YYYY-MM-DD format")
		}
	}
	if fromOK && toOK && to.Before(from) {
		errs.Add("to", "to must not be before from")
	}

	if f.Page < 0 {
		errs.Add("page", "page must not be negative")
	}
	if f.Limit < 0 || f.Limit > MaxPageLimit {
		errs.Add("limit", "limit must be between 1 and "+validator.Itoa(MaxPageLimit))
	}

	if len(errs) > 0 {
		return errs
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageLimit
	}
	return nil
}

// Scope limits which requests a viewer can see
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeTeam
	ScopeAll
)

// RequestQuery is the typed filter handed to the repository
type RequestQuery struct {
	ViewerID string
	Scope    Scope

	Status      *LeaveRequestStatus
	LeaveTypeID *string
	UserID      *string
	Department  *string
	From        *time.Time
	To          *time.Time

	Limit  int
	Offset int
}

// ToQuery builds the repository query for a validated filter
func (f RequestFilter) ToQuery(viewerID string, scope Scope) RequestQuery {
	q := RequestQuery{
		ViewerID:    viewerID,
		Scope:       scope,
		LeaveTypeID: f.LeaveTypeID,
		UserID:      f.UserID,
		Department:  f.Department,
		Limit:       f.Limit,
		Offset:      (f.Page - 1) * f.Limit,
	}
	if f.Status != nil {
		s := LeaveRequestStatus(*f.Status)
		q.Status = &s
	}
	if f.From != nil {
		if d, ok := validator.IsValidDate(*f.From); ok {
			q.From = &d
		}
	}
	if f.To != nil {
		if d, ok := validator.IsValidDate(*f.To); ok {
			q.To = &d
		}
	}
	return q
}

type ListRequestsResponse struct {
	Requests   []LeaveRequestResponse `json:"requests"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// ============= Ledger DTOs =============

type BalanceResponse struct {
	LeaveTypeID   string  `json:"leave_type_id"`
	LeaveTypeCode *string `json:"leave_type_code,omitempty"`
	LeaveTypeName *string `json:"leave_type_name,omitempty"`
	Year          int     `json:"year"`
	Total         int     `json:"total"`
	Used          int     `json:"used"`
	Pending       int     `json:"pending"`
	Remaining     int     `json:"remaining"`
	CarryForward  int     `json:"carry_forward"`
}

func NewBalanceResponse(b LeaveBalance) BalanceResponse {
	return BalanceResponse{
		LeaveTypeID:   b.LeaveTypeID,
		LeaveTypeCode: b.LeaveTypeCode,
		LeaveTypeName: b.LeaveTypeName,
		Year:          b.Year,
		Total:         b.TotalDays,
		Used:          b.UsedDays,
		Pending:       b.PendingDays,
		Remaining:     b.RemainingDays,
		CarryForward:  b.CarryForwardDays,
	}
}

type MonthlyUsageResponse struct {
	LeaveTypeID   string  `json:"leave_type_id"`
	LeaveTypeCode *string `json:"leave_type_code,omitempty"`
	LeaveTypeName *string `json:"leave_type_name,omitempty"`
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Used          int     `json:"used"`
	MaxAllowed    int     `json:"max_allowed"`
}

func NewMonthlyUsageResponse(u MonthlyUsage) MonthlyUsageResponse {
	return MonthlyUsageResponse{
		LeaveTypeID:   u.LeaveTypeID,
		LeaveTypeCode: u.LeaveTypeCode,
		LeaveTypeName: u.LeaveTypeName,
		Year:          u.Year,
		Month:         u.Month,
		Used:          u.UsedDays,
		MaxAllowed:    u.MaxAllowed,
	}
}

type InitializeBalancesRequest struct {
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
}

func (r *InitializeBalancesRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "user_id is required")
	}
	if !validator.IsValidYear(r.Year) {
		errs.Add("year", "year must be a valid year")
	}
	return errs.Err()
}

type RolloverRequest struct {
	UserID   string `json:"user_id"`
	FromYear int    `json:"from_year"`
}

func (r *RolloverRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "user_id is required")
	}
	if !validator.IsValidYear(r.FromYear) {
		errs.Add("from_year", "from_year must be a valid year")
	}
	return errs.Err()
}

// ============= Annual Reset DTOs =============

type AnnualResetRequest struct {
	Year     int  `json:"year"`
	Rollover bool `json:"rollover"`
}

func (r *AnnualResetRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidYear(r.Year) {
		errs.Add("year", "year must be a valid year")
	}
	return errs.Err()
}

type AnnualResetResponse struct {
	Year       int      `json:"year"`
	UsersReset int      `json:"users_reset"`
	Errors     []string `json:"errors"`
}

package leave

import (
	"testing"

	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestSubmitRequest_Validate(t *testing.T) {
	req := SubmitRequest{LeaveType: "annual", StartDate: "2025-09-01", EndDate: "2025-09-03"}
	require.NoError(t, req.Validate())

	start, end := req.Dates()
	assert.Equal(t, "2025-09-01", start.Format(validator.DateLayout))
	assert.Equal(t, "2025-09-03", end.Format(validator.DateLayout))
}

func TestSubmitRequest_Validate_Errors(t *testing.T) {
	req := SubmitRequest{StartDate: "01/09/2025"}
	err := req.Validate()
	require.Error(t, err)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	m := errs.ToMap()
	assert.Contains(t, m, "leave_type")
	assert.Contains(t, m, "start_date")
	assert.Contains(t, m, "end_date")
}

func TestSubmitRequest_Validate_YearOutOfRange(t *testing.T) {
	req := SubmitRequest{LeaveType: "annual", StartDate: "1999-12-31", EndDate: "0001-01-01"}
	err := req.Validate()

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	m := errs.ToMap()
	assert.Contains(t, m, "start_date")
	assert.Contains(t, m, "end_date")
}

func TestTransitionRequest_Validate(t *testing.T) {
	ok := TransitionRequest{Action: ActionApproveAdmin}
	assert.NoError(t, ok.Validate())

	missing := TransitionRequest{}
	assert.Error(t, missing.Validate())

	unknown := TransitionRequest{Action: "approve"}
	assert.Error(t, unknown.Validate())
}

func TestCreateLeaveTypeRequest_Validate(t *testing.T) {
	ok := CreateLeaveTypeRequest{Code: "annual", Name: "Annual Leave", AnnualDays: 12}
	assert.NoError(t, ok.Validate())

	bad := CreateLeaveTypeRequest{AnnualDays: -1, MaxConsecutiveDays: intPtr(0), NoticePeriodDays: -2, CarryForwardDays: -3}
	err := bad.Validate()
	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	m := errs.ToMap()
	for _, field := range []string{"code", "name", "annual_days", "max_consecutive_days", "notice_period_days", "carry_forward_days"} {
		assert.Contains(t, m, field)
	}
}

func TestUpdateLeaveTypeRequest_ValidateAndApply(t *testing.T) {
	empty := UpdateLeaveTypeRequest{}
	assert.ErrorIs(t, empty.Validate(), ErrNoFieldsToUpdate)

	negative := UpdateLeaveTypeRequest{AnnualDays: intPtr(-5)}
	assert.Error(t, negative.Validate())

	req := UpdateLeaveTypeRequest{Name: strPtr("Casual"), AnnualDays: intPtr(14), CarryForwardDays: intPtr(2)}
	require.NoError(t, req.Validate())

	lt := LeaveType{ID: "lt-1", Code: "casual", Name: "Old", AnnualDays: 12, NoticePeriodDays: 3}
	req.Apply(&lt)
	assert.Equal(t, "casual", lt.Code)
	assert.Equal(t, "Casual", lt.Name)
	assert.Equal(t, 14, lt.AnnualDays)
	assert.Equal(t, 2, lt.CarryForwardDays)
	assert.Equal(t, 3, lt.NoticePeriodDays)
}

func TestUpdateLeaveTypeRequest_ClearMaxConsecutiveDays(t *testing.T) {
	lt := LeaveType{ID: "lt-1", Code: "short", MaxConsecutiveDays: intPtr(2)}

	unbound := UpdateLeaveTypeRequest{MaxConsecutiveDays: intPtr(0)}
	require.NoError(t, unbound.Validate())
	unbound.Apply(&lt)
	assert.Nil(t, lt.MaxConsecutiveDays)

	set := UpdateLeaveTypeRequest{MaxConsecutiveDays: intPtr(5)}
	set.Apply(&lt)
	require.NotNil(t, lt.MaxConsecutiveDays)
	assert.Equal(t, 5, *lt.MaxConsecutiveDays)

	negative := UpdateLeaveTypeRequest{MaxConsecutiveDays: intPtr(-1)}
	var errs validator.ValidationErrors
	require.ErrorAs(t, negative.Validate(), &errs)
	assert.Contains(t, errs.ToMap(), "max_consecutive_days")
}

func TestRequestFilter_Validate(t *testing.T) {
	f := RequestFilter{}
	require.NoError(t, f.Validate())
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)

	bad := RequestFilter{Status: strPtr("approved"), From: strPtr("2025-09-10"), To: strPtr("2025-09-01"), Limit: 500}
	err := bad.Validate()
	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	m := errs.ToMap()
	assert.Contains(t, m, "status")
	assert.Contains(t, m, "to")
	assert.Contains(t, m, "limit")
}

func TestRequestFilter_ToQuery(t *testing.T) {
	f := RequestFilter{Status: strPtr("pending"), From: strPtr("2025-09-01"), Page: 3, Limit: 10}
	require.NoError(t, f.Validate())

	q := f.ToQuery("viewer-1", ScopeTeam)
	assert.Equal(t, "viewer-1", q.ViewerID)
	assert.Equal(t, ScopeTeam, q.Scope)
	require.NotNil(t, q.Status)
	assert.Equal(t, StatusPending, *q.Status)
	require.NotNil(t, q.From)
	assert.Equal(t, "2025-09-01", q.From.Format(validator.DateLayout))
	assert.Nil(t, q.To)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Offset)
}

func TestAnnualResetSettingKeys(t *testing.T) {
	assert.Equal(t, "leave.annual_reset.2026", AnnualResetSettingKey(2026))
	assert.Equal(t, "leave.annual_reset.2026.error", AnnualResetErrorSettingKey(2026))
}

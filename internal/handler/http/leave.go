package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/leave-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	ListTypes(w http.ResponseWriter, r *http.Request)
	GetType(w http.ResponseWriter, r *http.Request)
	CreateType(w http.ResponseWriter, r *http.Request)
	UpdateType(w http.ResponseWriter, r *http.Request)

	CreateRequest(w http.ResponseWriter, r *http.Request)
	ListRequests(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	TransitionRequest(w http.ResponseWriter, r *http.Request)

	GetBalances(w http.ResponseWriter, r *http.Request)
	GetMonthlyUsage(w http.ResponseWriter, r *http.Request)

	AnnualReset(w http.ResponseWriter, r *http.Request)
	InitializeBalances(w http.ResponseWriter, r *http.Request)
	RolloverBalances(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
	location     *time.Location
	now          func() time.Time
}

// NewLeaveHandler creates the leave handler. loc decides the default year and month.
func NewLeaveHandler(leaveService leave.LeaveService, loc *time.Location) LeaveHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaveHandlerImpl{
		leaveService: leaveService,
		location:     loc,
		now:          time.Now,
	}
}

// principal reads the identity set by the auth middleware
func principal(w http.ResponseWriter, r *http.Request) (user.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
	}
	return p, ok
}

// decodeJSON decodes the body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, handler string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		slog.Error(handler+" decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return false
	}
	return true
}

func optionalQuery(r *http.Request, key string) *string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	return &val
}

// intQuery parses an integer query parameter, recording a validation error when malformed
func intQuery(r *http.Request, key string, defaultVal int, errs *validator.ValidationErrors) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		errs.Add(key, key+" must be a number")
		return defaultVal
	}
	return n
}

// targetUser resolves the user_id query parameter, defaulting to the caller
func (l *LeaveHandlerImpl) targetUser(w http.ResponseWriter, r *http.Request, p user.Principal) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" || userID == p.UserID {
		return p.UserID, true
	}
	if err := l.leaveService.CanViewUser(r.Context(), p, userID); err != nil {
		response.HandleError(w, err)
		return "", false
	}
	return userID, true
}

// ListTypes implements LeaveHandler.
func (l *LeaveHandlerImpl) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := l.leaveService.ListLeaveTypes(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, types)
}

// GetType implements LeaveHandler.
func (l *LeaveHandlerImpl) GetType(w http.ResponseWriter, r *http.Request) {
	leaveType, err := l.leaveService.GetLeaveType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, leaveType)
}

// CreateType implements LeaveHandler.
func (l *LeaveHandlerImpl) CreateType(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req leave.CreateLeaveTypeRequest
	if !decodeJSON(w, r, &req, "CreateType") {
		return
	}

	created, err := l.leaveService.CreateLeaveType(r.Context(), p, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Leave type created successfully", created)
}

// UpdateType implements LeaveHandler.
func (l *LeaveHandlerImpl) UpdateType(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req leave.UpdateLeaveTypeRequest
	if !decodeJSON(w, r, &req, "UpdateType") {
		return
	}

	updated, err := l.leaveService.UpdateLeaveType(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave type updated successfully", updated)
}

// CreateRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req leave.SubmitRequest
	if !decodeJSON(w, r, &req, "CreateRequest") {
		return
	}

	result, err := l.leaveService.SubmitRequest(r.Context(), p, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Leave request submitted successfully", result)
}

// ListRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var errs validator.ValidationErrors
	filter := leave.RequestFilter{
		Status:      optionalQuery(r, "status"),
		LeaveTypeID: optionalQuery(r, "leave_type_id"),
		UserID:      optionalQuery(r, "user_id"),
		Department:  optionalQuery(r, "department"),
		From:        optionalQuery(r, "from"),
		To:          optionalQuery(r, "to"),
		Page:        intQuery(r, "page", 1, &errs),
		Limit:       intQuery(r, "limit", leave.DefaultPageLimit, &errs),
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := l.leaveService.ListRequests(r.Context(), p, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Requests, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.Total,
		TotalPages: result.TotalPages,
	})
}

// GetRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := l.leaveService.GetRequest(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// TransitionRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req leave.TransitionRequest
	if !decodeJSON(w, r, &req, "TransitionRequest") {
		return
	}

	result, err := l.leaveService.Transition(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave request updated successfully", result)
}

// GetBalances implements LeaveHandler.
func (l *LeaveHandlerImpl) GetBalances(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := l.targetUser(w, r, p)
	if !ok {
		return
	}

	var errs validator.ValidationErrors
	year := intQuery(r, "year", l.now().In(l.location).Year(), &errs)
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	balances, err := l.leaveService.GetBalance(r.Context(), userID, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, balances)
}

// GetMonthlyUsage implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMonthlyUsage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := l.targetUser(w, r, p)
	if !ok {
		return
	}

	now := l.now().In(l.location)
	var errs validator.ValidationErrors
	year := intQuery(r, "year", now.Year(), &errs)
	month := intQuery(r, "month", int(now.Month()), &errs)
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	usage, err := l.leaveService.GetMonthlyUsage(r.Context(), userID, year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, usage)
}

// AnnualReset implements LeaveHandler.
func (l *LeaveHandlerImpl) AnnualReset(w http.ResponseWriter, r *http.Request) {
	var req leave.AnnualResetRequest
	if !decodeJSON(w, r, &req, "AnnualReset") {
		return
	}

	result, err := l.leaveService.RunAnnualReset(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Annual leave reset completed", result)
}

// InitializeBalances implements LeaveHandler.
func (l *LeaveHandlerImpl) InitializeBalances(w http.ResponseWriter, r *http.Request) {
	var req leave.InitializeBalancesRequest
	if !decodeJSON(w, r, &req, "InitializeBalances") {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if err := l.leaveService.EnsureInitialized(r.Context(), req.UserID, req.Year); err != nil {
		response.HandleError(w, err)
		return
	}

	balances, err := l.leaveService.GetBalance(r.Context(), req.UserID, req.Year)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave balances initialized", balances)
}

// RolloverBalances implements LeaveHandler.
func (l *LeaveHandlerImpl) RolloverBalances(w http.ResponseWriter, r *http.Request) {
	var req leave.RolloverRequest
	if !decodeJSON(w, r, &req, "RolloverBalances") {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	balances, err := l.leaveService.RolloverBalances(r.Context(), req.UserID, req.FromYear)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave balances rolled over", balances)
}

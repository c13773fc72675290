package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SubmitRequest implements leave.LeaveService. Every check and write happens in one
// transaction, serialised per user so concurrent submissions see each other.
func (l *LeaveServiceImpl) SubmitRequest(ctx context.Context, principal user.Principal, req leave.SubmitRequest) (resp leave.SubmitResponse, err error) {
	ctx, span := l.tracer.Start(ctx, "leave.SubmitRequest", trace.WithAttributes(
		attribute.String("user.id", principal.UserID),
		attribute.String("user.role", string(principal.Role)),
		attribute.Bool("leave.emergency", req.Emergency),
	))
	defer func() { endSpan(span, err) }()

	if !principal.Can(user.PermissionLeaveCreate) {
		return leave.SubmitResponse{}, leave.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return leave.SubmitResponse{}, err
	}
	start, end := req.Dates()

	var created leave.LeaveRequest
	var submitter user.User
	err = l.inTransaction(ctx, func(ctx context.Context) error {
		var err error
		submitter, err = l.activeUser(ctx, principal.UserID)
		if err != nil {
			return err
		}

		// 1. Leave type
		lt, err := l.resolveLeaveType(ctx, req.LeaveType)
		if err != nil {
			return err
		}

		// 2. Dates
		today := l.policy.Today(l.now())
		if start.Before(today) || end.Before(start) {
			return leave.ErrInvalidDateRange
		}

		// 3-4. Length
		totalDays := leave.CountDays(start, end)
		if lt.MaxConsecutiveDays != nil && totalDays > *lt.MaxConsecutiveDays {
			return leave.ErrExceedsMaxConsecutiveDays
		}

		if err := l.LeaveRequestRepository.LockUser(ctx, principal.UserID); err != nil {
			return err
		}

		year, month := start.Year(), int(start.Month())
		if err := l.ensureBalanceRow(ctx, principal.UserID, lt, year); err != nil {
			return err
		}
		balance, err := l.BalanceRepository.GetForUpdate(ctx, principal.UserID, lt.ID, year)
		if err != nil {
			return err
		}

		// 5. Monthly cap
		throttled := l.policy.IsThrottled(lt.Code, req.Emergency)
		if throttled && !req.Emergency {
			if err := l.checkMonthlyLimit(ctx, principal.UserID, lt.ID, year, month, totalDays); err != nil {
				return err
			}
		}

		// 6. Balance, only enforced for employees
		if principal.Role == user.RoleEmployee && !req.Emergency && balance.RemainingDays < totalDays {
			return leave.ErrInsufficientBalance
		}

		// 7. Overlap
		overlap, err := l.LeaveRequestRepository.HasOverlap(ctx, principal.UserID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return leave.ErrOverlappingRequest
		}

		// 8. Routing
		request := leave.LeaveRequest{
			UserID:      principal.UserID,
			LeaveTypeID: lt.ID,
			StartDate:   start,
			EndDate:     end,
			TotalDays:   totalDays,
			Reason:      req.Reason,
			Emergency:   req.Emergency,
			Status:      leave.InitialStatus(principal.Role),
		}
		switch principal.Role {
		case user.RoleEmployee:
			request.ManagerID = submitter.ManagerID
			if request.ManagerID == nil {
				request.ManagerID = principal.ManagerID
			}
		case user.RoleAdmin:
			now := l.now()
			request.AdminID = &principal.UserID
			request.AdminApprovedAt = &now
		}

		// 9. Writes
		created, err = l.LeaveRequestRepository.Create(ctx, request)
		if err != nil {
			return err
		}
		code, name := lt.Code, lt.Name
		created.LeaveTypeCode, created.LeaveTypeName = &code, &name

		if created.Status == leave.StatusAdminApproved {
			_, err = l.BalanceRepository.AddUsed(ctx, principal.UserID, lt.ID, year, totalDays)
			return err
		}

		if _, err := l.BalanceRepository.AdjustPending(ctx, principal.UserID, lt.ID, year, totalDays); err != nil {
			return err
		}
		if throttled {
			if _, err := l.MonthlyUsageRepository.Increment(ctx, principal.UserID, lt.ID, year, month, totalDays, l.policy.MonthlyMaxDays); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("Leave request rejected", "user_id", principal.UserID, "leave_type", req.LeaveType, "code", leave.Code(err), "error", err)
		return leave.SubmitResponse{}, err
	}

	span.SetAttributes(attribute.String("leave.request_id", created.ID), attribute.String("leave.status", string(created.Status)))
	slog.Info("Leave request submitted",
		"leave_request_id", created.ID,
		"user_id", created.UserID,
		"status", created.Status,
		"total_days", created.TotalDays,
		"emergency", created.Emergency,
	)

	l.notifySubmitted(ctx, submitter, created)

	return leave.SubmitResponse{
		ID:        created.ID,
		Status:    created.Status,
		TotalDays: created.TotalDays,
	}, nil
}

// Transition implements leave.LeaveService. The request row is locked for the whole
// transition, so concurrent approvals of the same request are applied one at a time.
func (l *LeaveServiceImpl) Transition(ctx context.Context, principal user.Principal, requestID string, req leave.TransitionRequest) (resp leave.TransitionResponse, err error) {
	ctx, span := l.tracer.Start(ctx, "leave.Transition", trace.WithAttributes(
		attribute.String("leave.request_id", requestID),
		attribute.String("leave.action", string(req.Action)),
		attribute.String("user.id", principal.UserID),
	))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return leave.TransitionResponse{}, err
	}

	var (
		before  leave.LeaveRequest
		updated leave.LeaveRequest
		effect  leave.LedgerEffect
	)
	err = l.inTransaction(ctx, func(ctx context.Context) error {
		var err error
		before, err = l.LeaveRequestRepository.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if err := l.authorizeTransition(ctx, principal, before, req.Action); err != nil {
			return err
		}

		var next leave.LeaveRequestStatus
		next, effect, err = leave.NextStatus(before.Status, req.Action)
		if err != nil {
			return err
		}

		request := before
		request.Status = next
		now := l.now()
		switch req.Action {
		case leave.ActionApproveManager:
			request.ManagerApprovedAt = &now
			request.ManagerComments = req.Comments
		case leave.ActionRejectManager:
			request.ManagerRejectedAt = &now
			request.ManagerComments = req.Comments
		case leave.ActionApproveAdmin:
			request.AdminID = &principal.UserID
			request.AdminApprovedAt = &now
			request.AdminComments = req.Comments
		case leave.ActionRejectAdmin:
			request.AdminID = &principal.UserID
			request.AdminRejectedAt = &now
			request.AdminComments = req.Comments
		case leave.ActionCancel:
			request.CancelledBy = &principal.UserID
			request.CancelledAt = &now
		}

		updated, err = l.LeaveRequestRepository.UpdateTransition(ctx, request)
		if err != nil {
			return err
		}

		_, err = l.applyLedgerEffect(ctx, updated, effect)
		return err
	})
	if err != nil {
		slog.Warn("Leave transition refused",
			"leave_request_id", requestID,
			"action", req.Action,
			"user_id", principal.UserID,
			"code", leave.Code(err),
			"error", err,
		)
		return leave.TransitionResponse{}, err
	}

	span.SetAttributes(attribute.String("leave.status", string(updated.Status)))
	slog.Info("Leave request transitioned",
		"leave_request_id", updated.ID,
		"action", req.Action,
		"from", before.Status,
		"to", updated.Status,
		"ledger_effect", effect,
		"user_id", principal.UserID,
	)

	l.notifyTransition(ctx, principal, updated, req.Action)

	return leave.TransitionResponse{ID: updated.ID, Status: updated.Status}, nil
}

// authorizeTransition runs before the state check so an unauthorised caller learns nothing about the status
func (l *LeaveServiceImpl) authorizeTransition(ctx context.Context, principal user.Principal, request leave.LeaveRequest, action leave.Action) error {
	switch {
	case action.IsManagerAction():
		if principal.Can(user.PermissionLeaveApproveManager) &&
			request.ManagerID != nil && *request.ManagerID == principal.UserID {
			return nil
		}
		return leave.ErrForbidden

	case action.IsAdminAction():
		if principal.Can(user.PermissionLeaveApproveAdmin) {
			return nil
		}
		return leave.ErrForbidden

	case action == leave.ActionCancel:
		if request.UserID == principal.UserID && principal.Can(user.PermissionLeaveCancelOwn) {
			return nil
		}
		if !principal.Can(user.PermissionLeaveCancelTeam) {
			return leave.ErrForbidden
		}
		owner, err := l.users.GetByID(ctx, request.UserID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return leave.ErrForbidden
			}
			return err
		}
		if owner.IsManagedBy(principal.UserID) {
			return nil
		}
		return leave.ErrForbidden
	}
	return leave.ErrInvalidAction
}

// GetRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) GetRequest(ctx context.Context, principal user.Principal, requestID string) (leave.LeaveRequestResponse, error) {
	request, err := l.LeaveRequestRepository.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, leave.ErrLeaveRequestNotFound) {
			return leave.LeaveRequestResponse{}, err
		}
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get leave request: %w", err)
	}

	if err := l.canViewRequest(ctx, principal, request); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	return leave.NewLeaveRequestResponse(request), nil
}

func (l *LeaveServiceImpl) canViewRequest(ctx context.Context, principal user.Principal, request leave.LeaveRequest) error {
	if request.ManagerID != nil && *request.ManagerID == principal.UserID && principal.Can(user.PermissionLeaveViewTeam) {
		return nil
	}
	err := l.CanViewUser(ctx, principal, request.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		return leave.ErrForbidden
	}
	return err
}

// ListRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListRequests(ctx context.Context, principal user.Principal, filter leave.RequestFilter) (leave.ListRequestsResponse, error) {
	if err := filter.Validate(); err != nil {
		return leave.ListRequestsResponse{}, err
	}

	scope := leave.ScopeOwn
	switch {
	case principal.Can(user.PermissionLeaveViewAll):
		scope = leave.ScopeAll
	case principal.Can(user.PermissionLeaveViewTeam):
		scope = leave.ScopeTeam
	}

	requests, total, err := l.LeaveRequestRepository.List(ctx, filter.ToQuery(principal.UserID, scope))
	if err != nil {
		return leave.ListRequestsResponse{}, fmt.Errorf("failed to list leave requests: %w", err)
	}

	responses := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, leave.NewLeaveRequestResponse(r))
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return leave.ListRequestsResponse{
		Requests:   responses,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
)

// ListLeaveTypes implements leave.LeaveService.
func (l *LeaveServiceImpl) ListLeaveTypes(ctx context.Context) ([]leave.LeaveTypeResponse, error) {
	leaveTypes, err := l.LeaveTypeRepository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}

	responses := make([]leave.LeaveTypeResponse, 0, len(leaveTypes))
	for _, lt := range leaveTypes {
		responses = append(responses, leave.NewLeaveTypeResponse(lt))
	}
	return responses, nil
}

// GetLeaveType implements leave.LeaveService.
func (l *LeaveServiceImpl) GetLeaveType(ctx context.Context, idOrCode string) (leave.LeaveTypeResponse, error) {
	lt, err := l.lookupLeaveType(ctx, idOrCode)
	if err != nil {
		return leave.LeaveTypeResponse{}, err
	}
	return leave.NewLeaveTypeResponse(lt), nil
}

// CreateLeaveType implements leave.LeaveService.
func (l *LeaveServiceImpl) CreateLeaveType(ctx context.Context, principal user.Principal, req leave.CreateLeaveTypeRequest) (leave.LeaveTypeResponse, error) {
	if !principal.Can(user.PermissionLeaveManageTypes) {
		return leave.LeaveTypeResponse{}, leave.ErrForbidden
	}
	req.Code = strings.ToLower(strings.TrimSpace(req.Code))
	if err := req.Validate(); err != nil {
		return leave.LeaveTypeResponse{}, err
	}

	created, err := l.LeaveTypeRepository.Create(ctx, leave.LeaveType{
		Code:               req.Code,
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		AnnualDays:         req.AnnualDays,
		MaxConsecutiveDays: req.MaxConsecutiveDays,
		NoticePeriodDays:   req.NoticePeriodDays,
		CarryForwardDays:   req.CarryForwardDays,
	})
	if err != nil {
		if errors.Is(err, leave.ErrLeaveTypeCodeExists) {
			return leave.LeaveTypeResponse{}, err
		}
		return leave.LeaveTypeResponse{}, fmt.Errorf("failed to create leave type: %w", err)
	}

	slog.Info("Leave type created", "leave_type_id", created.ID, "code", created.Code, "user_id", principal.UserID)
	return leave.NewLeaveTypeResponse(created), nil
}

// UpdateLeaveType implements leave.LeaveService.
func (l *LeaveServiceImpl) UpdateLeaveType(ctx context.Context, principal user.Principal, id string, req leave.UpdateLeaveTypeRequest) (leave.LeaveTypeResponse, error) {
	if !principal.Can(user.PermissionLeaveManageTypes) {
		return leave.LeaveTypeResponse{}, leave.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return leave.LeaveTypeResponse{}, err
	}

	var updated leave.LeaveType
	err := l.inTransaction(ctx, func(ctx context.Context) error {
		lt, err := l.LeaveTypeRepository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(&lt)
		updated, err = l.LeaveTypeRepository.Update(ctx, lt)
		return err
	})
	if err != nil {
		return leave.LeaveTypeResponse{}, err
	}

	slog.Info("Leave type updated", "leave_type_id", updated.ID, "user_id", principal.UserID)
	return leave.NewLeaveTypeResponse(updated), nil
}

// lookupLeaveType resolves an opaque id first and falls back to the category code
func (l *LeaveServiceImpl) lookupLeaveType(ctx context.Context, idOrCode string) (leave.LeaveType, error) {
	lt, err := l.LeaveTypeRepository.GetByID(ctx, idOrCode)
	if err == nil {
		return lt, nil
	}
	if !errors.Is(err, leave.ErrLeaveTypeNotFound) {
		return leave.LeaveType{}, err
	}
	return l.LeaveTypeRepository.GetByCode(ctx, strings.ToLower(strings.TrimSpace(idOrCode)))
}

// resolveLeaveType is lookupLeaveType for submissions, where an unknown type is a validation failure
func (l *LeaveServiceImpl) resolveLeaveType(ctx context.Context, idOrCode string) (leave.LeaveType, error) {
	lt, err := l.lookupLeaveType(ctx, idOrCode)
	if errors.Is(err, leave.ErrLeaveTypeNotFound) {
		return leave.LeaveType{}, leave.ErrInvalidLeaveType
	}
	return lt, err
}

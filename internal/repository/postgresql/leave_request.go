package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

const leaveRequestSelect = `
	SELECT lr.id, lr.user_id, lr.leave_type_id, lr.start_date, lr.end_date, lr.total_days,
		   lr.reason, lr.emergency, lr.manager_id, lr.admin_id, lr.status,
		   lr.manager_comments, lr.admin_comments,
		   lr.manager_approved_at, lr.manager_rejected_at, lr.admin_approved_at, lr.admin_rejected_at,
		   lr.cancelled_by, lr.cancelled_at, lr.created_at, lr.updated_at,
		   lt.code, lt.name, u.full_name
	FROM leave_requests lr
	JOIN leave_types lt ON lt.id = lr.leave_type_id
	JOIN users u ON u.id = lr.user_id
`

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var lr leave.LeaveRequest
	err := row.Scan(
		&lr.ID, &lr.UserID, &lr.LeaveTypeID, &lr.StartDate, &lr.EndDate, &lr.TotalDays,
		&lr.Reason, &lr.Emergency, &lr.ManagerID, &lr.AdminID, &lr.Status,
		&lr.ManagerComments, &lr.AdminComments,
		&lr.ManagerApprovedAt, &lr.ManagerRejectedAt, &lr.AdminApprovedAt, &lr.AdminRejectedAt,
		&lr.CancelledBy, &lr.CancelledAt, &lr.CreatedAt, &lr.UpdatedAt,
		&lr.LeaveTypeCode, &lr.LeaveTypeName, &lr.UserName,
	)
	return lr, err
}

// Create implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_requests (
			user_id, leave_type_id, start_date, end_date, total_days, reason, emergency,
			manager_id, admin_id, status, admin_approved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		request.UserID,
		request.LeaveTypeID,
		request.StartDate,
		request.EndDate,
		request.TotalDays,
		request.Reason,
		request.Emergency,
		request.ManagerID,
		request.AdminID,
		request.Status,
		request.AdminApprovedAt,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("failed to create leave request: %w", err)
	}
	return request, nil
}

func (r *leaveRequestRepositoryImpl) getOne(ctx context.Context, id, suffix string) (leave.LeaveRequest, error) {
	if !validator.IsValidUUID(id) {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	q := GetQuerier(ctx, r.db)

	lr, err := scanLeaveRequest(q.QueryRow(ctx, leaveRequestSelect+`WHERE lr.id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to get leave request %s: %w", id, err)
	}
	return lr, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getOne(ctx, id, "")
}

// GetForUpdate implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getOne(ctx, id, " FOR UPDATE OF lr")
}

// UpdateTransition implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) UpdateTransition(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_requests
		SET status = $2, admin_id = $3, manager_comments = $4, admin_comments = $5,
			manager_approved_at = $6, manager_rejected_at = $7, admin_approved_at = $8, admin_rejected_at = $9,
			cancelled_by = $10, cancelled_at = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := q.QueryRow(ctx, query,
		request.ID,
		request.Status,
		request.AdminID,
		request.ManagerComments,
		request.AdminComments,
		request.ManagerApprovedAt,
		request.ManagerRejectedAt,
		request.AdminApprovedAt,
		request.AdminRejectedAt,
		request.CancelledBy,
		request.CancelledAt,
	).Scan(&request.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to update leave request %s: %w", request.ID, err)
	}
	return request, nil
}

// HasOverlap implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE user_id = $1
			  AND status NOT IN ($4, $5, $6)
			  AND start_date <= $3
			  AND end_date >= $2
		)
	`
	var exists bool
	err := q.QueryRow(ctx, query, userID, start, end,
		leave.StatusManagerRejected, leave.StatusAdminRejected, leave.StatusCancelled,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping requests: %w", err)
	}
	return exists, nil
}

// List implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) List(ctx context.Context, query leave.RequestQuery) ([]leave.LeaveRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	var b whereBuilder
	switch query.Scope {
	case leave.ScopeOwn:
		b.Add("lr.user_id = ?", query.ViewerID)
	case leave.ScopeTeam:
		b.Add("(lr.user_id = ? OR u.manager_id = ?)", query.ViewerID, query.ViewerID)
	}
	if query.Status != nil {
		b.Add("lr.status = ?", *query.Status)
	}
	if query.LeaveTypeID != nil {
		b.Add("lr.leave_type_id = ?", *query.LeaveTypeID)
	}
	if query.UserID != nil {
		b.Add("lr.user_id = ?", *query.UserID)
	}
	if query.Department != nil {
		b.Add("u.department = ?", *query.Department)
	}
	if query.From != nil {
		b.Add("lr.end_date >= ?", *query.From)
	}
	if query.To != nil {
		b.Add("lr.start_date <= ?", *query.To)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM leave_requests lr
		JOIN users u ON u.id = lr.user_id` + b.Where()

	var total int64
	if err := q.QueryRow(ctx, countQuery, b.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leave requests: %w", err)
	}

	dataQuery := leaveRequestSelect + b.Where() +
		fmt.Sprintf(" ORDER BY lr.created_at DESC, lr.id LIMIT %s OFFSET %s", b.Arg(query.Limit), b.Arg(query.Offset))

	rows, err := q.Query(ctx, dataQuery, b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	requests := []leave.LeaveRequest{}
	for rows.Next() {
		lr, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// LockUser implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) LockUser(ctx context.Context, userID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("failed to lock user %s: %w", userID, err)
	}
	return nil
}

package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

const leaveTypeColumns = `id, code, name, description, annual_days, max_consecutive_days,
	notice_period_days, carry_forward_days, created_at, updated_at`

type leaveTypeRepositoryImpl struct {
	db *database.DB
}

func NewLeaveTypeRepository(db *database.DB) leave.LeaveTypeRepository {
	return &leaveTypeRepositoryImpl{db: db}
}

func scanLeaveType(row pgx.Row) (leave.LeaveType, error) {
	var lt leave.LeaveType
	err := row.Scan(
		&lt.ID, &lt.Code, &lt.Name, &lt.Description, &lt.AnnualDays, &lt.MaxConsecutiveDays,
		&lt.NoticePeriodDays, &lt.CarryForwardDays, &lt.CreatedAt, &lt.UpdatedAt,
	)
	return lt, err
}

// Create implements leave.LeaveTypeRepository.
func (l *leaveTypeRepositoryImpl) Create(ctx context.Context, leaveType leave.LeaveType) (leave.LeaveType, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		INSERT INTO leave_types (code, name, description, annual_days, max_consecutive_days, notice_period_days, carry_forward_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + leaveTypeColumns

	created, err := scanLeaveType(q.QueryRow(ctx, query,
		leaveType.Code,
		leaveType.Name,
		leaveType.Description,
		leaveType.AnnualDays,
		leaveType.MaxConsecutiveDays,
		leaveType.NoticePeriodDays,
		leaveType.CarryForwardDays,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return leave.LeaveType{}, leave.ErrLeaveTypeCodeExists
		}
		return leave.LeaveType{}, fmt.Errorf("failed to create leave type: %w", err)
	}
	return created, nil
}

// GetByID implements leave.LeaveTypeRepository.
func (l *leaveTypeRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveType, error) {
	if !validator.IsValidUUID(id) {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	q := GetQuerier(ctx, l.db)

	lt, err := scanLeaveType(q.QueryRow(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
		}
		return leave.LeaveType{}, fmt.Errorf("failed to get leave type %s: %w", id, err)
	}
	return lt, nil
}

// GetByCode implements leave.LeaveTypeRepository.
func (l *leaveTypeRepositoryImpl) GetByCode(ctx context.Context, code string) (leave.LeaveType, error) {
	q := GetQuerier(ctx, l.db)

	lt, err := scanLeaveType(q.QueryRow(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
		}
		return leave.LeaveType{}, fmt.Errorf("failed to get leave type by code %s: %w", code, err)
	}
	return lt, nil
}

// List implements leave.LeaveTypeRepository.
func (l *leaveTypeRepositoryImpl) List(ctx context.Context) ([]leave.LeaveType, error) {
	return l.query(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY code`)
}

// ListByCodes implements leave.LeaveTypeRepository.
func (l *leaveTypeRepositoryImpl) ListByCodes(ctx context.Context, codes []string) ([]leave.LeaveType, error) {
	if len(codes) == 0 {
		return []leave.LeaveType{}, nil
	}
	return l.query(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE code = ANY($1) ORDER BY code`, codes)
}

func (l *leaveTypeRepositoryImpl) query(ctx context.Context, query string, args ...interface{}) ([]leave.LeaveType, error) {
	q := GetQuerier(ctx, l.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	leaveTypes := []leave.LeaveType{}
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		leaveTypes = append(leaveTypes, lt)
	}
	return leaveTypes, rows.Err()
}

// Update implements leave.LeaveTypeRepository. The code is immutable.
func (l *leaveTypeRepositoryImpl) Update(ctx context.Context, leaveType leave.LeaveType) (leave.LeaveType, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		UPDATE leave_types
		SET name = $2, description = $3, annual_days = $4, max_consecutive_days = $5,
			notice_period_days = $6, carry_forward_days = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + leaveTypeColumns

	updated, err := scanLeaveType(q.QueryRow(ctx, query,
		leaveType.ID,
		leaveType.Name,
		leaveType.Description,
		leaveType.AnnualDays,
		leaveType.MaxConsecutiveDays,
		leaveType.NoticePeriodDays,
		leaveType.CarryForwardDays,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
		}
		return leave.LeaveType{}, fmt.Errorf("failed to update leave type %s: %w", leaveType.ID, err)
	}
	return updated, nil
}

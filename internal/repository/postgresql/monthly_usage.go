package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const monthlyUsageColumns = `id, user_id, leave_type_id, year, month, used_days, max_allowed, created_at, updated_at`

type monthlyUsageRepositoryImpl struct {
	db *database.DB
}

func NewMonthlyUsageRepository(db *database.DB) leave.MonthlyUsageRepository {
	return &monthlyUsageRepositoryImpl{db: db}
}

func scanMonthlyUsage(row pgx.Row, withType bool) (leave.MonthlyUsage, error) {
	var u leave.MonthlyUsage
	dest := []interface{}{
		&u.ID, &u.UserID, &u.LeaveTypeID, &u.Year, &u.Month, &u.UsedDays, &u.MaxAllowed, &u.CreatedAt, &u.UpdatedAt,
	}
	if withType {
		dest = append(dest, &u.LeaveTypeCode, &u.LeaveTypeName)
	}
	err := row.Scan(dest...)
	return u, err
}

// Get implements leave.MonthlyUsageRepository.
func (r *monthlyUsageRepositoryImpl) Get(ctx context.Context, userID, leaveTypeID string, year, month int) (leave.MonthlyUsage, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + monthlyUsageColumns + `
		FROM monthly_usage
		WHERE user_id = $1 AND leave_type_id = $2 AND year = $3 AND month = $4
	`
	u, err := scanMonthlyUsage(q.QueryRow(ctx, query, userID, leaveTypeID, year, month), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.MonthlyUsage{}, leave.ErrMonthlyUsageNotFound
		}
		return leave.MonthlyUsage{}, fmt.Errorf("failed to get monthly usage: %w", err)
	}
	return u, nil
}

// ListByUserMonth implements leave.MonthlyUsageRepository.
func (r *monthlyUsageRepositoryImpl) ListByUserMonth(ctx context.Context, userID string, year, month int) ([]leave.MonthlyUsage, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT mu.id, mu.user_id, mu.leave_type_id, mu.year, mu.month, mu.used_days, mu.max_allowed,
			   mu.created_at, mu.updated_at, lt.code, lt.name
		FROM monthly_usage mu
		JOIN leave_types lt ON lt.id = mu.leave_type_id
		WHERE mu.user_id = $1 AND mu.year = $2 AND mu.month = $3
		ORDER BY lt.code
	`
	rows, err := q.Query(ctx, query, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly usage: %w", err)
	}
	defer rows.Close()

	usages := []leave.MonthlyUsage{}
	for rows.Next() {
		u, err := scanMonthlyUsage(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly usage: %w", err)
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

// Increment implements leave.MonthlyUsageRepository.
func (r *monthlyUsageRepositoryImpl) Increment(ctx context.Context, userID, leaveTypeID string, year, month, days, maxAllowed int) (leave.MonthlyUsage, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO monthly_usage (user_id, leave_type_id, year, month, used_days, max_allowed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, leave_type_id, year, month)
		DO UPDATE SET used_days = monthly_usage.used_days + EXCLUDED.used_days, updated_at = now()
		RETURNING ` + monthlyUsageColumns

	u, err := scanMonthlyUsage(q.QueryRow(ctx, query, userID, leaveTypeID, year, month, days, maxAllowed), false)
	if err != nil {
		return leave.MonthlyUsage{}, fmt.Errorf("failed to increment monthly usage: %w", err)
	}
	return u, nil
}

// DeleteByUserYear implements leave.MonthlyUsageRepository.
func (r *monthlyUsageRepositoryImpl) DeleteByUserYear(ctx context.Context, userID string, year int) (int64, error) {
	q := GetQuerier(ctx, r.db)

	result, err := q.Exec(ctx, `DELETE FROM monthly_usage WHERE user_id = $1 AND year = $2`, userID, year)
	if err != nil {
		return 0, fmt.Errorf("failed to delete monthly usage: %w", err)
	}
	return result.RowsAffected(), nil
}

package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const balanceColumns = `id, user_id, leave_type_id, year, total_days, used_days, pending_days,
	carry_forward_days, remaining_days, created_at, updated_at`

const balanceSelect = `
	SELECT b.id, b.user_id, b.leave_type_id, b.year, b.total_days, b.used_days, b.pending_days,
		   b.carry_forward_days, b.remaining_days, b.created_at, b.updated_at,
		   lt.code, lt.name
	FROM leave_balances b
	JOIN leave_types lt ON lt.id = b.leave_type_id
`

type balanceRepositoryImpl struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) leave.BalanceRepository {
	return &balanceRepositoryImpl{db: db}
}

func scanBalance(row pgx.Row, withType bool) (leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	dest := []interface{}{
		&b.ID, &b.UserID, &b.LeaveTypeID, &b.Year, &b.TotalDays, &b.UsedDays, &b.PendingDays,
		&b.CarryForwardDays, &b.RemainingDays, &b.CreatedAt, &b.UpdatedAt,
	}
	if withType {
		dest = append(dest, &b.LeaveTypeCode, &b.LeaveTypeName)
	}
	err := row.Scan(dest...)
	return b, err
}

func (r *balanceRepositoryImpl) getOne(ctx context.Context, suffix, userID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := balanceSelect + `WHERE b.user_id = $1 AND b.leave_type_id = $2 AND b.year = $3` + suffix
	b, err := scanBalance(q.QueryRow(ctx, query, userID, leaveTypeID, year), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveBalance{}, leave.ErrBalanceNotFound
		}
		return leave.LeaveBalance{}, fmt.Errorf("failed to get leave balance: %w", err)
	}
	return b, nil
}

// Get implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Get(ctx context.Context, userID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	return r.getOne(ctx, "", userID, leaveTypeID, year)
}

// GetForUpdate implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) GetForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	return r.getOne(ctx, " FOR UPDATE OF b", userID, leaveTypeID, year)
}

// ListByUserYear implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) ListByUserYear(ctx context.Context, userID string, year int) ([]leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, balanceSelect+`WHERE b.user_id = $1 AND b.year = $2 ORDER BY lt.code`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave balances: %w", err)
	}
	defer rows.Close()

	balances := []leave.LeaveBalance{}
	for rows.Next() {
		b, err := scanBalance(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// InsertIfAbsent implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) InsertIfAbsent(ctx context.Context, balance leave.LeaveBalance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_balances (user_id, leave_type_id, year, total_days, used_days, pending_days, carry_forward_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, leave_type_id, year) DO NOTHING
	`
	_, err := q.Exec(ctx, query,
		balance.UserID,
		balance.LeaveTypeID,
		balance.Year,
		balance.TotalDays,
		balance.UsedDays,
		balance.PendingDays,
		balance.CarryForwardDays,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize leave balance: %w", err)
	}
	return nil
}

func (r *balanceRepositoryImpl) update(ctx context.Context, set string, userID, leaveTypeID string, year, days int) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_balances
		SET ` + set + `, updated_at = now()
		WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
		RETURNING ` + balanceColumns

	b, err := scanBalance(q.QueryRow(ctx, query, userID, leaveTypeID, year, days), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveBalance{}, leave.ErrBalanceNotFound
		}
		return leave.LeaveBalance{}, fmt.Errorf("failed to update leave balance: %w", err)
	}
	return b, nil
}

// AdjustPending implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) AdjustPending(ctx context.Context, userID, leaveTypeID string, year, delta int) (leave.LeaveBalance, error) {
	return r.update(ctx, `pending_days = GREATEST(pending_days + $4, 0)`, userID, leaveTypeID, year, delta)
}

// CommitUsage implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) CommitUsage(ctx context.Context, userID, leaveTypeID string, year, days int) (leave.LeaveBalance, error) {
	return r.update(ctx, `pending_days = GREATEST(pending_days - $4, 0), used_days = used_days + $4`, userID, leaveTypeID, year, days)
}

// AddUsed implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) AddUsed(ctx context.Context, userID, leaveTypeID string, year, days int) (leave.LeaveBalance, error) {
	return r.update(ctx, `used_days = GREATEST(used_days + $4, 0)`, userID, leaveTypeID, year, days)
}

// Reset implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Reset(ctx context.Context, userID, leaveTypeID string, year, totalDays int) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_balances (user_id, leave_type_id, year, total_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, leave_type_id, year)
		DO UPDATE SET total_days = EXCLUDED.total_days, used_days = 0, pending_days = 0,
			carry_forward_days = 0, updated_at = now()
		RETURNING ` + balanceColumns

	b, err := scanBalance(q.QueryRow(ctx, query, userID, leaveTypeID, year, totalDays), false)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("failed to reset leave balance: %w", err)
	}
	return b, nil
}

// SetCarryForward implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) SetCarryForward(ctx context.Context, userID, leaveTypeID string, year, carryForward, totalDays int) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_balances (user_id, leave_type_id, year, total_days, carry_forward_days)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, leave_type_id, year)
		DO UPDATE SET carry_forward_days = EXCLUDED.carry_forward_days, updated_at = now()
		RETURNING ` + balanceColumns

	b, err := scanBalance(q.QueryRow(ctx, query, userID, leaveTypeID, year, totalDays, carryForward), false)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("failed to set carry forward: %w", err)
	}
	return b, nil
}

package user

import "context"

// Repository is the read-only user directory
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	ListActive(ctx context.Context) ([]User, error)
	ListDirectReports(ctx context.Context, managerID string) ([]User, error)
	GetFirstActiveAdmin(ctx context.Context) (User, error)
}

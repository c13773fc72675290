package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeLeaveRequest   NotificationType = "leave_request"
	TypeLeaveForwarded NotificationType = "leave_forwarded"
	TypeLeaveApproved  NotificationType = "leave_approved"
	TypeLeaveRejected  NotificationType = "leave_rejected"
	TypeLeaveCancelled NotificationType = "leave_cancelled"
)

// Notification represents a notification entity
type Notification struct {
	ID             string
	UserID         string
	LeaveRequestID *string
	Type           NotificationType
	Title          string
	Message        string
	IsRead         bool
	EmailSent      bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}

package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Leave domain errors carry their own stable code
	if code := leave.Code(err); code != "" {
		handleLeaveError(w, code, err)
		return
	}

	switch {
	// Directory and identity
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrUserInactive):
		Forbidden(w, "User is not active")
	case errors.Is(err, user.ErrInvalidRole), errors.Is(err, jwt.ErrInvalidClaims):
		Unauthorized(w, "Invalid token")
	case errors.Is(err, user.ErrAdminPrivilegeRequired),
		errors.Is(err, user.ErrManagerAccessRequired),
		errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrQueueFull), errors.Is(err, notification.ErrServiceStopped):
		ServiceUnavailable(w, "Notifications are temporarily unavailable")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func handleLeaveError(w http.ResponseWriter, code string, err error) {
	switch code {
	case "NOT_FOUND":
		NotFound(w, err.Error())
	case "FORBIDDEN":
		Forbidden(w, err.Error())
	case "CONFLICT":
		Conflict(w, err.Error())
	case "OVERLAPPING_REQUEST", "INVALID_STATE_TRANSITION":
		Error(w, http.StatusConflict, code, err.Error())
	case "TRANSACTION_FAILURE":
		slog.Error("Leave transaction failed", "error", err)
		Error(w, http.StatusInternalServerError, code, "The operation could not be completed, please retry")
	case "ANNUAL_RESET_FAILED":
		slog.Error("Annual reset failed", "error", err)
		Error(w, http.StatusInternalServerError, code, err.Error())
	default:
		// Rule violations: invalid type, dates, limits, balance, action
		Error(w, http.StatusBadRequest, code, err.Error())
	}
}

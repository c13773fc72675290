package leave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/validator"
)

// notify hands a notification to the sink. Failures are logged and never reach the caller.
func (l *LeaveServiceImpl) notify(ctx context.Context, recipientID string, request leave.LeaveRequest, notifType notification.NotificationType, title, message string) {
	if l.notifier == nil || recipientID == "" {
		return
	}
	requestID := request.ID
	err := l.notifier.QueueNotification(context.WithoutCancel(ctx), notification.CreateNotificationRequest{
		UserID:         recipientID,
		LeaveRequestID: &requestID,
		Type:           notifType,
		Title:          title,
		Message:        message,
	})
	if err != nil {
		slog.Error("Failed to queue leave notification",
			"leave_request_id", request.ID,
			"recipient_id", recipientID,
			"type", notifType,
			"error", err,
		)
	}
}

// adminRecipient is the designated admin, or the first active admin in the directory
func (l *LeaveServiceImpl) adminRecipient(ctx context.Context) string {
	if l.policy.DesignatedAdminID != "" {
		return l.policy.DesignatedAdminID
	}
	admin, err := l.users.GetFirstActiveAdmin(ctx)
	if err != nil {
		slog.Warn("No admin available for leave notification", "error", err)
		return ""
	}
	return admin.ID
}

func describe(request leave.LeaveRequest) string {
	typeName := "leave"
	if request.LeaveTypeName != nil {
		typeName = *request.LeaveTypeName
	}
	return fmt.Sprintf("%s from %s to %s (%d day(s))",
		typeName,
		request.StartDate.Format(validator.DateLayout),
		request.EndDate.Format(validator.DateLayout),
		request.TotalDays,
	)
}

func (l *LeaveServiceImpl) notifySubmitted(ctx context.Context, submitter user.User, request leave.LeaveRequest) {
	if request.Status == leave.StatusAdminApproved {
		return
	}

	recipient := ""
	if request.Status == leave.StatusPending && request.ManagerID != nil {
		recipient = *request.ManagerID
	} else {
		recipient = l.adminRecipient(ctx)
	}
	if recipient == request.UserID {
		return
	}

	title := "New leave request"
	if request.Emergency {
		title = "New emergency leave request"
	}
	l.notify(ctx, recipient, request, notification.TypeLeaveRequest, title,
		fmt.Sprintf("%s requested %s.", submitter.FullName, describe(request)))
}

func (l *LeaveServiceImpl) notifyTransition(ctx context.Context, actor user.Principal, request leave.LeaveRequest, action leave.Action) {
	owner := request.UserID
	summary := describe(request)

	switch action {
	case leave.ActionApproveManager:
		l.notify(ctx, owner, request, notification.TypeLeaveForwarded, "Leave request forwarded",
			fmt.Sprintf("Your %s was approved by your manager and forwarded to HR.", summary))
		if admin := l.adminRecipient(ctx); admin != "" && admin != actor.UserID {
			l.notify(ctx, admin, request, notification.TypeLeaveRequest, "Leave request awaiting HR approval",
				fmt.Sprintf("A %s is awaiting your approval.", summary))
		}

	case leave.ActionRejectManager, leave.ActionRejectAdmin:
		l.notify(ctx, owner, request, notification.TypeLeaveRejected, "Leave request rejected",
			fmt.Sprintf("Your %s was rejected.", summary))

	case leave.ActionApproveAdmin:
		if owner != actor.UserID {
			l.notify(ctx, owner, request, notification.TypeLeaveApproved, "Leave request approved",
				fmt.Sprintf("Your %s was approved.", summary))
		}

	case leave.ActionCancel:
		if actor.UserID != owner {
			l.notify(ctx, owner, request, notification.TypeLeaveCancelled, "Leave request cancelled",
				fmt.Sprintf("Your %s was cancelled by your manager.", summary))
		} else if request.ManagerID != nil {
			l.notify(ctx, *request.ManagerID, request, notification.TypeLeaveCancelled, "Leave request cancelled",
				fmt.Sprintf("A %s was cancelled by the requester.", summary))
		}
	}
}

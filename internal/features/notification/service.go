package notification

import (
	"context"
	"fmt"

	"go-fundadmin/internal/features/automation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService interface {
	automation.Notifier

	List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, page, limit int64) ([]Notification, int64, error)
	UnreadCount(ctx context.Context, tenantID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, tenantID primitive.ObjectID, id string) error
	MarkAllAsRead(ctx context.Context, tenantID primitive.ObjectID) error
}

type NotificationServiceImpl struct {
	Repo   NotificationRepository
	Logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

// SendNotification persists an in-app notification. This is the engine's
// notification collaborator.
func (s *NotificationServiceImpl) SendNotification(ctx context.Context, req automation.NotificationRequest) error {
	if req.TenantID.IsZero() {
		return fmt.Errorf("notification tenant_id is required")
	}
	if req.Title == "" {
		return fmt.Errorf("notification title is required")
	}

	n := &Notification{
		TenantID:  req.TenantID,
		CompanyID: req.CompanyID,
		Type:      req.Type,
		Priority:  req.Priority,
		Title:     req.Title,
		Message:   req.Message,
		Channels:  req.Channels,
		ActionURL: req.ActionURL,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.Logger.Debug("notification stored",
		zap.String("tenant_id", req.TenantID.Hex()),
		zap.String("title", req.Title),
		zap.String("priority", req.Priority))
	return nil
}

func (s *NotificationServiceImpl) List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, page, limit int64) ([]Notification, int64, error) {
	return s.Repo.List(ctx, tenantID, companyID, page, limit)
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, tenantID primitive.ObjectID) (int64, error) {
	return s.Repo.UnreadCount(ctx, tenantID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, tenantID primitive.ObjectID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification id")
	}
	return s.Repo.MarkAsRead(ctx, tenantID, oid)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, tenantID primitive.ObjectID) error {
	return s.Repo.MarkAllAsRead(ctx, tenantID)
}

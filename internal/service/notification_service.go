package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/observability"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"

	"gorm.io/datatypes"
)

// EventNotification is the envelope type of realtime notification pushes.
const EventNotification = "notification"

// RealtimePublisher pushes a frame to every socket of one user.
type RealtimePublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error
}

// NotifyInput describes one notification to fan out.
type NotifyInput struct {
	Type      models.NotificationType
	Content   string
	RelatedID *uint
	Metadata  map[string]any
}

type NotificationService struct {
	repo      repository.NotificationRepository
	profiles  repository.ProfileRepository
	publisher RealtimePublisher
}

// NewNotificationService wires fan-out. publisher may be nil.
func NewNotificationService(
	repo repository.NotificationRepository,
	profiles repository.ProfileRepository,
	publisher RealtimePublisher,
) *NotificationService {
	return &NotificationService{repo: repo, profiles: profiles, publisher: publisher}
}

// Notify inserts one row per distinct recipient in a single batch, then
// pushes each row to its owner. Push failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, recipients []uint, in NotifyInput) ([]*models.Notification, error) {
	ctx, span := observability.StartServiceSpan(ctx, "NotificationService", "Notify")
	defer span.End()

	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		meta = b
	}

	seen := make(map[uint]struct{}, len(recipients))
	rows := make([]*models.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, &models.Notification{
			UserID:    id,
			Content:   in.Content,
			Type:      in.Type,
			RelatedID: in.RelatedID,
			Metadata:  meta,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.NotificationsFannedOut.WithLabelValues(string(in.Type)).Add(float64(len(rows)))

	if s.publisher != nil {
		for _, n := range rows {
			if err := s.publisher.PublishEvent(ctx, n.UserID, EventNotification, n); err != nil {
				middleware.Logger.WarnContext(ctx, "realtime notification push failed",
					slog.Uint64("recipient_id", uint64(n.UserID)),
					slog.String("error", err.Error()))
			}
		}
	}
	return rows, nil
}

// NotifyAll fans out to every profile, including the actor.
func (s *NotificationService) NotifyAll(ctx context.Context, in NotifyInput) ([]*models.Notification, error) {
	ids, err := s.profiles.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.Notify(ctx, ids, in)
}

// notifyBestEffort runs a fan-out whose failure must not fail the primary write.
func (s *NotificationService) notifyBestEffort(ctx context.Context, fn func(context.Context) ([]*models.Notification, error)) {
	if s == nil {
		return
	}
	if _, err := fn(ctx); err != nil {
		middleware.Logger.ErrorContext(ctx, "notification fan-out failed", slog.String("error", err.Error()))
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	return s.repo.DeleteAll(ctx, userID)
}

// Package notification は通知の保存・参照とWebhook配送を提供する。
//
// ドメインサービス（参加登録・イベント管理）からの通知発火はfire-and-forgetで、
// 保存・配送の失敗は呼び出し元の操作を失敗させない。
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

// webhookPayload はWebhook配送のJSONボディ。
type webhookPayload struct {
	Type        string    `json:"type"`
	VolunteerID string    `json:"volunteer_id"`
	EventID     string    `json:"event_id,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Metrics は通知送信数を記録するインターフェース。
type Metrics interface {
	RecordNotificationSent(notificationType string)
}

// Service は通知のサービス層。
// webhookURLが空の場合、通知はデータベースへの保存のみ行われる。
type Service struct {
	notificationRepo repository.NotificationRepository
	httpClient       *http.Client
	webhookURL       string
	metrics          Metrics
}

// NewService はServiceの新しいインスタンスを生成する。
// httpClientにはSSRF防止付きクライアントを渡す。webhookURLが空の場合は配送しない。
// metricsはnilを許容する（計測なしで動作する）。
func NewService(
	notificationRepo repository.NotificationRepository,
	httpClient *http.Client,
	webhookURL string,
	metrics Metrics,
) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		httpClient:       httpClient,
		webhookURL:       webhookURL,
		metrics:          metrics,
	}
}

// ListNotifications はボランティアの通知一覧を新着順で返す。
func (s *Service) ListNotifications(ctx context.Context, volunteerID string) ([]*model.Notification, error) {
	notifications, err := s.notificationRepo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	return notifications, nil
}

// MarkRead は通知を既読にする。
// 他人の通知は存在しないものとして扱う（NOTIFICATION_NOT_FOUND）。
func (s *Service) MarkRead(ctx context.Context, volunteerID, notificationID string) error {
	n, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	if n == nil || n.VolunteerID != volunteerID {
		return model.NewNotificationNotFoundError(notificationID)
	}

	if err := s.notificationRepo.MarkRead(ctx, notificationID); err != nil {
		return fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}
	return nil
}

// DeleteNotification は通知を削除する。
// 他人の通知は存在しないものとして扱う（NOTIFICATION_NOT_FOUND）。
func (s *Service) DeleteNotification(ctx context.Context, volunteerID, notificationID string) error {
	n, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	if n == nil || n.VolunteerID != volunteerID {
		return model.NewNotificationNotFoundError(notificationID)
	}

	if err := s.notificationRepo.Delete(ctx, notificationID); err != nil {
		return fmt.Errorf("通知の削除に失敗しました: %w", err)
	}
	return nil
}

// EventAssigned は参加登録の成立を通知する。
func (s *Service) EventAssigned(ctx context.Context, event *model.Event, volunteerID string) {
	s.deliver(ctx, &model.Notification{
		ID:          uuid.New().String(),
		VolunteerID: volunteerID,
		Type:        model.NotificationEventAssignment,
		Title:       "参加登録が完了しました",
		Message:     fmt.Sprintf("「%s」（%s %s開始）への参加が確定しました。", event.Title, event.EventDate, event.StartTime),
		EventID:     event.ID,
		CreatedAt:   time.Now(),
	})
}

// EventUpdated はイベント情報の変更を参加予定者へ通知する。
func (s *Service) EventUpdated(ctx context.Context, event *model.Event, volunteerIDs []string) {
	for _, volunteerID := range volunteerIDs {
		s.deliver(ctx, &model.Notification{
			ID:          uuid.New().String(),
			VolunteerID: volunteerID,
			Type:        model.NotificationUpdate,
			Title:       "イベント情報が更新されました",
			Message:     fmt.Sprintf("「%s」の内容が変更されました。最新の情報を確認してください。", event.Title),
			EventID:     event.ID,
			CreatedAt:   time.Now(),
		})
	}
}

// EventCancelled はイベントの開催中止を参加予定者へ通知する。
func (s *Service) EventCancelled(ctx context.Context, event *model.Event, volunteerIDs []string) {
	for _, volunteerID := range volunteerIDs {
		s.deliver(ctx, &model.Notification{
			ID:          uuid.New().String(),
			VolunteerID: volunteerID,
			Type:        model.NotificationCancellation,
			Title:       "イベントが中止されました",
			Message:     fmt.Sprintf("「%s」（%s）は開催中止となりました。", event.Title, event.EventDate),
			EventID:     event.ID,
			CreatedAt:   time.Now(),
		})
	}
}

// EventReminder はイベント開催前のリマインダを通知する（ワーカーから呼ばれる）。
func (s *Service) EventReminder(ctx context.Context, event *model.Event, volunteerID string) {
	s.deliver(ctx, &model.Notification{
		ID:          uuid.New().String(),
		VolunteerID: volunteerID,
		Type:        model.NotificationReminder,
		Title:       "イベント開催が近づいています",
		Message:     fmt.Sprintf("「%s」は%s %sに開始します。", event.Title, event.EventDate, event.StartTime),
		EventID:     event.ID,
		CreatedAt:   time.Now(),
	})
}

// deliver は通知を保存し、Webhookが設定されていれば配送する。
// いずれの失敗もログに記録するのみで呼び出し元へは伝播しない。
func (s *Service) deliver(ctx context.Context, n *model.Notification) {
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		slog.Error("failed to store notification",
			slog.String("volunteer_id", n.VolunteerID),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordNotificationSent(string(n.Type))
	}

	if s.webhookURL == "" || s.httpClient == nil {
		return
	}
	if err := s.postWebhook(ctx, n); err != nil {
		slog.Warn("webhook delivery failed",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
}

// postWebhook は通知をWebhookエンドポイントへPOSTする。
func (s *Service) postWebhook(ctx context.Context, n *model.Notification) error {
	payload := webhookPayload{
		Type:        string(n.Type),
		VolunteerID: n.VolunteerID,
		EventID:     n.EventID,
		Title:       n.Title,
		Message:     n.Message,
		OccurredAt:  n.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

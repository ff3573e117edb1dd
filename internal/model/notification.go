// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationEventAssignment はイベント参加確定の通知。
	NotificationEventAssignment NotificationType = "event_assignment"
	// NotificationReminder はイベント開催前のリマインダ通知。
	NotificationReminder NotificationType = "reminder"
	// NotificationUpdate はイベント情報更新・新着イベントの通知。
	NotificationUpdate NotificationType = "update"
	// NotificationCancellation はイベント中止の通知。
	NotificationCancellation NotificationType = "cancellation"
)

// Notification はボランティアへの通知を表す。
// 配送・永続化は通知コラボレータの責務であり、エンジンはfire-and-forgetで発火する。
type Notification struct {
	ID          string
	VolunteerID string
	Type        NotificationType
	Title       string
	Message     string
	// EventID は通知対象のイベント。イベントに紐づかない通知の場合は空。
	EventID   string
	IsRead    bool
	CreatedAt time.Time
}

// FeedSource は外部イベントフィードの取込元を表す。
// 管理者が登録し、ワーカーが定期的にフェッチして下書きイベントを生成する。
type FeedSource struct {
	ID            string
	Name          string
	URL           string
	LastFetchedAt *time.Time
	LastError     string
	CreatedAt     time.Time
}

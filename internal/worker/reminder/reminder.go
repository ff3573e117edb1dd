// Package reminder は開催前イベントのリマインダ通知ジョブを提供する。
// 翌日開催の募集中イベントについて、未完了（pending）の参加者へ
// リマインダ通知を日次バッチで送信する。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/volunthub/internal/model"
)

// EventLister は募集中イベントの一覧取得を抽象化するインターフェース。
type EventLister interface {
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
}

// ParticipationLister はイベント単位の参加記録取得を抽象化するインターフェース。
type ParticipationLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error)
}

// NotificationLister は送信済み通知の取得を抽象化するインターフェース。
// 同一イベントへの二重リマインダを防ぐために使う。
type NotificationLister interface {
	ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.Notification, error)
}

// Notifier はリマインダ通知の送信を抽象化するインターフェース。
type Notifier interface {
	EventReminder(ctx context.Context, event *model.Event, volunteerID string)
}

// ReminderJob は翌日開催イベントのリマインダ通知ジョブ。
// 日次実行のバッチジョブとして設計されており、送信済みの組には再送しない。
type ReminderJob struct {
	events         EventLister
	participations ParticipationLister
	notifications  NotificationLister
	notifier       Notifier
	logger         *slog.Logger

	// Now は現在時刻の取得関数。テストで差し替え可能。
	Now func() time.Time
}

// NewReminderJob は新しいReminderJobを生成する。
func NewReminderJob(events EventLister, participations ParticipationLister, notifications NotificationLister, notifier Notifier, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{
		events:         events,
		participations: participations,
		notifications:  notifications,
		notifier:       notifier,
		logger:         logger,
		Now:            time.Now,
	}
}

// Run は翌日開催の募集中イベントのpending参加者へリマインダを送信する。
// 冪等: 同一の(イベント, ボランティア)の組には一度しか送信しない。
func (j *ReminderJob) Run(ctx context.Context) error {
	start := j.Now()
	targetDate := start.AddDate(0, 0, 1).Format("2006-01-02")

	events, err := j.events.List(ctx, model.EventFilter{Status: model.EventStatusOpen})
	if err != nil {
		j.logger.Error("リマインダ対象イベントの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("リマインダ対象イベントの取得に失敗: %w", err)
	}

	sent := 0
	for _, event := range events {
		if event.EventDate != targetDate {
			continue
		}

		records, err := j.participations.ListByEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("参加記録の取得に失敗: %w", err)
		}

		for _, rec := range records {
			if rec.Status != model.ParticipationPending {
				continue
			}

			reminded, err := j.alreadyReminded(ctx, rec.VolunteerID, event.ID)
			if err != nil {
				return fmt.Errorf("送信済み通知の確認に失敗: %w", err)
			}
			if reminded {
				continue
			}

			j.notifier.EventReminder(ctx, event, rec.VolunteerID)
			sent++
		}
	}

	j.logger.Info("リマインダジョブが完了しました",
		slog.String("target_date", targetDate),
		slog.Int("reminders_sent", sent),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// alreadyReminded は指定の(ボランティア, イベント)の組に
// リマインダ通知を送信済みかを返す。
func (j *ReminderJob) alreadyReminded(ctx context.Context, volunteerID, eventID string) (bool, error) {
	notifications, err := j.notifications.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return false, err
	}
	for _, n := range notifications {
		if n.Type == model.NotificationReminder && n.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

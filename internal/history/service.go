// Package history は参加履歴・統計・レポートのドメインロジックを提供する。
package history

import (
	"context"
	"fmt"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

// deletedEventName は削除済みイベントの履歴表示に使うプレースホルダ。
const deletedEventName = "削除されたイベント"

// VolunteerReportRow はボランティア別参加レポートの1行。
type VolunteerReportRow struct {
	VolunteerID string
	Name        string
	Email       string
	Stats       model.VolunteerStats
}

// EventReportRow はイベント別参加レポートの1行。
type EventReportRow struct {
	Event          *model.Event
	Pending        int
	Completed      int
	Cancelled      int
	NoShow         int
	SlotsRemaining int
}

// Service は参加台帳の読み取り系サービス層。
// 履歴・統計・レポートはいずれも台帳を変更しない。
type Service struct {
	participationRepo repository.ParticipationRepository
	eventRepo         repository.EventRepository
	userRepo          repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	participationRepo repository.ParticipationRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		participationRepo: participationRepo,
		eventRepo:         eventRepo,
		userRepo:          userRepo,
	}
}

// ListHistory はボランティアの参加履歴をイベント表示情報付きで返す。
// イベントが削除済みの場合はプレースホルダ表示になる（記録自体は残る）。
// 履歴は参加登録順に並ぶ。
func (s *Service) ListHistory(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
	records, err := s.participationRepo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("参加記録の取得に失敗しました: %w", err)
	}

	entries := make([]model.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := model.HistoryEntry{Record: *rec}

		event, err := s.eventRepo.FindByID(ctx, rec.EventID)
		if err != nil {
			return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
		}
		if event == nil {
			entry.EventName = deletedEventName
			entry.EventDeleted = true
		} else {
			entry.EventName = event.Title
			entry.EventDate = event.EventDate
			entry.EventTime = fmt.Sprintf("%s - %s", event.StartTime, event.EndTime)
			entry.EventLocation = event.Location
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// ComputeStats はボランティアの参加統計を計算する。
// TotalEventsは状態別カウントの合計と常に一致する。
// CompletionRateはcompleted/total×100のパーセント値で、記録が1件もない場合は0になる。
func (s *Service) ComputeStats(ctx context.Context, volunteerID string) (*model.VolunteerStats, error) {
	records, err := s.participationRepo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("参加記録の取得に失敗しました: %w", err)
	}

	stats := tallyStats(volunteerID, records)
	return &stats, nil
}

// tallyStats は参加記録から状態別カウントと完了率（パーセント）を集計する。
func tallyStats(volunteerID string, records []*model.ParticipationRecord) model.VolunteerStats {
	stats := model.VolunteerStats{VolunteerID: volunteerID}
	for _, rec := range records {
		stats.TotalEvents++
		switch rec.Status {
		case model.ParticipationCompleted:
			stats.Completed++
		case model.ParticipationPending:
			stats.Pending++
		case model.ParticipationCancelled:
			stats.Cancelled++
		case model.ParticipationNoShow:
			stats.NoShow++
		}
	}
	if stats.TotalEvents > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalEvents) * 100
	}
	return stats
}

// VolunteerReport は全ボランティアの参加統計レポートを返す（管理者向け）。
// 管理者ユーザーは行に含めない。行の並びはユーザー一覧の並び順に従う。
func (s *Service) VolunteerReport(ctx context.Context) ([]VolunteerReportRow, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	records, err := s.participationRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("参加記録の取得に失敗しました: %w", err)
	}

	byVolunteer := make(map[string][]*model.ParticipationRecord)
	for _, rec := range records {
		byVolunteer[rec.VolunteerID] = append(byVolunteer[rec.VolunteerID], rec)
	}

	var rows []VolunteerReportRow
	for _, user := range users {
		if user.Role != model.RoleVolunteer {
			continue
		}
		stats := tallyStats(user.ID, byVolunteer[user.ID])
		rows = append(rows, VolunteerReportRow{
			VolunteerID: user.ID,
			Name:        user.Name,
			Email:       user.Email,
			Stats:       stats,
		})
	}

	return rows, nil
}

// EventReport は全イベントの参加状況レポートを返す（管理者向け）。
// SlotsRemainingは定員から定員消費数（pending+completed）を引いた残枠。
func (s *Service) EventReport(ctx context.Context) ([]EventReportRow, error) {
	events, err := s.eventRepo.List(ctx, model.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}

	records, err := s.participationRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("参加記録の取得に失敗しました: %w", err)
	}

	byEvent := make(map[string][]*model.ParticipationRecord)
	for _, rec := range records {
		byEvent[rec.EventID] = append(byEvent[rec.EventID], rec)
	}

	rows := make([]EventReportRow, 0, len(events))
	for _, event := range events {
		row := EventReportRow{Event: event}
		for _, rec := range byEvent[event.ID] {
			switch rec.Status {
			case model.ParticipationPending:
				row.Pending++
			case model.ParticipationCompleted:
				row.Completed++
			case model.ParticipationCancelled:
				row.Cancelled++
			case model.ParticipationNoShow:
				row.NoShow++
			}
		}
		row.SlotsRemaining = event.Capacity - (row.Pending + row.Completed)
		if row.SlotsRemaining < 0 {
			row.SlotsRemaining = 0
		}
		rows = append(rows, row)
	}

	return rows, nil
}

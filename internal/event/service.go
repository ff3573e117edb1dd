// Package event はイベントカタログのドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
	"github.com/hitoshi/volunthub/internal/security"
	"github.com/hitoshi/volunthub/internal/validation"
)

// Notifier はイベント変更を参加者へ通知するインターフェース。
// 通知はfire-and-forgetであり、失敗してもイベント操作は成功する。
type Notifier interface {
	// EventUpdated はイベント情報の変更を参加予定者へ通知する。
	EventUpdated(ctx context.Context, event *model.Event, volunteerIDs []string)
	// EventCancelled はイベントの開催中止を参加予定者へ通知する。
	EventCancelled(ctx context.Context, event *model.Event, volunteerIDs []string)
}

// Service はイベントカタログのサービス層。
// イベントのCRUDは管理者のみが実行でき、一覧・取得は全ユーザーに公開される。
type Service struct {
	eventRepo         repository.EventRepository
	participationRepo repository.ParticipationRepository
	sanitizer         security.ContentSanitizerService
	validate          *validator.Validate
	notifier          Notifier
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	eventRepo repository.EventRepository,
	participationRepo repository.ParticipationRepository,
	sanitizer security.ContentSanitizerService,
	validate *validator.Validate,
	notifier Notifier,
) *Service {
	return &Service{
		eventRepo:         eventRepo,
		participationRepo: participationRepo,
		sanitizer:         sanitizer,
		validate:          validate,
		notifier:          notifier,
	}
}

// Input はイベント作成・更新の入力。
// RequiredSkillsが空の場合はスキルを問わないイベントになる。
type Input struct {
	Title          string   `validate:"required,min=3,max=100"`
	Description    string   `validate:"required,max=5000"`
	Category       string   `validate:"required,min=3,max=50"`
	Location       string   `validate:"required,min=3,max=100"`
	RequiredSkills []string `validate:"max=10,dive,skill"`
	Urgency        string   `validate:"required,oneof=low medium high"`
	EventDate      string   `validate:"required,iso_date"`
	StartTime      string   `validate:"required,clock_time"`
	EndTime        string   `validate:"required,clock_time"`
	Capacity       int      `validate:"required,min=1,max=10000"`
	Status         string   `validate:"omitempty,oneof=open closed cancelled"`
}

// ListEvents はフィルタ条件に合致するイベント一覧を返す。
func (s *Service) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// GetEvent は指定IDのイベントを取得する。
func (s *Service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(id)
	}
	return event, nil
}

// CreateEvent は新規イベントを作成する。
// テキストフィールドはサニタイズされ、説明文は許可タグのみのHTMLとして保存される。
// Statusを省略した場合はopenで作成される。
func (s *Service) CreateEvent(ctx context.Context, input Input) (*model.Event, error) {
	if err := validation.Check(s.validate, input); err != nil {
		return nil, err
	}
	if input.EndTime <= input.StartTime {
		return nil, model.NewValidationError("終了時刻は開始時刻より後である必要があります")
	}

	status := model.EventStatusOpen
	if input.Status != "" {
		status = model.EventStatus(input.Status)
	}

	now := time.Now()
	event := &model.Event{
		ID:             uuid.New().String(),
		Title:          s.sanitizer.SanitizeText(input.Title),
		Description:    s.sanitizer.Sanitize(input.Description),
		Category:       s.sanitizer.SanitizeText(input.Category),
		Location:       s.sanitizer.SanitizeText(input.Location),
		RequiredSkills: input.RequiredSkills,
		Urgency:        model.Urgency(input.Urgency),
		EventDate:      input.EventDate,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		Capacity:       input.Capacity,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	slog.Info("event created",
		slog.String("event_id", event.ID),
		slog.String("title", event.Title),
	)

	return event, nil
}

// UpdateEvent は既存イベントを全体更新する。
// 参加予定者（pending）には変更通知が送られる。
// Statusがcancelledに変わった場合は中止通知が送られる。
func (s *Service) UpdateEvent(ctx context.Context, id string, input Input) (*model.Event, error) {
	if err := validation.Check(s.validate, input); err != nil {
		return nil, err
	}
	if input.EndTime <= input.StartTime {
		return nil, model.NewValidationError("終了時刻は開始時刻より後である必要があります")
	}

	existing, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	status := existing.Status
	if input.Status != "" {
		status = model.EventStatus(input.Status)
	}

	event := &model.Event{
		ID:             id,
		Title:          s.sanitizer.SanitizeText(input.Title),
		Description:    s.sanitizer.Sanitize(input.Description),
		Category:       s.sanitizer.SanitizeText(input.Category),
		Location:       s.sanitizer.SanitizeText(input.Location),
		RequiredSkills: input.RequiredSkills,
		Urgency:        model.Urgency(input.Urgency),
		EventDate:      input.EventDate,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		Capacity:       input.Capacity,
		Status:         status,
		SourceGUID:     existing.SourceGUID,
		CreatedAt:      existing.CreatedAt,
		UpdatedAt:      time.Now(),
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	slog.Info("event updated",
		slog.String("event_id", event.ID),
		slog.String("status", string(event.Status)),
	)

	// 参加予定者への通知。失敗しても更新自体は成功している。
	if s.notifier != nil {
		volunteerIDs, err := s.pendingVolunteerIDs(ctx, id)
		if err != nil {
			slog.Error("failed to collect participants for notification",
				slog.String("event_id", id),
				slog.String("error", err.Error()),
			)
		} else if len(volunteerIDs) > 0 {
			if existing.Status != model.EventStatusCancelled && event.Status == model.EventStatusCancelled {
				s.notifier.EventCancelled(ctx, event, volunteerIDs)
			} else {
				s.notifier.EventUpdated(ctx, event, volunteerIDs)
			}
		}
	}

	return event, nil
}

// DeleteEvent は指定IDのイベントを削除する。
// 参加台帳の記録は削除されず、履歴にはイベント削除済みとして残る。
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	existing, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewEventNotFoundError(id)
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}

	slog.Info("event deleted", slog.String("event_id", id))
	return nil
}

// pendingVolunteerIDs は参加予定（pending）のボランティアIDを集める。
func (s *Service) pendingVolunteerIDs(ctx context.Context, eventID string) ([]string, error) {
	records, err := s.participationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, rec := range records {
		if rec.Status == model.ParticipationPending {
			ids = append(ids, rec.VolunteerID)
		}
	}
	return ids, nil
}

// Package enrollment は参加登録のドメインロジックを提供する。
//
// 定員チェック付きのjoinはイベントIDごとに直列化され、
// さらにリポジトリ層の行ロック付きトランザクションで定員超過を防ぐ。
// 同一イベントへの同時joinは定員ちょうどの件数だけ成功する。
package enrollment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

// Notifier は参加確定をボランティアへ通知するインターフェース。
// 通知はfire-and-forgetであり、失敗しても参加登録は成功する。
type Notifier interface {
	// EventAssigned は参加登録の成立をボランティアへ通知する。
	EventAssigned(ctx context.Context, event *model.Event, volunteerID string)
}

// Metrics はjoin試行の結果を記録するインターフェース。
type Metrics interface {
	// JoinAttempt はjoin試行の結果（success / capacity_exceeded / already_enrolled /
	// not_joinable / error）を記録する。
	JoinAttempt(outcome string)
}

// join結果のメトリクスラベル。
const (
	outcomeSuccess          = "success"
	outcomeCapacityExceeded = "capacity_exceeded"
	outcomeAlreadyEnrolled  = "already_enrolled"
	outcomeNotJoinable      = "not_joinable"
	outcomeError            = "error"
)

// Service は参加登録のサービス層。
type Service struct {
	eventRepo         repository.EventRepository
	participationRepo repository.ParticipationRepository
	profileRepo       repository.ProfileRepository
	notifier          Notifier
	metrics           Metrics

	// locks はイベントIDごとのjoin直列化用ミューテックス。
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService はServiceの新しいインスタンスを生成する。
// notifierとmetricsはnilを許容する（通知・計測なしで動作する）。
func NewService(
	eventRepo repository.EventRepository,
	participationRepo repository.ParticipationRepository,
	profileRepo repository.ProfileRepository,
	notifier Notifier,
	metrics Metrics,
) *Service {
	return &Service{
		eventRepo:         eventRepo,
		participationRepo: participationRepo,
		profileRepo:       profileRepo,
		notifier:          notifier,
		metrics:           metrics,
		locks:             make(map[string]*sync.Mutex),
	}
}

// eventLock はイベントIDに対応するミューテックスを返す。
// ミューテックスはイベントごとに1つ生成され、プロセス生存中は保持される。
func (s *Service) eventLock(eventID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[eventID] = lock
	}
	return lock
}

// Join は指定イベントへの参加登録を行う。
// 成功するとpending状態の参加記録が作成され、参加確定通知が送られる。
//
// 失敗条件:
//   - イベントが存在しない: EVENT_NOT_FOUND
//   - イベントが募集中でない: EVENT_NOT_JOINABLE
//   - cancelled以外の参加記録が既にある: ALREADY_ENROLLED
//   - 定員（pending+completed）に空きがない: CAPACITY_EXCEEDED
//
// 過去に管理者取消（cancelled）された記録がある場合は、その記録をpendingに
// 戻すことで再参加となる。定員チェックは新規参加と同じ規則に従う。
func (s *Service) Join(ctx context.Context, volunteerID, eventID string) (*model.ParticipationRecord, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		s.recordJoin(outcomeError)
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		s.recordJoin(outcomeError)
		return nil, model.NewEventNotFoundError(eventID)
	}
	if !event.IsJoinable() {
		s.recordJoin(outcomeNotJoinable)
		return nil, model.NewEventNotJoinableError(eventID, event.Status)
	}

	// 定員チェックと挿入をイベント単位で直列化する
	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.participationRepo.FindByVolunteerAndEvent(ctx, volunteerID, eventID)
	if err != nil {
		s.recordJoin(outcomeError)
		return nil, fmt.Errorf("参加記録の検索に失敗しました: %w", err)
	}
	if existing != nil && existing.Status.IsActive() {
		s.recordJoin(outcomeAlreadyEnrolled)
		return nil, model.NewAlreadyEnrolledError(eventID)
	}

	skillsUsed, err := s.matchedSkills(ctx, volunteerID, event)
	if err != nil {
		s.recordJoin(outcomeError)
		return nil, err
	}

	now := time.Now()
	var record *model.ParticipationRecord

	if existing != nil {
		// 取消済み記録の復活による再参加
		ok, err := s.participationRepo.RevivePendingIfCapacity(ctx, volunteerID, eventID, now, skillsUsed)
		if err != nil {
			s.recordJoin(outcomeError)
			return nil, fmt.Errorf("参加記録の再登録に失敗しました: %w", err)
		}
		if !ok {
			s.recordJoin(outcomeCapacityExceeded)
			return nil, model.NewCapacityExceededError(eventID)
		}
		record = existing
		record.Status = model.ParticipationPending
		record.JoinedAt = now
		record.SkillsUsed = skillsUsed
		record.Rating = nil
	} else {
		record = &model.ParticipationRecord{
			ID:          uuid.New().String(),
			VolunteerID: volunteerID,
			EventID:     eventID,
			Status:      model.ParticipationPending,
			JoinedAt:    now,
			SkillsUsed:  skillsUsed,
		}
		ok, err := s.participationRepo.InsertPendingIfCapacity(ctx, record)
		if err != nil {
			s.recordJoin(outcomeError)
			return nil, fmt.Errorf("参加記録の作成に失敗しました: %w", err)
		}
		if !ok {
			s.recordJoin(outcomeCapacityExceeded)
			return nil, model.NewCapacityExceededError(eventID)
		}
	}

	s.recordJoin(outcomeSuccess)
	slog.Info("volunteer joined event",
		slog.String("volunteer_id", volunteerID),
		slog.String("event_id", eventID),
	)

	if s.notifier != nil {
		s.notifier.EventAssigned(ctx, event, volunteerID)
	}

	return record, nil
}

// Unjoin は参加前の登録を取り消し、参加記録を削除する。
//
// 失敗条件:
//   - 参加記録がない、または取消済み: NOT_ENROLLED
//   - pending以外の記録（completed / no_show）: INVALID_TRANSITION
//
// 2回連続で呼び出した場合、2回目はNOT_ENROLLEDになる。
func (s *Service) Unjoin(ctx context.Context, volunteerID, eventID string) error {
	record, err := s.participationRepo.FindByVolunteerAndEvent(ctx, volunteerID, eventID)
	if err != nil {
		return fmt.Errorf("参加記録の検索に失敗しました: %w", err)
	}
	if record == nil || !record.Status.IsActive() {
		return model.NewNotEnrolledError(eventID)
	}
	if record.Status != model.ParticipationPending {
		return model.NewInvalidTransitionError(record.Status, model.ParticipationCancelled)
	}

	ok, err := s.participationRepo.DeletePending(ctx, volunteerID, eventID)
	if err != nil {
		return fmt.Errorf("参加記録の削除に失敗しました: %w", err)
	}
	if !ok {
		// 検索と削除の間に他のリクエストが先行した場合
		return model.NewNotEnrolledError(eventID)
	}

	slog.Info("volunteer unjoined event",
		slog.String("volunteer_id", volunteerID),
		slog.String("event_id", eventID),
	)
	return nil
}

// SetStatus は参加記録の状態を遷移させる（管理者操作）。
//
// 許可される遷移はpendingから completed / cancelled / no_show への遷移のみ。
// 終端状態からの遷移はINVALID_TRANSITIONとして拒否される。
// ratingはcompletedへの遷移時のみ指定でき、1〜5の範囲で検証される。
func (s *Service) SetStatus(ctx context.Context, eventID, volunteerID string, status model.ParticipationStatus, rating *int) (*model.ParticipationRecord, error) {
	switch status {
	case model.ParticipationCompleted, model.ParticipationCancelled, model.ParticipationNoShow:
	default:
		return nil, model.NewValidationError(fmt.Sprintf("遷移先の状態が不正です: %s", status))
	}
	if rating != nil {
		if status != model.ParticipationCompleted {
			return nil, model.NewValidationError("評価はcompletedへの遷移時のみ指定できます")
		}
		if *rating < 1 || *rating > 5 {
			return nil, model.NewValidationError("評価は1〜5の範囲で指定してください")
		}
	}

	record, err := s.participationRepo.FindByVolunteerAndEvent(ctx, volunteerID, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加記録の検索に失敗しました: %w", err)
	}
	if record == nil {
		return nil, model.NewRecordNotFoundError(volunteerID, eventID)
	}
	if record.Status.IsTerminal() {
		return nil, model.NewInvalidTransitionError(record.Status, status)
	}

	if err := s.participationRepo.UpdateStatus(ctx, record.ID, status, rating); err != nil {
		return nil, fmt.Errorf("参加状態の更新に失敗しました: %w", err)
	}

	record.Status = status
	record.Rating = rating

	slog.Info("participation status updated",
		slog.String("volunteer_id", volunteerID),
		slog.String("event_id", eventID),
		slog.String("status", string(status)),
	)
	return record, nil
}

// ListParticipants はイベントの参加記録一覧を返す（管理者向け）。
func (s *Service) ListParticipants(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	records, err := s.participationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加記録一覧の取得に失敗しました: %w", err)
	}
	return records, nil
}

// matchedSkills はプロフィールスキルと必要スキルの重なりを返す。
// プロフィール未作成の場合は空とみなす。
func (s *Service) matchedSkills(ctx context.Context, volunteerID string, event *model.Event) ([]string, error) {
	prof, err := s.profileRepo.FindByVolunteerID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if prof == nil {
		return nil, nil
	}

	var skills []string
	for _, skill := range event.RequiredSkills {
		if prof.HasSkill(skill) {
			skills = append(skills, skill)
		}
	}
	return skills, nil
}

func (s *Service) recordJoin(outcome string) {
	if s.metrics != nil {
		s.metrics.JoinAttempt(outcome)
	}
}

// Package profile はボランティアプロフィールのドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
	"github.com/hitoshi/volunthub/internal/validation"
)

// Service はプロフィール管理のサービス層。
// プロフィールの取得・作成・更新・削除を提供する。
// プロフィールは所有者本人のみが変更できる。
type Service struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	validate    *validator.Validate
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	validate *validator.Validate,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		validate:    validate,
	}
}

// AddressInput は住所の入力。
type AddressInput struct {
	Address1  string `validate:"required,max=100"`
	Address2  string `validate:"max=100"`
	City      string `validate:"required,max=100"`
	StateCode string `validate:"required,state_code"`
	ZipCode   string `validate:"required,zip_code"`
}

// AvailabilityInput は参加可能スロットの入力。
type AvailabilityInput struct {
	Date      string `validate:"required,iso_date"`
	TimeOfDay string `validate:"required,clock_time"`
}

// UpsertInput はプロフィール作成・更新の入力。
// スキルは定義済みカタログから1〜10件、参加可能日時は1件以上必要。
type UpsertInput struct {
	Address      AddressInput        `validate:"required"`
	Skills       []string            `validate:"required,min=1,max=10,dive,skill"`
	Preferences  string              `validate:"max=500"`
	Availability []AvailabilityInput `validate:"required,min=1,dive"`
}

// GetProfile は指定ボランティアのプロフィールを取得する。
// プロフィール未作成の場合はPROFILE_NOT_FOUNDを返す。
func (s *Service) GetProfile(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error) {
	prof, err := s.profileRepo.FindByVolunteerID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if prof == nil {
		return nil, model.NewProfileNotFoundError(volunteerID)
	}
	return prof, nil
}

// UpsertProfile はプロフィールを作成または全体更新する。
// 既存プロフィールがあれば上書きし、なければ新規作成する。
// いずれの場合も検証済みの入力全体で置き換える。
func (s *Service) UpsertProfile(ctx context.Context, volunteerID string, input UpsertInput) (*model.VolunteerProfile, error) {
	if err := validation.Check(s.validate, input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewVolunteerNotFoundError(volunteerID)
	}

	existing, err := s.profileRepo.FindByVolunteerID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの検索に失敗しました: %w", err)
	}

	now := time.Now()
	prof := &model.VolunteerProfile{
		VolunteerID: volunteerID,
		Address: model.Address{
			Address1:  input.Address.Address1,
			Address2:  input.Address.Address2,
			City:      input.Address.City,
			StateCode: input.Address.StateCode,
			ZipCode:   input.Address.ZipCode,
		},
		Skills:       input.Skills,
		Preferences:  input.Preferences,
		Availability: collapseAvailability(input.Availability),
		UpdatedAt:    now,
	}

	if existing == nil {
		prof.CreatedAt = now
		if err := s.profileRepo.Create(ctx, prof); err != nil {
			return nil, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
		}
		slog.Info("profile created", slog.String("volunteer_id", volunteerID))
	} else {
		prof.CreatedAt = existing.CreatedAt
		if err := s.profileRepo.Update(ctx, prof); err != nil {
			return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
		}
		slog.Info("profile updated", slog.String("volunteer_id", volunteerID))
	}

	return prof, nil
}

// collapseAvailability は同一の(日付, 時刻)スロットを1件にまとめる。
// 初出順を保持する。
func collapseAvailability(slots []AvailabilityInput) []model.AvailabilitySlot {
	seen := make(map[string]bool, len(slots))
	result := make([]model.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		key := slot.Date + " " + slot.TimeOfDay
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, model.AvailabilitySlot{
			Date:      slot.Date,
			TimeOfDay: slot.TimeOfDay,
		})
	}
	return result
}

// DeleteProfile は指定ボランティアのプロフィールを削除する。
// 参加台帳の記録には影響しない。
func (s *Service) DeleteProfile(ctx context.Context, volunteerID string) error {
	existing, err := s.profileRepo.FindByVolunteerID(ctx, volunteerID)
	if err != nil {
		return fmt.Errorf("プロフィールの検索に失敗しました: %w", err)
	}
	if existing == nil {
		return model.NewProfileNotFoundError(volunteerID)
	}

	if err := s.profileRepo.Delete(ctx, volunteerID); err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}

	slog.Info("profile deleted", slog.String("volunteer_id", volunteerID))
	return nil
}

// ListProfiles は全ボランティアのプロフィール一覧を登録順で返す。管理者向け。
func (s *Service) ListProfiles(ctx context.Context) ([]*model.VolunteerProfile, error) {
	profiles, err := s.profileRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	return profiles, nil
}

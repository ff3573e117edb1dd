package feedimport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
	"github.com/hitoshi/volunthub/internal/validation"
)

// SourceService は取込元フィードの管理操作を提供する。管理者専用。
type SourceService struct {
	sourceRepo repository.FeedSourceRepository
	ssrfGuard  SSRFValidator
	validate   *validator.Validate
	detector   *Detector
}

// NewSourceService はSourceServiceの新しいインスタンスを生成する。
// detectorはnilを許容する（自動検出なしで入力URLをそのまま登録する）。
func NewSourceService(
	sourceRepo repository.FeedSourceRepository,
	ssrfGuard SSRFValidator,
	validate *validator.Validate,
	detector *Detector,
) *SourceService {
	return &SourceService{
		sourceRepo: sourceRepo,
		ssrfGuard:  ssrfGuard,
		validate:   validate,
		detector:   detector,
	}
}

// SourceInput は取込元フィード登録の入力。
type SourceInput struct {
	Name string `validate:"required,min=2,max=100"`
	URL  string `validate:"required,url,max=2048"`
}

// RegisterSource は取込元フィードを登録する。
// 登録時点でURLのSSRF検証を行い、内部ネットワークを指すURLを拒否する。
func (s *SourceService) RegisterSource(ctx context.Context, input SourceInput) (*model.FeedSource, error) {
	if err := validation.Check(s.validate, input); err != nil {
		return nil, err
	}
	if err := s.ssrfGuard.ValidateURL(input.URL); err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("このURLは登録できません: %s", err.Error()))
	}

	// HTMLページが入力された場合はheadタグからフィードURLを解決する
	feedURL := input.URL
	if s.detector != nil {
		resolved, err := s.detector.Resolve(ctx, input.URL)
		if err != nil {
			return nil, err
		}
		feedURL = resolved
	}

	src := &model.FeedSource{
		ID:        uuid.New().String(),
		Name:      input.Name,
		URL:       feedURL,
		CreatedAt: time.Now(),
	}
	if err := s.sourceRepo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("取込元フィードの登録に失敗しました: %w", err)
	}

	slog.Info("feed source registered",
		slog.String("source_id", src.ID),
		slog.String("url", src.URL),
	)
	return src, nil
}

// ListSources は登録済みの取込元フィード一覧を返す。
func (s *SourceService) ListSources(ctx context.Context) ([]*model.FeedSource, error) {
	sources, err := s.sourceRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("取込元フィード一覧の取得に失敗しました: %w", err)
	}
	return sources, nil
}

// RemoveSource は取込元フィードを削除する。取込済みイベントは残る。
func (s *SourceService) RemoveSource(ctx context.Context, id string) error {
	src, err := s.sourceRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("取込元フィードの取得に失敗しました: %w", err)
	}
	if src == nil {
		return model.NewFeedSourceNotFoundError(id)
	}

	if err := s.sourceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("取込元フィードの削除に失敗しました: %w", err)
	}

	slog.Info("feed source removed", slog.String("source_id", id))
	return nil
}

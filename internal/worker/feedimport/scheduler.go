package feedimport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

// SourceImporter は取込元フィード1件の取込実行インターフェース。
type SourceImporter interface {
	// ImportSource は指定フィードを取込み、結果をフェッチ状態に記録する。
	ImportSource(ctx context.Context, src *model.FeedSource) error
}

// Scheduler はフィード取込のスケジューリングと並列制御を行う。
// ティッカーで取込サイクルを起動し、semaphoreパターンで
// 最大並列数を制御しながら各フィードを取り込む。
type Scheduler struct {
	sourceRepo     repository.FeedSourceRepository
	importer       SourceImporter
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	sourceRepo repository.FeedSourceRepository,
	importer SourceImporter,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		sourceRepo:     sourceRepo,
		importer:       importer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("フィード取込スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("取込サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("フィード取込スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("取込サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は登録済みの全フィードを1回取り込む。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	sources, err := s.sourceRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		s.logger.Info("取込対象のフィードはありません")
		return nil
	}

	s.logger.Info("取込サイクルを開始します",
		slog.Int("source_count", len(sources)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		sem <- struct{}{}

		go func(src *model.FeedSource) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.importer.ImportSource(ctx, src); err != nil {
				s.logger.Error("フィード取込に失敗しました",
					slog.String("source_id", src.ID),
					slog.String("url", src.URL),
					slog.String("error", err.Error()),
				)
			}
		}(src)
	}

	wg.Wait()

	s.logger.Info("取込サイクルが完了しました",
		slog.Int("source_count", len(sources)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

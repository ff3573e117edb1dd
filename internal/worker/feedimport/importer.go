// Package feedimport は地域イベントフィードの定期取込処理を提供する。
// 管理者が登録したRSS/Atomフィードをフェッチし、下書きイベントとして
// カタログへUPSERTする。取り込まれたイベントは管理者が内容を確認して
// 公開するまでclosed状態に保たれる。
package feedimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

const (
	// draftCapacity は取込直後の下書きイベントの仮定員。公開前に管理者が設定し直す。
	draftCapacity = 10
	// draftStartTime / draftEndTime は開催時刻が取れないフィードのための仮時刻。
	draftStartTime = "09:00"
	draftEndTime   = "17:00"
	// defaultCategory はカテゴリ情報を持たないフィード項目の分類。
	defaultCategory = "地域活動"
)

// ContentSanitizer はフィード由来コンテンツの無害化インターフェース。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
	SanitizeText(raw string) string
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Metrics はフィード取込の結果を記録するインターフェース。
type Metrics interface {
	RecordFeedImport(result string)
	RecordEventsImported(count int)
}

// Importer は個別フィードのHTTPフェッチ・パース・下書きイベントUPSERTを行う。
type Importer struct {
	eventRepo   repository.EventRepository
	sourceRepo  repository.FeedSourceRepository
	sanitizer   ContentSanitizer
	ssrfGuard   SSRFValidator
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	metrics     Metrics
}

// NewImporter はImporterの新しいインスタンスを生成する。
// metricsはnilを許容する（計測なしで動作する）。
func NewImporter(
	eventRepo repository.EventRepository,
	sourceRepo repository.FeedSourceRepository,
	sanitizer ContentSanitizer,
	ssrfGuard SSRFValidator,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	metrics Metrics,
) *Importer {
	return &Importer{
		eventRepo:   eventRepo,
		sourceRepo:  sourceRepo,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		metrics:     metrics,
	}
}

// recordResult は取込結果（success / failure）をメトリクスに記録する。
func (im *Importer) recordResult(result string) {
	if im.metrics != nil {
		im.metrics.RecordFeedImport(result)
	}
}

// ImportSource は取込元フィードをフェッチし、項目を下書きイベントとしてUPSERTする。
// フェッチ結果（成功・失敗とも）はFeedSourceのフェッチ状態に記録する。
func (im *Importer) ImportSource(ctx context.Context, src *model.FeedSource) error {
	start := time.Now()

	if err := im.ssrfGuard.ValidateURL(src.URL); err != nil {
		im.logger.Error("SSRF検証に失敗しました",
			slog.String("source_id", src.ID),
			slog.String("url", src.URL),
			slog.String("error", err.Error()),
		)
		im.recordFetchState(ctx, src.ID, fmt.Sprintf("SSRF検証失敗: %s", err.Error()))
		im.recordResult("failure")
		return fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := im.ssrfGuard.NewSafeClient(im.timeout, im.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "VoluntHub/1.0 Event Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		im.logger.Error("HTTPリクエストに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("url", src.URL),
			slog.String("error", err.Error()),
		)
		im.recordFetchState(ctx, src.ID, fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()))
		im.recordResult("failure")
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("HTTPステータス %d", resp.StatusCode)
		im.logger.Warn("フィード取込をスキップします",
			slog.String("source_id", src.ID),
			slog.String("url", src.URL),
			slog.Int("http_status", resp.StatusCode),
		)
		im.recordFetchState(ctx, src.ID, reason)
		im.recordResult("failure")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxBodySize))
	if err != nil {
		im.recordFetchState(ctx, src.ID, fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
		im.recordResult("failure")
		return fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		im.logger.Error("フィードのパースに失敗しました",
			slog.String("source_id", src.ID),
			slog.String("url", src.URL),
			slog.String("error", err.Error()),
		)
		im.recordFetchState(ctx, src.ID, fmt.Sprintf("パース失敗: %s", err.Error()))
		im.recordResult("failure")
		return nil // パース失敗は取込エラーとしない（記録して継続）
	}

	inserted, updated, err := im.upsertItems(ctx, parsedFeed.Items)
	if err != nil {
		im.recordFetchState(ctx, src.ID, fmt.Sprintf("イベントUPSERT失敗: %s", err.Error()))
		im.recordResult("failure")
		return fmt.Errorf("イベントUPSERT失敗: %w", err)
	}

	im.recordFetchState(ctx, src.ID, "")
	im.recordResult("success")
	if im.metrics != nil && inserted > 0 {
		im.metrics.RecordEventsImported(inserted)
	}

	im.logger.Info("フィード取込が完了しました",
		slog.String("source_id", src.ID),
		slog.String("url", src.URL),
		slog.Int("events_inserted", inserted),
		slog.Int("events_updated", updated),
		slog.Int("items_total", len(parsedFeed.Items)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// upsertItems はフィード項目をsource_guidをキーに下書きイベントへUPSERTする。
// 管理者が公開済み（open）のイベントは上書きしない。
func (im *Importer) upsertItems(ctx context.Context, items []*gofeed.Item) (int, int, error) {
	inserted, updated := 0, 0

	for _, item := range items {
		if item == nil {
			continue
		}

		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue // 識別子なしの項目は取り込まない
		}

		draft := im.buildDraft(item, guid)

		existing, err := im.eventRepo.FindBySourceGUID(ctx, guid)
		if err != nil {
			return inserted, updated, err
		}

		if existing == nil {
			if err := im.eventRepo.Create(ctx, draft); err != nil {
				return inserted, updated, err
			}
			inserted++
			continue
		}

		// 管理者が公開・中止を決めたイベントには触らない
		if existing.Status != model.EventStatusClosed {
			continue
		}
		if existing.Title == draft.Title && existing.Description == draft.Description {
			continue
		}

		existing.Title = draft.Title
		existing.Description = draft.Description
		existing.UpdatedAt = time.Now()
		if err := im.eventRepo.Update(ctx, existing); err != nil {
			return inserted, updated, err
		}
		updated++
	}

	return inserted, updated, nil
}

// buildDraft はフィード項目から下書きイベントを組み立てる。
// 本文はHTMLサニタイズ、タイトル等はタグ除去を適用する。
func (im *Importer) buildDraft(item *gofeed.Item, guid string) *model.Event {
	description := item.Content
	if description == "" {
		description = item.Description
	}

	category := defaultCategory
	if len(item.Categories) > 0 && item.Categories[0] != "" {
		category = im.sanitizer.SanitizeText(item.Categories[0])
	}

	eventDate := time.Now().Format("2006-01-02")
	if item.PublishedParsed != nil {
		eventDate = item.PublishedParsed.Format("2006-01-02")
	}

	now := time.Now()
	return &model.Event{
		ID:          uuid.New().String(),
		Title:       im.sanitizer.SanitizeText(item.Title),
		Description: im.sanitizer.Sanitize(description),
		Category:    category,
		Location:    "未定",
		Urgency:     model.UrgencyLow,
		EventDate:   eventDate,
		StartTime:   draftStartTime,
		EndTime:     draftEndTime,
		Capacity:    draftCapacity,
		Status:      model.EventStatusClosed,
		SourceGUID:  guid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// recordFetchState はフェッチ結果をFeedSourceに記録する。失敗はログのみ。
func (im *Importer) recordFetchState(ctx context.Context, sourceID, lastError string) {
	if err := im.sourceRepo.UpdateFetchState(ctx, sourceID, time.Now(), lastError); err != nil {
		im.logger.Error("フェッチ状態の更新に失敗しました",
			slog.String("source_id", sourceID),
			slog.String("error", err.Error()),
		)
	}
}

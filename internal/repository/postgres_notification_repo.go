package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/volunthub/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, volunteer_id, type, title, message, event_id, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.VolunteerID, n.Type, n.Title, n.Message, n.EventID, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	n := &model.Notification{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, volunteer_id, type, title, message, event_id, is_read, created_at
		 FROM notifications WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.VolunteerID, &n.Type, &n.Title, &n.Message, &n.EventID, &n.IsRead, &n.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}

	return n, nil
}

// ListByVolunteer はボランティアの全通知を新着順で返す。
func (r *PostgresNotificationRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, volunteer_id, type, title, message, event_id, is_read, created_at
		 FROM notifications WHERE volunteer_id = $1 ORDER BY created_at DESC`,
		volunteerID,
	)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.VolunteerID, &n.Type, &n.Title, &n.Message, &n.EventID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("通知行の読み取りに失敗しました: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知一覧の走査に失敗しました: %w", err)
	}
	return notifications, nil
}

// MarkRead は通知を既読にする。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("通知が見つかりません: %s", id)
	}
	return nil
}

// Delete は指定IDの通知を削除する。
func (r *PostgresNotificationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("通知の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("通知が見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)

// PostgresFeedSourceRepo はPostgreSQLを使用した取込元フィードリポジトリ。
type PostgresFeedSourceRepo struct {
	db *sql.DB
}

// NewPostgresFeedSourceRepo はPostgresFeedSourceRepoを生成する。
func NewPostgresFeedSourceRepo(db *sql.DB) *PostgresFeedSourceRepo {
	return &PostgresFeedSourceRepo{db: db}
}

// Create は取込元フィードを登録する。
func (r *PostgresFeedSourceRepo) Create(ctx context.Context, src *model.FeedSource) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feed_sources (id, name, url, last_error, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		src.ID, src.Name, src.URL, src.LastError, src.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("取込元フィードの登録に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの取込元フィードを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedSourceRepo) FindByID(ctx context.Context, id string) (*model.FeedSource, error) {
	src := &model.FeedSource{}
	var fetchedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, last_fetched_at, last_error, created_at
		 FROM feed_sources WHERE id = $1`,
		id,
	).Scan(&src.ID, &src.Name, &src.URL, &fetchedAt, &src.LastError, &src.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("取込元フィードの取得に失敗しました: %w", err)
	}
	if fetchedAt.Valid {
		t := fetchedAt.Time
		src.LastFetchedAt = &t
	}
	return src, nil
}

// ListAll は全取込元フィードを登録順で返す。
func (r *PostgresFeedSourceRepo) ListAll(ctx context.Context) ([]*model.FeedSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, last_fetched_at, last_error, created_at
		 FROM feed_sources ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("取込元フィード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.FeedSource
	for rows.Next() {
		src := &model.FeedSource{}
		var fetchedAt sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &fetchedAt, &src.LastError, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("取込元フィード行の読み取りに失敗しました: %w", err)
		}
		if fetchedAt.Valid {
			t := fetchedAt.Time
			src.LastFetchedAt = &t
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取込元フィード一覧の走査に失敗しました: %w", err)
	}
	return sources, nil
}

// UpdateFetchState はフェッチ結果を記録する。
func (r *PostgresFeedSourceRepo) UpdateFetchState(ctx context.Context, id string, fetchedAt time.Time, lastError string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE feed_sources SET last_fetched_at = $2, last_error = $3 WHERE id = $1`,
		id, fetchedAt, lastError,
	)
	if err != nil {
		return fmt.Errorf("フェッチ状態の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("取込元フィードが見つかりません: %s", id)
	}
	return nil
}

// Delete は指定IDの取込元フィードを削除する。
func (r *PostgresFeedSourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM feed_sources WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("取込元フィードの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("取込元フィードが見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ FeedSourceRepository = (*PostgresFeedSourceRepo)(nil)

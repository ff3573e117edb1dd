package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/volunthub/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `id, title, description, category, location, required_skills, urgency,
	event_date, start_time, end_time, capacity, status, COALESCE(source_guid, ''), created_at, updated_at`

// scanEvent は1行分のイベントを読み取る。
func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	event := &model.Event{}
	err := scanner.Scan(
		&event.ID, &event.Title, &event.Description, &event.Category, &event.Location,
		pq.Array(&event.RequiredSkills), &event.Urgency,
		&event.EventDate, &event.StartTime, &event.EndTime,
		&event.Capacity, &event.Status, &event.SourceGUID,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return event, nil
}

// FindBySourceGUID は外部フィード由来の識別子でイベントを検索する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindBySourceGUID(ctx context.Context, guid string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE source_guid = $1`,
		guid,
	)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("取込元識別子によるイベントの検索に失敗しました: %w", err)
	}
	return event, nil
}

// List はフィルタ条件に合致するイベントを作成順で返す。
// Searchはタイトルと説明に対する部分一致、Category・Statusは完全一致。
func (r *PostgresEventRepo) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND LOWER(category) = LOWER($%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("イベント行の読み取りに失敗しました: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, category, location, required_skills, urgency,
		                     event_date, start_time, end_time, capacity, status, source_guid,
		                     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15)`,
		event.ID, event.Title, event.Description, event.Category, event.Location,
		pq.Array(event.RequiredSkills), event.Urgency,
		event.EventDate, event.StartTime, event.EndTime,
		event.Capacity, event.Status, event.SourceGUID,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はイベントを上書き更新する。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events
		 SET title = $2, description = $3, category = $4, location = $5, required_skills = $6,
		     urgency = $7, event_date = $8, start_time = $9, end_time = $10,
		     capacity = $11, status = $12, updated_at = NOW()
		 WHERE id = $1`,
		event.ID, event.Title, event.Description, event.Category, event.Location,
		pq.Array(event.RequiredSkills), event.Urgency,
		event.EventDate, event.StartTime, event.EndTime,
		event.Capacity, event.Status,
	)
	if err != nil {
		return fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("イベントが見つかりません: %s", event.ID)
	}
	return nil
}

// Delete は指定IDのイベントを削除する。
func (r *PostgresEventRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("イベントが見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/volunthub/internal/model"
)

// PostgresParticipationRepo はPostgreSQLを使用した参加台帳リポジトリ。
// 定員判定を伴う挿入はイベント行のロック下で単一トランザクションとして実行する。
type PostgresParticipationRepo struct {
	db *sql.DB
}

// NewPostgresParticipationRepo はPostgresParticipationRepoを生成する。
func NewPostgresParticipationRepo(db *sql.DB) *PostgresParticipationRepo {
	return &PostgresParticipationRepo{db: db}
}

const participationColumns = `id, volunteer_id, event_id, status, joined_at, skills_used, rating`

// scanParticipation は1行分の参加記録を読み取る。
func scanParticipation(scanner interface{ Scan(...any) error }) (*model.ParticipationRecord, error) {
	rec := &model.ParticipationRecord{}
	var rating sql.NullInt64
	err := scanner.Scan(
		&rec.ID, &rec.VolunteerID, &rec.EventID, &rec.Status, &rec.JoinedAt,
		pq.Array(&rec.SkillsUsed), &rating,
	)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		rec.Rating = &v
	}
	return rec, nil
}

// FindByVolunteerAndEvent はボランティアIDとイベントIDで参加記録を検索する。見つからない場合はnilを返す。
func (r *PostgresParticipationRepo) FindByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (*model.ParticipationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participationColumns+` FROM participations
		 WHERE volunteer_id = $1 AND event_id = $2`,
		volunteerID, eventID,
	)
	rec, err := scanParticipation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("参加記録の検索に失敗しました: %w", err)
	}
	return rec, nil
}

// ListByVolunteer はボランティアの全参加記録を参加登録順で返す。
func (r *PostgresParticipationRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error) {
	return r.list(ctx,
		`SELECT `+participationColumns+` FROM participations
		 WHERE volunteer_id = $1 ORDER BY joined_at ASC`,
		volunteerID,
	)
}

// ListByEvent はイベントの全参加記録を参加登録順で返す。
func (r *PostgresParticipationRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error) {
	return r.list(ctx,
		`SELECT `+participationColumns+` FROM participations
		 WHERE event_id = $1 ORDER BY joined_at ASC`,
		eventID,
	)
}

// ListAll は全参加記録を参加登録順で返す。
func (r *PostgresParticipationRepo) ListAll(ctx context.Context) ([]*model.ParticipationRecord, error) {
	return r.list(ctx,
		`SELECT `+participationColumns+` FROM participations ORDER BY joined_at ASC`,
	)
}

func (r *PostgresParticipationRepo) list(ctx context.Context, query string, args ...any) ([]*model.ParticipationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("参加記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var recs []*model.ParticipationRecord
	for rows.Next() {
		rec, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("参加記録行の読み取りに失敗しました: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参加記録一覧の走査に失敗しました: %w", err)
	}
	return recs, nil
}

// CountTowardCapacity はイベントの定員消費数（pending/completed）を返す。
func (r *PostgresParticipationRepo) CountTowardCapacity(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participations
		 WHERE event_id = $1 AND status IN ('pending', 'completed')`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("定員消費数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// InsertPendingIfCapacity は定員に空きがある場合のみpending記録を挿入する。
// events行をFOR UPDATEでロックし、定員カウントと挿入を同一トランザクションで行うことで、
// 同時joinによる定員超過を防ぐ。挿入できた場合はtrueを返す。
func (r *PostgresParticipationRepo) InsertPendingIfCapacity(ctx context.Context, rec *model.ParticipationRecord) (bool, error) {
	return r.withEventLock(ctx, rec.EventID, func(tx *sql.Tx, capacity int) (bool, error) {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participations
			 WHERE event_id = $1 AND status IN ('pending', 'completed')`,
			rec.EventID,
		).Scan(&count); err != nil {
			return false, fmt.Errorf("定員消費数の取得に失敗しました: %w", err)
		}
		if count >= capacity {
			return false, nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO participations (id, volunteer_id, event_id, status, joined_at, skills_used)
			 VALUES ($1, $2, $3, 'pending', $4, $5)`,
			rec.ID, rec.VolunteerID, rec.EventID, rec.JoinedAt, pq.Array(rec.SkillsUsed),
		); err != nil {
			return false, fmt.Errorf("参加記録の作成に失敗しました: %w", err)
		}
		return true, nil
	})
}

// RevivePendingIfCapacity はcancelled状態の既存記録を定員に空きがある場合のみpendingに戻す。
func (r *PostgresParticipationRepo) RevivePendingIfCapacity(ctx context.Context, volunteerID, eventID string, joinedAt time.Time, skillsUsed []string) (bool, error) {
	return r.withEventLock(ctx, eventID, func(tx *sql.Tx, capacity int) (bool, error) {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participations
			 WHERE event_id = $1 AND status IN ('pending', 'completed')`,
			eventID,
		).Scan(&count); err != nil {
			return false, fmt.Errorf("定員消費数の取得に失敗しました: %w", err)
		}
		if count >= capacity {
			return false, nil
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE participations
			 SET status = 'pending', joined_at = $3, skills_used = $4, rating = NULL
			 WHERE volunteer_id = $1 AND event_id = $2 AND status = 'cancelled'`,
			volunteerID, eventID, joinedAt, pq.Array(skillsUsed),
		)
		if err != nil {
			return false, fmt.Errorf("参加記録の再有効化に失敗しました: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
		}
		return rowsAffected > 0, nil
	})
}

// withEventLock はevents行をFOR UPDATEでロックしてfnを実行する共通処理。
// イベントが存在しない場合はエラーを返す。
func (r *PostgresParticipationRepo) withEventLock(ctx context.Context, eventID string, fn func(tx *sql.Tx, capacity int) (bool, error)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("イベントが見つかりません: %s", eventID)
	}
	if err != nil {
		return false, fmt.Errorf("イベント行のロックに失敗しました: %w", err)
	}

	ok, err := fn(tx, capacity)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return ok, nil
}

// DeletePending はpending状態の参加記録を物理削除する。
// 削除対象が存在しなかった場合はfalseを返す。
func (r *PostgresParticipationRepo) DeletePending(ctx context.Context, volunteerID, eventID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM participations
		 WHERE volunteer_id = $1 AND event_id = $2 AND status = 'pending'`,
		volunteerID, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("参加記録の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateStatus は参加記録の状態と評価を更新する。
func (r *PostgresParticipationRepo) UpdateStatus(ctx context.Context, id string, status model.ParticipationStatus, rating *int) error {
	var ratingVal sql.NullInt64
	if rating != nil {
		ratingVal = sql.NullInt64{Int64: int64(*rating), Valid: true}
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE participations SET status = $2, rating = $3 WHERE id = $1`,
		id, status, ratingVal,
	)
	if err != nil {
		return fmt.Errorf("参加記録の状態更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("参加記録が見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ParticipationRepository = (*PostgresParticipationRepo)(nil)

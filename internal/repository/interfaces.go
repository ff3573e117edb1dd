// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/volunthub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// ListAll は全ユーザーを返す。管理者レポート用。
	ListAll(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、profiles、participations、notificationsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はボランティアプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByVolunteerID は指定ボランティアのプロフィールを取得する。見つからない場合はnilを返す。
	FindByVolunteerID(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.VolunteerProfile) error

	// Update はプロフィールを上書き更新する。
	Update(ctx context.Context, profile *model.VolunteerProfile) error

	// Delete は指定ボランティアのプロフィールを削除する。
	Delete(ctx context.Context, volunteerID string) error

	// ListAll は全プロフィールを登録順で返す。管理者向け一覧・自動マッチング用。
	ListAll(ctx context.Context) ([]*model.VolunteerProfile, error)
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// FindBySourceGUID は外部フィード由来の識別子でイベントを検索する。見つからない場合はnilを返す。
	FindBySourceGUID(ctx context.Context, guid string) (*model.Event, error)

	// List はフィルタ条件に合致するイベントを作成順で返す。
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// Update はイベントを上書き更新する。
	Update(ctx context.Context, event *model.Event) error

	// Delete は指定IDのイベントを削除する。参加記録は履歴として残る。
	Delete(ctx context.Context, id string) error
}

// ParticipationRepository は参加台帳の永続化インターフェース。
// 参加記録は(volunteer_id, event_id)の組で一意。
type ParticipationRepository interface {
	// FindByVolunteerAndEvent はボランティアIDとイベントIDで参加記録を検索する。
	// 見つからない場合はnilを返す。
	FindByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (*model.ParticipationRecord, error)

	// ListByVolunteer はボランティアの全参加記録を参加登録順で返す。
	ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.ParticipationRecord, error)

	// ListByEvent はイベントの全参加記録を返す。
	ListByEvent(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error)

	// ListAll は全参加記録を返す。管理者レポート用。
	ListAll(ctx context.Context) ([]*model.ParticipationRecord, error)

	// CountTowardCapacity はイベントの定員消費数（pending/completed）を返す。
	CountTowardCapacity(ctx context.Context, eventID string) (int, error)

	// InsertPendingIfCapacity は定員に空きがある場合のみpending記録を挿入する。
	// イベント行をロックした上で定員カウントと挿入を単一トランザクションで行い、
	// 挿入できた場合はtrueを、定員超過で挿入しなかった場合はfalseを返す。
	InsertPendingIfCapacity(ctx context.Context, rec *model.ParticipationRecord) (bool, error)

	// RevivePendingIfCapacity はcancelled状態の既存記録を定員に空きがある場合のみ
	// pendingに戻す。InsertPendingIfCapacityと同じ排他・判定規則に従う。
	RevivePendingIfCapacity(ctx context.Context, volunteerID, eventID string, joinedAt time.Time, skillsUsed []string) (bool, error)

	// DeletePending はpending状態の参加記録を物理削除する（参加前の取消）。
	// 削除対象が存在しなかった場合はfalseを返す。
	DeletePending(ctx context.Context, volunteerID, eventID string) (bool, error)

	// UpdateStatus は参加記録の状態と評価を更新する。
	UpdateStatus(ctx context.Context, id string, status model.ParticipationStatus, rating *int) error
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notification, error)

	// ListByVolunteer はボランティアの全通知を新着順で返す。
	ListByVolunteer(ctx context.Context, volunteerID string) ([]*model.Notification, error)

	// MarkRead は通知を既読にする。
	MarkRead(ctx context.Context, id string) error

	// Delete は指定IDの通知を削除する。
	Delete(ctx context.Context, id string) error
}

// FeedSourceRepository は外部イベントフィード取込元の永続化インターフェース。
type FeedSourceRepository interface {
	// Create は取込元フィードを登録する。
	Create(ctx context.Context, src *model.FeedSource) error

	// FindByID は指定IDの取込元フィードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.FeedSource, error)

	// ListAll は全取込元フィードを登録順で返す。
	ListAll(ctx context.Context) ([]*model.FeedSource, error)

	// UpdateFetchState はフェッチ結果（最終フェッチ日時・エラーメッセージ）を記録する。
	UpdateFetchState(ctx context.Context, id string, fetchedAt time.Time, lastError string) error

	// Delete は指定IDの取込元フィードを削除する。
	Delete(ctx context.Context, id string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

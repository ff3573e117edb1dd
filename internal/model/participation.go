// Package model はドメインモデルを定義する。
package model

import "time"

// ParticipationStatus は参加記録の状態を表す。
type ParticipationStatus string

const (
	// ParticipationPending は参加登録済み・イベント未実施の状態。
	ParticipationPending ParticipationStatus = "pending"
	// ParticipationCompleted は参加完了の状態。
	ParticipationCompleted ParticipationStatus = "completed"
	// ParticipationCancelled は管理者によって取り消された状態。記録は履歴として残る。
	ParticipationCancelled ParticipationStatus = "cancelled"
	// ParticipationNoShow は無断欠席の状態。
	ParticipationNoShow ParticipationStatus = "no_show"
)

// IsTerminal は終端状態（pendingから遷移済み）かを返す。
// 終端状態からの再遷移はInvalidTransitionとして拒否される。
func (s ParticipationStatus) IsTerminal() bool {
	switch s {
	case ParticipationCompleted, ParticipationCancelled, ParticipationNoShow:
		return true
	}
	return false
}

// IsActive は重複参加判定の対象となる状態（cancelled以外）かを返す。
func (s ParticipationStatus) IsActive() bool {
	return s != ParticipationCancelled
}

// CountsTowardCapacity は定員カウントの対象となる状態かを返す。
// pendingとcompletedのみが定員を消費する。
func (s ParticipationStatus) CountsTowardCapacity() bool {
	return s == ParticipationPending || s == ParticipationCompleted
}

// ParticipationRecord は参加台帳の1レコードを表す。
// (VolunteerID, EventID) の組で一意。参加前の取消（unjoin）を除き削除されない。
type ParticipationRecord struct {
	ID          string
	VolunteerID string
	EventID     string
	Status      ParticipationStatus
	JoinedAt    time.Time
	// SkillsUsed は実際に提供したスキル（プロフィールスキルの部分集合）。任意。
	SkillsUsed []string
	// Rating は管理者による1〜5の評価。未評価の場合はnil。
	Rating *int
}

// HistoryEntry は参加記録にイベント表示情報を結合した履歴エントリ。
// イベントが削除済みの場合はプレースホルダの表示情報が入る。
type HistoryEntry struct {
	Record        ParticipationRecord
	EventName     string
	EventDate     string
	EventTime     string
	EventLocation string
	// EventDeleted は結合時にイベントが見つからなかったことを示す。
	EventDeleted bool
}

// VolunteerStats はボランティアごとの参加統計。
type VolunteerStats struct {
	VolunteerID    string
	TotalEvents    int
	Completed      int
	Pending        int
	Cancelled      int
	NoShow         int
	CompletionRate float64 // completed/total×100（パーセント）
}

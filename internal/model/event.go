// Package model はドメインモデルを定義する。
package model

import "time"

// EventStatus はイベントの募集状態を表す。
type EventStatus string

const (
	// EventStatusOpen は参加者を募集中の状態。
	EventStatusOpen EventStatus = "open"
	// EventStatusClosed は募集を締め切った状態。
	EventStatusClosed EventStatus = "closed"
	// EventStatusCancelled は開催中止の状態。
	EventStatusCancelled EventStatus = "cancelled"
)

// Urgency はイベントの緊急度を表す。
type Urgency string

const (
	// UrgencyLow は緊急度低。
	UrgencyLow Urgency = "low"
	// UrgencyMedium は緊急度中。
	UrgencyMedium Urgency = "medium"
	// UrgencyHigh は緊急度高。
	UrgencyHigh Urgency = "high"
)

// Event はボランティアイベントを表す。
// RequiredSkillsが空の場合はスキルを問わないイベントを意味する。
// EventDate・StartTime・EndTimeはISO形式の文字列（"2006-01-02" / "15:04"）で保持し、
// 参加可能日時とのマッチング判定は文字列の完全一致で行う。
type Event struct {
	ID             string
	Title          string
	Description    string
	Category       string
	Location       string
	RequiredSkills []string
	Urgency        Urgency
	EventDate      string
	StartTime      string
	EndTime        string
	Capacity       int
	Status         EventStatus
	// SourceGUID は外部フィードから取り込んだイベントの識別子。手動作成の場合は空。
	SourceGUID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsJoinable は参加登録を受け付け可能な状態かを返す。
func (e *Event) IsJoinable() bool {
	return e.Status == EventStatusOpen
}

// EventFilter はイベント一覧取得時の絞り込み条件。
// ゼロ値のフィールドは条件として使用しない。
type EventFilter struct {
	Search   string
	Category string
	Status   EventStatus
}

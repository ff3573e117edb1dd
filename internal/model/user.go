// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleVolunteer は一般ボランティアの権限。
	RoleVolunteer Role = "volunteer"
	// RoleAdmin はイベント管理者の権限。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザー（ボランティアまたは管理者）を表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには含めない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// Roleはログイン時点のユーザー権限を保持し、リクエストごとの権限判定に使用する。
type Session struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, enrollment, event, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeVolunteerNotFound    = "VOLUNTEER_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeEventNotFound        = "EVENT_NOT_FOUND"
	ErrCodeRecordNotFound       = "RECORD_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeFeedSourceNotFound   = "FEED_SOURCE_NOT_FOUND"
	ErrCodeAlreadyEnrolled      = "ALREADY_ENROLLED"
	ErrCodeNotEnrolled          = "NOT_ENROLLED"
	ErrCodeEventNotJoinable     = "EVENT_NOT_JOINABLE"
	ErrCodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeProfileExists        = "PROFILE_EXISTS"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewVolunteerNotFoundError はボランティア未検出エラーを生成する。
func NewVolunteerNotFoundError(volunteerID string) *APIError {
	return &APIError{
		Code:     ErrCodeVolunteerNotFound,
		Message:  fmt.Sprintf("指定されたボランティアが見つかりません: %s", volunteerID),
		Category: "auth",
		Action:   "ボランティアIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(volunteerID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("プロフィールが登録されていません: %s", volunteerID),
		Category: "validation",
		Action:   "先にプロフィールを登録してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントIDを確認してください。",
	}
}

// NewRecordNotFoundError は参加記録未検出エラーを生成する。
func NewRecordNotFoundError(volunteerID, eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("参加記録が見つかりません: volunteer=%s event=%s", volunteerID, eventID),
		Category: "enrollment",
		Action:   "参加記録を確認してください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "system",
		Action:   "通知IDを確認してください。",
	}
}

// NewFeedSourceNotFoundError は取込元フィード未検出エラーを生成する。
func NewFeedSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedSourceNotFound,
		Message:  fmt.Sprintf("指定された取込元フィードが見つかりません: %s", sourceID),
		Category: "event",
		Action:   "取込元フィードIDを確認してください。",
	}
}

// NewAlreadyEnrolledError は重複参加エラーを生成する。
func NewAlreadyEnrolledError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyEnrolled,
		Message:  fmt.Sprintf("このイベントには既に参加登録済みです: %s", eventID),
		Category: "enrollment",
		Action:   "参加履歴を確認してください。",
	}
}

// NewNotEnrolledError は未参加状態での取消エラーを生成する。
func NewNotEnrolledError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotEnrolled,
		Message:  fmt.Sprintf("このイベントには参加登録されていません: %s", eventID),
		Category: "enrollment",
		Action:   "参加登録済みのイベントのみ取消できます。",
	}
}

// NewEventNotJoinableError は参加不可イベントへの参加エラーを生成する。
func NewEventNotJoinableError(eventID string, status EventStatus) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotJoinable,
		Message:  fmt.Sprintf("このイベントは現在参加を受け付けていません: %s (status=%s)", eventID, status),
		Category: "enrollment",
		Action:   "募集中のイベントを選択してください。",
	}
}

// NewCapacityExceededError は定員超過エラーを生成する。
func NewCapacityExceededError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeCapacityExceeded,
		Message:  fmt.Sprintf("このイベントは定員に達しています: %s", eventID),
		Category: "enrollment",
		Action:   "空きが出るまでお待ちいただくか、他のイベントを選択してください。",
	}
}

// NewInvalidTransitionError は参加記録の不正な状態遷移エラーを生成する。
func NewInvalidTransitionError(from, to ParticipationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("参加記録の状態を %s から %s に変更することはできません。", from, to),
		Category: "enrollment",
		Action:   "変更可能な状態遷移を確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewProfileExistsError はプロフィール重複作成エラーを生成する。
func NewProfileExistsError(volunteerID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileExists,
		Message:  fmt.Sprintf("プロフィールは既に登録されています: %s", volunteerID),
		Category: "validation",
		Action:   "既存のプロフィールを更新してください。",
	}
}

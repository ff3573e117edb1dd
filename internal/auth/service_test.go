package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/validation"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

type mockSessionRepo struct {
	createFn   func(ctx context.Context, session *model.Session) error
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return nil
}

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(userRepo, sessionRepo, validation.New(), ServiceConfig{SessionMaxAge: 3600})
}

// --- テスト ---

// TestService_Register は新規登録でユーザーとセッションが作成されることを検証する。
func TestService_Register(t *testing.T) {
	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}
	svc := newTestService(userRepo, sessionRepo)

	user, session, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Maria@Example.com",
		Name:     "Maria Lopez",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.Email != "maria@example.com" {
		t.Errorf("Email = %q, want lowercased %q", user.Email, "maria@example.com")
	}
	if user.Role != model.RoleVolunteer {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleVolunteer)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-pass" {
		t.Errorf("PasswordHash should be a bcrypt hash, got %q", user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")) != nil {
		t.Error("PasswordHash does not verify against the original password")
	}
	if createdUser == nil {
		t.Error("user was not persisted")
	}
	if createdSession == nil {
		t.Fatal("session was not persisted")
	}
	if session.UserID != user.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, user.ID)
	}
	if session.Role != model.RoleVolunteer {
		t.Errorf("session.Role = %q, want %q", session.Role, model.RoleVolunteer)
	}
}

// TestService_Register_DuplicateEmail は登録済みメールアドレスでの登録拒否を検証する。
func TestService_Register_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "maria@example.com",
		Name:     "Maria Lopez",
		Password: "s3cret-pass",
	})
	if err == nil {
		t.Fatal("Register() error = nil, want duplicate email error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeDuplicateEmail)
	}
	if apiErr != nil && !strings.Contains(apiErr.Message, "maria@example.com") {
		t.Errorf("Message = %q, want it to contain the email", apiErr.Message)
	}
}

// TestService_Register_Validation は不正な登録入力の拒否を検証する。
func TestService_Register_Validation(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{
			name:  "メールアドレスが不正",
			input: RegisterInput{Email: "not-an-email", Name: "Maria", Password: "s3cret-pass"},
		},
		{
			name:  "名前が短すぎる",
			input: RegisterInput{Email: "maria@example.com", Name: "M", Password: "s3cret-pass"},
		},
		{
			name:  "パスワードが短すぎる",
			input: RegisterInput{Email: "maria@example.com", Name: "Maria", Password: "short"},
		},
		{
			name:  "全フィールド空",
			input: RegisterInput{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tt.input)
			if err == nil {
				t.Fatal("Register() error = nil, want validation error")
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("error = %v, want code %s", err, model.ErrCodeValidation)
			}
		})
	}
}

// TestService_Login はログイン成功時にセッションが発行されることを検証する。
func TestService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}

	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: string(hash),
				Role:         model.RoleAdmin,
			}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	user, session, err := svc.Login(context.Background(), LoginInput{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if session.Role != model.RoleAdmin {
		t.Errorf("session.Role = %q, want %q", session.Role, model.RoleAdmin)
	}
	if session.ID == "" {
		t.Error("session.ID is empty")
	}
}

// TestService_Login_InvalidCredentials はユーザー不在とパスワード不一致が
// 同一のエラーコードになることを検証する。
func TestService_Login_InvalidCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.MinCost)

	tests := []struct {
		name     string
		userRepo *mockUserRepo
		password string
	}{
		{
			name:     "ユーザーが存在しない",
			userRepo: &mockUserRepo{},
			password: "whatever-pass",
		},
		{
			name: "パスワードが一致しない",
			userRepo: &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return &model.User{ID: "user-1", Email: email, PasswordHash: string(hash)}, nil
				},
			},
			password: "wrong-pass",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.userRepo, &mockSessionRepo{})

			_, _, err := svc.Login(context.Background(), LoginInput{
				Email:    "maria@example.com",
				Password: tt.password,
			})
			if err == nil {
				t.Fatal("Login() error = nil, want invalid credentials error")
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidCredentials)
			}
		})
	}
}

// TestService_Logout はセッション破棄を検証する。
func TestService_Logout(t *testing.T) {
	var deletedID string
	sessionRepo := &mockSessionRepo{
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session = %q, want %q", deletedID, "session-1")
	}
}

// TestService_GetCurrentUser はセッションからのユーザー解決を検証する。
func TestService_GetCurrentUser(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-1",
				Role:      model.RoleVolunteer,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "maria@example.com", Name: "Maria"}, nil
		},
	}
	svc := newTestService(userRepo, sessionRepo)

	user, err := svc.GetCurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
}

// TestService_GetCurrentUser_ExpiredSession は期限切れセッションでUNAUTHORIZEDになることを検証する。
func TestService_GetCurrentUser_ExpiredSession(t *testing.T) {
	// 期限切れセッションはリポジトリ層でnilとして返る
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	_, err := svc.GetCurrentUser(context.Background(), "stale-session")
	if err == nil {
		t.Fatal("GetCurrentUser() error = nil, want unauthorized error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeUnauthorized)
	}
}

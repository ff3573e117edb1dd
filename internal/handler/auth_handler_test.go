package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/volunthub/internal/auth"
	"github.com/hitoshi/volunthub/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, input auth.RegisterInput) (*model.User, *model.Session, error)
	loginFn          func(ctx context.Context, input auth.LoginInput) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*model.User, *model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, input auth.LoginInput) (*model.User, *model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func testUser() *model.User {
	return &model.User{
		ID:    "user-123",
		Email: "hanako@example.com",
		Name:  "山田花子",
		Role:  model.RoleVolunteer,
	}
}

func testSession() *model.Session {
	return &model.Session{
		ID:        "session-123",
		UserID:    "user-123",
		Role:      model.RoleVolunteer,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

// --- テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, *model.Session, error) {
			if input.Email != "hanako@example.com" {
				t.Errorf("email = %q, want %q", input.Email, "hanako@example.com")
			}
			return testUser(), testSession(), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"hanako@example.com","name":"山田花子","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value == "session-123" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}

	if !containsStr(w.Body.String(), `"email":"hanako@example.com"`) {
		t.Errorf("body = %s, want it to contain the registered email", w.Body.String())
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, *model.Session, error) {
			return nil, nil, model.NewDuplicateEmailError(input.Email)
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"hanako@example.com","name":"山田花子","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != "DUPLICATE_EMAIL" {
		t.Errorf("code = %q, want %q", result["code"], "DUPLICATE_EMAIL")
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{SessionMaxAge: 86400})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, input auth.LoginInput) (*model.User, *model.Session, error) {
			return testUser(), testSession(), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"hanako@example.com","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if len(resp.Cookies()) == 0 {
		t.Error("expected session cookie to be set")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, input auth.LoginInput) (*model.User, *model.Session, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := `{"email":"hanako@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-123"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if loggedOut != "session-123" {
		t.Errorf("logged out session = %q, want %q", loggedOut, "session-123")
	}

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "session-123" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-123")
			}
			return testUser(), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-123"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"name":"山田花子"`) {
		t.Errorf("body = %s, want it to contain the user name", w.Body.String())
	}
}

func TestAuthHandler_Me_NoCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{SessionMaxAge: 86400})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// containsStr は文字列sにsubstrが含まれるかチェックするヘルパー。
func containsStr(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

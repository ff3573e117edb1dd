package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/profile"
)

// --- テストヘルパー ---

// withUser はテスト用にリクエストコンテキストにユーザーIDとロールを注入するヘルパー。
func withUser(r *http.Request, userID string, role model.Role) *http.Request {
	ctx := middleware.ContextWithUser(r.Context(), userID, role)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- モック定義 ---

type mockProfileService struct {
	getProfileFn    func(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error)
	upsertProfileFn func(ctx context.Context, volunteerID string, input profile.UpsertInput) (*model.VolunteerProfile, error)
	deleteProfileFn func(ctx context.Context, volunteerID string) error
	listProfilesFn  func(ctx context.Context) ([]*model.VolunteerProfile, error)
}

func (m *mockProfileService) GetProfile(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, volunteerID)
	}
	return nil, nil
}

func (m *mockProfileService) UpsertProfile(ctx context.Context, volunteerID string, input profile.UpsertInput) (*model.VolunteerProfile, error) {
	if m.upsertProfileFn != nil {
		return m.upsertProfileFn(ctx, volunteerID, input)
	}
	return nil, nil
}

func (m *mockProfileService) DeleteProfile(ctx context.Context, volunteerID string) error {
	if m.deleteProfileFn != nil {
		return m.deleteProfileFn(ctx, volunteerID)
	}
	return nil
}

func (m *mockProfileService) ListProfiles(ctx context.Context) ([]*model.VolunteerProfile, error) {
	if m.listProfilesFn != nil {
		return m.listProfilesFn(ctx)
	}
	return nil, nil
}

func testProfile() *model.VolunteerProfile {
	return &model.VolunteerProfile{
		VolunteerID: "user-123",
		Address: model.Address{
			Address1:  "1-2-3 Harbor St",
			City:      "Portland",
			StateCode: "OR",
			ZipCode:   "97201",
		},
		Skills:      []string{"First Aid", "Cooking"},
		Preferences: "週末のみ参加可能",
		Availability: []model.AvailabilitySlot{
			{Date: "2026-09-07", TimeOfDay: "09:00"},
		},
	}
}

// --- GET /api/profile テスト ---

func TestProfileHandler_GetProfile_Success(t *testing.T) {
	svc := &mockProfileService{
		getProfileFn: func(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error) {
			if volunteerID != "user-123" {
				t.Errorf("volunteerID = %q, want %q", volunteerID, "user-123")
			}
			return testProfile(), nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/profile", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"state_code":"OR"`) {
		t.Errorf("body = %s, want it to contain the address state code", w.Body.String())
	}
}

func TestProfileHandler_GetProfile_NotFound(t *testing.T) {
	svc := &mockProfileService{
		getProfileFn: func(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error) {
			return nil, model.NewProfileNotFoundError(volunteerID)
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/profile", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != "PROFILE_NOT_FOUND" {
		t.Errorf("code = %q, want %q", result["code"], "PROFILE_NOT_FOUND")
	}
}

func TestProfileHandler_GetProfile_NoAuth(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- PUT /api/profile テスト ---

func TestProfileHandler_UpsertProfile_Success(t *testing.T) {
	var gotInput profile.UpsertInput
	svc := &mockProfileService{
		upsertProfileFn: func(ctx context.Context, volunteerID string, input profile.UpsertInput) (*model.VolunteerProfile, error) {
			gotInput = input
			return testProfile(), nil
		},
	}
	h := NewProfileHandler(svc)

	body := `{
		"address": {"address1": "1-2-3 Harbor St", "city": "Portland", "state_code": "OR", "zip_code": "97201"},
		"skills": ["First Aid", "Cooking"],
		"preferences": "週末のみ参加可能",
		"availability": [{"date": "2026-09-07", "time_of_day": "09:00"}]
	}`
	req := withUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body)), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.UpsertProfile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(gotInput.Skills) != 2 || gotInput.Skills[0] != "First Aid" {
		t.Errorf("skills = %v, want [First Aid Cooking]", gotInput.Skills)
	}
	if gotInput.Address.StateCode != "OR" {
		t.Errorf("state code = %q, want %q", gotInput.Address.StateCode, "OR")
	}
	if len(gotInput.Availability) != 1 || gotInput.Availability[0].Date != "2026-09-07" {
		t.Errorf("availability = %v, want one slot on 2026-09-07", gotInput.Availability)
	}
}

func TestProfileHandler_UpsertProfile_ValidationError(t *testing.T) {
	svc := &mockProfileService{
		upsertProfileFn: func(ctx context.Context, volunteerID string, input profile.UpsertInput) (*model.VolunteerProfile, error) {
			return nil, model.NewValidationError("スキルは1件以上指定してください")
		},
	}
	h := NewProfileHandler(svc)

	body := `{"address": {"address1": "x", "city": "y", "state_code": "OR", "zip_code": "97201"}, "skills": [], "availability": []}`
	req := withUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(body)), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.UpsertProfile(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want %q", result["code"], "VALIDATION_ERROR")
	}
}

func TestProfileHandler_UpsertProfile_InvalidBody(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := withUser(httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader("{invalid")), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.UpsertProfile(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- DELETE /api/profile テスト ---

func TestProfileHandler_DeleteProfile_Success(t *testing.T) {
	var deleted string
	svc := &mockProfileService{
		deleteProfileFn: func(ctx context.Context, volunteerID string) error {
			deleted = volunteerID
			return nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/profile", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.DeleteProfile(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != "user-123" {
		t.Errorf("deleted = %q, want %q", deleted, "user-123")
	}
}

func TestProfileHandler_DeleteProfile_NotFound(t *testing.T) {
	svc := &mockProfileService{
		deleteProfileFn: func(ctx context.Context, volunteerID string) error {
			return model.NewProfileNotFoundError(volunteerID)
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/profile", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.DeleteProfile(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestProfileHandler_ListProfiles_Success はプロフィール一覧を返すことをテストする。
func TestProfileHandler_ListProfiles_Success(t *testing.T) {
	svc := &mockProfileService{
		listProfilesFn: func(ctx context.Context) ([]*model.VolunteerProfile, error) {
			return []*model.VolunteerProfile{testProfile()}, nil
		},
	}
	h := NewProfileHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/profiles", nil), "admin-456", model.RoleAdmin)
	w := httptest.NewRecorder()

	h.ListProfiles(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"volunteer_id":"user-123"`) {
		t.Errorf("body = %s, want volunteer_id", w.Body.String())
	}
}

// TestProfileHandler_ListProfiles_Empty はプロフィールが1件もない場合に空配列を返すことをテストする。
func TestProfileHandler_ListProfiles_Empty(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/profiles", nil), "admin-456", model.RoleAdmin)
	w := httptest.NewRecorder()

	h.ListProfiles(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

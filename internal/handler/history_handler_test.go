package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/volunthub/internal/history"
	"github.com/hitoshi/volunthub/internal/model"
)

// --- モック定義 ---

type mockHistoryService struct {
	listHistoryFn     func(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error)
	computeStatsFn    func(ctx context.Context, volunteerID string) (*model.VolunteerStats, error)
	volunteerReportFn func(ctx context.Context) ([]history.VolunteerReportRow, error)
	eventReportFn     func(ctx context.Context) ([]history.EventReportRow, error)
}

func (m *mockHistoryService) ListHistory(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
	if m.listHistoryFn != nil {
		return m.listHistoryFn(ctx, volunteerID)
	}
	return nil, nil
}

func (m *mockHistoryService) ComputeStats(ctx context.Context, volunteerID string) (*model.VolunteerStats, error) {
	if m.computeStatsFn != nil {
		return m.computeStatsFn(ctx, volunteerID)
	}
	return nil, nil
}

func (m *mockHistoryService) VolunteerReport(ctx context.Context) ([]history.VolunteerReportRow, error) {
	if m.volunteerReportFn != nil {
		return m.volunteerReportFn(ctx)
	}
	return nil, nil
}

func (m *mockHistoryService) EventReport(ctx context.Context) ([]history.EventReportRow, error) {
	if m.eventReportFn != nil {
		return m.eventReportFn(ctx)
	}
	return nil, nil
}

// --- GET /api/history テスト ---

func TestHistoryHandler_ListHistory_Success(t *testing.T) {
	svc := &mockHistoryService{
		listHistoryFn: func(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
			if volunteerID != "user-123" {
				t.Errorf("volunteerID = %q, want %q", volunteerID, "user-123")
			}
			return []model.HistoryEntry{
				{
					Record:        *testRecord(model.ParticipationCompleted),
					EventName:     "海岸清掃ボランティア",
					EventDate:     "2026-09-07",
					EventTime:     "09:00〜12:00",
					EventLocation: "湘南海岸",
				},
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.ListHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"event_name":"海岸清掃ボランティア"`) {
		t.Errorf("body = %s, want event name", w.Body.String())
	}
}

func TestHistoryHandler_ListHistory_DeletedEvent(t *testing.T) {
	svc := &mockHistoryService{
		listHistoryFn: func(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
			return []model.HistoryEntry{
				{
					Record:       *testRecord(model.ParticipationCancelled),
					EventName:    "削除されたイベント",
					EventDeleted: true,
				},
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.ListHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"event_deleted":true`) {
		t.Errorf("body = %s, want event_deleted flag", w.Body.String())
	}
}

func TestHistoryHandler_ListHistory_Empty(t *testing.T) {
	h := NewHistoryHandler(&mockHistoryService{})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.ListHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %s, want empty JSON array", w.Body.String())
	}
}

// --- GET /api/stats テスト ---

func TestHistoryHandler_GetStats_Success(t *testing.T) {
	svc := &mockHistoryService{
		computeStatsFn: func(ctx context.Context, volunteerID string) (*model.VolunteerStats, error) {
			return &model.VolunteerStats{
				VolunteerID:    volunteerID,
				TotalEvents:    4,
				Completed:      3,
				Pending:        1,
				CompletionRate: 75.0,
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/stats", nil), "user-123", model.RoleVolunteer)
	w := httptest.NewRecorder()

	h.GetStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"completion_rate":75`) {
		t.Errorf("body = %s, want completion rate", w.Body.String())
	}
}

func TestHistoryHandler_GetStats_NoAuth(t *testing.T) {
	h := NewHistoryHandler(&mockHistoryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	h.GetStats(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /api/reports/volunteers テスト ---

func TestHistoryHandler_VolunteerReport_Success(t *testing.T) {
	svc := &mockHistoryService{
		volunteerReportFn: func(ctx context.Context) ([]history.VolunteerReportRow, error) {
			return []history.VolunteerReportRow{
				{
					VolunteerID: "user-123",
					Name:        "山田花子",
					Email:       "hanako@example.com",
					Stats: model.VolunteerStats{
						VolunteerID: "user-123",
						TotalEvents: 2,
						Completed:   2,
					},
				},
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/volunteers", nil)
	w := httptest.NewRecorder()

	h.VolunteerReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"email":"hanako@example.com"`) {
		t.Errorf("body = %s, want volunteer email", w.Body.String())
	}
	if !containsStr(w.Body.String(), `"total_events":2`) {
		t.Errorf("body = %s, want stats", w.Body.String())
	}
}

// --- GET /api/reports/events テスト ---

func TestHistoryHandler_EventReport_Success(t *testing.T) {
	svc := &mockHistoryService{
		eventReportFn: func(ctx context.Context) ([]history.EventReportRow, error) {
			return []history.EventReportRow{
				{
					Event:          testEvent(),
					Pending:        5,
					Completed:      2,
					SlotsRemaining: 15,
				},
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/events", nil)
	w := httptest.NewRecorder()

	h.EventReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"slots_remaining":15`) {
		t.Errorf("body = %s, want slots remaining", w.Body.String())
	}
}

// TestHistoryHandler_GetVolunteerHistory_Self は本人が自分の履歴を取得できることをテストする。
func TestHistoryHandler_GetVolunteerHistory_Self(t *testing.T) {
	svc := &mockHistoryService{
		listHistoryFn: func(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
			if volunteerID != "user-123" {
				t.Errorf("volunteerID = %q, want %q", volunteerID, "user-123")
			}
			return []model.HistoryEntry{
				{
					Record:    *testRecord(model.ParticipationPending),
					EventName: "炊き出し支援",
					EventDate: "2026-09-14",
				},
			}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history/user-123", nil), "user-123", model.RoleVolunteer)
	req = withChiURLParam(req, "volunteerID", "user-123")
	w := httptest.NewRecorder()

	h.GetVolunteerHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !containsStr(w.Body.String(), `"event_name":"炊き出し支援"`) {
		t.Errorf("body = %s, want event name", w.Body.String())
	}
}

// TestHistoryHandler_GetVolunteerHistory_AdminViewsOther は管理者が他人の履歴を取得できることをテストする。
func TestHistoryHandler_GetVolunteerHistory_AdminViewsOther(t *testing.T) {
	svc := &mockHistoryService{
		listHistoryFn: func(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error) {
			if volunteerID != "user-123" {
				t.Errorf("volunteerID = %q, want %q", volunteerID, "user-123")
			}
			return []model.HistoryEntry{}, nil
		},
	}
	h := NewHistoryHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history/user-123", nil), "admin-456", model.RoleAdmin)
	req = withChiURLParam(req, "volunteerID", "user-123")
	w := httptest.NewRecorder()

	h.GetVolunteerHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestHistoryHandler_GetVolunteerHistory_OtherVolunteerForbidden は
// 一般ボランティアが他人の履歴を取得できないことをテストする。
func TestHistoryHandler_GetVolunteerHistory_OtherVolunteerForbidden(t *testing.T) {
	h := NewHistoryHandler(&mockHistoryService{})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/history/user-999", nil), "user-123", model.RoleVolunteer)
	req = withChiURLParam(req, "volunteerID", "user-999")
	w := httptest.NewRecorder()

	h.GetVolunteerHistory(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != "FORBIDDEN" {
		t.Errorf("code = %q, want %q", resp["code"], "FORBIDDEN")
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/history"
	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/model"
)

// HistoryServiceInterface は履歴ハンドラーが必要とするサービスインターフェース。
type HistoryServiceInterface interface {
	ListHistory(ctx context.Context, volunteerID string) ([]model.HistoryEntry, error)
	ComputeStats(ctx context.Context, volunteerID string) (*model.VolunteerStats, error)
	VolunteerReport(ctx context.Context) ([]history.VolunteerReportRow, error)
	EventReport(ctx context.Context) ([]history.EventReportRow, error)
}

// HistoryHandler は参加履歴・統計・管理者レポートのHTTPハンドラー。
type HistoryHandler struct {
	service HistoryServiceInterface
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(service HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// historyEntryResponse は履歴エントリのAPIレスポンス。
type historyEntryResponse struct {
	Record        participationResponse `json:"record"`
	EventName     string                `json:"event_name"`
	EventDate     string                `json:"event_date"`
	EventTime     string                `json:"event_time"`
	EventLocation string                `json:"event_location"`
	EventDeleted  bool                  `json:"event_deleted"`
}

// statsResponse は参加統計のAPIレスポンス。
type statsResponse struct {
	VolunteerID    string  `json:"volunteer_id"`
	TotalEvents    int     `json:"total_events"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	Cancelled      int     `json:"cancelled"`
	NoShow         int     `json:"no_show"`
	CompletionRate float64 `json:"completion_rate"`
}

// volunteerReportRowResponse はボランティア別レポート行のAPIレスポンス。
type volunteerReportRowResponse struct {
	VolunteerID string        `json:"volunteer_id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Stats       statsResponse `json:"stats"`
}

// eventReportRowResponse はイベント別レポート行のAPIレスポンス。
type eventReportRowResponse struct {
	Event          eventResponse `json:"event"`
	Pending        int           `json:"pending"`
	Completed      int           `json:"completed"`
	Cancelled      int           `json:"cancelled"`
	NoShow         int           `json:"no_show"`
	SlotsRemaining int           `json:"slots_remaining"`
}

// ListHistory は自分の参加履歴を返す。削除済みイベントの記録も含まれる。
// GET /api/history
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entries, err := h.service.ListHistory(r.Context(), volunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, historyEntryResponse{
			Record:        toParticipationResponse(&e.Record),
			EventName:     e.EventName,
			EventDate:     e.EventDate,
			EventTime:     e.EventTime,
			EventLocation: e.EventLocation,
			EventDeleted:  e.EventDeleted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetVolunteerHistory は指定ボランティアの参加履歴を返す。
// 本人または管理者のみが参照できる。
// GET /api/history/{volunteerID}
func (h *HistoryHandler) GetVolunteerHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	volunteerID := chi.URLParam(r, "volunteerID")
	if volunteerID != userID {
		role, err := middleware.RoleFromContext(r.Context())
		if err != nil || role != model.RoleAdmin {
			handleServiceError(w, model.NewForbiddenError())
			return
		}
	}

	entries, err := h.service.ListHistory(r.Context(), volunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, historyEntryResponse{
			Record:        toParticipationResponse(&e.Record),
			EventName:     e.EventName,
			EventDate:     e.EventDate,
			EventTime:     e.EventTime,
			EventLocation: e.EventLocation,
			EventDeleted:  e.EventDeleted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStats は自分の参加統計を返す。
// GET /api/stats
func (h *HistoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stats, err := h.service.ComputeStats(r.Context(), volunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// VolunteerReport はボランティア別の参加レポートを返す。管理者専用。
// GET /api/reports/volunteers
func (h *HistoryHandler) VolunteerReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.VolunteerReport(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]volunteerReportRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, volunteerReportRowResponse{
			VolunteerID: row.VolunteerID,
			Name:        row.Name,
			Email:       row.Email,
			Stats:       toStatsResponse(&row.Stats),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// EventReport はイベント別の参加状況レポートを返す。管理者専用。
// GET /api/reports/events
func (h *HistoryHandler) EventReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.EventReport(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]eventReportRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, eventReportRowResponse{
			Event:          toEventResponse(row.Event),
			Pending:        row.Pending,
			Completed:      row.Completed,
			Cancelled:      row.Cancelled,
			NoShow:         row.NoShow,
			SlotsRemaining: row.SlotsRemaining,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// toStatsResponse はmodel.VolunteerStatsからAPIレスポンスに変換する。
func toStatsResponse(stats *model.VolunteerStats) statsResponse {
	return statsResponse{
		VolunteerID:    stats.VolunteerID,
		TotalEvents:    stats.TotalEvents,
		Completed:      stats.Completed,
		Pending:        stats.Pending,
		Cancelled:      stats.Cancelled,
		NoShow:         stats.NoShow,
		CompletionRate: stats.CompletionRate,
	}
}

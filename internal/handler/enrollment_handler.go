package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/model"
)

// EnrollmentServiceInterface は参加登録ハンドラーが必要とするサービスインターフェース。
type EnrollmentServiceInterface interface {
	Join(ctx context.Context, volunteerID, eventID string) (*model.ParticipationRecord, error)
	Unjoin(ctx context.Context, volunteerID, eventID string) error
	SetStatus(ctx context.Context, eventID, volunteerID string, status model.ParticipationStatus, rating *int) (*model.ParticipationRecord, error)
	ListParticipants(ctx context.Context, eventID string) ([]*model.ParticipationRecord, error)
}

// EnrollmentHandler は参加登録のHTTPハンドラー。
type EnrollmentHandler struct {
	service EnrollmentServiceInterface
}

// NewEnrollmentHandler はEnrollmentHandlerを生成する。
func NewEnrollmentHandler(service EnrollmentServiceInterface) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// participationResponse は参加記録のAPIレスポンス。
type participationResponse struct {
	ID          string    `json:"id"`
	VolunteerID string    `json:"volunteer_id"`
	EventID     string    `json:"event_id"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
	SkillsUsed  []string  `json:"skills_used"`
	Rating      *int      `json:"rating,omitempty"`
}

// setStatusRequest は参加記録の状態変更リクエストのボディ。
type setStatusRequest struct {
	Status string `json:"status"`
	Rating *int   `json:"rating,omitempty"`
}

// Join はイベントへの参加登録を処理する。
// POST /api/events/:id/join
func (h *EnrollmentHandler) Join(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	eventID := chi.URLParam(r, "id")

	record, err := h.service.Join(r.Context(), volunteerID, eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toParticipationResponse(record))
}

// Unjoin は参加前の取消を処理する。pending状態の記録のみ取消できる。
// DELETE /api/events/:id/join
func (h *EnrollmentHandler) Unjoin(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	eventID := chi.URLParam(r, "id")

	if err := h.service.Unjoin(r.Context(), volunteerID, eventID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListParticipants はイベントの参加者一覧を返す。管理者専用。
// GET /api/events/:id/participants
func (h *EnrollmentHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	records, err := h.service.ListParticipants(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]participationResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toParticipationResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetParticipantStatus は参加記録の状態を変更する。管理者専用。
// PATCH /api/events/:id/participants/:volunteerID
func (h *EnrollmentHandler) SetParticipantStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	volunteerID := chi.URLParam(r, "volunteerID")

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	record, err := h.service.SetStatus(r.Context(), eventID, volunteerID, model.ParticipationStatus(req.Status), req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toParticipationResponse(record))
}

// toParticipationResponse はmodel.ParticipationRecordからAPIレスポンスに変換する。
func toParticipationResponse(rec *model.ParticipationRecord) participationResponse {
	skills := rec.SkillsUsed
	if skills == nil {
		skills = []string{}
	}
	return participationResponse{
		ID:          rec.ID,
		VolunteerID: rec.VolunteerID,
		EventID:     rec.EventID,
		Status:      string(rec.Status),
		JoinedAt:    rec.JoinedAt,
		SkillsUsed:  skills,
		Rating:      rec.Rating,
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/event"
	"github.com/hitoshi/volunthub/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	CreateEvent(ctx context.Context, input event.Input) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, input event.Input) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventHandler はイベントカタログのHTTPハンドラー。
// 一覧・取得は全ユーザー、作成・更新・削除は管理者のみに公開される。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// eventRequest はイベント作成・更新リクエストのボディ。
type eventRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Location       string   `json:"location"`
	RequiredSkills []string `json:"required_skills"`
	Urgency        string   `json:"urgency"`
	EventDate      string   `json:"event_date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Capacity       int      `json:"capacity"`
	Status         string   `json:"status,omitempty"`
}

// eventResponse はイベントのAPIレスポンス。
type eventResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Location       string    `json:"location"`
	RequiredSkills []string  `json:"required_skills"`
	Urgency        string    `json:"urgency"`
	EventDate      string    `json:"event_date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Capacity       int       `json:"capacity"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListEvents はイベント一覧を返す。
// GET /api/events?search=&category=&status=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := model.EventFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Status:   model.EventStatus(r.URL.Query().Get("status")),
	}

	events, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetEvent はイベント詳細を返す。
// GET /api/events/:id
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// CreateEvent は新規イベントを作成する。管理者専用。
// POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	e, err := h.service.CreateEvent(r.Context(), toEventInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// UpdateEvent はイベントを更新する。管理者専用。
// PUT /api/events/:id
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	e, err := h.service.UpdateEvent(r.Context(), id, toEventInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// DeleteEvent はイベントを削除する。参加記録は履歴として残る。管理者専用。
// DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toEventInput はリクエストボディからサービス入力に変換する。
func toEventInput(req eventRequest) event.Input {
	return event.Input{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Location:       req.Location,
		RequiredSkills: req.RequiredSkills,
		Urgency:        req.Urgency,
		EventDate:      req.EventDate,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Capacity:       req.Capacity,
		Status:         req.Status,
	}
}

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(e *model.Event) eventResponse {
	skills := e.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	return eventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		Location:       e.Location,
		RequiredSkills: skills,
		Urgency:        string(e.Urgency),
		EventDate:      e.EventDate,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Capacity:       e.Capacity,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt,
	}
}

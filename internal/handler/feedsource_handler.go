package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/worker/feedimport"
)

// FeedSourceServiceInterface はフィード取込元ハンドラーが必要とするサービスインターフェース。
type FeedSourceServiceInterface interface {
	RegisterSource(ctx context.Context, input feedimport.SourceInput) (*model.FeedSource, error)
	ListSources(ctx context.Context) ([]*model.FeedSource, error)
	RemoveSource(ctx context.Context, id string) error
}

// FeedSourceHandler はフィード取込元の管理者向けHTTPハンドラー。
type FeedSourceHandler struct {
	service FeedSourceServiceInterface
}

// NewFeedSourceHandler はFeedSourceHandlerを生成する。
func NewFeedSourceHandler(service FeedSourceServiceInterface) *FeedSourceHandler {
	return &FeedSourceHandler{service: service}
}

type registerFeedSourceRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type feedSourceResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toFeedSourceResponse(src *model.FeedSource) feedSourceResponse {
	return feedSourceResponse{
		ID:            src.ID,
		Name:          src.Name,
		URL:           src.URL,
		LastFetchedAt: src.LastFetchedAt,
		LastError:     src.LastError,
		CreatedAt:     src.CreatedAt,
	}
}

// RegisterSource はフィード取込元を登録する。
// POST /api/admin/feed-sources
func (h *FeedSourceHandler) RegisterSource(w http.ResponseWriter, r *http.Request) {
	var req registerFeedSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	src, err := h.service.RegisterSource(r.Context(), feedimport.SourceInput{
		Name: req.Name,
		URL:  req.URL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeedSourceResponse(src))
}

// ListSources はフィード取込元の一覧を返す。
// GET /api/admin/feed-sources
func (h *FeedSourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.ListSources(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]feedSourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, toFeedSourceResponse(src))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveSource はフィード取込元を削除する。
// DELETE /api/admin/feed-sources/:id
func (h *FeedSourceHandler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RemoveSource(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

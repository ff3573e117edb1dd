package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/volunthub/internal/matching"
	"github.com/hitoshi/volunthub/internal/middleware"
)

// MatchingServiceInterface はマッチングハンドラーが必要とするサービスインターフェース。
type MatchingServiceInterface interface {
	Matches(ctx context.Context, volunteerID string, mode matching.Mode) ([]matching.Match, error)
}

// MatchingHandler はイベント推薦のHTTPハンドラー。
type MatchingHandler struct {
	service MatchingServiceInterface
}

// NewMatchingHandler はMatchingHandlerを生成する。
func NewMatchingHandler(service MatchingServiceInterface) *MatchingHandler {
	return &MatchingHandler{service: service}
}

// matchResponse はマッチ結果のAPIレスポンス。
type matchResponse struct {
	Event         eventResponse `json:"event"`
	MatchedSkills []string      `json:"matched_skills"`
	Because       string        `json:"because"`
}

// ListMatches は自分に合うイベントのマッチ一覧を返す。
// GET /api/matches?mode=strict|recommended
func (h *MatchingHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	mode, err := matching.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	matches, err := h.service.Matches(r.Context(), volunteerID, mode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		skills := m.MatchedSkills
		if skills == nil {
			skills = []string{}
		}
		resp = append(resp, matchResponse{
			Event:         toEventResponse(m.Event),
			MatchedSkills: skills,
			Because:       m.Because,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error)
	UpsertProfile(ctx context.Context, volunteerID string, input profile.UpsertInput) (*model.VolunteerProfile, error)
	DeleteProfile(ctx context.Context, volunteerID string) error
	ListProfiles(ctx context.Context) ([]*model.VolunteerProfile, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
// プロフィールは所有者本人のみが参照・変更できる。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// addressPayload は住所のリクエスト/レスポンス形式。
type addressPayload struct {
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	StateCode string `json:"state_code"`
	ZipCode   string `json:"zip_code"`
}

// availabilityPayload は参加可能日時スロットのリクエスト/レスポンス形式。
type availabilityPayload struct {
	Date      string `json:"date"`
	TimeOfDay string `json:"time_of_day"`
}

// upsertProfileRequest はプロフィール作成・更新リクエストのボディ。
type upsertProfileRequest struct {
	Address      addressPayload        `json:"address"`
	Skills       []string              `json:"skills"`
	Preferences  string                `json:"preferences"`
	Availability []availabilityPayload `json:"availability"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	VolunteerID  string                `json:"volunteer_id"`
	Address      addressPayload        `json:"address"`
	Skills       []string              `json:"skills"`
	Preferences  string                `json:"preferences,omitempty"`
	Availability []availabilityPayload `json:"availability"`
}

// GetProfile は自分のプロフィールを取得する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	prof, err := h.service.GetProfile(r.Context(), volunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(prof))
}

// UpsertProfile は自分のプロフィールを作成または更新する。
// PUT /api/profile
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req upsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	input := profile.UpsertInput{
		Address: profile.AddressInput{
			Address1:  req.Address.Address1,
			Address2:  req.Address.Address2,
			City:      req.Address.City,
			StateCode: req.Address.StateCode,
			ZipCode:   req.Address.ZipCode,
		},
		Skills:      req.Skills,
		Preferences: req.Preferences,
	}
	for _, slot := range req.Availability {
		input.Availability = append(input.Availability, profile.AvailabilityInput{
			Date:      slot.Date,
			TimeOfDay: slot.TimeOfDay,
		})
	}

	prof, err := h.service.UpsertProfile(r.Context(), volunteerID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(prof))
}

// DeleteProfile は自分のプロフィールを削除する。
// DELETE /api/profile
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteProfile(r.Context(), volunteerID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListProfiles は全ボランティアのプロフィール一覧を返す。管理者専用。
// GET /api/profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]profileResponse, 0, len(profiles))
	for _, prof := range profiles {
		resp = append(resp, toProfileResponse(prof))
	}
	writeJSON(w, http.StatusOK, resp)
}

// toProfileResponse はmodel.VolunteerProfileからAPIレスポンスに変換する。
func toProfileResponse(prof *model.VolunteerProfile) profileResponse {
	resp := profileResponse{
		VolunteerID: prof.VolunteerID,
		Address: addressPayload{
			Address1:  prof.Address.Address1,
			Address2:  prof.Address.Address2,
			City:      prof.Address.City,
			StateCode: prof.Address.StateCode,
			ZipCode:   prof.Address.ZipCode,
		},
		Skills:      prof.Skills,
		Preferences: prof.Preferences,
	}
	for _, slot := range prof.Availability {
		resp.Availability = append(resp.Availability, availabilityPayload{
			Date:      slot.Date,
			TimeOfDay: slot.TimeOfDay,
		})
	}
	return resp
}

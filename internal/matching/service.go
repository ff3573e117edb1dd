// Package matching はボランティアとイベントのマッチングエンジンを提供する。
//
// マッチングは2つのモードを持つ:
//   - strict:      必要スキルと保有スキルに重なりがあり、かつ参加可能日時が
//     イベントの(開催日, 開始時刻)と完全一致する
//   - recommended: 必要スキルと保有スキルに重なりがある（日時は問わない）。
//     スキル不問のイベントは全ボランティアに推奨される
//
// strictの結果は常にrecommendedの部分集合になる。
// 判定はイベントごとに独立で、結果はカタログの並び順を保つ。
package matching

import (
	"context"
	"fmt"
	"iter"

	"github.com/hitoshi/volunthub/internal/model"
	"github.com/hitoshi/volunthub/internal/repository"
)

// Mode はマッチングの判定モード。
type Mode string

const (
	// ModeStrict はスキルと日時の両方が一致するイベントのみを返す。
	ModeStrict Mode = "strict"
	// ModeRecommended はスキルのみで判定し、日時を問わない。
	ModeRecommended Mode = "recommended"
)

// ParseMode はモード文字列を検証して返す。空文字列はstrictとして扱う。
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeStrict):
		return ModeStrict, nil
	case string(ModeRecommended):
		return ModeRecommended, nil
	default:
		return "", model.NewValidationError(fmt.Sprintf("マッチングモードはstrictまたはrecommendedを指定してください: %s", s))
	}
}

// マッチ判定根拠。
const (
	// BecauseTimeAndSkill はスキルの重なりと日時一致の両方を満たした（strict）。
	BecauseTimeAndSkill = "time-and-skill"
	// BecauseSkillOverlap はスキルの重なりのみで判定した（recommended）。
	BecauseSkillOverlap = "skill-overlap"
	// BecauseOpenToAll はスキル不問のイベント（recommendedのみ）。
	BecauseOpenToAll = "open-to-all"
)

// Match はマッチしたイベントと判定根拠を表す。
type Match struct {
	Event *model.Event
	// MatchedSkills は必要スキルのうちボランティアが保有するもの。
	MatchedSkills []string
	// Because は判定根拠を示すタグ。
	Because string
}

// Service はマッチングエンジンのサービス層。
// プロフィールとイベントカタログを読み取り専用で参照し、副作用を持たない。
type Service struct {
	profileRepo repository.ProfileRepository
	eventRepo   repository.EventRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	eventRepo repository.EventRepository,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		eventRepo:   eventRepo,
	}
}

// Matches は指定ボランティアにマッチする募集中イベントの一覧を返す。
// プロフィール未作成の場合はPROFILE_NOT_FOUNDを返す。
// 結果の並び順はイベントカタログの並び順（作成順）に従う。
func (s *Service) Matches(ctx context.Context, volunteerID string, mode Mode) ([]Match, error) {
	prof, err := s.profileRepo.FindByVolunteerID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if prof == nil {
		return nil, model.NewProfileNotFoundError(volunteerID)
	}

	events, err := s.eventRepo.List(ctx, model.EventFilter{Status: model.EventStatusOpen})
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}

	var matches []Match
	for m := range Seq(prof, events, mode) {
		matches = append(matches, m)
	}
	return matches, nil
}

// Seq はイベント列を遅延評価でマッチ判定するイテレータを返す。
// 返されたシーケンスは何度でも先頭から走査できる。判定に副作用はない。
func Seq(prof *model.VolunteerProfile, events []*model.Event, mode Mode) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, event := range events {
			m, ok := Evaluate(prof, event, mode)
			if !ok {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Evaluate は1イベントのマッチ判定を行う。判定はイベントごとに独立している。
//
// strictモード: 必要スキルとの重なりが1件以上あり、かつ参加可能日時に
// (開催日, 開始時刻)と完全一致するスロットがあること。
// スキル不問（必要スキルが空）のイベントは重なりが定義できないためstrictの対象外。
//
// recommendedモード: 必要スキルとの重なりが1件以上あること。日時は問わない。
// スキル不問のイベントは全ボランティアにマッチする。
func Evaluate(prof *model.VolunteerProfile, event *model.Event, mode Mode) (Match, bool) {
	if !event.IsJoinable() {
		return Match{}, false
	}

	var matched []string
	for _, skill := range event.RequiredSkills {
		if prof.HasSkill(skill) {
			matched = append(matched, skill)
		}
	}

	switch mode {
	case ModeStrict:
		if len(matched) == 0 {
			return Match{}, false
		}
		if !prof.IsAvailableAt(event.EventDate, event.StartTime) {
			return Match{}, false
		}
		return Match{
			Event:         event,
			MatchedSkills: matched,
			Because:       BecauseTimeAndSkill,
		}, true

	case ModeRecommended:
		if len(event.RequiredSkills) == 0 {
			return Match{
				Event:   event,
				Because: BecauseOpenToAll,
			}, true
		}
		if len(matched) == 0 {
			return Match{}, false
		}
		return Match{
			Event:         event,
			MatchedSkills: matched,
			Because:       BecauseSkillOverlap,
		}, true
	}

	return Match{}, false
}

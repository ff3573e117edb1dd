// Package model はドメインモデルを定義する。
package model

import "time"

// Address はボランティアの住所を表す。
// StateCodeは2文字の州コード、ZipCodeは5桁または5+4桁形式。
type Address struct {
	Address1  string
	Address2  string
	City      string
	StateCode string
	ZipCode   string
}

// AvailabilitySlot は参加可能な日時スロットを表す。
// DateとTimeOfDayはISO形式の文字列（"2006-01-02" / "15:04"）で保持し、
// マッチング判定は文字列の完全一致で行う。
type AvailabilitySlot struct {
	Date      string
	TimeOfDay string
}

// VolunteerProfile はボランティアのスキル・住所・参加可能日時を表す。
// 所有者本人のみが変更でき、マッチングエンジンは読み取り専用で参照する。
type VolunteerProfile struct {
	VolunteerID  string
	Address      Address
	Skills       []string
	Preferences  string
	Availability []AvailabilitySlot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSkill は指定スキルを保有しているかを返す。
func (p *VolunteerProfile) HasSkill(skill string) bool {
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// IsAvailableAt は指定の日付・時刻スロットが参加可能日時に含まれるかを返す。
func (p *VolunteerProfile) IsAvailableAt(date, timeOfDay string) bool {
	for _, slot := range p.Availability {
		if slot.Date == date && slot.TimeOfDay == timeOfDay {
			return true
		}
	}
	return false
}

// ValidSkills は選択可能なスキルの定義済みカタログ。
var ValidSkills = map[string]bool{
	"First Aid":         true,
	"Teaching":          true,
	"Cooking":           true,
	"Driving":           true,
	"Organizing":        true,
	"Technical Support": true,
	"Childcare":         true,
	"Elderly Care":      true,
	"Translation":       true,
	"Event Planning":    true,
	"Fundraising":       true,
	"Marketing":         true,
	"Photography":       true,
	"Videography":       true,
	"Music":             true,
	"Art":               true,
	"Sports":            true,
	"Tutoring":          true,
}

// ValidStateCodes は有効な2文字州コードの定義済み一覧。
var ValidStateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
	"DC": true,
}

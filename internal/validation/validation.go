// Package validation は入力値検証の共通基盤を提供する。
//
// go-playground/validatorをベースに、州コード・郵便番号・スキル名・
// 日付/時刻書式などドメイン固有のルールを登録済みのバリデータを構築する。
// 各サービスは入力構造体のvalidateタグでルールを宣言し、
// Check経由で検証エラーをAPIエラーに変換する。
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/volunthub/internal/model"
)

// zipCodePattern は米国郵便番号の書式（12345 または 12345-6789）。
var zipCodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// New はドメイン固有ルールを登録済みのバリデータを生成する。
// 登録されるカスタムルール:
//   - state_code: 2文字の州コード（DC含む）
//   - zip_code:   5桁またはZIP+4形式の郵便番号
//   - skill:      スキルカタログに存在するスキル名
//   - iso_date:   YYYY-MM-DD形式の日付
//   - clock_time: HH:MM形式の24時間時刻
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 登録失敗はルール名の重複など初期化バグのみなのでpanicさせる
	mustRegister(v, "state_code", func(fl validator.FieldLevel) bool {
		return model.ValidStateCodes[fl.Field().String()]
	})
	mustRegister(v, "zip_code", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "skill", func(fl validator.FieldLevel) bool {
		return model.ValidSkills[fl.Field().String()]
	})
	mustRegister(v, "iso_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	mustRegister(v, "clock_time", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: failed to register rule %s: %v", tag, err))
	}
}

// Check は構造体を検証し、違反があればAPIエラー（VALIDATION_ERROR）を返す。
// 違反のないときはnilを返す。検証基盤自体のエラーもAPIエラーに畳み込む。
func Check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return model.NewValidationError(fmt.Sprintf("入力値の検証に失敗しました: %v", err))
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return model.NewValidationError(strings.Join(messages, "、"))
}

// fieldMessage はフィールド単位の違反を利用者向けメッセージに変換する。
func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%sは%s文字以上で入力してください", field, fe.Param())
		}
		return fmt.Sprintf("%sは%s以上で指定してください", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%sは%s文字以内で入力してください", field, fe.Param())
		}
		return fmt.Sprintf("%sは%s以下で指定してください", field, fe.Param())
	case "email":
		return fmt.Sprintf("%sはメールアドレス形式で入力してください", field)
	case "oneof":
		return fmt.Sprintf("%sは次のいずれかを指定してください: %s", field, fe.Param())
	case "state_code":
		return fmt.Sprintf("%sは有効な州コードではありません", field)
	case "zip_code":
		return fmt.Sprintf("%sは郵便番号形式（12345または12345-6789）で入力してください", field)
	case "skill":
		return fmt.Sprintf("%sにカタログにないスキルが含まれています", field)
	case "iso_date":
		return fmt.Sprintf("%sはYYYY-MM-DD形式で入力してください", field)
	case "clock_time":
		return fmt.Sprintf("%sはHH:MM形式で入力してください", field)
	default:
		return fmt.Sprintf("%sが不正です（%s）", field, fe.Tag())
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/volunthub/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// skillsはTEXT[]、availabilityはJSONBとして保存する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// availabilityRow はavailabilityカラムのJSONB表現。
type availabilityRow struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func marshalAvailability(slots []model.AvailabilitySlot) ([]byte, error) {
	rows := make([]availabilityRow, len(slots))
	for i, s := range slots {
		rows[i] = availabilityRow{Date: s.Date, Time: s.TimeOfDay}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("参加可能日時のエンコードに失敗しました: %w", err)
	}
	return data, nil
}

func unmarshalAvailability(data []byte) ([]model.AvailabilitySlot, error) {
	var rows []availabilityRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("参加可能日時のデコードに失敗しました: %w", err)
	}
	slots := make([]model.AvailabilitySlot, len(rows))
	for i, r := range rows {
		slots[i] = model.AvailabilitySlot{Date: r.Date, TimeOfDay: r.Time}
	}
	return slots, nil
}

// FindByVolunteerID は指定ボランティアのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByVolunteerID(ctx context.Context, volunteerID string) (*model.VolunteerProfile, error) {
	profile := &model.VolunteerProfile{}
	var availData []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT volunteer_id, address1, address2, city, state_code, zip_code,
		        skills, preferences, availability, created_at, updated_at
		 FROM profiles WHERE volunteer_id = $1`,
		volunteerID,
	).Scan(
		&profile.VolunteerID,
		&profile.Address.Address1, &profile.Address.Address2,
		&profile.Address.City, &profile.Address.StateCode, &profile.Address.ZipCode,
		pq.Array(&profile.Skills), &profile.Preferences, &availData,
		&profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	profile.Availability, err = unmarshalAvailability(availData)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.VolunteerProfile) error {
	availData, err := marshalAvailability(profile.Availability)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (volunteer_id, address1, address2, city, state_code, zip_code,
		                       skills, preferences, availability, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		profile.VolunteerID,
		profile.Address.Address1, profile.Address.Address2,
		profile.Address.City, profile.Address.StateCode, profile.Address.ZipCode,
		pq.Array(profile.Skills), profile.Preferences, availData,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はプロフィールを上書き更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.VolunteerProfile) error {
	availData, err := marshalAvailability(profile.Availability)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET address1 = $2, address2 = $3, city = $4, state_code = $5, zip_code = $6,
		     skills = $7, preferences = $8, availability = $9, updated_at = NOW()
		 WHERE volunteer_id = $1`,
		profile.VolunteerID,
		profile.Address.Address1, profile.Address.Address2,
		profile.Address.City, profile.Address.StateCode, profile.Address.ZipCode,
		pq.Array(profile.Skills), profile.Preferences, availData,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("プロフィールが見つかりません: %s", profile.VolunteerID)
	}
	return nil
}

// Delete は指定ボランティアのプロフィールを削除する。
func (r *PostgresProfileRepo) Delete(ctx context.Context, volunteerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE volunteer_id = $1`,
		volunteerID,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("プロフィールが見つかりません: %s", volunteerID)
	}
	return nil
}

// ListAll は全プロフィールを登録順で返す。
func (r *PostgresProfileRepo) ListAll(ctx context.Context) ([]*model.VolunteerProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT volunteer_id, address1, address2, city, state_code, zip_code,
		        skills, preferences, availability, created_at, updated_at
		 FROM profiles ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var profiles []*model.VolunteerProfile
	for rows.Next() {
		profile := &model.VolunteerProfile{}
		var availData []byte
		if err := rows.Scan(
			&profile.VolunteerID,
			&profile.Address.Address1, &profile.Address.Address2,
			&profile.Address.City, &profile.Address.StateCode, &profile.Address.ZipCode,
			pq.Array(&profile.Skills), &profile.Preferences, &availData,
			&profile.CreatedAt, &profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("プロフィール行の読み取りに失敗しました: %w", err)
		}
		profile.Availability, err = unmarshalAvailability(availData)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロフィール一覧の走査に失敗しました: %w", err)
	}
	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)

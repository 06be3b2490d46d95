package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

// ProfileRepository persists student onboarding profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, contact_phone, emergency_contact_name, emergency_contact_phone, home_address, gender, birth_date, native_place, nation, political_status, photo_path, status, completion_rate, created_at, updated_at`

// FindByUserID loads the profile owned by a student user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE user_id = $1 LIMIT 1`, profileColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// CreateEmpty inserts the initial empty profile at first student login.
// Re-running for an existing student is a no-op.
func (r *ProfileRepository) CreateEmpty(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	const query = `INSERT INTO student_profiles (user_id, status, completion_rate, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, models.ProfileStatusIncomplete, now); err != nil {
		return fmt.Errorf("create empty profile: %w", err)
	}
	return nil
}

// Update writes the profile fields and completion rate.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET
		contact_phone = :contact_phone,
		emergency_contact_name = :emergency_contact_name,
		emergency_contact_phone = :emergency_contact_phone,
		home_address = :home_address,
		gender = :gender,
		birth_date = :birth_date,
		native_place = :native_place,
		nation = :nation,
		political_status = :political_status,
		photo_path = :photo_path,
		completion_rate = :completion_rate,
		updated_at = :updated_at
		WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateStatus transitions the profile status, re-checking the expected
// current status at write time. sql.ErrNoRows signals a lost race.
func (r *ProfileRepository) UpdateStatus(ctx context.Context, userID string, from []models.ProfileStatus, to models.ProfileStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("update profile status: empty precondition")
	}
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	const query = `UPDATE student_profiles SET status = $2, updated_at = $3 WHERE user_id = $1 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, userID, to, time.Now().UTC(), pq.Array(statuses))
	if err != nil {
		return fmt.Errorf("update profile status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check profile status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

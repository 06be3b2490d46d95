package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

// RosterRepository persists the teacher-student authorization relation.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Exists checks whether the teacher-student pair is currently assigned.
func (r *RosterRepository) Exists(ctx context.Context, teacherID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM roster_assignments WHERE teacher_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check roster assignment: %w", err)
	}
	return true, nil
}

// Create inserts an assignment. The conflict clause re-checks uniqueness at
// write time; inserting an already-assigned pair reports inserted=false.
func (r *RosterRepository) Create(ctx context.Context, assignment *models.RosterAssignment) (bool, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO roster_assignments (id, teacher_id, student_id, notes, assigned_at)
		VALUES (:id, :teacher_id, :student_id, :notes, :assigned_at)
		ON CONFLICT (teacher_id, student_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return false, fmt.Errorf("create roster assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check inserted assignment rows: %w", err)
	}
	return affected > 0, nil
}

// Delete removes the assignment for a teacher-student pair. Removing a
// missing assignment is not an error.
func (r *RosterRepository) Delete(ctx context.Context, teacherID, studentID string) (bool, error) {
	const query = `DELETE FROM roster_assignments WHERE teacher_id = $1 AND student_id = $2`
	result, err := r.db.ExecContext(ctx, query, teacherID, studentID)
	if err != nil {
		return false, fmt.Errorf("delete roster assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check deleted assignment rows: %w", err)
	}
	return affected > 0, nil
}

// ListByTeacher returns assignments owned by a teacher with student identity.
func (r *RosterRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.RosterAssignmentDetail, error) {
	const query = `
SELECT ra.id, ra.teacher_id, ra.student_id, ra.notes, ra.assigned_at,
       s.full_name AS student_name, s.student_number AS student_number
FROM roster_assignments ra
JOIN students s ON s.user_id = ra.student_id
WHERE ra.teacher_id = $1
ORDER BY ra.assigned_at DESC, s.student_number ASC`
	var assignments []models.RosterAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list roster assignments: %w", err)
	}
	return assignments, nil
}

// StudentIDs returns the ids of every student on a teacher's roster. Used to
// build "records where owner in roster" filters.
func (r *RosterRepository) StudentIDs(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT student_id FROM roster_assignments WHERE teacher_id = $1 ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list roster student ids: %w", err)
	}
	return ids, nil
}

// CountByStudent returns how many teachers a student is assigned to.
func (r *RosterRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM roster_assignments WHERE student_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count roster assignments: %w", err)
	}
	return count, nil
}

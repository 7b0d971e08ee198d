package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jorgejloo/educativo-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and the
// enroll-with-debt transaction.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments with student and course context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.created_at,
        s.full_name AS student_name, s.document AS student_document, c.name AS course_name
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.created_at,
        s.full_name AS student_name, s.document AS student_document, c.name AS course_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// EnrollWithDebt resolves the student by document, creates the enrollment
// and, when debt is non-nil, the matching debt, all in one transaction.
// Uniqueness of the document and of the (student, course) pair is enforced
// by the database constraints, never by a pre-check: a concurrent duplicate
// surfaces as ErrDuplicateDocument or ErrDuplicateEnrollment and the whole
// transaction rolls back.
func (r *EnrollmentRepository) EnrollWithDebt(ctx context.Context, student *models.Student, enrollment *models.Enrollment, debt *models.Debt) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll tx: %w", err)
	}

	var existing models.Student
	err = tx.GetContext(ctx, &existing,
		`SELECT id, full_name, document, phone, active, created_at, updated_at FROM students WHERE document = $1`,
		student.Document)
	switch {
	case err == nil:
		*student = existing
	case err == sql.ErrNoRows:
		if student.ID == "" {
			student.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		student.Active = true
		student.CreatedAt = now
		student.UpdatedAt = now
		const insertStudent = `INSERT INTO students (id, full_name, document, phone, active, created_at, updated_at)
            VALUES (:id, :full_name, :document, :phone, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertStudent, student); err != nil {
			tx.Rollback() //nolint:errcheck
			if isUniqueViolation(err, "uq_students_document") {
				return ErrDuplicateDocument
			}
			return fmt.Errorf("create student: %w", err)
		}
	default:
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("resolve student: %w", err)
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.StudentID = student.ID
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const insertEnrollment = `INSERT INTO enrollments (id, student_id, course_id, created_at)
        VALUES (:id, :student_id, :course_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		tx.Rollback() //nolint:errcheck
		if isUniqueViolation(err, "uq_enrollments_student_course") {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	if debt != nil {
		if debt.ID == "" {
			debt.ID = uuid.NewString()
		}
		debt.StudentID = student.ID
		if debt.CreatedAt.IsZero() {
			debt.CreatedAt = time.Now().UTC()
		}
		const insertDebt = `INSERT INTO debts (id, student_id, concept, total_amount, remaining_balance, created_at)
            VALUES (:id, :student_id, :concept, :total_amount, :remaining_balance, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertDebt, debt); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create debt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll tx: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type mockEnrollRepo struct {
	studentsByDocument map[string]*models.Student
	enrolled           map[string]bool
	lastEnrollment     *models.Enrollment
	lastDebt           *models.Debt
}

func (m *mockEnrollRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.lastEnrollment == nil || m.lastEnrollment.ID != id {
		return nil, sql.ErrNoRows
	}
	return &models.EnrollmentDetail{Enrollment: *m.lastEnrollment}, nil
}

func (m *mockEnrollRepo) EnrollWithDebt(ctx context.Context, student *models.Student, enrollment *models.Enrollment, debt *models.Debt) error {
	if m.studentsByDocument == nil {
		m.studentsByDocument = make(map[string]*models.Student)
	}
	if m.enrolled == nil {
		m.enrolled = make(map[string]bool)
	}
	existing, ok := m.studentsByDocument[student.Document]
	if ok {
		*student = *existing
	} else {
		student.ID = uuid.NewString()
		copied := *student
		m.studentsByDocument[student.Document] = &copied
	}
	key := student.ID + "|" + enrollment.CourseID
	if m.enrolled[key] {
		return repository.ErrDuplicateEnrollment
	}
	m.enrolled[key] = true
	enrollment.ID = uuid.NewString()
	enrollment.StudentID = student.ID
	m.lastEnrollment = enrollment
	if debt != nil {
		debt.ID = uuid.NewString()
		debt.StudentID = student.ID
		m.lastDebt = debt
	}
	return nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

type mockConfigValues struct {
	values map[string]string
}

func (m *mockConfigValues) Value(ctx context.Context, key, fallback string) string {
	if v, ok := m.values[key]; ok {
		return v
	}
	return fallback
}

func newEnrollmentFixture(price float64, defaults map[string]string) (*EnrollmentService, *mockEnrollRepo, string) {
	course := &models.Course{ID: uuid.NewString(), Name: "Matemáticas", Price: price, Active: true}
	repo := &mockEnrollRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{course.ID: course}}
	config := &mockConfigValues{values: defaults}
	svc := NewEnrollmentService(repo, courses, config, nil, nil)
	return svc, repo, course.ID
}

func TestEnrollCreatesStudentAndDebt(t *testing.T) {
	svc, repo, courseID := newEnrollmentFixture(100000, nil)

	result, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName: "Ana García",
		Document: "123",
		Phone:    "3001234567",
		CourseID: courseID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Debt)
	assert.Equal(t, 100000.0, result.Debt.TotalAmount)
	assert.Equal(t, 100000.0, result.Debt.RemainingBalance)
	assert.Equal(t, "Matrícula curso Matemáticas", result.Debt.Concept)
	assert.Equal(t, repo.lastEnrollment.StudentID, result.Debt.StudentID)
}

func TestEnrollReusesExistingStudent(t *testing.T) {
	svc, repo, courseID := newEnrollmentFixture(100000, nil)
	existing := &models.Student{ID: uuid.NewString(), FullName: "Ana García", Document: "123", Active: true}
	repo.studentsByDocument = map[string]*models.Student{"123": existing}

	result, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName: "Ana G.",
		Document: "123",
		CourseID: courseID,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.Enrollment.StudentID)
	assert.Len(t, repo.studentsByDocument, 1)
}

func TestEnrollDuplicateEnrollmentConflict(t *testing.T) {
	svc, _, courseID := newEnrollmentFixture(100000, nil)

	req := EnrollRequest{FullName: "Ana García", Document: "123", CourseID: courseID}
	_, err := svc.Enroll(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollUnknownCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(100000, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName: "Ana García",
		Document: "123",
		CourseID: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollFallsBackToDefaultPrice(t *testing.T) {
	svc, _, courseID := newEnrollmentFixture(0, map[string]string{
		models.ConfigKeyDefaultPrice: "250000",
	})

	result, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName: "Ana García",
		Document: "123",
		CourseID: courseID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Debt)
	assert.Equal(t, 250000.0, result.Debt.TotalAmount)
}

func TestEnrollNoPriceAnywhereFails(t *testing.T) {
	svc, _, courseID := newEnrollmentFixture(0, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName: "Ana García",
		Document: "123",
		CourseID: courseID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollWithoutDebt(t *testing.T) {
	svc, repo, courseID := newEnrollmentFixture(100000, nil)
	skip := false

	result, err := svc.Enroll(context.Background(), EnrollRequest{
		FullName:   "Ana García",
		Document:   "123",
		CourseID:   courseID,
		CreateDebt: &skip,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Debt)
	assert.Nil(t, repo.lastDebt)
}

func TestEnrollValidatesRequiredFields(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(100000, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{Document: "123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	EnrollWithDebt(ctx context.Context, student *models.Student, enrollment *models.Enrollment, debt *models.Debt) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type configValues interface {
	Value(ctx context.Context, key, fallback string) string
}

// EnrollRequest describes an enrollment form submission. The student is
// identified by document; unknown documents create the student on the fly.
type EnrollRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Document   string `json:"document" validate:"required"`
	Phone      string `json:"phone"`
	CourseID   string `json:"course_id" validate:"required"`
	CreateDebt *bool  `json:"create_debt"`
}

func (r EnrollRequest) createDebt() bool {
	return r.CreateDebt == nil || *r.CreateDebt
}

// EnrollmentService orchestrates the enroll-with-debt workflow.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	config    configValues
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, config configValues, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, config: config, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Enroll registers a student in a course, creating the student when the
// document is unknown and, unless disabled, a debt for the course price.
// All validation happens before any write; the write itself is one
// transaction in the repository.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*dto.EnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, document and course are required")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	var debt *models.Debt
	if req.createDebt() {
		amount := course.Price
		if amount <= 0 {
			amount = s.defaultPrice(ctx)
		}
		if amount <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course has no price and no default price is configured")
		}
		debt = &models.Debt{
			Concept:          fmt.Sprintf("Matrícula curso %s", course.Name),
			TotalAmount:      amount,
			RemainingBalance: amount,
		}
	}

	student := &models.Student{FullName: req.FullName, Document: req.Document, Phone: req.Phone, Active: true}
	enrollment := &models.Enrollment{CourseID: course.ID}

	if err := s.repo.EnrollWithDebt(ctx, student, enrollment, debt); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateDocument):
			return nil, appErrors.Clone(appErrors.ErrConflict, "document already registered")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}

	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", course.ID),
		zap.Bool("debt_created", debt != nil))

	return &dto.EnrollResult{Enrollment: detail, Debt: debt}, nil
}

func (s *EnrollmentService) defaultPrice(ctx context.Context) float64 {
	raw := s.config.Value(ctx, models.ConfigKeyDefaultPrice, "0")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn("invalid default price configured", zap.String("value", raw))
		return 0
	}
	return price
}

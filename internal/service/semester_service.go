package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/schema"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

// SetCurrentSemesterRequest selects the hostel's current semester.
type SetCurrentSemesterRequest struct {
	SemesterID string `json:"semester_id" validate:"required"`
}

// SemesterService manages which semester is current for a hostel.
type SemesterService struct {
	tx          txRunner
	schema      schema.Resolver
	semesters   semesterStore
	invalidator summaryInvalidator
	logger      *zap.Logger
}

// NewSemesterService constructs SemesterService.
func NewSemesterService(tx txRunner, resolver schema.Resolver, semesters semesterStore, invalidator summaryInvalidator, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{tx: tx, schema: resolver, semesters: semesters, invalidator: invalidator, logger: logger}
}

// Current returns the hostel's current semester.
func (s *SemesterService) Current(ctx context.Context, hostelID string) (*models.Semester, error) {
	semester, err := s.semesters.Current(ctx, hostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel has no current semester")
		}
		return nil, wrapStoreError(err, "failed to load current semester")
	}
	if semester == nil {
		return nil, appErrors.Clone(appErrors.ErrDependencyFailure, "semesters are not supported by this deployment")
	}
	return semester, nil
}

// SetCurrentSemester flags semesterID as current and clears every other semester of the hostel
// in one transaction.
func (s *SemesterService) SetCurrentSemester(ctx context.Context, hostelID string, req SetCurrentSemesterRequest) (*models.Semester, error) {
	if hostelID == "" || req.SemesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hostel id and semester_id are required")
	}
	logical, err := s.schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !logical.HasSemesters {
		return nil, appErrors.Clone(appErrors.ErrDependencyFailure, "semesters are not supported by this deployment")
	}

	var semester *models.Semester
	err = s.tx.InTx(ctx, func(tx sqlx.ExtContext) error {
		if err := s.semesters.SetCurrent(ctx, tx, hostelID, req.SemesterID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "semester not found for hostel")
			}
			return wrapStoreError(err, "failed to set current semester")
		}
		loaded, err := s.semesters.FindByID(ctx, tx, req.SemesterID)
		if err != nil {
			return wrapStoreError(err, "failed to load semester")
		}
		semester = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("current semester changed", zap.String("hostel_id", hostelID), zap.String("semester_id", req.SemesterID))
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, hostelID)
	}
	return semester, nil
}

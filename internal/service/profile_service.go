package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	CreateEmpty(ctx context.Context, userID string) error
	Update(ctx context.Context, profile *models.StudentProfile) error
	UpdateStatus(ctx context.Context, userID string, from []models.ProfileStatus, to models.ProfileStatus) error
}

type profileRecordCreator interface {
	CreateRecord(ctx context.Context, creator *models.Principal, kind models.RecordKind, payload []byte, proofFiles []string) (*models.ReviewableRecord, error)
}

// ProfileService owns the student onboarding profile: field edits, the
// completion evaluator, and the review-status lifecycle.
type ProfileService struct {
	repo        profileRepository
	records     profileRecordCreator
	events      EventPublisher
	validator   *validator.Validate
	logger      *zap.Logger
	placeholder string
}

// NewProfileService constructs the service. The record creator is optional;
// without it Submit only flips the profile status.
func NewProfileService(repo profileRepository, records profileRecordCreator, events EventPublisher, validate *validator.Validate, logger *zap.Logger, placeholder string) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	if placeholder == "" {
		placeholder = models.ProfilePlaceholder
	}
	return &ProfileService{repo: repo, records: records, events: events, validator: validate, logger: logger, placeholder: placeholder}
}

// Evaluate computes the completion rate and the gate flag for a profile.
// Pure and idempotent: safe to call repeatedly with stale data.
//
// The rate walks the full checklist and is UI progress only. The gate is
// stricter: every mandatory field populated AND the profile approved. A
// fully filled profile that is still pending review stays gated.
func (s *ProfileService) Evaluate(profile *models.StudentProfile) models.Completion {
	if profile == nil {
		return models.Completion{}
	}

	populated := 0
	for _, field := range models.ProfileChecklist {
		if s.populated(profile.FieldValue(field)) {
			populated++
		}
	}
	total := len(models.ProfileChecklist)
	rate := (populated*100 + total/2) / total

	complete := profile.Status == models.ProfileStatusApproved
	if complete {
		for _, field := range models.MandatoryProfileFields {
			if !s.populated(profile.FieldValue(field)) {
				complete = false
				break
			}
		}
	}

	return models.Completion{IsComplete: complete, CompletionRate: rate}
}

func (s *ProfileService) populated(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != s.placeholder
}

// Gated reports whether the student is still blocked by onboarding.
// A missing profile gates: the student has not started yet.
func (s *ProfileService) Gated(ctx context.Context, userID string) (bool, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return true, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load profile")
	}
	return !s.Evaluate(profile).IsComplete, nil
}

// EnsureProfile provisions the empty profile at first student login.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID string) error {
	if err := s.repo.CreateEmpty(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision profile")
	}
	return nil
}

// Get returns the profile with its current completion evaluation.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.StudentProfile, models.Completion, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.Completion{}, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, models.Completion{}, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load profile")
	}
	return profile, s.Evaluate(profile), nil
}

// UpdateFields applies the owning student's edits and refreshes the stored
// completion rate. Approved profiles are frozen: edits require a reopen.
func (s *ProfileService) UpdateFields(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load profile")
	}

	if profile.Status == models.ProfileStatusApproved || profile.Status == models.ProfileStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "profile is under or past review")
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	applyString(&profile.ContactPhone, req.ContactPhone)
	applyString(&profile.EmergencyContactName, req.EmergencyContactName)
	applyString(&profile.EmergencyContactPhone, req.EmergencyContactPhone)
	applyString(&profile.HomeAddress, req.HomeAddress)
	applyString(&profile.Gender, req.Gender)
	applyString(&profile.BirthDate, req.BirthDate)
	applyString(&profile.NativePlace, req.NativePlace)
	applyString(&profile.Nation, req.Nation)
	applyString(&profile.PoliticalStatus, req.PoliticalStatus)
	applyString(&profile.PhotoPath, req.PhotoPath)

	profile.CompletionRate = s.Evaluate(profile).CompletionRate

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return profile, nil
}

// Submit moves an incomplete or rejected profile into review. Every
// mandatory field must be populated first.
func (s *ProfileService) Submit(ctx context.Context, userID string) (*models.ReviewableRecord, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load profile")
	}

	for _, field := range models.MandatoryProfileFields {
		if !s.populated(profile.FieldValue(field)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "mandatory field missing: "+field)
		}
	}

	if err := s.repo.UpdateStatus(ctx, userID, []models.ProfileStatus{models.ProfileStatusIncomplete, models.ProfileStatusRejected}, models.ProfileStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "profile already submitted or approved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit profile")
	}

	s.events.Publish(ctx, EventProfileStatusChanged, map[string]interface{}{
		"user_id": userID,
		"status":  models.ProfileStatusPending,
	})

	if s.records == nil {
		return nil, nil
	}

	snapshot, err := json.Marshal(profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot profile")
	}
	// Submit is reached only by the owning student, so the record creator
	// is the profile owner.
	record, err := s.records.CreateRecord(ctx, &models.Principal{ID: userID, Role: models.RoleStudent}, models.RecordKindStudentProfile, snapshot, nil)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ApplyReviewDecision syncs the profile status after a review transition.
// Registered as the student_profile decision hook in the review engine.
func (s *ProfileService) ApplyReviewDecision(ctx context.Context, record *models.ReviewableRecord) error {
	var to models.ProfileStatus
	switch record.Status {
	case models.ReviewStatusApproved:
		to = models.ProfileStatusApproved
	case models.ReviewStatusRejected:
		to = models.ProfileStatusRejected
	case models.ReviewStatusPending:
		to = models.ProfileStatusPending
	default:
		return nil
	}

	err := s.repo.UpdateStatus(ctx, record.OwnerID,
		[]models.ProfileStatus{models.ProfileStatusIncomplete, models.ProfileStatusPending, models.ProfileStatusApproved, models.ProfileStatusRejected}, to)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync profile status")
	}

	s.events.Publish(ctx, EventProfileStatusChanged, map[string]interface{}{
		"user_id": record.OwnerID,
		"status":  to,
	})
	return nil
}

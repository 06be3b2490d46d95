package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type reviewStore interface {
	Create(ctx context.Context, record *models.ReviewableRecord) error
	GetByID(ctx context.Context, id string) (*models.ReviewableRecord, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewableRecord, int, error)
	UpdateDecision(ctx context.Context, id string, status models.ReviewStatus, reviewerID string, reviewedAt time.Time, comment *string) error
	Reopen(ctx context.Context, id string, reopenedAt time.Time) error
}

type reviewAuthorizer interface {
	Authorize(ctx context.Context, teacherID, studentID string) error
	StudentIDs(ctx context.Context, teacherID string) ([]string, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// DecisionHook reacts to a committed transition, syncing derived state for a
// particular record kind (e.g. mirroring profile status).
type DecisionHook interface {
	Apply(ctx context.Context, record *models.ReviewableRecord) error
}

// DecisionHookFunc allows using plain functions.
type DecisionHookFunc func(ctx context.Context, record *models.ReviewableRecord) error

// Apply implements DecisionHook.
func (f DecisionHookFunc) Apply(ctx context.Context, record *models.ReviewableRecord) error {
	return f(ctx, record)
}

// ReviewService is the generic review workflow engine. One state machine,
// parameterized by record kind: pending to approved or rejected, with an
// administrative reopen back to pending.
type ReviewService struct {
	repo      reviewStore
	roster    reviewAuthorizer
	audit     auditLogger
	hooks     map[models.RecordKind]DecisionHook
	events    EventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// ReviewServiceOption configures the service.
type ReviewServiceOption func(*ReviewService)

// WithDecisionHook registers a hook for a record kind.
func WithDecisionHook(kind models.RecordKind, hook DecisionHook) ReviewServiceOption {
	return func(s *ReviewService) {
		if hook != nil {
			s.hooks[kind] = hook
		}
	}
}

// WithAuditLogger attaches the audit trail sink.
func WithAuditLogger(audit auditLogger) ReviewServiceOption {
	return func(s *ReviewService) {
		s.audit = audit
	}
}

// RegisterDecisionHook adds a hook after construction. Profile review syncs
// are registered this way since the profile service itself creates records
// through this engine.
func (s *ReviewService) RegisterDecisionHook(kind models.RecordKind, hook DecisionHook) {
	if hook != nil {
		s.hooks[kind] = hook
	}
}

// NewReviewService constructs the engine.
func NewReviewService(repo reviewStore, roster reviewAuthorizer, events EventPublisher, validate *validator.Validate, logger *zap.Logger, opts ...ReviewServiceOption) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	svc := &ReviewService{
		repo:      repo,
		roster:    roster,
		hooks:     make(map[models.RecordKind]DecisionHook),
		events:    events,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// CreateRecord stores a new pending record after validating its payload
// against the kind-specific schema.
func (s *ReviewService) CreateRecord(ctx context.Context, creator *models.Principal, kind models.RecordKind, payload []byte, proofFiles []string) (*models.ReviewableRecord, error) {
	if creator == nil || creator.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "no session")
	}
	// Records are always owned by the student who files them; reviewers
	// act on records through decisions, never through ownership.
	if creator.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can create records")
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported record kind")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload must be valid JSON")
	}
	if err := s.validatePayload(kind, payload); err != nil {
		return nil, err
	}

	record := &models.ReviewableRecord{
		Kind:       kind,
		OwnerID:    creator.ID,
		Payload:    append([]byte(nil), payload...),
		ProofFiles: append([]string(nil), proofFiles...),
		Status:     models.ReviewStatusPending,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}
	return record, nil
}

func (s *ReviewService) validatePayload(kind models.RecordKind, payload []byte) error {
	switch kind {
	case models.RecordKindGraduationDestination:
		var p models.GraduationDestinationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed graduation destination payload")
		}
		if err := s.validator.Struct(p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid graduation destination payload")
		}
	case models.RecordKindRewardPunishment:
		var p models.RewardPunishmentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed reward/punishment payload")
		}
		if err := s.validator.Struct(p); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reward/punishment payload")
		}
	case models.RecordKindStudentProfile:
		// Snapshot of the profile row; shape enforced upstream.
	}
	return nil
}

// Get returns a record enforcing role scope: students see their own records,
// teachers only records of students on their roster, admins everything.
func (s *ReviewService) Get(ctx context.Context, id string, actor *models.Principal) (*models.ReviewableRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load record")
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if err := s.roster.Authorize(ctx, actor.ID, record.OwnerID); err != nil {
			return nil, err
		}
	case models.RoleStudent:
		if record.OwnerID != actor.ID {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return record, nil
}

// List returns records within the actor's scope. Teacher listings are
// filtered strictly by the roster relation.
func (s *ReviewService) List(ctx context.Context, query dto.RecordQuery, actor *models.Principal) ([]models.ReviewableRecord, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	filter := models.ReviewFilter{
		Kind:     models.RecordKind(strings.TrimSpace(query.Kind)),
		OwnerID:  strings.TrimSpace(query.OwnerID),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Status != "" {
		filter.Status = []models.ReviewStatus{models.ReviewStatus(strings.ToUpper(query.Status))}
	}

	switch actor.Role {
	case models.RoleAdmin:
		// full access, no extra filters
	case models.RoleTeacher:
		ids, err := s.roster.StudentIDs(ctx, actor.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(ids) == 0 {
			return []models.ReviewableRecord{}, &models.Pagination{Page: 1, PageSize: filter.PageSize, TotalCount: 0}, nil
		}
		filter.OwnerIn = ids
		if filter.OwnerID != "" {
			if err := s.roster.Authorize(ctx, actor.ID, filter.OwnerID); err != nil {
				return nil, nil, err
			}
		}
	case models.RoleStudent:
		filter.OwnerID = actor.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to list records")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Decide applies a reviewer's verdict on a pending record. The four decision
// fields are committed as one atomic transition; a concurrent decision loses
// with Conflict, never a silent overwrite.
func (s *ReviewService) Decide(ctx context.Context, recordID string, reviewer *models.Principal, req dto.DecideRequest) (*models.ReviewableRecord, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load record")
	}

	switch reviewer.Role {
	case models.RoleAdmin:
		// admins review any student's records
	case models.RoleTeacher:
		if err := s.roster.Authorize(ctx, reviewer.ID, record.OwnerID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins review records")
	}

	if record.Status != models.ReviewStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "record already reviewed, refresh")
	}

	decision := models.ReviewDecision(strings.ToUpper(req.Decision))
	var status models.ReviewStatus
	switch decision {
	case models.DecisionApprove:
		status = models.ReviewStatusApproved
	case models.DecisionReject:
		status = models.ReviewStatusRejected
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVE or REJECT")
	}

	comment := strings.TrimSpace(req.Comment)
	if decision == models.DecisionReject && comment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection requires a comment")
	}

	now := time.Now().UTC()
	var commentPtr *string
	if comment != "" {
		commentPtr = &comment
	}

	if err := s.repo.UpdateDecision(ctx, record.ID, status, reviewer.ID, now, commentPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "record already reviewed, refresh")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit decision")
	}

	record.Status = status
	record.ReviewedBy = &reviewer.ID
	record.ReviewedAt = &now
	record.ReviewComment = commentPtr

	if hook := s.hooks[record.Kind]; hook != nil {
		if err := hook.Apply(ctx, record); err != nil {
			s.logger.Warn("decision hook failed", zap.String("record_id", record.ID), zap.String("kind", string(record.Kind)), zap.Error(err))
		}
	}

	s.emitAudit(ctx, reviewer.ID, models.AuditActionRecordReview, record)
	s.events.Publish(ctx, EventRecordReviewed, models.ReviewedEvent{
		RecordID:  record.ID,
		Kind:      record.Kind,
		OwnerID:   record.OwnerID,
		Status:    record.Status,
		Reviewer:  reviewer.ID,
		DecidedAt: now,
	})
	return record, nil
}

// Reopen moves a decided record back to pending. Decision fields are cleared
// together; a record that is already pending conflicts.
func (s *ReviewService) Reopen(ctx context.Context, recordID string, reviewer *models.Principal) (*models.ReviewableRecord, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load record")
	}

	switch reviewer.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if err := s.roster.Authorize(ctx, reviewer.ID, record.OwnerID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins reopen records")
	}

	if record.Status == models.ReviewStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "record is already pending")
	}

	now := time.Now().UTC()
	if err := s.repo.Reopen(ctx, record.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "record is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen record")
	}

	record.Status = models.ReviewStatusPending
	record.ReviewedBy = nil
	record.ReviewedAt = nil
	record.ReviewComment = nil

	if hook := s.hooks[record.Kind]; hook != nil {
		if err := hook.Apply(ctx, record); err != nil {
			s.logger.Warn("reopen hook failed", zap.String("record_id", record.ID), zap.Error(err))
		}
	}

	s.emitAudit(ctx, reviewer.ID, models.AuditActionRecordReopen, record)
	s.events.Publish(ctx, EventRecordReviewed, models.ReviewedEvent{
		RecordID:  record.ID,
		Kind:      record.Kind,
		OwnerID:   record.OwnerID,
		Status:    record.Status,
		Reviewer:  reviewer.ID,
		DecidedAt: now,
	})
	return record, nil
}

func (s *ReviewService) emitAudit(ctx context.Context, userID, action string, record *models.ReviewableRecord) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(map[string]interface{}{
		"status":  record.Status,
		"comment": record.ReviewComment,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   string(record.Kind),
		ResourceID: &record.ID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "review-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

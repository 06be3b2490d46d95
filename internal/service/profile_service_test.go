package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type profileRepoStub struct {
	profiles map[string]*models.StudentProfile
}

func newProfileRepoStub() *profileRepoStub {
	return &profileRepoStub{profiles: make(map[string]*models.StudentProfile)}
}

func (r *profileRepoStub) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := r.profiles[userID]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *profileRepoStub) CreateEmpty(ctx context.Context, userID string) error {
	if _, ok := r.profiles[userID]; !ok {
		r.profiles[userID] = &models.StudentProfile{UserID: userID, Status: models.ProfileStatusIncomplete}
	}
	return nil
}

func (r *profileRepoStub) Update(ctx context.Context, profile *models.StudentProfile) error {
	copy := *profile
	r.profiles[profile.UserID] = &copy
	return nil
}

func (r *profileRepoStub) UpdateStatus(ctx context.Context, userID string, from []models.ProfileStatus, to models.ProfileStatus) error {
	p, ok := r.profiles[userID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, f := range from {
		if p.Status == f {
			p.Status = to
			return nil
		}
	}
	return sql.ErrNoRows
}

type recordCreatorStub struct {
	records []*models.ReviewableRecord
}

func (r *recordCreatorStub) CreateRecord(ctx context.Context, creator *models.Principal, kind models.RecordKind, payload []byte, proofFiles []string) (*models.ReviewableRecord, error) {
	record := &models.ReviewableRecord{
		ID:      "rec-1",
		Kind:    kind,
		OwnerID: creator.ID,
		Payload: payload,
		Status:  models.ReviewStatusPending,
	}
	r.records = append(r.records, record)
	return record, nil
}

func filledProfile(userID string, status models.ProfileStatus) *models.StudentProfile {
	return &models.StudentProfile{
		UserID:                userID,
		ContactPhone:          "13800000000",
		EmergencyContactName:  "Parent",
		EmergencyContactPhone: "13900000000",
		HomeAddress:           "1 Main Street",
		Status:                status,
	}
}

func TestEvaluatePendingProfileAtFullMandatoryStaysGated(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	completion := svc.Evaluate(filledProfile("u1", models.ProfileStatusPending))
	require.False(t, completion.IsComplete)
	require.Equal(t, 40, completion.CompletionRate)
}

func TestEvaluateApprovedWithPlaceholderFieldIncomplete(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	profile := filledProfile("u1", models.ProfileStatusApproved)
	profile.HomeAddress = "未知"
	completion := svc.Evaluate(profile)
	require.False(t, completion.IsComplete)
}

func TestEvaluateWhitespaceCountsAsEmpty(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	profile := filledProfile("u1", models.ProfileStatusApproved)
	profile.ContactPhone = "   "
	completion := svc.Evaluate(profile)
	require.False(t, completion.IsComplete)
	require.Equal(t, 30, completion.CompletionRate)
}

func TestEvaluateApprovedAndMandatoryFilledIsComplete(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	completion := svc.Evaluate(filledProfile("u1", models.ProfileStatusApproved))
	require.True(t, completion.IsComplete)
	// optional checklist fields can stay empty without blocking the gate
	require.Less(t, completion.CompletionRate, 100)
}

func TestEvaluateFullChecklistReachesHundred(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	profile := filledProfile("u1", models.ProfileStatusApproved)
	profile.Gender = "F"
	profile.BirthDate = "2006-01-02"
	profile.NativePlace = "Chengdu"
	profile.Nation = "Han"
	profile.PoliticalStatus = "Member"
	profile.PhotoPath = "photos/u1.png"
	completion := svc.Evaluate(profile)
	require.Equal(t, 100, completion.CompletionRate)
	require.True(t, completion.IsComplete)
}

func TestGatedMissingProfile(t *testing.T) {
	svc := NewProfileService(newProfileRepoStub(), nil, nil, nil, nil, "")

	gated, err := svc.Gated(context.Background(), "ghost")
	require.NoError(t, err)
	require.True(t, gated)
}

func TestUpdateFieldsRejectedWhileUnderReview(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = filledProfile("u1", models.ProfileStatusPending)
	svc := NewProfileService(repo, nil, nil, nil, nil, "")

	phone := "13800000001"
	_, err := svc.UpdateFields(context.Background(), "u1", dto.UpdateProfileRequest{ContactPhone: &phone})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestUpdateFieldsRefreshesCompletionRate(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = &models.StudentProfile{UserID: "u1", Status: models.ProfileStatusIncomplete}
	svc := NewProfileService(repo, nil, nil, nil, nil, "")

	phone := "13800000000"
	name := "Parent"
	updated, err := svc.UpdateFields(context.Background(), "u1", dto.UpdateProfileRequest{
		ContactPhone:         &phone,
		EmergencyContactName: &name,
	})
	require.NoError(t, err)
	require.Equal(t, 20, updated.CompletionRate)
	require.Equal(t, 20, repo.profiles["u1"].CompletionRate)
}

func TestSubmitRequiresMandatoryFields(t *testing.T) {
	repo := newProfileRepoStub()
	profile := filledProfile("u1", models.ProfileStatusIncomplete)
	profile.EmergencyContactPhone = ""
	repo.profiles["u1"] = profile
	svc := NewProfileService(repo, nil, nil, nil, nil, "")

	_, err := svc.Submit(context.Background(), "u1")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	require.Equal(t, models.ProfileStatusIncomplete, repo.profiles["u1"].Status)
}

func TestSubmitMovesToPendingAndCreatesRecord(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = filledProfile("u1", models.ProfileStatusIncomplete)
	records := &recordCreatorStub{}
	svc := NewProfileService(repo, records, nil, nil, nil, "")

	record, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, models.ProfileStatusPending, repo.profiles["u1"].Status)
	require.NotNil(t, record)
	require.Equal(t, models.RecordKindStudentProfile, record.Kind)
	require.Len(t, records.records, 1)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = filledProfile("u1", models.ProfileStatusIncomplete)
	svc := NewProfileService(repo, &recordCreatorStub{}, nil, nil, nil, "")

	_, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "u1")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestSubmitAfterRejectionAllowed(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = filledProfile("u1", models.ProfileStatusRejected)
	svc := NewProfileService(repo, &recordCreatorStub{}, nil, nil, nil, "")

	_, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, models.ProfileStatusPending, repo.profiles["u1"].Status)
}

func TestApplyReviewDecisionSyncsProfile(t *testing.T) {
	repo := newProfileRepoStub()
	repo.profiles["u1"] = filledProfile("u1", models.ProfileStatusPending)
	svc := NewProfileService(repo, nil, nil, nil, nil, "")

	err := svc.ApplyReviewDecision(context.Background(), &models.ReviewableRecord{
		Kind:    models.RecordKindStudentProfile,
		OwnerID: "u1",
		Status:  models.ReviewStatusApproved,
	})
	require.NoError(t, err)
	require.Equal(t, models.ProfileStatusApproved, repo.profiles["u1"].Status)

	gated, err := svc.Gated(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, gated)
}

package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/events"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/pkg/cloudinary"
)

func newRecordService(repo *recordRepoStub, blobs *blobStub, hub *events.Hub) RecordService {
	if hub == nil {
		hub = events.NewHub(testLogger())
	}
	return NewRecordService(repo, blobs, hub, validator.New(validator.WithRequiredStructEnabled()), testLogger())
}

func journalPayload() dto.RecordCreateRequest {
	return dto.RecordCreateRequest{
		Type:  "journal",
		Title: "Deep Learning for Crop Yield Prediction",
		Year:  2024,
		Data: map[string]interface{}{
			"domain":          "cs",
			"journalName":     "IEEE Access",
			"authors":         "A. Sharma, B. Iyer",
			"publicationDate": "2024-03-15",
			"publisher":       "IEEE",
			"issn":            "2169-3536",
		},
	}
}

func TestRecordServiceCreateSubmitsPending(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{}
	hub := events.NewHub(testLogger())
	svc := newRecordService(repo, blobs, hub)

	received, unsubscribe := hub.Subscribe(events.Filter{OwnerID: "owner-1"}, 4)
	defer unsubscribe()

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, "owner-1", created.OwnerID)
	require.Equal(t, "Journal Publication", created.TypeLabel)
	require.Equal(t, "IEEE Access", created.Data["journalName"])

	event := <-received
	require.Equal(t, events.ActionCreated, event.Action)
	require.Equal(t, created.ID, event.RecordID)
}

func TestRecordServiceJournalSubmissionWithAttachment(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{}
	svc := newRecordService(repo, blobs, nil)

	payload := dto.RecordCreateRequest{
		Type:  "journal",
		Title: "Adaptive Query Planning",
		Year:  2024,
		Data: map[string]interface{}{
			"journalName":     "VLDB Journal",
			"authors":         "K. Rao, M. Desai",
			"publicationDate": "2024-01-01",
			"publisher":       "Springer",
		},
	}
	files := []FileInput{{Name: "paper.pdf", Content: []byte("%PDF-1.7 content")}}

	created, err := svc.Create(context.Background(), "owner-1", payload, files)
	require.NoError(t, err)

	pending := models.StatusPending
	records, err := svc.ListOwn(context.Background(), "owner-1", &pending)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, created.ID, records[0].ID)
	require.Equal(t, "Adaptive Query Planning", records[0].Title)
	require.Equal(t, "VLDB Journal", records[0].Data["journalName"])
	require.Equal(t, "K. Rao, M. Desai", records[0].Data["authors"])
	require.Equal(t, "2024-01-01", records[0].Data["publicationDate"])
	require.Equal(t, "Springer", records[0].Data["publisher"])
	require.Len(t, records[0].Files, 1)
}

func TestRecordServiceCreateRejectsUnknownType(t *testing.T) {
	svc := newRecordService(newRecordRepoStub(), &blobStub{}, nil)

	payload := journalPayload()
	payload.Type = "podcast"

	_, err := svc.Create(context.Background(), "owner-1", payload, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestRecordServiceCreateRejectsUnknownDataKeys(t *testing.T) {
	svc := newRecordService(newRecordRepoStub(), &blobStub{}, nil)

	payload := journalPayload()
	payload.Data["favouriteColor"] = "green"

	_, err := svc.Create(context.Background(), "owner-1", payload, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
	require.Contains(t, err.Error(), "favouriteColor")
}

func TestRecordServiceCreateEnforcesRequiredFields(t *testing.T) {
	svc := newRecordService(newRecordRepoStub(), &blobStub{}, nil)

	payload := journalPayload()
	delete(payload.Data, "journalName")

	_, err := svc.Create(context.Background(), "owner-1", payload, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
	require.Contains(t, err.Error(), "journalName")
}

func TestRecordServiceCreateSanitizesFreeText(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	payload := journalPayload()
	payload.Description = "<b>plain</b> summary"
	payload.Data["journalName"] = "<i>IEEE</i> Access"

	created, err := svc.Create(context.Background(), "owner-1", payload, nil)
	require.NoError(t, err)
	require.Equal(t, "plain summary", created.Description)
	require.Equal(t, "IEEE Access", created.Data["journalName"])
}

func TestRecordServiceCreateUploadsAttachments(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{}
	svc := newRecordService(repo, blobs, nil)

	files := []FileInput{
		{Name: "paper.pdf", Content: []byte("%PDF-1.7 content")},
		{Name: "certificate.pdf", Content: []byte("%PDF-1.7 more")},
	}

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), files)
	require.NoError(t, err)
	require.Len(t, created.Files, 2)
	require.Equal(t, 2, blobs.uploadCount())
	require.Contains(t, created.Files[0].FileURL, "owners/owner-1/records/"+created.ID)
	require.Equal(t, "application/pdf", created.Files[0].FileType)
}

func TestRecordServiceUploadFailureKeepsRecord(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{failUpload: true}
	svc := newRecordService(repo, blobs, nil)

	files := []FileInput{{Name: "paper.pdf", Content: []byte("%PDF-1.7")}}

	_, err := svc.Create(context.Background(), "owner-1", journalPayload(), files)
	require.True(t, apperr.Is(err, apperr.KindUnavailable))

	// The record survives and a later AttachFiles completes the submission.
	records, err := svc.ListOwn(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].Files)

	blobs.failUpload = false
	attached, err := svc.AttachFiles(context.Background(), "owner-1", records[0].ID, files)
	require.NoError(t, err)
	require.Len(t, attached.Files, 1)
}

func TestRecordServiceGetOwnScopesToOwner(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	_, err = svc.GetOwn(context.Background(), "owner-2", created.ID)
	require.True(t, apperr.Is(err, apperr.KindPermissionDenied))

	_, err = svc.GetOwn(context.Background(), "owner-1", "missing")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRecordServiceUpdateContentPendingOnly(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	title := "Revised Title For The Paper"
	updated, err := svc.UpdateContent(context.Background(), "owner-1", created.ID, dto.RecordContentUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, models.StatusPending, updated.Status)

	record := repo.records[created.ID]
	record.Status = models.StatusApproved
	repo.records[created.ID] = record

	_, err = svc.UpdateContent(context.Background(), "owner-1", created.ID, dto.RecordContentUpdateRequest{Title: &title})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRecordServiceUpdateContentValidatesData(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	_, err = svc.UpdateContent(context.Background(), "owner-1", created.ID, dto.RecordContentUpdateRequest{
		Data: map[string]interface{}{"title": "x", "bogusField": true},
	})
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestRecordServiceUpdateContentMergesDataPatch(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	// A patch carrying one optional key must not be judged as the whole
	// document or wipe the stored payload.
	updated, err := svc.UpdateContent(context.Background(), "owner-1", created.ID, dto.RecordContentUpdateRequest{
		Data: map[string]interface{}{"volume": "12"},
	})
	require.NoError(t, err)
	require.Equal(t, "12", updated.Data["volume"])
	require.Equal(t, "IEEE Access", updated.Data["journalName"])
	require.Equal(t, "A. Sharma, B. Iyer", updated.Data["authors"])
}

func TestRecordServiceUpdateContentMirrorsTitleIntoData(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	title := "Deep Learning for Yield Forecasting"
	updated, err := svc.UpdateContent(context.Background(), "owner-1", created.ID, dto.RecordContentUpdateRequest{
		Title: &title,
		Data:  map[string]interface{}{"issue": "4"},
	})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, title, updated.Data["title"])
	require.Equal(t, "4", updated.Data["issue"])
}

func TestRecordServiceDeleteCleansBlobsFirst(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{}
	svc := newRecordService(repo, blobs, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "owner-1", created.ID))
	require.Len(t, blobs.deletedPrefixes, 1)
	require.Contains(t, blobs.deletedPrefixes[0], created.ID)

	_, err = svc.GetOwn(context.Background(), "owner-1", created.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRecordServiceDeleteAbortsWhenBlobCleanupFails(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{failDelete: true}
	svc := newRecordService(repo, blobs, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "owner-1", created.ID)
	require.True(t, apperr.Is(err, apperr.KindUnavailable))

	// Row must still exist so the delete can be retried.
	_, err = svc.GetOwn(context.Background(), "owner-1", created.ID)
	require.NoError(t, err)
}

func TestRecordServiceDeleteAbortsWhenAssetsSurviveCleanup(t *testing.T) {
	repo := newRecordRepoStub()
	blobs := &blobStub{leftovers: []cloudinary.StoredFile{{PublicID: "stale-asset"}}}
	svc := newRecordService(repo, blobs, nil)

	created, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "owner-1", created.ID)
	require.True(t, apperr.Is(err, apperr.KindUnavailable))

	_, err = svc.GetOwn(context.Background(), "owner-1", created.ID)
	require.NoError(t, err)
}

func TestRecordServiceListApproved(t *testing.T) {
	repo := newRecordRepoStub()
	svc := newRecordService(repo, &blobStub{}, nil)

	first, err := svc.Create(context.Background(), "owner-1", journalPayload(), nil)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "owner-2", journalPayload(), nil)
	require.NoError(t, err)

	record := repo.records[first.ID]
	record.Status = models.StatusApproved
	repo.records[first.ID] = record

	approved, err := svc.ListApproved(context.Background(), "journal", nil)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, first.ID, approved[0].ID)
	require.Equal(t, models.StatusApproved, approved[0].Status)

	owner := "owner-2"
	scoped, err := svc.ListApproved(context.Background(), "journal", &owner)
	require.NoError(t, err)
	require.Empty(t, scoped)

	_, err = svc.ListApproved(context.Background(), "podcast", nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/repository"
	"github.com/rims-platform/rims-api/pkg/cloudinary"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// recordRepoStub is an in-memory RecordRepository.
type recordRepoStub struct {
	records map[string]models.Record
}

func newRecordRepoStub() *recordRepoStub {
	return &recordRepoStub{records: make(map[string]models.Record)}
}

func (r *recordRepoStub) Create(ctx context.Context, record *models.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	r.records[record.ID] = *record
	return nil
}

func (r *recordRepoStub) GetByID(ctx context.Context, id string) (models.Record, error) {
	record, ok := r.records[id]
	if !ok {
		return models.Record{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *recordRepoStub) ListForOwner(ctx context.Context, ownerID string, status *string) ([]models.Record, error) {
	var out []models.Record
	for _, record := range r.records {
		if record.OwnerID != ownerID {
			continue
		}
		if status != nil && record.Status != *status {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *recordRepoStub) ListAll(ctx context.Context, filter repository.RecordFilter) ([]models.Record, error) {
	var out []models.Record
	for _, record := range r.records {
		if filter.Type != nil && record.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		if filter.Year != nil && record.Year != *filter.Year {
			continue
		}
		if filter.OwnerID != nil && record.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *recordRepoStub) ListByType(ctx context.Context, recordType, status string, ownerID *string) ([]models.Record, error) {
	filter := repository.RecordFilter{Type: &recordType, Status: &status, OwnerID: ownerID}
	return r.ListAll(ctx, filter)
}

func (r *recordRepoStub) UpdateContent(ctx context.Context, id string, update repository.ContentUpdate) error {
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if update.Title != nil {
		record.Title = *update.Title
	}
	if update.Year != nil {
		record.Year = *update.Year
	}
	if update.Description != nil {
		record.Description = *update.Description
	}
	if update.Data != nil {
		record.Data = update.Data
	}
	record.UpdatedAt = time.Now().UTC()
	r.records[id] = record
	return nil
}

func (r *recordRepoStub) Approve(ctx context.Context, id, adminID string, at time.Time) error {
	return r.transition(id, models.StatusApproved, adminID, at)
}

func (r *recordRepoStub) Reject(ctx context.Context, id, adminID string, at time.Time) error {
	return r.transition(id, models.StatusRejected, adminID, at)
}

func (r *recordRepoStub) transition(id, status, adminID string, at time.Time) error {
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if record.Status != models.StatusPending {
		return repository.ErrNotPending
	}
	record.Status = status
	if status == models.StatusApproved {
		record.ApprovedAt = &at
		record.ApprovedBy = &adminID
	} else {
		record.RejectedAt = &at
		record.RejectedBy = &adminID
	}
	r.records[id] = record
	return nil
}

func (r *recordRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *recordRepoStub) ReplaceFiles(ctx context.Context, id string, files []models.RecordFile) error {
	record, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.Files = files
	r.records[id] = record
	return nil
}

func (r *recordRepoStub) CountByStatus(ctx context.Context, ownerID *string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, record := range r.records {
		if ownerID != nil && record.OwnerID != *ownerID {
			continue
		}
		counts[record.Status]++
	}
	return counts, nil
}

func (r *recordRepoStub) CountByType(ctx context.Context, ownerID *string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, record := range r.records {
		if ownerID != nil && record.OwnerID != *ownerID {
			continue
		}
		counts[record.Type]++
	}
	return counts, nil
}

// userRepoStub is an in-memory UserRepository.
type userRepoStub struct {
	users map[string]models.User
}

func newUserRepoStub(users ...models.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]models.User)}
	for _, user := range users {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		stub.users[user.ID] = user
	}
	return stub
}

func (u *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	u.users[user.ID] = *user
	return nil
}

func (u *userRepoStub) GetByID(ctx context.Context, id string) (models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (u *userRepoStub) GetByEmail(ctx context.Context, email string) (models.User, error) {
	for _, user := range u.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (u *userRepoStub) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	var out []models.User
	for _, user := range u.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (u *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := u.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	u.users[user.ID] = *user
	return nil
}

func (u *userRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := u.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(u.users, id)
	return nil
}

// blobStub records uploads and folder deletions instead of talking to
// Cloudinary. Uploads run concurrently, hence the mutex.
type blobStub struct {
	mu              sync.Mutex
	uploads         []string
	deletedPrefixes []string
	failUpload      bool
	failDelete      bool
	leftovers       []cloudinary.StoredFile
}

func (b *blobStub) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

func (b *blobStub) RecordFolder(ownerID, recordID string) string {
	return fmt.Sprintf("rims/owners/%s/records/%s", ownerID, recordID)
}

func (b *blobStub) OwnerFolder(ownerID string) string {
	return fmt.Sprintf("rims/owners/%s", ownerID)
}

func (b *blobStub) Upload(ctx context.Context, folder, name string, reader io.Reader) (cloudinary.StoredFile, error) {
	if b.failUpload {
		return cloudinary.StoredFile{}, errors.New("upload failed")
	}
	if _, err := io.ReadAll(reader); err != nil {
		return cloudinary.StoredFile{}, err
	}
	b.mu.Lock()
	b.uploads = append(b.uploads, folder+"/"+name)
	b.mu.Unlock()
	return cloudinary.StoredFile{
		PublicID: folder + "/" + name,
		URL:      "https://cdn.example.com/" + folder + "/" + name,
	}, nil
}

func (b *blobStub) DeleteFolder(ctx context.Context, prefix string) error {
	if b.failDelete {
		return errors.New("delete failed")
	}
	b.deletedPrefixes = append(b.deletedPrefixes, prefix)
	return nil
}

func (b *blobStub) ListFolder(ctx context.Context, prefix string) ([]cloudinary.StoredFile, error) {
	return b.leftovers, nil
}

type resetLinkerStub struct {
	link string
	err  error
}

func (r resetLinkerStub) PasswordResetLink(ctx context.Context, email string) (string, error) {
	return r.link, r.err
}

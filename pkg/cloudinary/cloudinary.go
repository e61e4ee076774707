package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// StoredFile describes one uploaded blob.
type StoredFile struct {
	PublicID string
	URL      string
}

// Service implements the blob store using Cloudinary. Assets are keyed under
// <root>/owners/{ownerID}/records/{recordID}/ so a record's attachments can be
// cleaned up by prefix when the record or its owner is removed.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// RecordFolder returns the prefix holding attachments for one record.
func (s *Service) RecordFolder(ownerID, recordID string) string {
	return fmt.Sprintf("%s/owners/%s/records/%s", s.folder, ownerID, recordID)
}

// OwnerFolder returns the prefix holding every asset belonging to one owner.
func (s *Service) OwnerFolder(ownerID string) string {
	return fmt.Sprintf("%s/owners/%s", s.folder, ownerID)
}

// Upload sends the file into the given folder and returns its secure URL.
func (s *Service) Upload(ctx context.Context, folder, name string, reader io.Reader) (StoredFile, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return StoredFile{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// DeleteFolder removes every asset under the prefix.
func (s *Service) DeleteFolder(ctx context.Context, prefix string) error {
	prefix = strings.Trim(prefix, "/")
	_, err := s.client.Admin.DeleteAssetsByPrefix(ctx, admin.DeleteAssetsByPrefixParams{
		Prefix: api.CldAPIArray{prefix},
	})
	if err != nil {
		return fmt.Errorf("failed to delete assets under %s: %w", prefix, err)
	}

	s.logger.Info().Str("prefix", prefix).Msg("asset folder deleted")

	return nil
}

// ListFolder lists assets stored under the prefix. Delete paths call it
// after a bulk delete to confirm the prefix is empty.
func (s *Service) ListFolder(ctx context.Context, prefix string) ([]StoredFile, error) {
	result, err := s.client.Admin.Assets(ctx, admin.AssetsParams{
		Prefix:     strings.Trim(prefix, "/"),
		MaxResults: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets under %s: %w", prefix, err)
	}

	files := make([]StoredFile, 0, len(result.Assets))
	for _, asset := range result.Assets {
		files = append(files, StoredFile{PublicID: asset.PublicID, URL: asset.SecureURL})
	}

	return files, nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%d_%s", time.Now().Unix(), base)
}

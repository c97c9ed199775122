package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/core/ingest"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	ingestor *ingest.Ingestor
	bucket   string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, ing *ingest.Ingestor, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, ingestor: ing, bucket: bucket}
}

// UploadAndCreate stores the raw file and records the upload.
func (s *DocumentService) UploadAndCreate(ctx context.Context, userID, filename, contentType string, data []byte) (*models.Upload, error) {
	uploadID := uuid.NewString()
	key := s.objectKey(userID, uploadID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, err
	}

	up := &models.Upload{
		ID:          uploadID,
		UserID:      userID,
		FileName:    filename,
		StorageURL:  url,
		ContentType: contentType,
		Status:      "uploaded",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.CreateUpload(ctx, up); err != nil {
		return nil, err
	}
	return up, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Upload, error) {
	return s.db.GetUploadByID(ctx, id)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Upload, error) {
	return s.db.ListUploadsByUser(ctx, userID)
}

// PageImage renders the cited page of an upload to PNG so the user can view
// exactly where an answer came from.
func (s *DocumentService) PageImage(ctx context.Context, uploadID string, page int) ([]byte, error) {
	up, err := s.db.GetUploadByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if up == nil {
		return nil, fmt.Errorf("upload not found: %s", uploadID)
	}

	bucket, key := parseS3URL(up.StorageURL)
	data, err := s.storage.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetch upload: %w", err)
	}
	return s.ingestor.PageImage(ctx, data, up.FileName, page)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, uploadID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", uploadID, filename)
}

package core

import (
	"context"
	"io"

	"github.com/insightlabs-ai/docinsight/internal/models"
)

// VectorStore persists chunk embeddings and answers similarity queries.
// Once chunks are upserted the store is authoritative for them.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.ScoredChunk, error)
	DeleteByIDs(ctx context.Context, chunkIDs []string) error
	DeleteByDoc(ctx context.Context, docID string) error
}

// DocStore is the dedup ledger keyed by document id.
// Delete of a nonexistent id is a no-op, not an error.
type DocStore interface {
	Put(ctx context.Context, rec *models.DocumentRecord) error
	Get(ctx context.Context, docID string) (*models.DocumentRecord, error)
	Delete(ctx context.Context, docID string) error
}

// CacheStore is the key-value collaborator behind the transform cache.
// Eviction, if any, is the store's concern.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// DbClient defines the relational persistence the services need
// (users and upload tracking). It abstracts Postgres so higher layers
// never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateUpload(ctx context.Context, up *models.Upload) error
	GetUploadByID(ctx context.Context, id string) (*models.Upload, error)
	ListUploadsByUser(ctx context.Context, userID string) ([]models.Upload, error)
	UpdateUploadStatus(ctx context.Context, id string, status string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

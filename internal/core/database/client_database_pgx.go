package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/insightlabs-ai/docinsight/internal/config"
	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// DatabaseClient implements core.DbClient plus the vector, document and
// cache store capabilities on one Postgres connection (pgvector extension).
type DatabaseClient struct {
	db *sql.DB
}

var (
	_ core.DbClient    = (*DatabaseClient)(nil)
	_ core.VectorStore = (*DatabaseClient)(nil)
	_ core.DocStore    = (*DatabaseClient)(nil)
	_ core.CacheStore  = (*cacheTable)(nil)
)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Uploads

func (c *DatabaseClient) CreateUpload(ctx context.Context, up *models.Upload) error {
	if up == nil {
		return errors.New("nil upload")
	}
	const q = `
		INSERT INTO uploads
			(id, user_id, file_name, storage_url, content_type, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		up.ID, up.UserID, up.FileName, up.StorageURL, up.ContentType, up.Status, up.CreatedAt, up.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetUploadByID(ctx context.Context, id string) (*models.Upload, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, content_type, status, created_at, updated_at
		FROM uploads
		WHERE id = $1
	`
	var up models.Upload
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&up.ID, &up.UserID, &up.FileName, &up.StorageURL, &up.ContentType, &up.Status, &up.CreatedAt, &up.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &up, nil
}

func (c *DatabaseClient) ListUploadsByUser(ctx context.Context, userID string) ([]models.Upload, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, content_type, status, created_at, updated_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		var up models.Upload
		if err := rows.Scan(
			&up.ID, &up.UserID, &up.FileName, &up.StorageURL, &up.ContentType, &up.Status, &up.CreatedAt, &up.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateUploadStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE uploads
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("upload not found: %s", id)
	}
	return nil
}

// Vector store

// Upsert writes chunks in a single transaction; an existing chunk id is
// overwritten, which keeps re-ingestion idempotent.
func (c *DatabaseClient) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO chunks
			(id, doc_id, position, text, embedding, source, page_nums, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE
		SET text = EXCLUDED.text, embedding = EXCLUDED.embedding,
		    source = EXCLUDED.source, page_nums = EXCLUDED.page_nums
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		pages, err := json.Marshal(ch.Pages)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocID, ch.Position, ch.Text, vec, ch.Metadata.Source, pages,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query finds the topK most similar chunks for a query embedding.
func (c *DatabaseClient) Query(ctx context.Context, vector []float32, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	const q = `
		SELECT id, doc_id, position, text, embedding, source, page_nums,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(vector)
	rows, err := c.db.QueryContext(ctx, q, vec, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScoredChunk
	for rows.Next() {
		var (
			sc    models.ScoredChunk
			emb   pgvector.Vector
			pages []byte
		)
		ch := &sc.Chunk
		if err := rows.Scan(&ch.ID, &ch.DocID, &ch.Position, &ch.Text, &emb, &ch.Metadata.Source, &pages, &sc.Score); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		if len(pages) > 0 {
			if err := json.Unmarshal(pages, &ch.Pages); err != nil {
				return nil, err
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteByIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM chunks WHERE id = $1`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = $1`, docID)
	return err
}

// Dedup ledger

func (c *DatabaseClient) Put(ctx context.Context, rec *models.DocumentRecord) error {
	if rec == nil {
		return errors.New("nil document record")
	}
	ids, err := json.Marshal(rec.ChunkIDs)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO document_records (doc_id, content_hash, chunk_ids, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (doc_id) DO UPDATE
		SET content_hash = EXCLUDED.content_hash, chunk_ids = EXCLUDED.chunk_ids, updated_at = now()
	`
	_, err = c.db.ExecContext(ctx, q, rec.DocID, rec.ContentHash, ids)
	return err
}

func (c *DatabaseClient) Get(ctx context.Context, docID string) (*models.DocumentRecord, error) {
	const q = `
		SELECT doc_id, content_hash, chunk_ids, updated_at
		FROM document_records
		WHERE doc_id = $1
	`
	var (
		rec models.DocumentRecord
		ids []byte
	)
	err := c.db.QueryRowContext(ctx, q, docID).Scan(&rec.DocID, &rec.ContentHash, &ids, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &rec.ChunkIDs); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// Delete removes a ledger record; a missing doc id is a no-op.
func (c *DatabaseClient) Delete(ctx context.Context, docID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_records WHERE doc_id = $1`, docID)
	return err
}

// Cache store

// Cache exposes the transform_cache table as a core.CacheStore. The ledger's
// Get/Put live on DatabaseClient itself, so the cache gets its own adapter.
func (c *DatabaseClient) Cache() core.CacheStore {
	return &cacheTable{db: c.db}
}

type cacheTable struct {
	db *sql.DB
}

func (t *cacheTable) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := t.db.QueryRowContext(ctx, `SELECT value FROM transform_cache WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *cacheTable) Put(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO transform_cache (key, value, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := t.db.ExecContext(ctx, q, key, value)
	return err
}

package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Upload tracks a user-uploaded source file and its ingestion status.
type Upload struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	ContentType string    `db:"content_type" json:"content_type"`
	Status      string    `db:"status" json:"status"` // uploaded | processing | ready | failed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Metadata is the fixed-shape metadata carried by documents and chunks.
// PageNum is zero when the value covers a whole file rather than one page.
type Metadata struct {
	Source  string `json:"source"`
	PageNum int    `json:"page_num,omitempty"`
}

// Document is a unit of ingested content. Text holds the full extracted
// text with PAGE_NUM=<n> sentinels around each page's content. A Document
// is immutable once built; re-ingestion under the same ID supersedes it.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a contiguous span of a document's text produced by a splitter.
// ID is a deterministic hash of (document id, position, text), so re-splitting
// identical input reproduces identical ids. Embedding stays nil until the
// embedding transform runs. Pages holds the page numbers resolved from the
// sentinels inside Text.
type Chunk struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	Pages     []int     `json:"pages,omitempty"`
}

// ScoredChunk is a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// DocumentRecord is one entry of the dedup ledger: the content hash last seen
// for a document id and the chunk ids produced from it.
type DocumentRecord struct {
	DocID       string    `db:"doc_id" json:"doc_id"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	ChunkIDs    []string  `db:"chunk_ids" json:"chunk_ids"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterOutcome reports what the dedup ledger decided for a document.
type RegisterOutcome int

const (
	// Inserted means the document id was seen for the first time.
	Inserted RegisterOutcome = iota
	// DuplicateSkipped means id and content hash match an existing record;
	// the document must not be processed again.
	DuplicateSkipped
	// Updated means the id exists with a different content hash; previously
	// stored chunks for the id must be superseded.
	Updated
)

func (o RegisterOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case DuplicateSkipped:
		return "duplicate_skipped"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// ChatMessage is one turn of a conversation. Session state is owned by the
// caller and passed in with each request.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Citation points an answer back to its source file and page numbers.
// Pages empty means no page marker survived in the retrieved chunk.
type Citation struct {
	Source  string  `json:"source"`
	Pages   []int   `json:"pages"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

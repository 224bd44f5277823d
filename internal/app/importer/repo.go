// Package importer moves one unpacked deck archive into the remote document
// and blob stores: extract, rewrite, partition into sections, upload.
package importer

import (
	"context"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// IDAllocator hands out opaque remote document ids.
type IDAllocator interface {
	NewID() string
}

// DocumentStore is the remote document store contract consumed by the importer.
// Implemented by docstore.Store.
type DocumentStore interface {
	IDAllocator

	// Create writes a single document and fails with domain.ErrAlreadyExists
	// when path is taken.
	Create(ctx context.Context, path string, data any) error

	// BatchCreate writes all documents atomically.
	BatchCreate(ctx context.Context, writes []domain.DocumentWrite) error

	// Query lists the documents of one collection.
	Query(ctx context.Context, collection string, q domain.DocumentQuery) ([]domain.StoredDocument, error)
}

// BlobStore uploads media files. Implemented by bucket.Client.
type BlobStore interface {
	Upload(ctx context.Context, asset domain.Asset) error
}

// Unpacker extracts and deletes deck directories. Implemented by archive.Unpacker.
type Unpacker interface {
	Unzip(dir string) error
	Remove(dir string) error
}

// LedgerStore persists the deck job ledger. Implemented by ledger.File.
type LedgerStore interface {
	Load() (domain.Ledger, error)
	Save(l domain.Ledger) error
}

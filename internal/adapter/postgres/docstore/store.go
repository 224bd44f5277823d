// Package docstore implements a hierarchical document store on PostgreSQL.
//
// A document path alternates collection and document ids
// ("decks/42/cards/abc"); everything before the last segment is the
// collection, the last segment is the document id. Documents are JSON objects
// kept in a single jsonb table.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/deck-migrator/internal/adapter/postgres"
	"github.com/heartmarshall/deck-migrator/internal/domain"
)

const table = "documents"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store is the PostgreSQL document store.
type Store struct {
	pool *pgxpool.Pool
	tx   *postgres.TxManager
}

// New creates a new Store.
func New(pool *pgxpool.Pool, tx *postgres.TxManager) *Store {
	return &Store{pool: pool, tx: tx}
}

// NewID returns a fresh opaque document id.
func (s *Store) NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create writes data at path. It fails with domain.ErrAlreadyExists when the
// path is taken.
func (s *Store) Create(ctx context.Context, path string, data any) error {
	query, args, err := insertSQL(path, data)
	if err != nil {
		return err
	}

	q := postgres.QuerierFromCtx(ctx, s.pool)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, path)
	}
	return nil
}

// BatchCreate writes every document in one transaction: either all are
// created or none.
func (s *Store) BatchCreate(ctx context.Context, writes []domain.DocumentWrite) error {
	if len(writes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, w := range writes {
		query, args, err := insertSQL(w.Path, w.Data)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		results := postgres.QuerierFromCtx(ctx, s.pool).SendBatch(ctx, batch)
		defer results.Close()

		for _, w := range writes {
			if _, err := results.Exec(); err != nil {
				return postgres.MapError(err, w.Path)
			}
		}
		return nil
	})
}

// Query lists documents of collection matching q.
func (s *Store) Query(ctx context.Context, collection string, q domain.DocumentQuery) ([]domain.StoredDocument, error) {
	sb := psql.
		Select("id", "data", "created_at").
		From(table).
		Where(squirrel.Eq{"collection": collection})

	if len(q.Where) > 0 {
		filter, err := json.Marshal(q.Where)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		sb = sb.Where("data @> ?::jsonb", string(filter))
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	if q.OrderBy != "" {
		sb = sb.OrderByClause("data -> ?::text "+direction, q.OrderBy)
	}
	sb = sb.OrderBy("created_at "+direction, "id "+direction)

	if q.Limit > 0 {
		sb = sb.Limit(q.Limit)
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, collection)
	}
	defer rows.Close()

	var docs []domain.StoredDocument
	for rows.Next() {
		var (
			id  string
			doc domain.StoredDocument
		)
		if err := rows.Scan(&id, &doc.Data, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Path = collection + "/" + id
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, collection)
	}
	return docs, nil
}

func insertSQL(path string, data any) (string, []any, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return "", nil, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", nil, fmt.Errorf("encode document %s: %w", path, err)
	}

	query, args, err := psql.
		Insert(table).
		Columns("collection", "id", "data").
		Values(collection, id, string(payload)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}

// splitPath splits a document path into its collection and id. Valid paths
// have an even, non-zero number of non-empty segments.
func splitPath(path string) (collection, id string, err error) {
	segments := strings.Split(path, "/")
	if len(segments)%2 != 0 {
		return "", "", domain.NewValidationError("path", fmt.Sprintf("%q is not a document path", path))
	}
	for _, s := range segments {
		if s == "" {
			return "", "", domain.NewValidationError("path", fmt.Sprintf("%q has an empty segment", path))
		}
	}

	i := strings.LastIndex(path, "/")
	return path[:i], path[i+1:], nil
}

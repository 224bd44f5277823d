package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockStore is an in-memory DocumentStore recording every call.
type mockStore struct {
	mu sync.Mutex

	nextID  int
	docs    map[string]any
	created []string
	batches [][]domain.DocumentWrite

	// createErr fails Create for paths with the given prefix.
	createErrPrefix string
	createErr       error
	// batchErrAt fails the n-th BatchCreate call (1-based).
	batchErrAt int
	batchErr   error
	batchCalls int
	// queryErr fails every Query call.
	queryErr error

	callLog []string
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]any)}
}

func (m *mockStore) logCall(name string) {
	m.callLog = append(m.callLog, name)
}

func (m *mockStore) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *mockStore) Create(_ context.Context, path string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logCall("Create")

	if m.createErr != nil && strings.HasPrefix(path, m.createErrPrefix) {
		return m.createErr
	}
	if _, ok := m.docs[path]; ok {
		return domain.ErrAlreadyExists
	}
	m.docs[path] = data
	m.created = append(m.created, path)
	return nil
}

func (m *mockStore) BatchCreate(_ context.Context, writes []domain.DocumentWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logCall("BatchCreate")

	m.batchCalls++
	if m.batchErr != nil && m.batchCalls == m.batchErrAt {
		return m.batchErr
	}
	m.batches = append(m.batches, writes)
	for _, w := range writes {
		m.docs[w.Path] = w.Data
	}
	return nil
}

func (m *mockStore) Query(_ context.Context, collection string, _ domain.DocumentQuery) ([]domain.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logCall("Query")

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	paths := make([]string, 0, len(m.docs))
	for path := range m.docs {
		id, ok := strings.CutPrefix(path, collection+"/")
		if ok && !strings.Contains(id, "/") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	docs := make([]domain.StoredDocument, 0, len(paths))
	for _, path := range paths {
		data, err := json.Marshal(m.docs[path])
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.StoredDocument{Path: path, Data: data})
	}
	return docs, nil
}

func (m *mockStore) cards() []domain.CardDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CardDocument
	for _, b := range m.batches {
		for _, w := range b {
			out = append(out, w.Data.(domain.CardDocument))
		}
	}
	return out
}

// mockBlobs is a BlobStore failing for selected source paths.
type mockBlobs struct {
	mu       sync.Mutex
	uploaded []domain.Asset
	failFor  map[string]bool
}

func (m *mockBlobs) Upload(_ context.Context, asset domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[asset.SourcePath] {
		return errors.New("bucket unavailable")
	}
	m.uploaded = append(m.uploaded, asset)
	return nil
}

// mockUnpacker treats every directory as already unpacked.
type mockUnpacker struct {
	unzipErr error
	removed  []string
	callLog  []string
}

func (m *mockUnpacker) Unzip(string) error {
	m.callLog = append(m.callLog, "Unzip")
	return m.unzipErr
}

func (m *mockUnpacker) Remove(dir string) error {
	m.callLog = append(m.callLog, "Remove")
	m.removed = append(m.removed, dir)
	return nil
}

// mockLedger keeps the ledger in memory.
type mockLedger struct {
	ledger  domain.Ledger
	loadErr error
	saves   int
}

func (m *mockLedger) Load() (domain.Ledger, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ledger, nil
}

func (m *mockLedger) Save(l domain.Ledger) error {
	m.saves++
	m.ledger = l
	return nil
}

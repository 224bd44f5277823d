package importer

import (
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// mediaTypes covers media extensions the platform mime table may lack.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".ico":  "image/x-icon",
}

func init() {
	for ext, typ := range mediaTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(fmt.Sprintf("register mime type %s: %v", ext, err))
		}
	}
}

// Run holds the asset state of one deck import: the source path -> URL cache
// and the assets waiting for upload. A Run must not be shared between decks.
type Run struct {
	deckID string
	dir    string
	media  map[string]string

	ids           IDAllocator
	bucket        string
	publicURLBase string
	newToken      func() string

	cache   map[string]string
	pending []domain.Asset
}

// NewRun creates the run state for deckID. media maps filenames referenced by
// templates to their on-disk names inside dir.
func NewRun(deckID, dir string, media map[string]string, ids IDAllocator, cfg Config) *Run {
	return &Run{
		deckID:        deckID,
		dir:           dir,
		media:         media,
		ids:           ids,
		bucket:        cfg.Bucket,
		publicURLBase: strings.TrimRight(cfg.PublicURLBase, "/"),
		newToken:      uuid.NewString,
		cache:         make(map[string]string),
	}
}

// ResolveAsset resolves a filename referenced by a card template.
func (r *Run) ResolveAsset(name string) (string, error) {
	file, ok := r.media[name]
	if !ok {
		return "", fmt.Errorf("asset %q not in media index: %w", name, domain.ErrNotFound)
	}
	return r.Resolve(r.deckID, filepath.Join(r.dir, file), name)
}

// Resolve returns the public URL of the file at sourcePath, queueing it for
// upload on first sight. The content type comes from displayName.
func (r *Run) Resolve(deckID, sourcePath, displayName string) (string, error) {
	if u, ok := r.cache[sourcePath]; ok {
		return u, nil
	}

	token := r.newToken()
	id := r.ids.NewID()

	contentType := mime.TypeByExtension(filepath.Ext(displayName))
	if contentType == "" {
		return "", fmt.Errorf("asset %q: %w", displayName, domain.ErrUnknownContentType)
	}

	destination := domain.AssetDestination(deckID, id)
	r.pending = append(r.pending, domain.Asset{
		SourcePath:      sourcePath,
		DestinationPath: destination,
		ContentType:     contentType,
		AccessToken:     token,
	})

	u := fmt.Sprintf("%s/%s/o/%s?alt=media&token=%s",
		r.publicURLBase, r.bucket, url.PathEscape(destination), token)
	r.cache[sourcePath] = u
	return u, nil
}

// Pending returns the assets queued for upload, in resolution order.
func (r *Run) Pending() []domain.Asset {
	return r.pending
}

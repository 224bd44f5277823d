package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/heartmarshall/deck-migrator/internal/app/importer/collection"
	"github.com/heartmarshall/deck-migrator/internal/app/importer/rewrite"
	"github.com/heartmarshall/deck-migrator/internal/domain"
	"github.com/heartmarshall/deck-migrator/pkg/ctxutil"
)

// State is a step of the per-deck import.
type State string

const (
	StateUnpacking  State = "unpacking"
	StateExtracting State = "extracting"
	StateRewriting  State = "rewriting"
	StateUploading  State = "uploading"
	StateCleaningUp State = "cleaning_up"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// ImportResult holds the outcome of one deck import.
type ImportResult struct {
	DeckID        string
	Name          string
	State         State
	Queued        int
	Skipped       int
	Sections      []int
	CardsUploaded int
	// CardsStored is the card count read back after upload; -1 when the
	// read failed.
	CardsStored    int
	AssetsUploaded int
	AssetsFailed   int
	Duration       time.Duration
	Err            error
}

var _ rewrite.AssetResolver = (*Run)(nil)

// Pipeline imports decks one at a time.
type Pipeline struct {
	log      *slog.Logger
	store    DocumentStore
	blobs    BlobStore
	unpacker Unpacker
	ledger   LedgerStore
	rewriter *rewrite.Rewriter
	cfg      Config
	now      func() time.Time
	results  map[string]ImportResult
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	log *slog.Logger,
	store DocumentStore,
	blobs BlobStore,
	unpacker Unpacker,
	ledger LedgerStore,
	cfg Config,
) *Pipeline {
	var sanitizer *rewrite.Sanitizer
	if cfg.SanitizeHTML {
		sanitizer = rewrite.NewSanitizer()
	}

	return &Pipeline{
		log:      log.With("component", "importer"),
		store:    store,
		blobs:    blobs,
		unpacker: unpacker,
		ledger:   ledger,
		rewriter: rewrite.New(log, sanitizer),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		results:  make(map[string]ImportResult),
	}
}

// Results returns the outcome of every deck imported so far, keyed by deck id.
func (p *Pipeline) Results() map[string]ImportResult {
	return p.results
}

// ImportDeck imports the unpacked archive of deckID under the download dir.
//
// An unpack failure removes the deck directory, resets the ledger's downloaded
// flag and is returned. Extraction, rewriting and card upload failures remove
// the directory and are returned with the ledger untouched. Once cards are
// written, asset and cleanup failures are only logged and the deck id is
// returned.
func (p *Pipeline) ImportDeck(ctx context.Context, deckID string, topics []string) (string, error) {
	start := time.Now()
	log := ctxutil.Logger(ctx, p.log).With(slog.String("deck_id", deckID))
	dir := filepath.Join(p.cfg.DownloadDir, deckID)

	result := ImportResult{DeckID: deckID}
	defer func() {
		result.Duration = time.Since(start)
		p.results[deckID] = result
	}()

	enter := func(s State) {
		result.State = s
		log.Info("deck import state", slog.String("state", string(s)))
	}
	abort := func(err error) (string, error) {
		result.Err = err
		enter(StateAborted)
		log.Error("deck import aborted", slog.String("error", err.Error()))
		return "", err
	}

	enter(StateUnpacking)
	if err := p.unpacker.Unzip(dir); err != nil {
		unpackErr := fmt.Errorf("unpack deck %s: %w: %w", deckID, domain.ErrArchiveUnpack, err)
		return abort(errors.Join(unpackErr, p.rollback(deckID, dir)))
	}

	enter(StateExtracting)
	cards, run, err := p.extract(ctx, log, deckID, dir, topics, &result, enter)
	if err != nil {
		p.remove(log, dir)
		return abort(fmt.Errorf("import deck %s: %w", deckID, err))
	}

	enter(StateUploading)
	uploaded, err := p.uploadCards(ctx, deckID, cards)
	result.CardsUploaded = uploaded
	if err != nil {
		p.remove(log, dir)
		return abort(fmt.Errorf("import deck %s: %w", deckID, err))
	}
	result.CardsStored = p.verifyCards(ctx, log, deckID, uploaded)

	assets := p.uploadAssets(ctx, deckID, run.Pending())
	result.AssetsUploaded = assets.Uploaded
	result.AssetsFailed = assets.Failed

	enter(StateCleaningUp)
	p.remove(log, dir)

	enter(StateDone)
	log.Info("deck imported",
		slog.String("name", result.Name),
		slog.Int("cards", result.CardsUploaded),
		slog.Int("cards_stored", result.CardsStored),
		slog.Int("skipped", result.Skipped),
		slog.Int("sections", len(result.Sections)),
		slog.Int("assets_uploaded", result.AssetsUploaded),
		slog.Int("assets_failed", result.AssetsFailed),
		slog.Duration("duration", time.Since(start)),
	)
	return deckID, nil
}

// extract creates the deck document and renders every note into a queued
// card. Unit-level failures are logged and counted in result.Skipped.
func (p *Pipeline) extract(
	ctx context.Context,
	log *slog.Logger,
	deckID, dir string,
	topics []string,
	result *ImportResult,
	enter func(State),
) ([]domain.CardDocument, *Run, error) {
	reader, err := collection.OpenDir(dir)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	deck, err := reader.Deck(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read deck: %w", err)
	}
	result.Name = collection.DisplayName(deck.Name)

	doc := domain.NewDeckDocument(result.Name, topics, p.cfg.AccountID, p.now())
	if err := p.store.Create(ctx, domain.DeckPath(deckID), doc); err != nil {
		return nil, nil, fmt.Errorf("create deck document: %w", err)
	}

	media, err := collection.ReadMediaMap(dir)
	if err != nil {
		return nil, nil, err
	}

	inputs, err := reader.Inputs(ctx)
	if err != nil {
		return nil, nil, err
	}

	enter(StateRewriting)
	run := NewRun(deckID, dir, media, p.store, p.cfg)
	sections := NewPartitioner(log, p.store, deckID, p.cfg.MaxCardsPerSection)
	cards := make([]domain.CardDocument, 0, len(inputs))

	for _, in := range inputs {
		if in.Err != nil {
			log.Warn("note skipped", slog.String("error", in.Err.Error()))
			result.Skipped++
			continue
		}

		front, back, err := p.rewriter.Sides(in.Input, run)
		if err != nil {
			log.Warn("card skipped", slog.String("error", err.Error()))
			result.Skipped++
			continue
		}

		section, err := sections.Assign(ctx)
		if err != nil {
			return nil, nil, err
		}

		tags := in.Input.Tags
		if tags == nil {
			tags = []string{}
		}
		cards = append(cards, domain.CardDocument{
			Section: section,
			Front:   front,
			Back:    back,
			Tags:    tags,
		})

		log.Debug("card queued",
			slog.Int64("note_id", in.Input.NoteID),
			slog.Int("queued", len(cards)),
			slog.Int("total", len(inputs)),
		)
	}

	result.Queued = len(cards)
	result.Sections = sections.Counts()
	log.Info("cards queued",
		slog.Int("queued", result.Queued),
		slog.Int("skipped", result.Skipped),
		slog.Int("assets", len(run.Pending())),
	)
	return cards, run, nil
}

// verifyCards reads the deck's cards back and returns how many the store
// holds. A mismatch or read failure is logged; the cards are already committed.
func (p *Pipeline) verifyCards(ctx context.Context, log *slog.Logger, deckID string, uploaded int) int {
	docs, err := p.store.Query(ctx, domain.CardsPath(deckID), domain.DocumentQuery{})
	if err != nil {
		log.Warn("verify cards", slog.String("error", err.Error()))
		return -1
	}
	if len(docs) != uploaded {
		log.Warn("stored card count differs from upload",
			slog.Int("uploaded", uploaded),
			slog.Int("stored", len(docs)),
		)
	}
	return len(docs)
}

// rollback undoes a failed unpack: the directory goes and the deck is marked
// as not downloaded so the downloader fetches it again.
func (p *Pipeline) rollback(deckID, dir string) error {
	var errs []error
	if err := p.unpacker.Remove(dir); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
	}

	ledger, err := p.ledger.Load()
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("load ledger: %w", err))...)
	}

	entry := ledger[deckID]
	if entry == nil {
		p.log.Warn("deck missing from ledger", slog.String("deck_id", deckID))
		return errors.Join(errs...)
	}
	entry.Downloaded = false

	if err := p.ledger.Save(ledger); err != nil {
		errs = append(errs, fmt.Errorf("save ledger: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) remove(log *slog.Logger, dir string) {
	if err := p.unpacker.Remove(dir); err != nil {
		log.Error("remove deck directory", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

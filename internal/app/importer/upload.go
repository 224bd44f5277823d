package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// UploadResult counts the outcome of the asset upload phase.
type UploadResult struct {
	Uploaded int
	Failed   int
}

// uploadCards writes cards in sequential chunks, each chunk one atomic batch.
// The first failing chunk aborts the rest.
func (p *Pipeline) uploadCards(ctx context.Context, deckID string, cards []domain.CardDocument) (int, error) {
	size := p.cfg.CardChunkSize
	if size <= 0 {
		size = 500
	}
	chunks := (len(cards) + size - 1) / size
	chunk := 0

	p.log.Info("uploading cards", slog.String("deck_id", deckID), slog.Int("cards", len(cards)))

	return batchProcess(cards, size, func(batch []domain.CardDocument) (int, error) {
		chunk++

		writes := make([]domain.DocumentWrite, len(batch))
		for i, c := range batch {
			writes[i] = domain.DocumentWrite{
				Path: domain.CardsPath(deckID) + "/" + p.store.NewID(),
				Data: c,
			}
		}

		if err := p.store.BatchCreate(ctx, writes); err != nil {
			return 0, fmt.Errorf("card chunk %d/%d: %w: %w", chunk, chunks, domain.ErrRemoteWrite, err)
		}

		p.log.Info("uploaded card chunk",
			slog.String("deck_id", deckID),
			slog.Int("chunk", chunk),
			slog.Int("chunks", chunks),
			slog.Int("cards", len(batch)),
		)
		return len(batch), nil
	})
}

// uploadAssets uploads assets chunk by chunk, concurrently within a chunk.
// A failed upload is logged and counted; it never stops the phase.
func (p *Pipeline) uploadAssets(ctx context.Context, deckID string, assets []domain.Asset) UploadResult {
	size := p.cfg.AssetChunkSize
	if size <= 0 {
		size = 50
	}
	chunks := (len(assets) + size - 1) / size

	p.log.Info("uploading assets", slog.String("deck_id", deckID), slog.Int("assets", len(assets)))

	var uploaded, failed atomic.Int64
	chunk := 0
	_, _ = batchProcess(assets, size, func(batch []domain.Asset) (int, error) {
		chunk++

		g, gctx := errgroup.WithContext(ctx)
		for _, asset := range batch {
			g.Go(func() error {
				if err := p.blobs.Upload(gctx, asset); err != nil {
					p.log.Error("asset upload failed",
						slog.String("deck_id", deckID),
						slog.String("source", asset.SourcePath),
						slog.String("destination", asset.DestinationPath),
						slog.String("error", err.Error()),
					)
					failed.Add(1)
					return nil
				}
				uploaded.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		p.log.Info("uploaded asset chunk",
			slog.String("deck_id", deckID),
			slog.Int("chunk", chunk),
			slog.Int("chunks", chunks),
			slog.Int64("uploaded", uploaded.Load()),
			slog.Int64("failed", failed.Load()),
		)
		return len(batch), nil
	})

	return UploadResult{Uploaded: int(uploaded.Load()), Failed: int(failed.Load())}
}

// batchProcess splits items into batches of batchSize and calls fn for each.
// Returns the sum of fn results and stops at the first error.
func batchProcess[T any](items []T, batchSize int, fn func([]T) (int, error)) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	total := 0
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		n, err := fn(items[i:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

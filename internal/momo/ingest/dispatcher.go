package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Dispatcher polls the store for processing-eligible documents and runs
// them through the Pipeline with bounded concurrency, grounded on spec.md
// §5's "process(doc_id) is spawned per document" concurrency model.
type Dispatcher struct {
	Pipeline    *Pipeline
	Concurrency int
	PollInterval time.Duration
}

func (d *Dispatcher) withDefaults() Dispatcher {
	out := *d
	if out.Concurrency <= 0 {
		out.Concurrency = 4
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 5 * time.Second
	}
	return out
}

// Run polls until ctx is cancelled, processing newly queued/in-flight
// documents each tick with at most Concurrency documents in flight.
func (d *Dispatcher) Run(ctx context.Context) error {
	cfg := d.withDefaults()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := cfg.tick(ctx); err != nil {
				log.Error().Err(err).Msg("ingestion dispatcher tick failed")
			}
		}
	}
}

func (d Dispatcher) tick(ctx context.Context) error {
	docs, err := d.Pipeline.Store.ListProcessingDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Concurrency)

	for _, doc := range docs {
		docID := doc.ID
		g.Go(func() error {
			if err := d.Pipeline.Process(gctx, docID); err != nil {
				log.Error().Err(err).Str("doc_id", docID).Msg("document processing failed")
			}
			return nil
		})
	}
	return g.Wait()
}

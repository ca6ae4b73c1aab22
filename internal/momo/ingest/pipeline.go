// Package ingest implements Momo's ingestion pipeline: the per-document
// state machine queued→extracting→chunking→embedding→indexing→done/failed,
// grounded on original_source/momo/src/processing/pipeline.rs and spec.md
// §4.1.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"momo/internal/momo/chunk"
	"momo/internal/momo/extract"
	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/extractor"
	"momo/internal/momo/memory/filter"
	"momo/internal/momo/memory/relationship"
	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/objectstore"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

// Pipeline processes a single document through the full ingestion state
// machine.
type Pipeline struct {
	Store        store.Store
	Embeddings   providers.EmbeddingProvider
	OCR          providers.OCRProvider
	ASR          providers.ASRProvider
	Chunkers     *chunk.Registry
	Filter       *filter.Gate
	Extractor    *extractor.Extractor
	Relationship *relationship.Detector

	// Objects backs binary reads for documents whose SourcePath carries an
	// "s3://" or "minio://" scheme instead of a local filesystem path. Nil
	// means every SourcePath is resolved from local disk.
	Objects objectstore.Store

	// VectorIndex, when set, receives a best-effort dual-write of every
	// chunk embedding alongside Store, letting a deployment serve chunk
	// similarity search from Qdrant instead of pgvector without migrating
	// document/chunk metadata off Store. A dual-write failure is logged and
	// does not fail ingestion: Store remains the source of truth.
	VectorIndex ChunkIndexer

	EnableContradictionDetection bool

	// detached tracks in-flight detectRelations goroutines so Close can
	// drain them before the process exits.
	detached sync.WaitGroup
}

// ChunkIndexer is the subset of qdrantstore.Index's API the pipeline needs,
// kept narrow so tests can fake it without a live Qdrant.
type ChunkIndexer interface {
	UpsertChunk(ctx context.Context, chunkID, documentID string, vector []float32) error
}

func (p *Pipeline) indexChunks(ctx context.Context, chunks []*model.Chunk, documentID string) {
	if p.VectorIndex == nil {
		return
	}
	for _, c := range chunks {
		if err := p.VectorIndex.UpsertChunk(ctx, c.ID, documentID, c.Embedding); err != nil {
			log.Warn().Err(err).Str("chunk_id", c.ID).Msg("qdrant dual-write failed (advisory)")
		}
	}
}

// readSource returns the raw bytes a binary document's SourcePath names,
// resolving s3://bucket/key and minio://bucket/key through p.Objects when
// configured, local disk otherwise.
func (p *Pipeline) readSource(ctx context.Context, sourcePath string) ([]byte, error) {
	if key, ok := objectStoreKey(sourcePath); ok {
		if p.Objects == nil {
			return nil, fmt.Errorf("source %s requires an object store, none configured", sourcePath)
		}
		return p.Objects.Get(ctx, key)
	}
	return os.ReadFile(sourcePath)
}

// objectStoreKey strips a recognized object-store scheme from sourcePath,
// returning the bucket-relative key and whether a scheme was present.
func objectStoreKey(sourcePath string) (string, bool) {
	for _, scheme := range []string{"s3://", "minio://"} {
		if strings.HasPrefix(sourcePath, scheme) {
			return strings.TrimPrefix(sourcePath, scheme), true
		}
	}
	return "", false
}

// Process runs the full pipeline for an already-queued document, advancing
// its status at each stage. Any failure marks the document Failed with the
// triggering error's message and returns the error; the only non-blocking
// step is post-done memory extraction.
func (p *Pipeline) Process(ctx context.Context, docID string) error {
	const op = "ingest.Process"

	ctx, span := otel.Tracer("momo/ingest").Start(ctx, op)
	defer span.End()

	doc, err := p.Store.GetDocument(ctx, docID)
	if err != nil {
		return merrors.Recoverable(op, err)
	}
	if doc == nil {
		return merrors.Recoverable(op, fmt.Errorf("document %s not found", docID))
	}

	if err := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusExtracting, ""); err != nil {
		return merrors.Recoverable(op, err)
	}

	extracted, err := p.extractContent(ctx, doc)
	if err != nil {
		return p.fail(ctx, docID, err)
	}

	containerTag := doc.ContainerTag()
	if containerTag != "" {
		skip, failErr := p.runFilter(ctx, extracted.Text, containerTag, docID)
		if failErr != nil {
			return p.fail(ctx, docID, failErr)
		}
		if skip {
			return nil
		}
	}

	if err := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusChunking, ""); err != nil {
		return merrors.Recoverable(op, err)
	}

	chunks := p.Chunkers.Chunk(extracted.Text, extracted.DocType, chunk.Options{SourcePath: extracted.SourcePath})

	modelChunks := make([]*model.Chunk, len(chunks))
	now := time.Now()
	for i, c := range chunks {
		modelChunks[i] = &model.Chunk{
			ID:              idgen.New(),
			DocumentID:      docID,
			Content:         c.Content,
			EmbeddedContent: c.Content,
			Position:        i,
			TokenCount:      c.TokenCount,
			CreatedAt:       now,
		}
	}

	if err := p.Store.DeleteChunksByDocument(ctx, docID); err != nil {
		return p.fail(ctx, docID, err)
	}
	if len(modelChunks) > 0 {
		if err := p.Store.CreateChunks(ctx, modelChunks); err != nil {
			return p.fail(ctx, docID, err)
		}
	}

	if err := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusEmbedding, ""); err != nil {
		return merrors.Recoverable(op, err)
	}

	if len(modelChunks) > 0 {
		contents := make([]string, len(modelChunks))
		for i, c := range modelChunks {
			contents[i] = c.Content
		}
		embeddings, err := p.Embeddings.EmbedPassages(ctx, contents)
		if err != nil {
			return p.fail(ctx, docID, err)
		}
		for i, e := range embeddings {
			modelChunks[i].Embedding = e
		}
		if err := p.Store.UpdateChunkEmbeddings(ctx, modelChunks); err != nil {
			return p.fail(ctx, docID, err)
		}
		p.indexChunks(ctx, modelChunks, docID)
	}

	if err := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusIndexing, ""); err != nil {
		return merrors.Recoverable(op, err)
	}

	totalTokens := 0
	for _, c := range modelChunks {
		totalTokens += c.TokenCount
	}

	if extracted.Title != "" {
		doc.Title = extracted.Title
	}
	doc.DocType = resolveDocType(doc.DocType, extracted.DocType)
	if extracted.URL != "" {
		doc.URL = extracted.URL
	}
	doc.WordCount = extracted.WordCount
	doc.ChunkCount = len(modelChunks)
	doc.TokenCount = totalTokens
	doc.Status = model.StatusDone
	doc.UpdatedAt = time.Now()

	if err := p.Store.UpdateDocument(ctx, doc); err != nil {
		return p.fail(ctx, docID, err)
	}

	if doc.ExtractMemories() {
		if err := p.extractMemories(ctx, doc, extracted.Text); err != nil {
			log.Warn().Err(err).Str("doc_id", docID).Msg("memory extraction failed (non-blocking)")
		}
	}

	log.Info().Str("doc_id", docID).Int("chunks", doc.ChunkCount).Int("tokens", doc.TokenCount).Msg("document processed")
	return nil
}

func (p *Pipeline) extractContent(ctx context.Context, doc *model.Document) (extract.Content, error) {
	switch doc.DocType {
	case model.DocTypeImage, model.DocTypeAudio, model.DocTypeVideo:
		data, err := p.readSource(ctx, doc.SourcePath)
		if err != nil {
			return extract.Content{}, fmt.Errorf("read binary source %s: %w", doc.SourcePath, err)
		}
		return extract.ExtractBinary(ctx, data, doc.SourcePath, p.OCR, p.ASR)
	case model.DocTypePDF, model.DocTypeXLSX, model.DocTypeDOCX, model.DocTypePPTX:
		data, err := p.readSource(ctx, doc.SourcePath)
		if err != nil {
			return extract.Content{}, fmt.Errorf("read binary source %s: %w", doc.SourcePath, err)
		}
		return extract.ExtractBinary(ctx, data, doc.SourcePath, p.OCR, p.ASR)
	default:
		return extract.Extract(ctx, contentOf(doc), doc.SourcePath)
	}
}

// contentOf returns the raw content a non-binary document carries. Momo's
// Document does not have a dedicated content field distinct from its
// source; SourcePath doubles as the literal payload for text-like
// documents supplied inline (URL, HTML, plain text, code).
func contentOf(doc *model.Document) string {
	if doc.URL != "" {
		return doc.URL
	}
	return doc.SourcePath
}

// resolveDocType applies the downgrade-prevention rule: Code and Markdown
// documents are never downgraded to Text/Unknown by what the extractor
// reports, per spec.md §3/§4.1.
func resolveDocType(original, extracted model.DocType) model.DocType {
	if (original == model.DocTypeCode || original == model.DocTypeMarkdown) &&
		(extracted == model.DocTypeText || extracted == model.DocTypeUnknown) {
		return original
	}
	return extracted
}

func (p *Pipeline) runFilter(ctx context.Context, text, containerTag, docID string) (skip bool, err error) {
	overridePrompt, shouldFilter, err := p.Store.GetContainerFilter(ctx, containerTag)
	if err != nil {
		return false, err
	}
	// A container override row isn't the only way to ask for filtering: a
	// global prompt (cfg.Processing.FilterPrompt) applies to every container
	// that has no override, per spec.md §4.1.
	if !shouldFilter && p.Filter.GlobalPrompt == "" {
		return false, nil
	}

	var override *string
	if overridePrompt != "" {
		override = &overridePrompt
	}

	result := p.Filter.Filter(ctx, text, containerTag, docID, override)
	if result.Decision == filter.DecisionSkip {
		reason := result.Reasoning
		if reason == "" {
			reason = "Content filtered by LLM"
		}
		if updErr := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusDone, "Filtered: "+reason); updErr != nil {
			return false, updErr
		}
		return true, nil
	}
	return false, nil
}

func (p *Pipeline) fail(ctx context.Context, docID string, cause error) error {
	if updErr := p.Store.UpdateDocumentStatus(ctx, docID, model.StatusFailed, cause.Error()); updErr != nil {
		log.Error().Err(updErr).Str("doc_id", docID).Msg("failed to record failed document status")
	}
	return merrors.Recoverable("ingest.Process", cause)
}

func (p *Pipeline) extractMemories(ctx context.Context, doc *model.Document, text string) error {
	containerTag := doc.ContainerTag()
	if containerTag == "" {
		log.Warn().Str("doc_id", doc.ID).Msg("no container tag available for memory extraction")
		return nil
	}

	candidates := p.Extractor.Extract(ctx, text)
	if len(candidates) == 0 {
		return nil
	}
	totalExtracted := len(candidates)

	if p.EnableContradictionDetection {
		candidates = p.Extractor.CheckContradictions(ctx, candidates, containerTag)
	}

	unique, err := p.Extractor.Deduplicate(ctx, candidates, containerTag)
	if err != nil {
		return err
	}

	created, err := p.Extractor.Persist(ctx, unique, doc.ID, containerTag)
	if err != nil {
		return err
	}

	if p.Relationship != nil {
		for i, m := range created {
			var heuristicCtx *relationship.HeuristicContext
			if i < len(unique) && unique[i].HeuristicMatchID != "" {
				heuristicCtx = &relationship.HeuristicContext{
					CandidateMemoryID: unique[i].HeuristicMatchID,
					HeuristicResult:   unique[i].HeuristicResult,
				}
			}
			p.detectRelations(m, containerTag, heuristicCtx)
		}
	}

	log.Info().Str("doc_id", doc.ID).Int("total_extracted", totalExtracted).Int("unique_count", len(created)).Msg("memory extraction complete")
	return nil
}

// detectRelations runs relationship detection for a newly persisted memory
// as a detached task: the foreground extraction flow does not await it, per
// spec.md §5's auto-relations side effect. The task is tracked by
// p.detached so Close can drain it on shutdown instead of leaking it past
// the service's lifetime.
func (p *Pipeline) detectRelations(m *model.Memory, containerTag string, heuristicCtx *relationship.HeuristicContext) {
	p.detached.Add(1)
	go func() {
		defer p.detached.Done()
		ctx := context.Background()
		result := p.Relationship.Detect(ctx, m.ID, m.Content, containerTag, heuristicCtx)
		if len(result.Classifications) == 0 {
			return
		}
		if err := relationship.ApplyRelations(ctx, p.Store, m, result); err != nil {
			log.Warn().Err(err).Str("memory_id", m.ID).Msg("failed to apply detected relations")
		}
	}()
}

// Close waits for every detached relationship-detection task this pipeline
// started to finish. Callers should invoke it during service shutdown so
// fire-and-forget work doesn't outlive the process, per spec.md §9.
func (p *Pipeline) Close() {
	p.detached.Wait()
}

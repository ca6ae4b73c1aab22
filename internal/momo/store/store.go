// Package store defines Momo's storage trait: the full set of operations
// the core intelligence subsystems need from a backing database, decoupled
// from any particular SQL dialect or driver. Concrete backends (memstore,
// pgstore) implement Store.
package store

import (
	"context"
	"time"

	"momo/internal/momo/model"
)

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	ContainerTag string
	DocType      model.DocType
	Status       model.DocStatus
	Limit        int
	Offset       int
}

// MetadataFilterType enumerates the comparison a filter condition performs.
type MetadataFilterType string

const (
	MetadataFilterEquals MetadataFilterType = "equals"
)

// FilterCondition is one leaf of a search metadata filter tree.
type FilterCondition struct {
	Key             string
	Value           string
	Negate          bool
	FilterType      MetadataFilterType
	NumericOperator string // reserved for numeric comparisons; equality is the only required operator
}

// MetadataFilter is the AND/OR filter tree described in spec.md §6.
type MetadataFilter struct {
	AND []FilterCondition
	OR  []FilterCondition
}

// Matches reports whether md satisfies f: every AND condition must pass,
// and (when present) at least one OR condition must pass. Absent clauses
// are treated as passing.
func (f *MetadataFilter) Matches(md map[string]any) bool {
	if f == nil {
		return true
	}
	for _, c := range f.AND {
		if !matchCondition(md, c) {
			return false
		}
	}
	if len(f.OR) == 0 {
		return true
	}
	for _, c := range f.OR {
		if matchCondition(md, c) {
			return true
		}
	}
	return false
}

func matchCondition(md map[string]any, c FilterCondition) bool {
	v, ok := md[c.Key]
	var eq bool
	if ok {
		eq = toString(v) == c.Value
	}
	if c.Negate {
		return !eq
	}
	return eq
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

// ProfileResult is the raw material behind the Profile Generator's response.
type ProfileResult struct {
	StaticFacts  []string
	DynamicFacts []string
}

// Store is the complete storage trait consumed by the core subsystems.
// All operations are context-aware and safe for concurrent use.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentByAltID(ctx context.Context, altID string) (*model.Document, error)
	GetDocumentsByIDs(ctx context.Context, ids []string) ([]*model.Document, error)
	UpdateDocument(ctx context.Context, d *model.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status model.DocStatus, errMsg string) error
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentByAltID(ctx context.Context, altID string) error
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*model.Document, error)
	ListProcessingDocuments(ctx context.Context) ([]*model.Document, error)
	QueueAllDoneToQueued(ctx context.Context, containerTag string) (int, error)

	// Chunks
	CreateChunks(ctx context.Context, chunks []*model.Chunk) error
	UpdateChunkEmbeddings(ctx context.Context, chunks []*model.Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	SearchSimilarChunks(ctx context.Context, query []float32, limit int, threshold float64, containerTags []string) ([]model.ChunkHit, error)

	// Memories
	CreateMemory(ctx context.Context, m *model.Memory) error
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]*model.Memory, error)
	GetMemoryByContent(ctx context.Context, content, containerTag string) (*model.Memory, error)
	MarkNotLatest(ctx context.Context, id string) error
	ForgetMemory(ctx context.Context, id string, reason string) error
	UpdateLastAccessedBatch(ctx context.Context, ids []string, when time.Time) error
	UpdateSourceCount(ctx context.Context, id string, count int) error
	UpdateVersionChain(ctx context.Context, id string, parentID, rootID string, version int) error
	UpdateMemoryEmbedding(ctx context.Context, id string, embedding []float32) error
	SearchSimilarMemories(ctx context.Context, query []float32, limit int, threshold float64, containerTag string, includeForgotten bool) ([]model.MemoryHit, error)
	GetChildren(ctx context.Context, id string) ([]*model.Memory, error)
	GetParents(ctx context.Context, id string) ([]*model.Memory, error)
	GetForgettingCandidates(ctx context.Context, before time.Time) ([]*model.Memory, error)
	GetSeedMemories(ctx context.Context, limit int) ([]*model.Memory, error)
	CheckInferenceExists(ctx context.Context, sourceIDs []string) (bool, error)
	GetUserProfile(ctx context.Context, containerTag string, includeDynamic bool, limit int) (ProfileResult, error)
	UpdateRelations(ctx context.Context, id string, relations map[string]model.RelationKind) error
	AddRelation(ctx context.Context, id, otherID string, kind model.RelationKind) error
	GetGraphNeighborhood(ctx context.Context, id string, maxNodes int, kinds []model.GraphEdgeKind) (*model.GraphData, error)
	GetContainerGraph(ctx context.Context, containerTag string, maxNodes int) (*model.GraphData, error)
	GetEpisodeDecayCandidates(ctx context.Context, containerTag string) ([]*model.Memory, error)
	SetForgetAfter(ctx context.Context, id string, forgetAfter time.Time) error
	GetActiveContainerTags(ctx context.Context) ([]string, error)
	GetMaxMemoryUpdatedAt(ctx context.Context, containerTag string) (time.Time, error)

	// Cached profiles
	GetCachedProfile(ctx context.Context, containerTag string) (*model.CachedProfile, error)
	UpsertCachedProfile(ctx context.Context, p *model.CachedProfile) error

	// Memory sources
	CreateMemorySource(ctx context.Context, s *model.MemorySource) error
	GetMemorySourcesByMemory(ctx context.Context, memoryID string) ([]*model.MemorySource, error)
	GetMemorySourcesByDocument(ctx context.Context, documentID string) ([]*model.MemorySource, error)

	// Metadata
	GetEmbeddingDimensions(ctx context.Context) (int, error)
	SetEmbeddingDimensions(ctx context.Context, dims int) error

	// GetContainerFilter returns the optional per-container override of the
	// LLM filter prompt and whether filtering should run at all for it.
	// Supplemented from original_source (pipeline.rs's
	// get_container_filter); not spelled out by name in spec.md §6 but
	// required by the filter gate in §4.1.
	GetContainerFilter(ctx context.Context, containerTag string) (prompt string, shouldFilter bool, err error)
}

// Package model holds Momo's core entities: documents, chunks, memories,
// and the small supporting types the storage trait and core components
// pass between each other.
package model

import "time"

// DocType enumerates the kinds of content Momo can ingest.
type DocType string

const (
	DocTypeText    DocType = "text"
	DocTypeCode    DocType = "code"
	DocTypeMarkdown DocType = "markdown"
	DocTypeWebpage DocType = "webpage"
	DocTypePDF     DocType = "pdf"
	DocTypeDOCX    DocType = "docx"
	DocTypeXLSX    DocType = "xlsx"
	DocTypePPTX    DocType = "pptx"
	DocTypeCSV     DocType = "csv"
	DocTypeImage   DocType = "image"
	DocTypeAudio   DocType = "audio"
	DocTypeVideo   DocType = "video"
	DocTypeUnknown DocType = "unknown"
)

// DocStatus enumerates a document's position in the ingestion state machine.
type DocStatus string

const (
	StatusQueued     DocStatus = "queued"
	StatusExtracting DocStatus = "extracting"
	StatusChunking   DocStatus = "chunking"
	StatusEmbedding  DocStatus = "embedding"
	StatusIndexing   DocStatus = "indexing"
	StatusDone       DocStatus = "done"
	StatusFailed     DocStatus = "failed"
	StatusUnknown    DocStatus = "unknown"
)

// terminalRank orders statuses so forward-only progression can be checked;
// Failed is reachable from any non-terminal state.
var terminalRank = map[DocStatus]int{
	StatusQueued:     0,
	StatusExtracting: 1,
	StatusChunking:   2,
	StatusEmbedding:  3,
	StatusIndexing:   4,
	StatusDone:       5,
}

// CanTransition reports whether a document may move from `from` to `to`
// per the invariant in spec.md §3: forward-only, except into Failed from
// any non-terminal state; Done is terminal unless explicitly re-queued.
func CanTransition(from, to DocStatus) bool {
	if to == StatusFailed {
		return from != StatusDone && from != StatusFailed
	}
	if from == StatusDone && to == StatusQueued {
		return true // bulk re-queue
	}
	fr, fok := terminalRank[from]
	tr, tok := terminalRank[to]
	if !fok || !tok {
		return false
	}
	return tr > fr
}

// Document is Momo's top-level ingestion unit.
type Document struct {
	ID             string
	AltID          string // optional client-supplied alternate identity
	Title          string
	Summary        string
	URL            string
	SourcePath     string
	DocType        DocType
	Status         DocStatus
	Metadata       map[string]any
	ContainerTags  []string
	ChunkCount     int
	TokenCount     int
	WordCount      int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExtractMemories reports whether this document's metadata requests
// non-blocking post-ingestion memory extraction.
func (d *Document) ExtractMemories() bool {
	if d.Metadata == nil {
		return false
	}
	v, ok := d.Metadata["extract_memories"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ContainerTag returns the first container tag, or "" if none.
func (d *Document) ContainerTag() string {
	if len(d.ContainerTags) == 0 {
		return ""
	}
	return d.ContainerTags[0]
}

// Chunk is a slice of a document's extracted text, independently embedded.
type Chunk struct {
	ID              string
	DocumentID      string
	Content         string
	EmbeddedContent string // the exact string that was embedded, if different from Content
	Position        int
	TokenCount      int
	Embedding       []float32
	CreatedAt       time.Time
}

// MemoryType enumerates the three kinds of memory Momo stores.
type MemoryType string

const (
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeEpisode    MemoryType = "episode"
)

// RelationKind enumerates the edges a memory can carry to other memories.
type RelationKind string

const (
	RelationUpdates RelationKind = "updates"
	RelationExtends RelationKind = "extends"
	RelationDerives RelationKind = "derives"
)

// Memory is a single versioned fact, preference, or episode.
type Memory struct {
	ID             string
	Content        string
	SpaceID        string
	ContainerTag   string
	Version        int
	IsLatest       bool
	ParentMemoryID string
	RootMemoryID   string
	Relations      map[string]RelationKind
	SourceCount    int
	IsInference    bool
	IsForgotten    bool
	IsStatic       bool
	ForgetAfter    *time.Time
	ForgetReason   string
	MemoryType     MemoryType
	LastAccessed   *time.Time
	Confidence     *float64
	Metadata       map[string]any
	Embedding      []float32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MergeRelation adds kind for otherMemoryID using first-write-wins
// semantics, per the invariant in spec.md §3.
func (m *Memory) MergeRelation(otherMemoryID string, kind RelationKind) {
	if m.Relations == nil {
		m.Relations = make(map[string]RelationKind)
	}
	if _, exists := m.Relations[otherMemoryID]; exists {
		return
	}
	m.Relations[otherMemoryID] = kind
}

// DerivesSourceIDs returns the set of memory IDs this memory's relations
// mark as `derives` — the source set for an inference memory.
func (m *Memory) DerivesSourceIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for id, kind := range m.Relations {
		if kind == RelationDerives {
			out[id] = struct{}{}
		}
	}
	return out
}

// MemorySource links a memory to the document (and optionally chunk) it
// was extracted from.
type MemorySource struct {
	ID         string
	MemoryID   string
	DocumentID string
	ChunkID    string // optional
	CreatedAt  time.Time
}

// CachedProfile is the per-container-tag synthesized profile cache.
type CachedProfile struct {
	ContainerTag string
	Narrative    string
	CompactJSON  string // "[category] fact" lines, one per fact (see profile.encodeCategories)
	CachedAt     time.Time
}

// GraphEdgeKind enumerates the relation kinds exposed in a derived graph view.
type GraphEdgeKind string

const (
	EdgeUpdates    GraphEdgeKind = "updates"
	EdgeDerivedFrom GraphEdgeKind = "derived_from"
	EdgeRelatesTo  GraphEdgeKind = "relates_to"
	EdgeSources    GraphEdgeKind = "sources"
)

// GraphEdge is one edge in a derived (not persisted) graph view.
type GraphEdge struct {
	Source string
	Target string
	Kind   GraphEdgeKind
}

// GraphData is a derived view over memories, documents, and their edges.
// It is never persisted directly.
type GraphData struct {
	Memories  []*Memory
	Documents []*Document
	Edges     []GraphEdge
}

// ChunkHit is a single vector search hit against the chunk index.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
}

// MemoryHit is a single vector search hit against the memory index.
type MemoryHit struct {
	Memory *Memory
	Score  float64
}

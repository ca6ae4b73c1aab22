// Package memstore implements momo/internal/momo/store.Store entirely
// in-process with mutex-guarded maps. It is the zero-config default and
// the backend unit tests run against, grounded on the teacher's
// memory_vector.go / memory_search.go in-memory backend pair.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	documents map[string]*model.Document
	altIndex  map[string]string // altID -> documentID

	chunks map[string]*model.Chunk // chunkID -> chunk
	chunksByDoc map[string][]string // documentID -> ordered chunkIDs

	memories      map[string]*model.Memory
	memorySources map[string][]*model.MemorySource // memoryID -> sources
	sourcesByDoc  map[string][]*model.MemorySource  // documentID -> sources

	cachedProfiles map[string]*model.CachedProfile
	containerFilters map[string]containerFilter

	embeddingDims int
}

type containerFilter struct {
	prompt       string
	shouldFilter bool
}

// New constructs an empty in-memory Store.
func New() *Store {
	return &Store{
		documents:        make(map[string]*model.Document),
		altIndex:         make(map[string]string),
		chunks:           make(map[string]*model.Chunk),
		chunksByDoc:      make(map[string][]string),
		memories:         make(map[string]*model.Memory),
		memorySources:    make(map[string][]*model.MemorySource),
		sourcesByDoc:     make(map[string][]*model.MemorySource),
		cachedProfiles:   make(map[string]*model.CachedProfile),
		containerFilters: make(map[string]containerFilter),
	}
}

var _ store.Store = (*Store)(nil)

// ---- Documents ----

func (s *Store) CreateDocument(_ context.Context, d *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.documents[d.ID] = &cp
	if d.AltID != "" {
		s.altIndex[d.AltID] = d.ID
	}
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, merrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) GetDocumentByAltID(ctx context.Context, altID string) (*model.Document, error) {
	s.mu.RLock()
	id, ok := s.altIndex[altID]
	s.mu.RUnlock()
	if !ok {
		return nil, merrors.ErrNotFound
	}
	return s.GetDocument(ctx, id)
}

func (s *Store) GetDocumentsByIDs(_ context.Context, ids []string) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.documents[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateDocument(_ context.Context, d *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; !ok {
		return merrors.ErrNotFound
	}
	cp := *d
	s.documents[d.ID] = &cp
	if d.AltID != "" {
		s.altIndex[d.AltID] = d.ID
	}
	return nil
}

func (s *Store) UpdateDocumentStatus(_ context.Context, id string, status model.DocStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return merrors.ErrNotFound
	}
	d.Status = status
	d.ErrorMessage = errMsg
	d.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return merrors.ErrNotFound
	}
	if d.AltID != "" {
		delete(s.altIndex, d.AltID)
	}
	delete(s.documents, id)
	for _, cid := range s.chunksByDoc[id] {
		delete(s.chunks, cid)
	}
	delete(s.chunksByDoc, id)
	return nil
}

func (s *Store) DeleteDocumentByAltID(ctx context.Context, altID string) error {
	s.mu.RLock()
	id, ok := s.altIndex[altID]
	s.mu.RUnlock()
	if !ok {
		return merrors.ErrNotFound
	}
	return s.DeleteDocument(ctx, id)
}

func (s *Store) ListDocuments(_ context.Context, filter store.DocumentFilter) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Document
	for _, d := range s.documents {
		if filter.ContainerTag != "" && !containsTag(d.ContainerTags, filter.ContainerTag) {
			continue
		}
		if filter.DocType != "" && d.DocType != filter.DocType {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListProcessingDocuments(_ context.Context) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Document
	for _, d := range s.documents {
		if d.Status != model.StatusDone && d.Status != model.StatusFailed {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) QueueAllDoneToQueued(_ context.Context, containerTag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.documents {
		if d.Status != model.StatusDone {
			continue
		}
		if containerTag != "" && !containsTag(d.ContainerTags, containerTag) {
			continue
		}
		d.Status = model.StatusQueued
		d.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ---- Chunks ----

func (s *Store) CreateChunks(_ context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		cp := *c
		s.chunks[c.ID] = &cp
	}
	if len(chunks) > 0 {
		docID := chunks[0].DocumentID
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		s.chunksByDoc[docID] = ids
	}
	return nil
}

func (s *Store) UpdateChunkEmbeddings(_ context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		existing, ok := s.chunks[c.ID]
		if !ok {
			continue
		}
		existing.Embedding = c.Embedding
	}
	return nil
}

func (s *Store) DeleteChunksByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cid := range s.chunksByDoc[documentID] {
		delete(s.chunks, cid)
	}
	delete(s.chunksByDoc, documentID)
	return nil
}

func (s *Store) SearchSimilarChunks(_ context.Context, query []float32, limit int, threshold float64, containerTags []string) ([]model.ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qn := norm(query)
	var hits []model.ChunkHit
	for _, c := range s.chunks {
		if len(containerTags) > 0 {
			d, ok := s.documents[c.DocumentID]
			if !ok || !anyTagMatch(d.ContainerTags, containerTags) {
				continue
			}
		}
		score := cosine(query, c.Embedding, qn)
		if score < threshold {
			continue
		}
		hits = append(hits, model.ChunkHit{ChunkID: c.ID, DocumentID: c.DocumentID, Content: c.Content, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func anyTagMatch(have []string, want []string) bool {
	for _, w := range want {
		if containsTag(have, w) {
			return true
		}
	}
	return false
}

// ---- Memories ----

func (s *Store) CreateMemory(_ context.Context, m *model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.Relations = cloneRelations(m.Relations)
	s.memories[m.ID] = &cp
	return nil
}

func (s *Store) GetMemory(_ context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, merrors.ErrNotFound
	}
	return cloneMemory(m), nil
}

func (s *Store) GetMemoriesByIDs(_ context.Context, ids []string) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			out = append(out, cloneMemory(m))
		}
	}
	return out, nil
}

func (s *Store) GetMemoryByContent(_ context.Context, content, containerTag string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memories {
		if m.ContainerTag == containerTag && m.Content == content && m.IsLatest && !m.IsForgotten {
			return cloneMemory(m), nil
		}
	}
	return nil, merrors.ErrNotFound
}

func (s *Store) MarkNotLatest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.IsLatest = false
	m.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ForgetMemory(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.IsForgotten = true
	m.ForgetReason = reason
	m.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateLastAccessedBatch(_ context.Context, ids []string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			t := when
			m.LastAccessed = &t
		}
	}
	return nil
}

func (s *Store) UpdateSourceCount(_ context.Context, id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.SourceCount = count
	return nil
}

func (s *Store) UpdateVersionChain(_ context.Context, id string, parentID, rootID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.ParentMemoryID = parentID
	m.RootMemoryID = rootID
	m.Version = version
	m.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateMemoryEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.Embedding = embedding
	return nil
}

func (s *Store) SearchSimilarMemories(_ context.Context, query []float32, limit int, threshold float64, containerTag string, includeForgotten bool) ([]model.MemoryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qn := norm(query)
	var hits []model.MemoryHit
	for _, m := range s.memories {
		if containerTag != "" && m.ContainerTag != containerTag {
			continue
		}
		if !includeForgotten && m.IsForgotten {
			continue
		}
		score := cosine(query, m.Embedding, qn)
		if score < threshold {
			continue
		}
		hits = append(hits, model.MemoryHit{Memory: cloneMemory(m), Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) GetChildren(_ context.Context, id string) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Memory
	for _, m := range s.memories {
		if m.ParentMemoryID == id {
			out = append(out, cloneMemory(m))
		}
	}
	return out, nil
}

func (s *Store) GetParents(_ context.Context, id string) ([]*model.Memory, error) {
	s.mu.RLock()
	m, ok := s.memories[id]
	s.mu.RUnlock()
	if !ok || m.ParentMemoryID == "" {
		return nil, nil
	}
	parent, err := s.GetMemory(context.Background(), m.ParentMemoryID)
	if err != nil {
		return nil, nil
	}
	return []*model.Memory{parent}, nil
}

func (s *Store) GetForgettingCandidates(_ context.Context, before time.Time) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Memory
	for _, m := range s.memories {
		if m.IsForgotten || m.ForgetAfter == nil {
			continue
		}
		if m.ForgetAfter.Before(before) {
			out = append(out, cloneMemory(m))
		}
	}
	return out, nil
}

func (s *Store) GetSeedMemories(_ context.Context, limit int) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Memory
	for _, m := range s.memories {
		if m.IsInference || !m.IsLatest || m.IsForgotten {
			continue
		}
		switch m.MemoryType {
		case model.MemoryTypeFact, model.MemoryTypePreference, model.MemoryTypeEpisode:
		default:
			continue
		}
		out = append(out, cloneMemory(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CheckInferenceExists(_ context.Context, sourceIDs []string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		want[id] = struct{}{}
	}
	for _, m := range s.memories {
		if !m.IsInference || !m.IsLatest || m.IsForgotten {
			continue
		}
		derives := m.DerivesSourceIDs()
		if setsEqual(derives, want) {
			return true, nil
		}
	}
	return false, nil
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) GetUserProfile(_ context.Context, containerTag string, includeDynamic bool, limit int) (store.ProfileResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res store.ProfileResult
	var facts []*model.Memory
	for _, m := range s.memories {
		if m.ContainerTag != containerTag || !m.IsLatest || m.IsForgotten {
			continue
		}
		facts = append(facts, m)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].CreatedAt.After(facts[j].CreatedAt) })
	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	for _, m := range facts {
		if m.MemoryType == model.MemoryTypeFact || m.MemoryType == model.MemoryTypePreference {
			res.StaticFacts = append(res.StaticFacts, m.Content)
		} else if includeDynamic {
			res.DynamicFacts = append(res.DynamicFacts, m.Content)
		}
	}
	return res, nil
}

func (s *Store) UpdateRelations(_ context.Context, id string, relations map[string]model.RelationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	if m.Relations == nil {
		m.Relations = make(map[string]model.RelationKind)
	}
	for k, v := range relations {
		if _, exists := m.Relations[k]; !exists {
			m.Relations[k] = v
		}
	}
	return nil
}

func (s *Store) AddRelation(_ context.Context, id, otherID string, kind model.RelationKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	m.MergeRelation(otherID, kind)
	return nil
}

func (s *Store) GetGraphNeighborhood(_ context.Context, id string, maxNodes int, kinds []model.GraphEdgeKind) (*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allow := func(k model.GraphEdgeKind) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, kk := range kinds {
			if kk == k {
				return true
			}
		}
		return false
	}
	seen := map[string]bool{id: true}
	queue := []string{id}
	gd := &model.GraphData{}
	for len(queue) > 0 && len(gd.Memories) < maxNodes {
		cur := queue[0]
		queue = queue[1:]
		m, ok := s.memories[cur]
		if !ok {
			continue
		}
		gd.Memories = append(gd.Memories, cloneMemory(m))
		for otherID, kind := range m.Relations {
			edgeKind := relationToEdgeKind(kind)
			if !allow(edgeKind) {
				continue
			}
			gd.Edges = append(gd.Edges, model.GraphEdge{Source: m.ID, Target: otherID, Kind: edgeKind})
			if !seen[otherID] {
				seen[otherID] = true
				queue = append(queue, otherID)
			}
		}
	}
	return gd, nil
}

func relationToEdgeKind(k model.RelationKind) model.GraphEdgeKind {
	switch k {
	case model.RelationUpdates:
		return model.EdgeUpdates
	case model.RelationDerives:
		return model.EdgeDerivedFrom
	default:
		return model.EdgeRelatesTo
	}
}

func (s *Store) GetContainerGraph(_ context.Context, containerTag string, maxNodes int) (*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gd := &model.GraphData{}
	for _, m := range s.memories {
		if m.ContainerTag != containerTag {
			continue
		}
		if len(gd.Memories) >= maxNodes {
			break
		}
		gd.Memories = append(gd.Memories, cloneMemory(m))
		for otherID, kind := range m.Relations {
			gd.Edges = append(gd.Edges, model.GraphEdge{Source: m.ID, Target: otherID, Kind: relationToEdgeKind(kind)})
		}
	}
	return gd, nil
}

func (s *Store) GetEpisodeDecayCandidates(_ context.Context, containerTag string) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Memory
	for _, m := range s.memories {
		if m.MemoryType != model.MemoryTypeEpisode || m.IsForgotten {
			continue
		}
		if containerTag != "" && m.ContainerTag != containerTag {
			continue
		}
		out = append(out, cloneMemory(m))
	}
	return out, nil
}

func (s *Store) SetForgetAfter(_ context.Context, id string, forgetAfter time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return merrors.ErrNotFound
	}
	t := forgetAfter
	m.ForgetAfter = &t
	return nil
}

func (s *Store) GetActiveContainerTags(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, m := range s.memories {
		if m.ContainerTag != "" && !seen[m.ContainerTag] {
			seen[m.ContainerTag] = true
			out = append(out, m.ContainerTag)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetMaxMemoryUpdatedAt(_ context.Context, containerTag string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max time.Time
	for _, m := range s.memories {
		if m.ContainerTag != containerTag {
			continue
		}
		if m.UpdatedAt.After(max) {
			max = m.UpdatedAt
		}
	}
	return max, nil
}

// ---- Cached profiles ----

func (s *Store) GetCachedProfile(_ context.Context, containerTag string) (*model.CachedProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cachedProfiles[containerTag]
	if !ok {
		return nil, merrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpsertCachedProfile(_ context.Context, p *model.CachedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.cachedProfiles[p.ContainerTag] = &cp
	return nil
}

// ---- Memory sources ----

func (s *Store) CreateMemorySource(_ context.Context, src *model.MemorySource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *src
	s.memorySources[src.MemoryID] = append(s.memorySources[src.MemoryID], &cp)
	s.sourcesByDoc[src.DocumentID] = append(s.sourcesByDoc[src.DocumentID], &cp)
	return nil
}

func (s *Store) GetMemorySourcesByMemory(_ context.Context, memoryID string) ([]*model.MemorySource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.MemorySource(nil), s.memorySources[memoryID]...), nil
}

func (s *Store) GetMemorySourcesByDocument(_ context.Context, documentID string) ([]*model.MemorySource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.MemorySource(nil), s.sourcesByDoc[documentID]...), nil
}

// ---- Metadata ----

func (s *Store) GetEmbeddingDimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingDims, nil
}

func (s *Store) SetEmbeddingDimensions(_ context.Context, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddingDims = dims
	return nil
}

func (s *Store) GetContainerFilter(_ context.Context, containerTag string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cf, ok := s.containerFilters[containerTag]
	if !ok {
		return "", false, nil
	}
	return cf.prompt, cf.shouldFilter, nil
}

// SetContainerFilter is a test/admin helper not exposed through store.Store;
// it configures the per-container filter override GetContainerFilter reads.
func (s *Store) SetContainerFilter(containerTag, prompt string, shouldFilter bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containerFilters[containerTag] = containerFilter{prompt: prompt, shouldFilter: shouldFilter}
}

func cloneMemory(m *model.Memory) *model.Memory {
	cp := *m
	cp.Relations = cloneRelations(m.Relations)
	cp.Metadata = cloneAnyMap(m.Metadata)
	return &cp
}

func cloneRelations(r map[string]model.RelationKind) map[string]model.RelationKind {
	if r == nil {
		return nil
	}
	out := make(map[string]model.RelationKind, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}

// Package qdrantstore is an optional secondary vector index for Momo's
// chunk and memory embeddings, dual-written alongside pgstore/memstore at
// ingest time so a deployment can point chunk/memory similarity search at
// Qdrant instead of pgvector without migrating the relational metadata.
// Grounded directly on
// _examples/intelligencedev-manifold/internal/persistence/databases/qdrant_vector.go's
// qdrantVector type; adapted from its generic VectorStore shape to Momo's
// two fixed collections (chunks, memories) and model.* ID types.
package qdrantstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadOriginalID holds Momo's own string ID, since Qdrant point IDs must
// be a UUID or a positive integer.
const payloadOriginalID = "_momo_id"

// Config configures Index.
type Config struct {
	DSN              string // e.g. "http://localhost:6334" or "https://host:6334?api_key=..."
	ChunkCollection  string
	MemoryCollection string
	Dimensions       int
}

// Index wraps a Qdrant client exposing two collections: one for chunk
// embeddings, one for memory embeddings.
type Index struct {
	client           *qdrant.Client
	chunkCollection  string
	memoryCollection string
	dimensions       int
}

// New dials the Qdrant gRPC endpoint named by cfg.DSN and ensures both
// collections exist, creating them with cosine distance if not.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.ChunkCollection == "" || cfg.MemoryCollection == "" {
		return nil, fmt.Errorf("qdrantstore: chunk and memory collection names are required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrantstore: dimensions must be > 0")
	}

	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}

	qcfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		qcfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		qcfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	idx := &Index{
		client:           client,
		chunkCollection:  cfg.ChunkCollection,
		memoryCollection: cfg.MemoryCollection,
		dimensions:       cfg.Dimensions,
	}
	for _, collection := range []string{cfg.ChunkCollection, cfg.MemoryCollection} {
		if err := idx.ensureCollection(ctx, collection); err != nil {
			client.Close()
			return nil, fmt.Errorf("ensure collection %s: %w", collection, err)
		}
	}
	return idx, nil
}

func (idx *Index) ensureCollection(ctx context.Context, collection string) error {
	exists, err := idx.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	return idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(idx.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// UpsertChunk indexes a chunk embedding under chunk id, tagged with its
// owning document id for container-tag-free filtering by callers that
// already know the document.
func (idx *Index) UpsertChunk(ctx context.Context, chunkID, documentID string, vector []float32) error {
	return idx.upsert(ctx, idx.chunkCollection, chunkID, vector, map[string]any{"document_id": documentID})
}

// UpsertMemory indexes a memory embedding under memory id, tagged with its
// container tag so Search can filter by it.
func (idx *Index) UpsertMemory(ctx context.Context, memoryID, containerTag string, vector []float32) error {
	return idx.upsert(ctx, idx.memoryCollection, memoryID, vector, map[string]any{"container_tag": containerTag})
}

func (idx *Index) upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	metadata[payloadOriginalID] = id
	vec := make([]float32, len(vector))
	copy(vec, vector)
	points := []*qdrant.PointStruct{{
		Id:      pointID(id),
		Vectors: qdrant.NewVectorsDense(vec),
		Payload: qdrant.NewValueMap(metadata),
	}}
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collection, Points: points})
	return err
}

// DeleteChunk removes a chunk's point from the index.
func (idx *Index) DeleteChunk(ctx context.Context, chunkID string) error {
	return idx.delete(ctx, idx.chunkCollection, chunkID)
}

// DeleteMemory removes a memory's point from the index.
func (idx *Index) DeleteMemory(ctx context.Context, memoryID string) error {
	return idx.delete(ctx, idx.memoryCollection, memoryID)
}

func (idx *Index) delete(ctx context.Context, collection, id string) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointID(id)),
	})
	return err
}

// Hit is one similarity search result: Momo's own ID and the match score.
type Hit struct {
	ID    string
	Score float64
}

// SearchChunks returns the top-k nearest chunk points to vector.
func (idx *Index) SearchChunks(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	return idx.search(ctx, idx.chunkCollection, vector, k, nil)
}

// SearchMemories returns the top-k nearest memory points to vector, filtered
// to containerTag when non-empty.
func (idx *Index) SearchMemories(ctx context.Context, vector []float32, k int, containerTag string) ([]Hit, error) {
	var filter map[string]string
	if containerTag != "" {
		filter = map[string]string{"container_tag": containerTag}
	}
	return idx.search(ctx, idx.memoryCollection, vector, k, filter)
}

func (idx *Index) search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	var queryFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for key, val := range filter {
			must = append(must, qdrant.NewMatch(key, val))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}

	limit := uint64(k)
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(result))
	for _, p := range result {
		id := p.Id.GetUuid()
		if p.Payload != nil {
			if v, ok := p.Payload[payloadOriginalID]; ok {
				if s := v.GetStringValue(); s != "" {
					id = s
				}
			}
		}
		hits = append(hits, Hit{ID: id, Score: float64(p.Score)})
	}
	return hits, nil
}

// Close releases the underlying gRPC connection.
func (idx *Index) Close() error { return idx.client.Close() }

package pgstore

import (
	"context"
	"strconv"

	"momo/internal/momo/idgen"
	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

func (s *Store) GetCachedProfile(ctx context.Context, containerTag string) (*model.CachedProfile, error) {
	var p model.CachedProfile
	err := s.pool.QueryRow(ctx, `
		SELECT container_tag, narrative, compact_json, cached_at FROM cached_profiles WHERE container_tag=$1
	`, containerTag).Scan(&p.ContainerTag, &p.Narrative, &p.CompactJSON, &p.CachedAt)
	if err != nil {
		return nil, noRowsToNotFound(err)
	}
	return &p, nil
}

func (s *Store) UpsertCachedProfile(ctx context.Context, p *model.CachedProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cached_profiles (container_tag, narrative, compact_json, cached_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (container_tag) DO UPDATE SET
			narrative=EXCLUDED.narrative, compact_json=EXCLUDED.compact_json, cached_at=EXCLUDED.cached_at
	`, p.ContainerTag, p.Narrative, p.CompactJSON, p.CachedAt)
	return err
}

func (s *Store) CreateMemorySource(ctx context.Context, src *model.MemorySource) error {
	if src.ID == "" {
		src.ID = idgen.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_sources (id, memory_id, document_id, chunk_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, src.ID, src.MemoryID, src.DocumentID, src.ChunkID, src.CreatedAt)
	return err
}

func (s *Store) GetMemorySourcesByMemory(ctx context.Context, memoryID string) ([]*model.MemorySource, error) {
	return s.queryMemorySources(ctx, `WHERE memory_id=$1`, memoryID)
}

func (s *Store) GetMemorySourcesByDocument(ctx context.Context, documentID string) ([]*model.MemorySource, error) {
	return s.queryMemorySources(ctx, `WHERE document_id=$1`, documentID)
}

func (s *Store) queryMemorySources(ctx context.Context, where string, arg string) ([]*model.MemorySource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, memory_id, document_id, chunk_id, created_at FROM memory_sources `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.MemorySource
	for rows.Next() {
		var src model.MemorySource
		if err := rows.Scan(&src.ID, &src.MemoryID, &src.DocumentID, &src.ChunkID, &src.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

func (s *Store) GetEmbeddingDimensions(ctx context.Context) (int, error) {
	var dims int
	err := s.pool.QueryRow(ctx, `SELECT value::int FROM momo_metadata WHERE key='embedding_dims'`).Scan(&dims)
	if err != nil {
		if noRowsToNotFound(err) == merrors.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return dims, nil
}

func (s *Store) SetEmbeddingDimensions(ctx context.Context, dims int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO momo_metadata (key, value) VALUES ('embedding_dims', $1)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value
	`, strconv.Itoa(dims))
	return err
}

func (s *Store) GetContainerFilter(ctx context.Context, containerTag string) (string, bool, error) {
	var prompt string
	var shouldFilter bool
	err := s.pool.QueryRow(ctx, `
		SELECT prompt, should_filter FROM container_filters WHERE container_tag=$1
	`, containerTag).Scan(&prompt, &shouldFilter)
	if err != nil {
		if noRowsToNotFound(err) == merrors.ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return prompt, shouldFilter, nil
}

// SetContainerFilter is a test/admin helper not exposed through store.Store,
// mirroring memstore's identically named helper.
func (s *Store) SetContainerFilter(ctx context.Context, containerTag, prompt string, shouldFilter bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO container_filters (container_tag, prompt, should_filter) VALUES ($1,$2,$3)
		ON CONFLICT (container_tag) DO UPDATE SET prompt=EXCLUDED.prompt, should_filter=EXCLUDED.should_filter
	`, containerTag, prompt, shouldFilter)
	return err
}

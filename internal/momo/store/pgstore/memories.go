package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/store"
)

const memorySelectSQL = `
	SELECT id, content, space_id, container_tag, version, is_latest, parent_memory_id, root_memory_id,
		relations, source_count, is_inference, is_forgotten, is_static, forget_after, forget_reason,
		memory_type, last_accessed, confidence, metadata, created_at, updated_at
	FROM memories`

func scanMemory(row rowScanner) (*model.Memory, error) {
	var m model.Memory
	var memType string
	var relations, md []byte
	if err := row.Scan(&m.ID, &m.Content, &m.SpaceID, &m.ContainerTag, &m.Version, &m.IsLatest,
		&m.ParentMemoryID, &m.RootMemoryID, &relations, &m.SourceCount, &m.IsInference, &m.IsForgotten,
		&m.IsStatic, &m.ForgetAfter, &m.ForgetReason, &memType, &m.LastAccessed, &m.Confidence,
		&md, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, noRowsToNotFound(err)
	}
	m.MemoryType = model.MemoryType(memType)
	m.Relations = unmarshalRelations(relations)
	m.Metadata = unmarshalMetadata(md)
	return &m, nil
}

func (s *Store) CreateMemory(ctx context.Context, m *model.Memory) error {
	relations, err := marshalRelations(m.Relations)
	if err != nil {
		return err
	}
	md, err := marshalJSON(m.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO memories (id, content, space_id, container_tag, version, is_latest, parent_memory_id,
			root_memory_id, relations, source_count, is_inference, is_forgotten, is_static, forget_after,
			forget_reason, memory_type, last_accessed, confidence, metadata, embedding, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, m.ID, m.Content, m.SpaceID, m.ContainerTag, m.Version, m.IsLatest, m.ParentMemoryID, m.RootMemoryID,
		relations, m.SourceCount, m.IsInference, m.IsForgotten, m.IsStatic, m.ForgetAfter, m.ForgetReason,
		string(m.MemoryType), m.LastAccessed, m.Confidence, md, toVector(m.Embedding), m.CreatedAt, m.UpdatedAt)
	return err
}

func (s *Store) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.pool.QueryRow(ctx, memorySelectSQL+` WHERE id=$1`, id)
	return scanMemory(row)
}

func (s *Store) GetMemoriesByIDs(ctx context.Context, ids []string) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, memorySelectSQL+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMemoryByContent(ctx context.Context, content, containerTag string) (*model.Memory, error) {
	row := s.pool.QueryRow(ctx, memorySelectSQL+`
		WHERE container_tag=$1 AND content=$2 AND is_latest AND NOT is_forgotten LIMIT 1`,
		containerTag, content)
	return scanMemory(row)
}

func (s *Store) MarkNotLatest(ctx context.Context, id string) error {
	return s.mustUpdate(ctx, `UPDATE memories SET is_latest=false, updated_at=now() WHERE id=$1`, id)
}

func (s *Store) ForgetMemory(ctx context.Context, id string, reason string) error {
	return s.mustUpdate(ctx, `UPDATE memories SET is_forgotten=true, forget_reason=$2, updated_at=now() WHERE id=$1`, id, reason)
}

func (s *Store) UpdateLastAccessedBatch(ctx context.Context, ids []string, when time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE memories SET last_accessed=$2 WHERE id = ANY($1)`, ids, when)
	return err
}

func (s *Store) UpdateSourceCount(ctx context.Context, id string, count int) error {
	return s.mustUpdate(ctx, `UPDATE memories SET source_count=$2 WHERE id=$1`, id, count)
}

func (s *Store) UpdateVersionChain(ctx context.Context, id string, parentID, rootID string, version int) error {
	return s.mustUpdate(ctx, `
		UPDATE memories SET parent_memory_id=$2, root_memory_id=$3, version=$4, updated_at=now() WHERE id=$1
	`, id, parentID, rootID, version)
}

func (s *Store) UpdateMemoryEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.mustUpdate(ctx, `UPDATE memories SET embedding=$2 WHERE id=$1`, id, toVector(embedding))
}

func (s *Store) SearchSimilarMemories(ctx context.Context, query []float32, limit int, threshold float64, containerTag string, includeForgotten bool) ([]model.MemoryHit, error) {
	op := MetricCosine.operator()
	args := []any{toVector(query)}
	sqlStr := strings.TrimSuffix(memorySelectSQL, "FROM memories") + fmt.Sprintf(`, 1 - (embedding %s $1) AS score FROM memories WHERE embedding IS NOT NULL`, op)
	if containerTag != "" {
		args = append(args, containerTag)
		sqlStr += fmt.Sprintf(` AND container_tag = $%d`, len(args))
	}
	if !includeForgotten {
		sqlStr += ` AND NOT is_forgotten`
	}
	args = append(args, threshold)
	sqlStr += fmt.Sprintf(` AND 1 - (embedding %s $1) >= $%d`, op, len(args))
	sqlStr += fmt.Sprintf(` ORDER BY embedding %s $1`, op)
	if limit > 0 {
		args = append(args, limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MemoryHit
	for rows.Next() {
		var memType string
		var relations, md []byte
		var m model.Memory
		var score float64
		if err := rows.Scan(&m.ID, &m.Content, &m.SpaceID, &m.ContainerTag, &m.Version, &m.IsLatest,
			&m.ParentMemoryID, &m.RootMemoryID, &relations, &m.SourceCount, &m.IsInference, &m.IsForgotten,
			&m.IsStatic, &m.ForgetAfter, &m.ForgetReason, &memType, &m.LastAccessed, &m.Confidence,
			&md, &m.CreatedAt, &m.UpdatedAt, &score); err != nil {
			return nil, err
		}
		m.MemoryType = model.MemoryType(memType)
		m.Relations = unmarshalRelations(relations)
		m.Metadata = unmarshalMetadata(md)
		out = append(out, model.MemoryHit{Memory: &m, Score: score})
	}
	return out, rows.Err()
}

func (s *Store) GetChildren(ctx context.Context, id string) ([]*model.Memory, error) {
	rows, err := s.pool.Query(ctx, memorySelectSQL+` WHERE parent_memory_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetParents(ctx context.Context, id string) ([]*model.Memory, error) {
	m, err := s.GetMemory(ctx, id)
	if err != nil || m.ParentMemoryID == "" {
		return nil, nil
	}
	parent, err := s.GetMemory(ctx, m.ParentMemoryID)
	if err != nil {
		return nil, nil
	}
	return []*model.Memory{parent}, nil
}

func (s *Store) GetForgettingCandidates(ctx context.Context, before time.Time) ([]*model.Memory, error) {
	rows, err := s.pool.Query(ctx, memorySelectSQL+`
		WHERE NOT is_forgotten AND forget_after IS NOT NULL AND forget_after < $1`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetSeedMemories(ctx context.Context, limit int) ([]*model.Memory, error) {
	sqlStr := memorySelectSQL + `
		WHERE NOT is_inference AND is_latest AND NOT is_forgotten
		AND memory_type IN ($1,$2,$3)
		ORDER BY created_at DESC`
	args := []any{string(model.MemoryTypeFact), string(model.MemoryTypePreference), string(model.MemoryTypeEpisode)}
	if limit > 0 {
		args = append(args, limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CheckInferenceExists replicates memstore's exact-set-equality check in SQL:
// an existing inference memory's `derives` relation keys must match sourceIDs
// exactly, neither a subset nor a superset.
func (s *Store) CheckInferenceExists(ctx context.Context, sourceIDs []string) (bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT relations FROM memories WHERE is_inference AND is_latest AND NOT is_forgotten`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	want := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		want[id] = struct{}{}
	}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return false, err
		}
		relations := unmarshalRelations(raw)
		derives := make(map[string]struct{})
		for id, kind := range relations {
			if kind == model.RelationDerives {
				derives[id] = struct{}{}
			}
		}
		if setsEqual(derives, want) {
			return true, nil
		}
	}
	return false, rows.Err()
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

func (s *Store) GetUserProfile(ctx context.Context, containerTag string, includeDynamic bool, limit int) (store.ProfileResult, error) {
	var res store.ProfileResult
	sqlStr := `
		SELECT content, memory_type FROM memories
		WHERE container_tag=$1 AND is_latest AND NOT is_forgotten
		ORDER BY created_at DESC`
	args := []any{containerTag}
	if limit > 0 {
		args = append(args, limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return res, err
	}
	defer rows.Close()
	for rows.Next() {
		var content, memType string
		if err := rows.Scan(&content, &memType); err != nil {
			return res, err
		}
		switch model.MemoryType(memType) {
		case model.MemoryTypeFact, model.MemoryTypePreference:
			res.StaticFacts = append(res.StaticFacts, content)
		default:
			if includeDynamic {
				res.DynamicFacts = append(res.DynamicFacts, content)
			}
		}
	}
	return res, rows.Err()
}

// UpdateRelations merges relations with first-write-wins semantics via the
// jsonb `||` operator with the incoming map on the left: existing keys in
// the stored column win because they are the right-hand operand.
func (s *Store) UpdateRelations(ctx context.Context, id string, relations map[string]model.RelationKind) error {
	if len(relations) == 0 {
		return s.existsMemory(ctx, id)
	}
	incoming, err := marshalRelations(relations)
	if err != nil {
		return err
	}
	return s.mustUpdate(ctx, `
		UPDATE memories SET relations = $2::jsonb || relations WHERE id=$1
	`, id, incoming)
}

// AddRelation merges a single relation with first-write-wins semantics: the
// conditional WHERE clause means zero rows affected is ambiguous between
// "memory not found" and "key already present", so an explicit existence
// check disambiguates instead of mustUpdate's rows-affected heuristic.
func (s *Store) AddRelation(ctx context.Context, id, otherID string, kind model.RelationKind) error {
	if err := s.existsMemory(ctx, id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE memories SET relations = relations || jsonb_build_object($2::text, $3::text)
		WHERE id=$1 AND NOT (relations ? $2)
	`, id, otherID, string(kind))
	return err
}

func (s *Store) existsMemory(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM memories WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return merrors.ErrNotFound
	}
	return nil
}

func (s *Store) mustUpdate(ctx context.Context, sqlStr string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return merrors.ErrNotFound
	}
	return nil
}

// GetGraphNeighborhood walks the relation graph breadth-first in Go, exactly
// mirroring memstore's traversal: pgvector/jsonb give no native recursive
// BFS-with-a-node-cap primitive worth reaching for over N small queries.
func (s *Store) GetGraphNeighborhood(ctx context.Context, id string, maxNodes int, kinds []model.GraphEdgeKind) (*model.GraphData, error) {
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
		m, err := s.GetMemory(ctx, cur)
		if err != nil {
			continue
		}
		gd.Memories = append(gd.Memories, m)
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

func (s *Store) GetContainerGraph(ctx context.Context, containerTag string, maxNodes int) (*model.GraphData, error) {
	rows, err := s.pool.Query(ctx, memorySelectSQL+` WHERE container_tag=$1 LIMIT $2`, containerTag, maxNodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	gd := &model.GraphData{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		gd.Memories = append(gd.Memories, m)
		for otherID, kind := range m.Relations {
			gd.Edges = append(gd.Edges, model.GraphEdge{Source: m.ID, Target: otherID, Kind: relationToEdgeKind(kind)})
		}
	}
	return gd, rows.Err()
}

func (s *Store) GetEpisodeDecayCandidates(ctx context.Context, containerTag string) ([]*model.Memory, error) {
	sqlStr := memorySelectSQL + ` WHERE memory_type=$1 AND NOT is_forgotten`
	args := []any{string(model.MemoryTypeEpisode)}
	if containerTag != "" {
		args = append(args, containerTag)
		sqlStr += fmt.Sprintf(` AND container_tag=$%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetForgetAfter(ctx context.Context, id string, forgetAfter time.Time) error {
	return s.mustUpdate(ctx, `UPDATE memories SET forget_after=$2 WHERE id=$1`, id, forgetAfter)
}

func (s *Store) GetActiveContainerTags(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT container_tag FROM memories WHERE container_tag <> '' ORDER BY container_tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (s *Store) GetMaxMemoryUpdatedAt(ctx context.Context, containerTag string) (time.Time, error) {
	var max time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM memories WHERE container_tag=$1
	`, containerTag).Scan(&max)
	return max, err
}

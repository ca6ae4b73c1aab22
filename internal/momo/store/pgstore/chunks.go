package pgstore

import (
	"context"
	"fmt"
	"strings"

	"momo/internal/momo/model"
)

func (s *Store) CreateChunks(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := s.pool
	tx, err := batch.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO chunks (id, document_id, content, embedded_content, position, token_count, embedding, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET content=EXCLUDED.content, embedded_content=EXCLUDED.embedded_content,
				position=EXCLUDED.position, token_count=EXCLUDED.token_count, embedding=EXCLUDED.embedding
		`, c.ID, c.DocumentID, c.Content, c.EmbeddedContent, c.Position, c.TokenCount, toVector(c.Embedding), c.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateChunkEmbeddings(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, c := range chunks {
		if _, err := tx.Exec(ctx, `UPDATE chunks SET embedding=$2 WHERE id=$1`, c.ID, toVector(c.Embedding)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID)
	return err
}

func (s *Store) SearchSimilarChunks(ctx context.Context, query []float32, limit int, threshold float64, containerTags []string) ([]model.ChunkHit, error) {
	op := MetricCosine.operator()
	args := []any{toVector(query)}
	sqlStr := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.content, 1 - (c.embedding %s $1) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL`, op)
	if len(containerTags) > 0 {
		placeholders := make([]string, len(containerTags))
		for i, t := range containerTags {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf(`d.container_tags @> to_jsonb($%d::text)`, len(args))
		}
		sqlStr += ` AND (` + strings.Join(placeholders, " OR ") + `)`
	}
	args = append(args, threshold)
	sqlStr += fmt.Sprintf(` AND 1 - (c.embedding %s $1) >= $%d`, op, len(args))
	sqlStr += fmt.Sprintf(` ORDER BY c.embedding %s $1`, op)
	if limit > 0 {
		args = append(args, limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ChunkHit
	for rows.Next() {
		var hit model.ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Content, &hit.Score); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

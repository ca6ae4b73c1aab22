package pgstore

import (
	"context"
	"fmt"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/store"
)

func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	md, err := marshalJSON(d.Metadata)
	if err != nil {
		return err
	}
	tags, err := marshalJSON(d.ContainerTags)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, alt_id, title, summary, url, source_path, doc_type, status,
			metadata, container_tags, chunk_count, token_count, word_count, error_message,
			created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, d.ID, d.AltID, d.Title, d.Summary, d.URL, d.SourcePath, string(d.DocType), string(d.Status),
		md, tags, d.ChunkCount, d.TokenCount, d.WordCount, d.ErrorMessage, d.CreatedAt, d.UpdatedAt)
	return err
}

func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, documentSelectSQL+` WHERE id = $1`, id)
	return scanDocument(row)
}

func (s *Store) GetDocumentByAltID(ctx context.Context, altID string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, documentSelectSQL+` WHERE alt_id = $1`, altID)
	return scanDocument(row)
}

func (s *Store) GetDocumentsByIDs(ctx context.Context, ids []string) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, documentSelectSQL+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDocument(ctx context.Context, d *model.Document) error {
	md, err := marshalJSON(d.Metadata)
	if err != nil {
		return err
	}
	tags, err := marshalJSON(d.ContainerTags)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET alt_id = NULLIF($2,''), title=$3, summary=$4, url=$5, source_path=$6,
			doc_type=$7, status=$8, metadata=$9, container_tags=$10, chunk_count=$11, token_count=$12,
			word_count=$13, error_message=$14, updated_at=$15
		WHERE id = $1
	`, d.ID, d.AltID, d.Title, d.Summary, d.URL, d.SourcePath, string(d.DocType), string(d.Status),
		md, tags, d.ChunkCount, d.TokenCount, d.WordCount, d.ErrorMessage, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return merrors.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status model.DocStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status=$2, error_message=$3, updated_at=now() WHERE id=$1
	`, id, string(status), errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return merrors.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return merrors.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDocumentByAltID(ctx context.Context, altID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE alt_id=$1`, altID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return merrors.ErrNotFound
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]*model.Document, error) {
	sqlStr := documentSelectSQL + ` WHERE 1=1`
	args := []any{}
	if filter.ContainerTag != "" {
		args = append(args, filter.ContainerTag)
		sqlStr += fmt.Sprintf(` AND container_tags @> to_jsonb($%d::text)`, len(args))
	}
	if filter.DocType != "" {
		args = append(args, string(filter.DocType))
		sqlStr += fmt.Sprintf(` AND doc_type = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sqlStr += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	sqlStr += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sqlStr += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListProcessingDocuments(ctx context.Context) ([]*model.Document, error) {
	rows, err := s.pool.Query(ctx, documentSelectSQL+` WHERE status NOT IN ($1,$2)`,
		string(model.StatusDone), string(model.StatusFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) QueueAllDoneToQueued(ctx context.Context, containerTag string) (int, error) {
	sqlStr := `UPDATE documents SET status=$1, updated_at=now() WHERE status=$2`
	args := []any{string(model.StatusQueued), string(model.StatusDone)}
	if containerTag != "" {
		args = append(args, containerTag)
		sqlStr += fmt.Sprintf(` AND container_tags @> to_jsonb($%d::text)`, len(args))
	}
	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const documentSelectSQL = `
	SELECT id, COALESCE(alt_id,''), title, summary, url, source_path, doc_type, status,
		metadata, container_tags, chunk_count, token_count, word_count, error_message,
		created_at, updated_at
	FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	var docType, status string
	var md, tags []byte
	if err := row.Scan(&d.ID, &d.AltID, &d.Title, &d.Summary, &d.URL, &d.SourcePath, &docType, &status,
		&md, &tags, &d.ChunkCount, &d.TokenCount, &d.WordCount, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, noRowsToNotFound(err)
	}
	d.DocType = model.DocType(docType)
	d.Status = model.DocStatus(status)
	d.Metadata = unmarshalMetadata(md)
	d.ContainerTags = unmarshalTags(tags)
	return &d, nil
}

package store

import (
	"context"
	"fmt"
	"time"
)

// Ingestion records one processed input file.
type Ingestion struct {
	ID              int64
	FilePath        string
	SourceCode      string
	RecordsTotal    int
	RecordsAccepted int
	RecordsRejected int
	CreatedAt       time.Time
}

// RecordIngestion appends a file_ingestions row.
func (s *Store) RecordIngestion(ctx context.Context, ing *Ingestion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_ingestions (file_path, source_code, records_total, records_accepted, records_rejected)
		VALUES (?,?,?,?,?)`,
		ing.FilePath, nullString(ing.SourceCode), ing.RecordsTotal, ing.RecordsAccepted, ing.RecordsRejected)
	if err != nil {
		return fmt.Errorf("%w: record ingestion: %v", ErrInternal, err)
	}
	return nil
}

// ListIngestions returns ingestion history, newest first.
func (s *Store) ListIngestions(ctx context.Context, limit int) ([]Ingestion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, COALESCE(source_code,''), records_total,
			records_accepted, records_rejected, created_at
		FROM file_ingestions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list ingestions: %v", ErrInternal, err)
	}
	defer rows.Close()
	var out []Ingestion
	for rows.Next() {
		var ing Ingestion
		if err := rows.Scan(&ing.ID, &ing.FilePath, &ing.SourceCode, &ing.RecordsTotal,
			&ing.RecordsAccepted, &ing.RecordsRejected, &ing.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan ingestion: %v", ErrInternal, err)
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

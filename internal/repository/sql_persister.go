package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/entity"
)

const documentsTable = "documents"

var documentColumns = []string{
	"id", "seq", "file_name", "file_size", "mime_type", "sha256",
	"status", "progress", "classification", "extracted_data", "error",
	"retry_count", "created_at", "updated_at",
}

// The DDL is portable between Postgres and SQLite; timestamps are unix nanoseconds.
var documentsDDL = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	id VARCHAR(36) PRIMARY KEY,
	seq BIGINT NOT NULL,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	sha256 TEXT NOT NULL,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL,
	classification TEXT NOT NULL,
	extracted_data TEXT,
	error TEXT NOT NULL,
	retry_count INTEGER NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS documents_seq_idx ON documents (seq)`,
}

// SQLPersister stores document rows through ent's dialect-aware SQL builder.
type SQLPersister struct {
	drv *entsql.Driver
	log *slog.Logger
}

func NewSQLPersister(drv *entsql.Driver, log *slog.Logger) *SQLPersister {
	if log == nil {
		log = slog.Default()
	}
	return &SQLPersister{drv: drv, log: log}
}

// Migrate creates the documents table if needed.
func (p *SQLPersister) Migrate(ctx context.Context) error {
	for _, stmt := range documentsDDL {
		if err := p.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			p.log.Error("documents migrate failed", "error", err)
			return fmt.Errorf("migrate documents: %w", err)
		}
	}
	p.log.Info("documents table ready", "dialect", p.drv.Dialect())
	return nil
}

func (p *SQLPersister) LoadAll(ctx context.Context) ([]entity.Document, error) {
	query, args := entsql.Dialect(p.drv.Dialect()).
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		OrderBy("seq").
		Query()

	var rows entsql.Rows
	if err := p.drv.Query(ctx, query, args, &rows); err != nil {
		p.log.Error("documents load failed", "error", err)
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			p.log.Warn("documents rows close error", "error", err)
		}
	}()

	var out []entity.Document
	for rows.Next() {
		d, err := scanDocument(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	p.log.Debug("documents loaded", "count", len(out))
	return out, nil
}

// Save upserts docs by id.
func (p *SQLPersister) Save(ctx context.Context, docs ...entity.Document) error {
	if len(docs) == 0 {
		return nil
	}
	b := entsql.Dialect(p.drv.Dialect()).
		Insert(documentsTable).
		Columns(documentColumns...)
	for _, d := range docs {
		vals, err := documentValues(d)
		if err != nil {
			return err
		}
		b.Values(vals...)
	}
	b.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())

	query, args := b.Query()
	if err := p.drv.Exec(ctx, query, args, nil); err != nil {
		p.log.Error("documents save failed", "count", len(docs), "error", err)
		return fmt.Errorf("save documents: %w", err)
	}
	return nil
}

func (p *SQLPersister) Delete(ctx context.Context, id uuid.UUID) error {
	query, args := entsql.Dialect(p.drv.Dialect()).
		Delete(documentsTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := p.drv.Exec(ctx, query, args, nil); err != nil {
		p.log.Error("documents delete failed", "document_id", id, "error", err)
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func documentValues(d entity.Document) ([]any, error) {
	var extracted any
	if d.ExtractedData != nil {
		b, err := json.Marshal(d.ExtractedData)
		if err != nil {
			return nil, fmt.Errorf("encode extracted data for %s: %w", d.ID, err)
		}
		extracted = string(b)
	}
	return []any{
		d.ID.String(),
		d.Seq,
		d.SourceFile.Name,
		d.SourceFile.Size,
		d.SourceFile.MIMEType,
		d.SourceFile.SHA256,
		string(d.Status),
		d.Progress,
		string(d.Classification),
		extracted,
		d.Error,
		d.RetryCount,
		d.CreatedAt.UnixNano(),
		d.UpdatedAt.UnixNano(),
	}, nil
}

func scanDocument(rows *entsql.Rows) (entity.Document, error) {
	var (
		d                    entity.Document
		id, status, class    string
		extracted            sql.NullString
		createdAt, updatedAt int64
	)
	if err := rows.Scan(
		&id, &d.Seq, &d.SourceFile.Name, &d.SourceFile.Size, &d.SourceFile.MIMEType, &d.SourceFile.SHA256,
		&status, &d.Progress, &class, &extracted, &d.Error,
		&d.RetryCount, &createdAt, &updatedAt,
	); err != nil {
		return d, fmt.Errorf("scan document: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return d, fmt.Errorf("document id %q: %w", id, err)
	}
	d.ID = parsed

	st, ok := constants.ParseDocumentStatus(status)
	if !ok {
		return d, fmt.Errorf("document %s: unknown status %q", id, status)
	}
	d.Status = st
	if class != "" {
		if dt, ok := constants.ParseDocumentType(class); ok {
			d.Classification = dt
		}
	}
	if extracted.Valid && extracted.String != "" {
		var rec entity.ExtractedRecord
		if err := json.Unmarshal([]byte(extracted.String), &rec); err != nil {
			return d, fmt.Errorf("document %s: decode extracted data: %w", id, err)
		}
		d.ExtractedData = &rec
	}
	d.CreatedAt = time.Unix(0, createdAt).UTC()
	d.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return d, nil
}

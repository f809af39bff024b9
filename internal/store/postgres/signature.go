package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type SignatureDocumentRepo struct {
	pool *pgxpool.Pool
}

func NewSignatureDocumentRepo(pool *pgxpool.Pool) *SignatureDocumentRepo {
	return &SignatureDocumentRepo{pool: pool}
}

const signatureDocumentColumns = `id, title, type, content, version, created_date, created_by,
	last_updated, updated_by, is_active, requires_signature, tags, description, expiration_days`

func (r *SignatureDocumentRepo) Upsert(ctx context.Context, d *domain.SignatureDocument) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO signature_documents (`+signatureDocumentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title, type = EXCLUDED.type, content = EXCLUDED.content,
		   version = EXCLUDED.version, created_date = EXCLUDED.created_date,
		   created_by = EXCLUDED.created_by, last_updated = EXCLUDED.last_updated,
		   updated_by = EXCLUDED.updated_by, is_active = EXCLUDED.is_active,
		   requires_signature = EXCLUDED.requires_signature, tags = EXCLUDED.tags,
		   description = EXCLUDED.description, expiration_days = EXCLUDED.expiration_days`,
		d.ID, d.Title, d.Type, d.Content, d.Version, d.CreatedDate, d.CreatedBy,
		d.LastUpdated, d.UpdatedBy, d.IsActive, d.RequiresSignature, emptyIfNil(d.Tags),
		d.Description, d.ExpirationDays,
	)
	if err != nil {
		return fmt.Errorf("signatureDocumentRepo.Upsert: %w", err)
	}

	return nil
}

func (r *SignatureDocumentRepo) GetByID(ctx context.Context, id string) (*domain.SignatureDocument, error) {
	d, err := scanSignatureDocument(r.pool.QueryRow(ctx,
		`SELECT `+signatureDocumentColumns+` FROM signature_documents WHERE id = $1`, id,
	))
	if notFound(err) {
		return nil, fmt.Errorf("signatureDocumentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("signatureDocumentRepo.GetByID: %w", err)
	}

	return d, nil
}

func (r *SignatureDocumentRepo) ListActive(ctx context.Context) ([]*domain.SignatureDocument, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signatureDocumentColumns+` FROM signature_documents WHERE is_active ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("signatureDocumentRepo.ListActive: %w", err)
	}

	docs, err := collect(rows, scanSignatureDocument)
	if err != nil {
		return nil, fmt.Errorf("signatureDocumentRepo.ListActive: %w", err)
	}

	return emptyIfNil(docs), nil
}

func scanSignatureDocument(row scanner) (*domain.SignatureDocument, error) {
	var d domain.SignatureDocument

	err := row.Scan(
		&d.ID, &d.Title, &d.Type, &d.Content, &d.Version, &d.CreatedDate, &d.CreatedBy,
		&d.LastUpdated, &d.UpdatedBy, &d.IsActive, &d.RequiresSignature, &d.Tags,
		&d.Description, &d.ExpirationDays,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/hrdesk/internal/domain"
)

type EmployeeRepo struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepo(pool *pgxpool.Pool) *EmployeeRepo {
	return &EmployeeRepo{pool: pool}
}

const employeeColumns = `id, name, department, employment_type, hire_date, critical_role,
	job_title, email, building, vacation`

const signedDocumentColumns = `id, document_id, document_title, document_version, signed_date,
	signature_attachment_name, signed_by, signature_method, expiration_date, notes`

// Upsert writes the employee row. Signed documents are append-only and are
// only inserted, never replaced.
func (r *EmployeeRepo) Upsert(ctx context.Context, e *domain.Employee) error {
	vacation, err := json.Marshal(e.Vacation)
	if err != nil {
		return fmt.Errorf("employeeRepo.Upsert: marshal vacation: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("employeeRepo.Upsert: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		`INSERT INTO employees (`+employeeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, department = EXCLUDED.department,
		   employment_type = EXCLUDED.employment_type, hire_date = EXCLUDED.hire_date,
		   critical_role = EXCLUDED.critical_role, job_title = EXCLUDED.job_title,
		   email = EXCLUDED.email, building = EXCLUDED.building, vacation = EXCLUDED.vacation`,
		e.ID, e.Name, e.Department, e.EmploymentType, e.HireDate, e.CriticalRole,
		e.JobTitle, e.Email, e.Building, vacation,
	)
	if err != nil {
		return fmt.Errorf("employeeRepo.Upsert: %w", err)
	}

	for i := range e.SignedDocuments {
		err = insertSignedDocument(ctx, tx, e.ID, &e.SignedDocuments[i], true)
		if err != nil {
			return fmt.Errorf("employeeRepo.Upsert: %w", err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("employeeRepo.Upsert: commit: %w", err)
	}

	return nil
}

func (r *EmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id,
	))
	if notFound(err) {
		return nil, fmt.Errorf("employeeRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.GetByID: %w", err)
	}

	e.SignedDocuments, err = r.listSignedDocuments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.GetByID: %w", err)
	}

	return e, nil
}

func (r *EmployeeRepo) List(ctx context.Context) ([]*domain.Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.List: %w", err)
	}

	employees, err := collect(rows, scanEmployee)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.List: %w", err)
	}

	return employees, nil
}

func (r *EmployeeRepo) ListSummaries(ctx context.Context) ([]*domain.EmployeeSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, department, job_title, email FROM employees ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.ListSummaries: %w", err)
	}

	summaries, err := collect(rows, func(row scanner) (*domain.EmployeeSummary, error) {
		var s domain.EmployeeSummary
		err := row.Scan(&s.ID, &s.Name, &s.Department, &s.JobTitle, &s.Email)
		return &s, err
	})
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.ListSummaries: %w", err)
	}

	return summaries, nil
}

func (r *EmployeeRepo) ListSignedDocuments(ctx context.Context, employeeID string) ([]domain.SignedDocument, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)`, employeeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.ListSignedDocuments: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("employeeRepo.ListSignedDocuments: %w", domain.ErrNotFound)
	}

	docs, err := r.listSignedDocuments(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.ListSignedDocuments: %w", err)
	}

	return docs, nil
}

// AddSignedDocument stores the signature attachment and appends the signed
// document in one transaction.
func (r *EmployeeRepo) AddSignedDocument(ctx context.Context, employeeID string, doc *domain.SignedDocument, attachment *domain.Attachment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("employeeRepo.AddSignedDocument: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM employees WHERE id = $1 FOR UPDATE`, employeeID).Scan(&locked)
	if notFound(err) {
		return fmt.Errorf("employeeRepo.AddSignedDocument: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("employeeRepo.AddSignedDocument: %w", err)
	}

	if attachment != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO employee_attachments (employee_id, name, content_type, data, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (employee_id, name) DO UPDATE SET
			   content_type = EXCLUDED.content_type, data = EXCLUDED.data, created_at = EXCLUDED.created_at`,
			employeeID, attachment.Name, attachment.ContentType, attachment.Data, attachment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("employeeRepo.AddSignedDocument: attachment: %w", err)
		}
	}

	err = insertSignedDocument(ctx, tx, employeeID, doc, false)
	if err != nil {
		return fmt.Errorf("employeeRepo.AddSignedDocument: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("employeeRepo.AddSignedDocument: commit: %w", err)
	}

	return nil
}

func (r *EmployeeRepo) GetAttachment(ctx context.Context, employeeID, name string) (*domain.Attachment, error) {
	a := domain.Attachment{EmployeeID: employeeID, Name: name}

	err := r.pool.QueryRow(ctx,
		`SELECT content_type, data, created_at FROM employee_attachments
		 WHERE employee_id = $1 AND name = $2`,
		employeeID, name,
	).Scan(&a.ContentType, &a.Data, &a.CreatedAt)
	if notFound(err) {
		return nil, fmt.Errorf("employeeRepo.GetAttachment: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("employeeRepo.GetAttachment: %w", err)
	}

	return &a, nil
}

func (r *EmployeeRepo) listSignedDocuments(ctx context.Context, employeeID string) ([]domain.SignedDocument, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signedDocumentColumns+` FROM signed_documents WHERE employee_id = $1 ORDER BY seq`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("signed documents: %w", err)
	}

	docs, err := collect(rows, scanSignedDocument)
	if err != nil {
		return nil, fmt.Errorf("signed documents: %w", err)
	}

	out := make([]domain.SignedDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d)
	}

	return out, nil
}

func insertSignedDocument(ctx context.Context, tx pgx.Tx, employeeID string, d *domain.SignedDocument, skipExisting bool) error {
	query := `INSERT INTO signed_documents (employee_id, ` + signedDocumentColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if skipExisting {
		query += ` ON CONFLICT (id) DO NOTHING`
	}

	_, err := tx.Exec(ctx, query,
		employeeID, d.ID, d.DocumentID, d.DocumentTitle, d.DocumentVersion, d.SignedDate,
		d.SignatureAttachmentName, d.SignedBy, d.SignatureMethod, d.ExpirationDate, d.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert signed document: %w", err)
	}

	return nil
}

func scanEmployee(row scanner) (*domain.Employee, error) {
	var e domain.Employee
	var vacation []byte

	err := row.Scan(
		&e.ID, &e.Name, &e.Department, &e.EmploymentType, &e.HireDate, &e.CriticalRole,
		&e.JobTitle, &e.Email, &e.Building, &vacation,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(vacation, &e.Vacation)
	if err != nil {
		return nil, fmt.Errorf("unmarshal vacation: %w", err)
	}
	e.SignedDocuments = []domain.SignedDocument{}

	return &e, nil
}

func scanSignedDocument(row scanner) (*domain.SignedDocument, error) {
	var d domain.SignedDocument

	err := row.Scan(
		&d.ID, &d.DocumentID, &d.DocumentTitle, &d.DocumentVersion, &d.SignedDate,
		&d.SignatureAttachmentName, &d.SignedBy, &d.SignatureMethod, &d.ExpirationDate, &d.Notes,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

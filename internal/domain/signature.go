package domain

import (
	"context"
	"time"
)

// SignatureDocument is a document an employee can be asked to sign. Content is markdown.
type SignatureDocument struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Type              string     `json:"type"`
	Content           string     `json:"content"`
	Version           int        `json:"version"`
	CreatedDate       time.Time  `json:"createdDate"`
	CreatedBy         string     `json:"createdBy"`
	LastUpdated       *time.Time `json:"lastUpdated,omitempty"`
	UpdatedBy         string     `json:"updatedBy,omitempty"`
	IsActive          bool       `json:"isActive"`
	RequiresSignature bool       `json:"requiresSignature"`
	Tags              []string   `json:"tags"`
	Description       string     `json:"description,omitempty"`
	ExpirationDays    *int       `json:"expirationDays,omitempty"`
}

// ExpirationFrom returns when a signature made at signedAt lapses, or nil when
// the document never expires.
func (d *SignatureDocument) ExpirationFrom(signedAt time.Time) *time.Time {
	if d.ExpirationDays == nil || *d.ExpirationDays <= 0 {
		return nil
	}
	exp := signedAt.AddDate(0, 0, *d.ExpirationDays)
	return &exp
}

type SignatureDocumentRepository interface {
	Upsert(ctx context.Context, d *SignatureDocument) error
	GetByID(ctx context.Context, id string) (*SignatureDocument, error)
	// ListActive returns active documents ordered by title.
	ListActive(ctx context.Context) ([]*SignatureDocument, error)
}

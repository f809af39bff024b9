package domain

import (
	"context"
	"time"
)

// Policy is an HR policy. Content is markdown.
type Policy struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"lastUpdated"`
	UpdatedBy   string    `json:"updatedBy"`
	Version     int       `json:"version"`
	Tags        []string  `json:"tags"`
}

type PolicyRepository interface {
	Upsert(ctx context.Context, p *Policy) error
	List(ctx context.Context) ([]*Policy, error)
	// Search returns policies matching any of the terms, best match first.
	Search(ctx context.Context, terms []string, limit int) ([]*Policy, error)
}

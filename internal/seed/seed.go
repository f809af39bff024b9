// Package seed loads the embedded demo data set.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/gosuda/hrdesk/internal/domain"
)

//go:embed data/demo.yaml
var demoYAML []byte

// Dataset is a set of HR records keyed the same way as the API payloads.
type Dataset struct {
	Departments        []*domain.Department        `json:"departments"`
	Employees          []*domain.Employee          `json:"employees"`
	Policies           []*domain.Policy            `json:"policies"`
	VacationRequests   []*domain.VacationRequest   `json:"vacationRequests"`
	PayStubs           []*domain.PayStub           `json:"payStubs"`
	Issues             []*domain.Issue             `json:"issues"`
	SignatureDocuments []*domain.SignatureDocument `json:"signatureDocuments"`
}

// Store is the set of repositories the loader writes to.
// *postgres.Store satisfies this interface.
type Store interface {
	Employees() domain.EmployeeRepository
	Departments() domain.DepartmentRepository
	Policies() domain.PolicyRepository
	Vacations() domain.VacationRepository
	PayStubs() domain.PayStubRepository
	Issues() domain.IssueRepository
	SignatureDocuments() domain.SignatureDocumentRepository
}

// Parse decodes a YAML data set. Field names follow the JSON tags of the
// domain types, so the YAML is converted through JSON.
func Parse(data []byte) (*Dataset, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("seed.Parse: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("seed.Parse: %w", err)
	}

	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("seed.Parse: %w", err)
	}

	return &ds, nil
}

// Demo returns the embedded demo data set.
func Demo() (*Dataset, error) {
	return Parse(demoYAML)
}

// Loader upserts a data set. Loading is idempotent.
type Loader struct {
	store   Store
	dataset func() (*Dataset, error)
}

// NewLoader returns a loader for the embedded demo data set.
func NewLoader(store Store) *Loader {
	return &Loader{store: store, dataset: Demo}
}

// Seed upserts every record and reports how many were loaded per collection.
func (l *Loader) Seed(ctx context.Context) (map[string]int, error) {
	ds, err := l.dataset()
	if err != nil {
		return nil, fmt.Errorf("seed.Loader.Seed: %w", err)
	}
	return Load(ctx, l.store, ds)
}

// Load upserts ds into store. Signed documents already recorded for an
// employee are kept.
func Load(ctx context.Context, store Store, ds *Dataset) (map[string]int, error) {
	loaded := make(map[string]int)

	for _, d := range ds.Departments {
		if err := store.Departments().Upsert(ctx, d); err != nil {
			return nil, fmt.Errorf("seed.Load: department %s: %w", d.ID, err)
		}
	}
	loaded[domain.CollectionDepartments] = len(ds.Departments)

	for _, e := range ds.Employees {
		if existing, err := store.Employees().GetByID(ctx, e.ID); err == nil {
			e.SignedDocuments = existing.SignedDocuments
		}
		if e.SignedDocuments == nil {
			e.SignedDocuments = []domain.SignedDocument{}
		}
		if err := store.Employees().Upsert(ctx, e); err != nil {
			return nil, fmt.Errorf("seed.Load: employee %s: %w", e.ID, err)
		}
	}
	loaded[domain.CollectionEmployees] = len(ds.Employees)

	for _, p := range ds.Policies {
		if err := store.Policies().Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("seed.Load: policy %s: %w", p.ID, err)
		}
	}
	loaded[domain.CollectionPolicies] = len(ds.Policies)

	for _, v := range ds.VacationRequests {
		if err := store.Vacations().Upsert(ctx, v); err != nil {
			return nil, fmt.Errorf("seed.Load: vacation request %s: %w", v.ID, err)
		}
	}
	loaded[domain.CollectionVacations] = len(ds.VacationRequests)

	for _, p := range ds.PayStubs {
		if err := store.PayStubs().Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("seed.Load: pay stub %s: %w", p.ID, err)
		}
	}
	loaded[domain.CollectionPayStubs] = len(ds.PayStubs)

	for _, i := range ds.Issues {
		if err := store.Issues().Upsert(ctx, i); err != nil {
			return nil, fmt.Errorf("seed.Load: issue %s: %w", i.ID, err)
		}
	}
	loaded[domain.CollectionIssues] = len(ds.Issues)

	for _, d := range ds.SignatureDocuments {
		if err := store.SignatureDocuments().Upsert(ctx, d); err != nil {
			return nil, fmt.Errorf("seed.Load: signature document %s: %w", d.ID, err)
		}
	}
	loaded[domain.CollectionSignatureDocuments] = len(ds.SignatureDocuments)

	log.Debug().Interface("loaded", loaded).Msg("seed: data set loaded")

	return loaded, nil
}

package directory

import (
	"context"

	"github.com/google/uuid"
)

// CustomerFilter contains filter options for customer queries
type CustomerFilter struct {
	Type     *CustomerType
	IsActive *bool
	Search   string // matches name, organization name and email
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// ProjectFilter contains filter options for project queries
type ProjectFilter struct {
	Status      *ProjectStatus
	FundingType *FundingType
	Country     string
	Search      string // matches code and name
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
}

// CustomerRepository defines the persistence contract for customers
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindAll(ctx context.Context, filter CustomerFilter) ([]Customer, int64, error)
	Save(ctx context.Context, customer *Customer) error
	// SaveWithLock persists with optimistic locking; returns
	// shared.ErrConcurrencyConflict when the version check fails.
	SaveWithLock(ctx context.Context, customer *Customer) error
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}

// ProjectRepository defines the persistence contract for projects
type ProjectRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
	FindByCode(ctx context.Context, code string) (*Project, error)
	FindAll(ctx context.Context, filter ProjectFilter) ([]Project, int64, error)
	Save(ctx context.Context, project *Project) error
	SaveWithLock(ctx context.Context, project *Project) error
	// NextProjectCode computes the next WHF-{year}-{seq:03d} code from the
	// codes already present for the year. The unique index on code backstops
	// concurrent creations.
	NextProjectCode(ctx context.Context, year int) (string, error)
}

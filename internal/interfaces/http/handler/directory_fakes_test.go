package handler

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appdirectory "github.com/wasatpay/backend/internal/application/directory"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// fakeCustomerRepo is an in-memory directory.CustomerRepository for handler
// tests running against the real application services
type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]directory.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]directory.Customer)}
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*directory.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, directory.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindAll(_ context.Context, filter directory.CustomerFilter) ([]directory.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []directory.Customer
	for _, c := range r.customers {
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCustomerRepo) Save(_ context.Context, customer *directory.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) SaveWithLock(ctx context.Context, customer *directory.Customer) error {
	r.mu.Lock()
	existing, ok := r.customers[customer.ID]
	r.mu.Unlock()
	if !ok {
		return directory.ErrCustomerNotFound
	}
	if existing.Version >= customer.Version {
		return shared.ErrConcurrencyConflict
	}
	return r.Save(ctx, customer)
}

func (r *fakeCustomerRepo) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if strings.EqualFold(c.PrimaryEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

// fakeProjectRepo is an in-memory directory.ProjectRepository
type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]directory.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uuid.UUID]directory.Project)}
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*directory.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, directory.ErrProjectNotFound
	}
	return &p, nil
}

func (r *fakeProjectRepo) FindByCode(_ context.Context, code string) (*directory.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, directory.ErrProjectNotFound
}

func (r *fakeProjectRepo) FindAll(_ context.Context, filter directory.ProjectFilter) ([]directory.Project, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []directory.Project
	for _, p := range r.projects {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.FundingType != nil && p.FundingType != *filter.FundingType {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProjectRepo) Save(_ context.Context, project *directory.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Code == project.Code && p.ID != project.ID {
			return directory.ErrDuplicateProjectCode
		}
	}
	r.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) SaveWithLock(ctx context.Context, project *directory.Project) error {
	r.mu.Lock()
	existing, ok := r.projects[project.ID]
	r.mu.Unlock()
	if !ok {
		return directory.ErrProjectNotFound
	}
	if existing.Version >= project.Version {
		return shared.ErrConcurrencyConflict
	}
	return r.Save(ctx, project)
}

func (r *fakeProjectRepo) NextProjectCode(_ context.Context, year int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.projects))
	for _, p := range r.projects {
		codes = append(codes, p.Code)
	}
	return directory.FormatProjectCode(year, directory.NextProjectSequence(codes, year)), nil
}

// fakeInvoiceTotals returns a fixed invoiced total per project
type fakeInvoiceTotals struct {
	mu     sync.Mutex
	totals map[uuid.UUID]decimal.Decimal
}

func (f *fakeInvoiceTotals) TotalInvoicedForProject(_ context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.totals[projectID]; ok {
		return t, nil
	}
	return decimal.Zero, nil
}

// directoryEnv bundles the directory services wired against in-memory fakes
type directoryEnv struct {
	customerRepo    *fakeCustomerRepo
	projectRepo     *fakeProjectRepo
	invoiceTotals   *fakeInvoiceTotals
	customerService *appdirectory.CustomerService
	projectService  *appdirectory.ProjectService
}

func newDirectoryEnv() *directoryEnv {
	customerRepo := newFakeCustomerRepo()
	projectRepo := newFakeProjectRepo()
	totals := &fakeInvoiceTotals{totals: make(map[uuid.UUID]decimal.Decimal)}
	logger := zap.NewNop()
	return &directoryEnv{
		customerRepo:    customerRepo,
		projectRepo:     projectRepo,
		invoiceTotals:   totals,
		customerService: appdirectory.NewCustomerService(customerRepo, logger),
		projectService:  appdirectory.NewProjectService(projectRepo, totals, logger),
	}
}

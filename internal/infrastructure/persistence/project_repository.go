package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProjectRepository implements directory.ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by its ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*directory.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrProjectNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a project by its project code
func (r *GormProjectRepository) FindByCode(ctx context.Context, code string) (*directory.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrProjectNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds projects matching the filter and returns the total count
// before pagination
func (r *GormProjectRepository) FindAll(ctx context.Context, filter directory.ProjectFilter) ([]directory.Project, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&models.ProjectModel{})
	countQuery = r.applyProjectFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projectModels []models.ProjectModel
	query := r.db.WithContext(ctx).Model(&models.ProjectModel{})
	query = r.applyProjectFilter(query, filter)
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, 0, err
	}

	projects := make([]directory.Project, len(projectModels))
	for i, model := range projectModels {
		projects[i] = *model.ToDomain()
	}
	return projects, total, nil
}

// Save creates or updates a project
func (r *GormProjectRepository) Save(ctx context.Context, project *directory.Project) error {
	model := models.ProjectModelFromDomain(project)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return directory.ErrDuplicateProjectCode
		}
		return err
	}
	return nil
}

// SaveWithLock persists the project with optimistic locking. The stored
// version must be behind the aggregate's version or the write is rejected
// with shared.ErrConcurrencyConflict.
func (r *GormProjectRepository) SaveWithLock(ctx context.Context, project *directory.Project) error {
	model := models.ProjectModelFromDomain(project)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.ProjectModel{}).
			Where("id = ?", project.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return directory.ErrProjectNotFound
		}
		if currentVersion >= project.Version {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.ProjectModel{}).
			Where("id = ? AND version = ?", project.ID, currentVersion).
			Updates(map[string]interface{}{
				"code":                   model.Code,
				"name":                   model.Name,
				"description":            model.Description,
				"status":                 model.Status,
				"funding_type":           model.FundingType,
				"start_date":             model.StartDate,
				"end_date":               model.EndDate,
				"country":                model.Country,
				"region":                 model.Region,
				"specific_location":      model.SpecificLocation,
				"total_budget":           model.TotalBudget,
				"currency":               model.Currency,
				"target_beneficiaries":   model.TargetBeneficiaries,
				"service_area":           model.ServiceArea,
				"primary_donor":          model.PrimaryDonor,
				"donor_reference":        model.DonorReference,
				"grant_agreement_number": model.GrantAgreementNumber,
				"notes":                  model.Notes,
				"closed_at":              model.ClosedAt,
				"version":                model.Version,
				"updated_at":             model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// NextProjectCode computes the next project code for the year from the codes
// already stored. The unique index on code backstops concurrent creations.
func (r *GormProjectRepository) NextProjectCode(ctx context.Context, year int) (string, error) {
	prefix := directory.ProjectCodePrefix(year)

	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Where("code LIKE ?", prefix+"%").
		Pluck("code", &codes).Error; err != nil {
		return "", err
	}

	seq := directory.NextProjectSequence(codes, year)
	return directory.FormatProjectCode(year, seq), nil
}

// applyProjectFilter applies filter options to the query
func (r *GormProjectRepository) applyProjectFilter(query *gorm.DB, filter directory.ProjectFilter) *gorm.DB {
	query = r.applyProjectFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ProjectSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyProjectFilterWithoutPagination applies filter options without pagination
func (r *GormProjectRepository) applyProjectFilterWithoutPagination(query *gorm.DB, filter directory.ProjectFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", searchPattern, searchPattern)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FundingType != nil {
		query = query.Where("funding_type = ?", *filter.FundingType)
	}
	if filter.Country != "" {
		query = query.Where("country = ?", filter.Country)
	}

	return query
}

// Ensure GormProjectRepository implements ProjectRepository
var _ directory.ProjectRepository = (*GormProjectRepository)(nil)

package repository

import (
	"context"
	"slices"

	"github.com/medadvisor/advisor-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogRepository is a GORM implementation of CatalogRepository
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *GormCatalogRepository) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *GormCatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// SavePlan upserts the plan definition without touching clients_ids of an existing row
func (r *GormCatalogRepository) SavePlan(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "target_products_sales", "departments_ids", "cities",
				"sales_rep_ids", "delivery_id", "updated_at",
			}),
		}).
		Create(plan).Error
}

// AppendPlanClients merges client IDs into the stored plan inside a transaction
func (r *GormCatalogRepository) AppendPlanClients(ctx context.Context, planID string, clientIDs []string) error {
	if len(clientIDs) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.Plan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", planID).First(&plan).Error; err != nil {
			return err
		}

		merged := slices.Clone(plan.ClientsIDs)
		for _, id := range clientIDs {
			if !slices.Contains(merged, id) {
				merged = append(merged, id)
			}
		}
		if len(merged) == len(plan.ClientsIDs) {
			return nil
		}

		return tx.Model(&plan).Update("clients_ids", merged).Error
	})
}

func (r *GormCatalogRepository) SaveClient(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(client).Error
}

func (r *GormCatalogRepository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(product).Error
}

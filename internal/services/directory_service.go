package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
)

var (
	ErrUserRequired    = errors.New("user is required")
	ErrProductRequired = errors.New("product is required")
)

// DirectoryService registers the users and products that task matching and reminders read
type DirectoryService struct {
	userRepo    repository.UserRepository
	catalogRepo repository.CatalogRepository
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(userRepo repository.UserRepository, catalogRepo repository.CatalogRepository) *DirectoryService {
	return &DirectoryService{
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
	}
}

// UpsertUser stores the user and its device token. An empty token stops reminders for that user.
func (s *DirectoryService) UpsertUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrUserRequired
	}
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return &ValidationError{Field: "id"}
	}
	user.Email = strings.TrimSpace(user.Email)
	user.FCMToken = strings.TrimSpace(user.FCMToken)

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	log.Printf("User %s saved (push enabled: %t)", user.ID, user.CanReceivePush())
	return nil
}

// UpsertProduct stores the product with its departments and marketing tasks
func (s *DirectoryService) UpsertProduct(ctx context.Context, product *models.Product) error {
	if product == nil {
		return ErrProductRequired
	}
	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" {
		return &ValidationError{Field: "id"}
	}
	for i, task := range product.MarketingTasks {
		if strings.TrimSpace(task.ID) == "" {
			return &ValidationError{Field: fmt.Sprintf("marketingTasks[%d].id", i)}
		}
	}

	if err := s.catalogRepo.SaveProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

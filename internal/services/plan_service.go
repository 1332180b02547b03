package services

import (
	"context"
	"errors"
	"fmt"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PlanService is the plan catalog: admin-maintained reference data read
// by the payment gate and the ledger.
type PlanService struct {
	repo *repository.PlanRepository
}

func NewPlanService(repo *repository.PlanRepository) *PlanService {
	return &PlanService{repo: repo}
}

func (s *PlanService) GetPlan(ctx context.Context, id primitive.ObjectID) (*models.Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) Create(ctx context.Context, plan *models.Plan) error {
	if plan.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	if plan.Price < 0 {
		return fmt.Errorf("plan price must be non-negative")
	}
	if plan.DurationDays <= 0 {
		return fmt.Errorf("plan duration must be positive")
	}
	plan.IsActive = true
	return s.repo.Create(ctx, plan)
}

// Update changes mutable plan attributes. Subscriptions hold snapshots,
// so a price or feature change never rewrites live entitlements.
func (s *PlanService) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	if _, err := s.GetPlan(ctx, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, update)
}

func (s *PlanService) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetPlan(ctx, id); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *PlanService) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.repo.ListActive(ctx)
}

func (s *PlanService) ListAll(ctx context.Context) ([]models.Plan, error) {
	return s.repo.ListAll(ctx)
}

package usecases

import (
	"context"
	"fmt"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
)

// DeleteEndpointUseCase removes an endpoint from its source file.
type DeleteEndpointUseCase struct {
	repo   endpoint.Repository
	logger ports.Logger
}

// NewDeleteEndpointUseCase creates a new use case.
func NewDeleteEndpointUseCase(repo endpoint.Repository, logger ports.Logger) *DeleteEndpointUseCase {
	return &DeleteEndpointUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute removes the endpoint with the given ID.
func (uc *DeleteEndpointUseCase) Execute(ctx context.Context, id string) error {
	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find endpoint %q: %w", id, err)
	}

	if err := uc.repo.DeleteEndpoint(ctx, existing.SourceFile, existing.SourceIndex); err != nil {
		return fmt.Errorf("failed to delete endpoint %q: %w", id, err)
	}

	uc.logger.Info("endpoint deleted", "id", id)
	return nil
}

package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
	"github.com/mockforge/mockforge/internal/infrastructure/services"
)

// LoadEndpointsUseCase loads all endpoint definitions, compiles them, and
// builds the URL index.
type LoadEndpointsUseCase struct {
	repo     endpoint.Repository
	compiler *services.Compiler
	logger   ports.Logger
}

// NewLoadEndpointsUseCase creates a new use case.
func NewLoadEndpointsUseCase(repo endpoint.Repository, compiler *services.Compiler, logger ports.Logger) *LoadEndpointsUseCase {
	return &LoadEndpointsUseCase{
		repo:     repo,
		compiler: compiler,
		logger:   logger,
	}
}

// Execute loads, compiles, and returns the built index. Configuration errors
// abort the load so a broken reload never replaces a working route table.
func (uc *LoadEndpointsUseCase) Execute(ctx context.Context) (*services.EndpointIndex, error) {
	endpoints, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoints: %w", err)
	}

	uc.logger.Info("loaded endpoint definitions", "count", len(endpoints))

	index := services.NewEndpointIndex()
	for _, e := range endpoints {
		if e.ID == "" {
			e.ID = DeriveID(e.URL)
		}
		ce, err := uc.compiler.CompileEndpoint(e)
		if err != nil {
			return nil, err
		}
		if err := index.Add(ce); err != nil {
			return nil, err
		}
		uc.logger.Debug("compiled endpoint", "id", ce.ID, "url", ce.URL)
	}
	index.Build()

	uc.logger.Info("endpoint index built", "endpoints", index.Len())
	return index, nil
}

// DeriveID builds a stable endpoint ID from its URL when none is configured:
// "/api/users/{id}" becomes "api-users-id".
func DeriveID(url string) string {
	id := strings.Trim(url, "/")
	id = strings.NewReplacer("/", "-", "{", "", "}", "", ":", "").Replace(id)
	if id == "" {
		return "root"
	}
	return id
}

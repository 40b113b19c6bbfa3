package usecases

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
)

// SaveEndpointUseCase saves an endpoint's YAML definition to disk.
type SaveEndpointUseCase struct {
	repo   endpoint.Repository
	logger ports.Logger
}

// NewSaveEndpointUseCase creates a new use case.
func NewSaveEndpointUseCase(repo endpoint.Repository, logger ports.Logger) *SaveEndpointUseCase {
	return &SaveEndpointUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute saves the YAML content for the endpoint identified by id. An empty
// id creates a new definition file; otherwise the source file is updated in
// place.
func (uc *SaveEndpointUseCase) Execute(ctx context.Context, id string, yamlContent []byte) error {
	var check yaml.Node
	if err := yaml.Unmarshal(yamlContent, &check); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if id == "" {
		var raw struct {
			ID  string `yaml:"id"`
			URL string `yaml:"url"`
		}
		if err := yaml.Unmarshal(yamlContent, &raw); err != nil || raw.URL == "" {
			return fmt.Errorf("new endpoint YAML must contain a 'url' field")
		}
		if raw.ID == "" {
			raw.ID = DeriveID(raw.URL)
		}

		e := &endpoint.Endpoint{ID: raw.ID, URL: raw.URL}
		if err := uc.repo.SaveEndpoint(ctx, e, yamlContent); err != nil {
			return fmt.Errorf("failed to create endpoint: %w", err)
		}
		uc.logger.Info("endpoint created", "id", raw.ID, "url", raw.URL)
		return nil
	}

	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find endpoint %q: %w", id, err)
	}

	if err := uc.repo.SaveEndpoint(ctx, existing, yamlContent); err != nil {
		return fmt.Errorf("failed to save endpoint %q: %w", id, err)
	}
	uc.logger.Info("endpoint updated", "id", id)
	return nil
}

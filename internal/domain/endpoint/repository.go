package endpoint

import (
	"context"
	"errors"
)

// ErrNotFound indicates an endpoint was not found.
var ErrNotFound = errors.New("endpoint not found")

// Repository is the port for loading and persisting endpoint configurations.
type Repository interface {
	// LoadAll loads all endpoint configurations from the configured root
	// directory, in file order.
	LoadAll(ctx context.Context) ([]*Endpoint, error)

	// LoadByID loads a single endpoint by its unique ID.
	// Returns ErrNotFound if no endpoint with the given ID exists.
	LoadByID(ctx context.Context, id string) (*Endpoint, error)

	// SaveEndpoint writes endpoint YAML content to disk.
	// If the endpoint has a SourceFile, it updates the existing file.
	// If SourceFile is empty, it creates a new file.
	SaveEndpoint(ctx context.Context, e *Endpoint, yamlContent []byte) error

	// DeleteEndpoint removes an endpoint from its source file.
	// For single-endpoint files, the file is deleted.
	// For multi-endpoint files, the entry is removed from the sequence.
	DeleteEndpoint(ctx context.Context, sourceFile string, sourceIndex int) error

	// ReadSourceYAML reads the raw YAML content for a specific endpoint
	// from its source file.
	ReadSourceYAML(ctx context.Context, e *Endpoint) ([]byte, error)
}

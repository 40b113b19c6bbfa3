package wiring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mockforge/mockforge/internal/domain/gen"
	"github.com/mockforge/mockforge/internal/domain/trace"
	inboundhttp "github.com/mockforge/mockforge/internal/infrastructure/inbound/http"
	"github.com/mockforge/mockforge/internal/infrastructure/outbound/clock"
	"github.com/mockforge/mockforge/internal/infrastructure/outbound/filesystem"
	"github.com/mockforge/mockforge/internal/infrastructure/outbound/ratelimit"
	"github.com/mockforge/mockforge/internal/infrastructure/outbound/respcache"
	"github.com/mockforge/mockforge/internal/infrastructure/outbound/template"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
	"github.com/mockforge/mockforge/internal/infrastructure/services"
	"github.com/mockforge/mockforge/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	RootDir        string
	TraceSize      int
	RateLimiterTTL time.Duration
	CacheEntries   int
	CacheTTL       time.Duration
	Logger         ports.Logger
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	server           *inboundhttp.Server
	loadUC           *usecases.LoadEndpointsUseCase
	saveUC           *usecases.SaveEndpointUseCase
	deleteUC         *usecases.DeleteEndpointUseCase
	rateLimiterStore *ratelimit.BucketStore
	responseCache    *respcache.Store
	traceBuf         *trace.RingBuffer
	closeOnce        sync.Once
}

// New constructs all infrastructure components. Fallible operations (repository
// creation) run before goroutine-starting operations (rate limiter store) to
// avoid goroutine leaks on early failure.
func New(p Params) (*Container, error) {
	if _, err := os.Stat(p.RootDir); err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}

	repo, err := filesystem.NewYAMLRepository(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	registry := template.NewRegistry()
	compiler := services.NewCompiler(registry)

	// Start background goroutine only after all fallible ops succeed.
	rateLimiterStore := ratelimit.NewBucketStore(p.RateLimiterTTL)

	clk := clock.New()
	responseCache := respcache.New(p.CacheEntries, p.CacheTTL, clk)
	traceBuf := trace.NewRingBuffer(p.TraceSize)
	generator := gen.NewContext()

	loadUC := usecases.NewLoadEndpointsUseCase(repo, compiler, p.Logger)
	handleReqUC := usecases.NewHandleRequestUseCase(generator, clk, rateLimiterStore, responseCache, p.Logger, traceBuf)
	saveUC := usecases.NewSaveEndpointUseCase(repo, p.Logger)
	deleteUC := usecases.NewDeleteEndpointUseCase(repo, p.Logger)

	server := inboundhttp.NewServer(handleReqUC, loadUC, responseCache, traceBuf, p.Logger)
	server.SetCRUDDeps(saveUC, deleteUC, repo, p.RootDir)

	return &Container{
		logger:           p.Logger,
		server:           server,
		loadUC:           loadUC,
		saveUC:           saveUC,
		deleteUC:         deleteUC,
		rateLimiterStore: rateLimiterStore,
		responseCache:    responseCache,
		traceBuf:         traceBuf,
	}, nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.rateLimiterStore.Stop()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP mock server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// LoadEndpointsUseCase returns the use case for loading and compiling endpoints.
func (c *Container) LoadEndpointsUseCase() *usecases.LoadEndpointsUseCase {
	return c.loadUC
}

// RateLimiterStore returns the token bucket store for endpoint throttling.
func (c *Container) RateLimiterStore() *ratelimit.BucketStore {
	return c.rateLimiterStore
}

// ResponseCache returns the shared response cache.
func (c *Container) ResponseCache() *respcache.Store {
	return c.responseCache
}

// TraceBuf returns the trace ring buffer.
func (c *Container) TraceBuf() *trace.RingBuffer {
	return c.traceBuf
}

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
)

var _ endpoint.Repository = (*YAMLRepository)(nil)

// YAMLRepository loads endpoint definitions from YAML files in a directory
// tree. A file is either a single endpoint mapping (with a url key) or a
// mapping with an endpoints sequence.
type YAMLRepository struct {
	rootDir  string
	resolver *IncludeResolver
}

// NewYAMLRepository creates a repository rooted at rootDir.
func NewYAMLRepository(rootDir string) (*YAMLRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &YAMLRepository{
		rootDir:  absRoot,
		resolver: NewIncludeResolver(absRoot),
	}, nil
}

// LoadAll walks the root directory for .yaml files and returns parsed
// endpoints in file order.
func (r *YAMLRepository) LoadAll(_ context.Context) ([]*endpoint.Endpoint, error) {
	var endpoints []*endpoint.Endpoint

	err := filepath.WalkDir(r.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		loaded, err := r.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		endpoints = append(endpoints, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk endpoints directory: %w", err)
	}

	return endpoints, nil
}

func (r *YAMLRepository) loadFile(path string) ([]*endpoint.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Parse into a yaml.Node tree so !include tags can be rewritten before
	// decoding.
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fileDir := filepath.Dir(path)
	if err := r.resolver.ResolveIncludes(&rootNode, fileDir); err != nil {
		return nil, fmt.Errorf("failed to resolve includes: %w", err)
	}

	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, fmt.Errorf("unexpected YAML structure in %s", path)
	}
	content := rootNode.Content[0]

	if seq := endpointsSequence(content); seq != nil {
		endpoints := make([]*endpoint.Endpoint, 0, len(seq.Content))
		for i, item := range seq.Content {
			e, err := decodeEndpointNode(item)
			if err != nil {
				return nil, err
			}
			e.SourceFile = path
			e.SourceIndex = i
			endpoints = append(endpoints, e)
		}
		return endpoints, nil
	}

	if content.Kind == yaml.MappingNode && hasKey(content, "url") {
		e, err := decodeEndpointNode(content)
		if err != nil {
			return nil, err
		}
		e.SourceFile = path
		e.SourceIndex = -1
		return []*endpoint.Endpoint{e}, nil
	}

	return nil, fmt.Errorf("%s: expected an 'endpoints' sequence or a single endpoint with 'url'", path)
}

// endpointsSequence returns the sequence node holding the endpoint entries:
// either the value of a top-level endpoints key or a bare document sequence.
func endpointsSequence(content *yaml.Node) *yaml.Node {
	if content.Kind == yaml.SequenceNode {
		return content
	}
	if content.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(content.Content); i += 2 {
		if content.Content[i].Value == "endpoints" && content.Content[i+1].Kind == yaml.SequenceNode {
			return content.Content[i+1]
		}
	}
	return nil
}

func hasKey(mapping *yaml.Node, key string) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return true
		}
	}
	return false
}

// LoadByID loads a single endpoint by its ID.
func (r *YAMLRepository) LoadByID(ctx context.Context, id string) (*endpoint.Endpoint, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoints: %w", err)
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, endpoint.ErrNotFound
}

// SaveEndpoint writes endpoint YAML content to disk. Existing endpoints
// (SourceFile set) are updated in place; new ones get their own file.
func (r *YAMLRepository) SaveEndpoint(_ context.Context, e *endpoint.Endpoint, yamlContent []byte) error {
	var check yaml.Node
	if err := yaml.Unmarshal(yamlContent, &check); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if e.SourceFile == "" {
		dir := filepath.Join(r.rootDir, "endpoints")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create endpoints directory: %w", err)
		}
		target := filepath.Join(dir, e.ID+".yaml")

		if err := r.validatePathWithinRoot(target); err != nil {
			return err
		}

		return atomicWriteFile(target, yamlContent)
	}

	if err := r.validatePathWithinRoot(e.SourceFile); err != nil {
		return err
	}

	if e.SourceIndex < 0 {
		return atomicWriteFile(e.SourceFile, yamlContent)
	}

	return r.replaceInSequence(e.SourceFile, e.SourceIndex, yamlContent)
}

// DeleteEndpoint removes an endpoint from its source file.
func (r *YAMLRepository) DeleteEndpoint(_ context.Context, sourceFile string, sourceIndex int) error {
	if err := r.validatePathWithinRoot(sourceFile); err != nil {
		return err
	}

	if sourceIndex < 0 {
		if err := os.Remove(sourceFile); err != nil {
			return fmt.Errorf("failed to delete endpoint file: %w", err)
		}
		return nil
	}

	return r.removeFromSequence(sourceFile, sourceIndex)
}

// ReadSourceYAML reads the raw YAML content for a specific endpoint.
func (r *YAMLRepository) ReadSourceYAML(_ context.Context, e *endpoint.Endpoint) ([]byte, error) {
	if e.SourceFile == "" {
		return nil, fmt.Errorf("endpoint has no source file")
	}

	data, err := os.ReadFile(e.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	if e.SourceIndex < 0 {
		return data, nil
	}

	return extractFromSequence(data, e.SourceIndex)
}

// validatePathWithinRoot ensures a path resolves within the root directory.
func (r *YAMLRepository) validatePathWithinRoot(path string) error {
	resolved, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		// Directory may not exist yet; fall back to the absolute path.
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		if !strings.HasPrefix(abs, r.rootDir) {
			return fmt.Errorf("path traversal denied: %s is outside root %s", path, r.rootDir)
		}
		return nil
	}
	if !strings.HasPrefix(resolved, r.rootDir) {
		return fmt.Errorf("path traversal denied: %s is outside root %s", path, r.rootDir)
	}
	return nil
}

// atomicWriteFile writes content to a temp file then renames it into place.
func atomicWriteFile(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".mockforge-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func loadSequenceFile(filePath string) (*yaml.Node, *yaml.Node, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, nil, fmt.Errorf("unexpected YAML structure")
	}
	seq := endpointsSequence(rootNode.Content[0])
	if seq == nil {
		return nil, nil, fmt.Errorf("file has no endpoints sequence")
	}
	return &rootNode, seq, nil
}

// replaceInSequence replaces the endpoint entry at a given index.
func (r *YAMLRepository) replaceInSequence(filePath string, index int, newContent []byte) error {
	rootNode, seq, err := loadSequenceFile(filePath)
	if err != nil {
		return err
	}
	if index >= len(seq.Content) {
		return fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}

	var newNode yaml.Node
	if err := yaml.Unmarshal(newContent, &newNode); err != nil {
		return fmt.Errorf("failed to parse replacement YAML: %w", err)
	}
	if newNode.Kind != yaml.DocumentNode || len(newNode.Content) == 0 {
		return fmt.Errorf("unexpected replacement YAML structure")
	}

	seq.Content[index] = newNode.Content[0]

	out, err := yaml.Marshal(rootNode)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(filePath, out)
}

// removeFromSequence removes the endpoint entry at a given index.
func (r *YAMLRepository) removeFromSequence(filePath string, index int) error {
	rootNode, seq, err := loadSequenceFile(filePath)
	if err != nil {
		return err
	}
	if index >= len(seq.Content) {
		return fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}

	seq.Content = append(seq.Content[:index], seq.Content[index+1:]...)

	if len(seq.Content) == 0 {
		return os.Remove(filePath)
	}

	out, err := yaml.Marshal(rootNode)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(filePath, out)
}

// extractFromSequence extracts a single endpoint entry as YAML.
func extractFromSequence(data []byte, index int) ([]byte, error) {
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, fmt.Errorf("unexpected YAML structure")
	}
	seq := endpointsSequence(rootNode.Content[0])
	if seq == nil {
		return nil, fmt.Errorf("file has no endpoints sequence")
	}
	if index >= len(seq.Content) {
		return nil, fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}

	out, err := yaml.Marshal(seq.Content[index])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return out, nil
}

func decodeEndpointNode(node *yaml.Node) (*endpoint.Endpoint, error) {
	var ye yamlEndpoint
	if err := node.Decode(&ye); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint: %w", err)
	}
	return toEndpoint(&ye), nil
}

func toEndpoint(ye *yamlEndpoint) *endpoint.Endpoint {
	e := &endpoint.Endpoint{
		ID:             ye.ID,
		URL:            ye.URL,
		ResponseProps:  ye.ResponseProps,
		Pagination:     ye.Pagination,
		PerPage:        ye.PerPage,
		Total:          ye.Total,
		Singular:       ye.Singular,
		Seed:           ye.Seed,
		Status:         ye.Status,
		DelayMs:        ye.Delay,
		StaticResponse: ye.StaticResponse,
		Engine:         ye.Engine,
		ErrorRate:      ye.ErrorRate,
		ResponseFormat: ye.ResponseFormat,
		Cache:          ye.Cache,
		Methods:        ye.Methods,
		LogRequests:    ye.LogRequests,
		QueryParams:    ye.QueryParams,
	}

	for _, yc := range ye.Conditions {
		e.Conditions = append(e.Conditions, toCondition(yc))
	}

	if ye.Throttle != nil {
		e.Throttle = &endpoint.Throttle{
			Rate:  ye.Throttle.Rate,
			Burst: ye.Throttle.Burst,
		}
	}

	return e
}

func toCondition(yc yamlCondition) endpoint.Condition {
	c := endpoint.Condition{
		Headers:  yc.Headers,
		Query:    yc.Query,
		Status:   yc.Status,
		Response: yc.Response,
	}
	if yc.Body != nil {
		bc := &endpoint.BodyClause{ContentType: yc.Body.ContentType}
		for _, ybc := range yc.Body.Conditions {
			bc.Conditions = append(bc.Conditions, endpoint.BodyCondition{
				Extractor: ybc.Extractor,
				Matcher:   parseStringMatcher(ybc.Matcher),
			})
		}
		c.Body = bc
	}
	return c
}

// parseStringMatcher reads the matcher convention: "=" prefix means exact
// comparison, anything else is a regular expression.
func parseStringMatcher(raw string) endpoint.StringMatcher {
	if strings.HasPrefix(raw, "=") {
		return endpoint.StringMatcher{Exact: raw[1:]}
	}
	return endpoint.StringMatcher{Pattern: raw}
}

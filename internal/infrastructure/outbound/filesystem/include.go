package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Included files may themselves use !include; the chain is capped so a
// definition cannot recurse forever.
const maxIncludeDepth = 10

// IncludeResolver expands !include tags in endpoint definition trees. A tag
// value is a path relative to the including file, or prefixed with "@root/"
// (the repository root) or "@here/" (the including file's directory).
// Included .yaml/.yml files splice in as parsed nodes; any other file splices
// in as a raw string scalar.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver anchored at rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes expands every !include tag under node in place. currentDir
// is the directory of the file the node tree was parsed from.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.expand(node, currentDir, 0)
}

func (r *IncludeResolver) expand(node *yaml.Node, currentDir string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("!include chain deeper than %d levels", maxIncludeDepth)
	}
	if node == nil {
		return nil
	}

	if node.Tag == "!include" {
		return r.splice(node, currentDir, depth)
	}

	for _, child := range node.Content {
		if err := r.expand(child, currentDir, depth); err != nil {
			return err
		}
	}
	return nil
}

// splice replaces one !include node with the referenced file's content.
func (r *IncludeResolver) splice(node *yaml.Node, currentDir string, depth int) error {
	ref := node.Value
	if ref == "" {
		return fmt.Errorf("!include needs a file path")
	}

	target, err := r.expandRef(ref, currentDir)
	if err != nil {
		return fmt.Errorf("cannot resolve !include %q: %w", ref, err)
	}
	if err := r.checkContainment(target); err != nil {
		return fmt.Errorf("!include %q rejected: %w", ref, err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("cannot read !include target %q: %w", target, err)
	}

	switch strings.ToLower(filepath.Ext(target)) {
	case ".yaml", ".yml":
		var included yaml.Node
		if err := yaml.Unmarshal(data, &included); err != nil {
			return fmt.Errorf("!include target %q is not valid YAML: %w", target, err)
		}
		if err := r.expand(&included, filepath.Dir(target), depth+1); err != nil {
			return err
		}
		if included.Kind == yaml.DocumentNode && len(included.Content) > 0 {
			*node = *included.Content[0]
		}
	default:
		node.Tag = ""
		node.Kind = yaml.ScalarNode
		node.Value = string(data)
	}

	return nil
}

func (r *IncludeResolver) expandRef(ref, currentDir string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "@root/"):
		return filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/")), nil
	case strings.HasPrefix(ref, "@here/"):
		return filepath.Join(currentDir, strings.TrimPrefix(ref, "@here/")), nil
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute !include paths are not allowed")
	default:
		return filepath.Join(currentDir, ref), nil
	}
}

// checkContainment keeps includes inside the root directory, resolving
// symlinks first so a link cannot smuggle a path out.
func (r *IncludeResolver) checkContainment(target string) error {
	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		real = target
	}
	root, err := filepath.EvalSymlinks(r.rootDir)
	if err != nil {
		root = r.rootDir
	}

	if !strings.HasPrefix(real, root) {
		return fmt.Errorf("target lies outside the root directory")
	}
	return nil
}

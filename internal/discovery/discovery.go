// Package discovery walks the configured test directory, parses every
// matching YAML file into a suite, and applies node-id/priority/tag/name
// filters before the dependency resolver ever sees them.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcuspmd/flow-test-sub005/internal/config"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Error is a DiscoveryError: a malformed suite file or a missing required
// field.
type Error struct {
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery_error: %s (%s): %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("discovery_error: %s (%s)", e.Message, e.Path)
}

func (e *Error) Unwrap() error { return e.Cause }

// DuplicateNodeIDError is raised when two discovered suites declare the
// same node_id.
type DuplicateNodeIDError struct {
	NodeID       string
	FirstPath    string
	DuplicatePath string
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("duplicate_node_id_error: %q declared by both %s and %s", e.NodeID, e.FirstPath, e.DuplicatePath)
}

// Filters narrow the discovered suite set. An empty slice means "no
// restriction on this dimension".
type Filters struct {
	Priorities []string
	NodeIDs    []string
	SuiteNames []string
	Tags       []string
}

// Discover walks testDir honoring patterns/exclude glob rules (matched
// against the path relative to testDir), parses every match into a Suite,
// and applies filters. Suites are returned sorted by FilePath, giving the
// rest of the pipeline a stable input order.
func Discover(testDir string, disc config.Discovery, filters Filters) ([]*model.Suite, error) {
	var paths []string
	err := filepath.WalkDir(testDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(testDir, path)
		if relErr != nil {
			rel = path
		}
		if !matchesAny(disc.Patterns, rel) {
			return nil
		}
		if matchesAny(disc.Exclude, rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, &Error{Path: testDir, Message: "cannot walk test directory", Cause: err}
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	var out []*model.Suite
	for _, path := range paths {
		suite, err := parseSuiteFile(path)
		if err != nil {
			return nil, err
		}
		if suite.NodeID == "" {
			return nil, &Error{Path: path, Message: "suite is missing required node_id"}
		}
		if firstPath, dup := seen[suite.NodeID]; dup {
			return nil, &DuplicateNodeIDError{NodeID: suite.NodeID, FirstPath: firstPath, DuplicatePath: path}
		}
		seen[suite.NodeID] = path
		out = append(out, suite)
	}

	return applyFilters(out, filters), nil
}

func parseSuiteFile(path string) (*model.Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Message: "cannot read suite file", Cause: err}
	}
	var suite model.Suite
	if err := yaml.Unmarshal(b, &suite); err != nil {
		return nil, &Error{Path: path, Message: "cannot parse suite YAML", Cause: err}
	}
	suite.FilePath = path
	return &suite, nil
}

// matchesAny reports whether rel matches at least one of the glob
// patterns. Patterns use filepath.Match semantics against the full
// relative path with slashes, with a "**/" prefix treated as "match at
// any depth" since filepath.Match has no native double-star support.
func matchesAny(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return false
	}
	relSlash := filepath.ToSlash(rel)
	for _, p := range patterns {
		if globMatch(p, relSlash) {
			return true
		}
	}
	return false
}

func globMatch(pattern, path string) bool {
	pattern = filepath.ToSlash(pattern)
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if ok, _ := filepath.Match(suffix, filepath.Base(path)); ok {
			return true
		}
		// let the double-star stand for any number of leading directories
		for i := 0; i < len(path); i++ {
			if path[i] == '/' && globMatch(suffix, path[i+1:]) {
				return true
			}
		}
		// also allow the double-star to match zero directories
		return globMatch(suffix, path)
	}
	if strings.Contains(pattern, "**") {
		// a "**" in the middle: fall back to a base-name match on the suffix pattern
		parts := strings.SplitN(pattern, "**", 2)
		rest := strings.TrimPrefix(parts[1], "/")
		if rest == "" {
			// a trailing "**" matches everything below the prefix
			return strings.HasPrefix(path, parts[0])
		}
		return strings.HasPrefix(path, strings.TrimSuffix(parts[0], "/")) && globMatch(rest, filepath.Base(path))
	}
	ok, _ := filepath.Match(pattern, path)
	if ok {
		return true
	}
	ok, _ = filepath.Match(pattern, filepath.Base(path))
	return ok
}

func applyFilters(suites []*model.Suite, f Filters) []*model.Suite {
	out := make([]*model.Suite, 0, len(suites))
	for _, s := range suites {
		if len(f.Priorities) > 0 && !containsFold(f.Priorities, string(s.Priority)) {
			continue
		}
		if len(f.NodeIDs) > 0 && !containsFold(f.NodeIDs, s.NodeID) {
			continue
		}
		if len(f.SuiteNames) > 0 && !containsFold(f.SuiteNames, s.Name) {
			continue
		}
		if len(f.Tags) > 0 && !anyTagMatches(f.Tags, s.Tags) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}

// Registry is the SuiteSource suiterunner.Runner needs for `call`
// step resolution, plus a full-graph view for the resolver/scheduler.
type Registry struct {
	byNodeID map[string]*model.Suite
}

// NewRegistry indexes suites by node-id.
func NewRegistry(suites []*model.Suite) *Registry {
	r := &Registry{byNodeID: make(map[string]*model.Suite, len(suites))}
	for _, s := range suites {
		r.byNodeID[s.NodeID] = s
	}
	return r
}

// Suite implements suiterunner.SuiteSource.
func (r *Registry) Suite(nodeID string) (*model.Suite, bool) {
	s, ok := r.byNodeID[nodeID]
	return s, ok
}

// All returns every registered suite, in indeterminate map order; callers
// that need a stable order should rely on the discovery-time slice instead.
func (r *Registry) All() []*model.Suite {
	out := make([]*model.Suite, 0, len(r.byNodeID))
	for _, s := range r.byNodeID {
		out = append(out, s)
	}
	return out
}

// WithTransitiveDeps seeds single-file execution mode: given a target
// node-id, returns that suite plus every suite it transitively depends on
// (by node-id, or by path as written or relative to the depending suite's
// directory), so a run of that one suite still has its dependency chain
// available.
func (r *Registry) WithTransitiveDeps(targetNodeID string) ([]*model.Suite, error) {
	target, ok := r.byNodeID[targetNodeID]
	if !ok {
		return nil, &Error{Path: targetNodeID, Message: "target node_id not found"}
	}

	visited := make(map[string]bool)
	var out []*model.Suite
	var visit func(s *model.Suite) error
	visit = func(s *model.Suite) error {
		if visited[s.NodeID] {
			return nil
		}
		visited[s.NodeID] = true
		for _, dep := range s.Depends {
			var depSuite *model.Suite
			if dep.NodeID != "" {
				depSuite, ok = r.byNodeID[dep.NodeID]
			} else {
				depSuite, ok = r.findByPath(dep.Path)
				if !ok {
					depSuite, ok = r.findByPath(filepath.Join(filepath.Dir(s.FilePath), dep.Path))
				}
			}
			if !ok {
				return &Error{Path: s.FilePath, Message: fmt.Sprintf("unresolved dependency %+v", dep)}
			}
			if err := visit(depSuite); err != nil {
				return err
			}
		}
		out = append(out, s)
		return nil
	}
	if err := visit(target); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) findByPath(path string) (*model.Suite, bool) {
	for _, s := range r.byNodeID {
		if s.FilePath == path {
			return s, true
		}
	}
	return nil, false
}

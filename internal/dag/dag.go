// Package dag builds the suite dependency graph, detects cycles, and
// produces a topological + priority-ordered execution list.
package dag

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// MissingDependencyError names an unresolved dependency reference.
type MissingDependencyError struct {
	FromNodeID string
	Ref        model.DependencyRef
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing_dependency_error: %q depends on unresolved ref %+v", e.FromNodeID, e.Ref)
}

// CycleError lists every node-id participating in a detected cycle.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle_error: cycle among %v", e.Members)
}

// Node is one vertex: a discovered suite plus its resolved dependency
// node-ids.
type Node struct {
	Suite   *model.Suite
	DependsOn []string // resolved node-ids
}

// Graph is the resolved DAG: vertices keyed by node-id.
type Graph struct {
	Nodes map[string]*Node
}

// Build resolves every suite's `depends` references to concrete node-ids
// (first by explicit node-id match, then by path match against another
// discovered suite's FilePath, taking the path as written or relative to
// the depending suite's directory) and returns the Graph.
func Build(suites []*model.Suite) (*Graph, error) {
	byNodeID := make(map[string]*model.Suite, len(suites))
	byPath := make(map[string]*model.Suite, len(suites))
	for _, s := range suites {
		byNodeID[s.NodeID] = s
		byPath[s.FilePath] = s
	}

	g := &Graph{Nodes: make(map[string]*Node, len(suites))}
	for _, s := range suites {
		node := &Node{Suite: s}
		for _, ref := range s.Depends {
			resolved, ok := resolveRef(ref, byNodeID, byPath)
			if !ok && ref.NodeID == "" && ref.Path != "" {
				if ds, found := byPath[filepath.Join(filepath.Dir(s.FilePath), ref.Path)]; found {
					resolved, ok = ds.NodeID, true
				}
			}
			if !ok {
				return nil, &MissingDependencyError{FromNodeID: s.NodeID, Ref: ref}
			}
			node.DependsOn = append(node.DependsOn, resolved)
		}
		g.Nodes[s.NodeID] = node
	}
	return g, nil
}

func resolveRef(ref model.DependencyRef, byNodeID, byPath map[string]*model.Suite) (string, bool) {
	if ref.NodeID != "" {
		if s, ok := byNodeID[ref.NodeID]; ok {
			return s.NodeID, true
		}
		return "", false
	}
	if ref.Path != "" {
		if s, ok := byPath[ref.Path]; ok {
			return s.NodeID, true
		}
		return "", false
	}
	return "", false
}

// DetectCycles runs Tarjan's SCC algorithm and returns the members of every
// non-trivial strongly connected component (size > 1, or a self-loop),
// sorted, as one CycleError.
func (g *Graph) DetectCycles() error {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Nodes[v].DependsOn {
			if _, visited := indices[w]; !visited {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// iterate in stable order for deterministic cycle member ordering
	ids := g.sortedIDs()
	for _, v := range ids {
		if _, visited := indices[v]; !visited {
			strongconnect(v)
		}
	}

	var members []string
	for _, scc := range sccs {
		if len(scc) > 1 || selfLoop(g, scc[0]) {
			members = append(members, scc...)
		}
	}
	if len(members) > 0 {
		sort.Strings(members)
		return &CycleError{Members: members}
	}
	return nil
}

func selfLoop(g *Graph, v string) bool {
	for _, w := range g.Nodes[v].DependsOn {
		if w == v {
			return true
		}
	}
	return false
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Order produces the topologically sorted execution order: primary key
// is the DAG partial order, secondary key is priority-tier rank (critical
// -> high -> medium -> low), tertiary key is node-id in lexical order.
// The order in which Discovery returned the suites is not kept in the
// Graph and plays no part in tie-breaking.
// This is also the dry-run's printed plan.
func (g *Graph) Order() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	inputOrder := g.sortedIDs() // tertiary key: lexical node-id order
	indegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string)
	for id, n := range g.Nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range n.DependsOn {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for _, id := range inputOrder {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return lessByPriorityThenOrder(g, ready[i], ready[j], inputOrder)
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("cycle_error: topological sort did not cover every node (possible residual cycle)")
	}
	return order, nil
}

func lessByPriorityThenOrder(g *Graph, a, b string, inputOrder []string) bool {
	ra := model.PriorityRank(g.Nodes[a].Suite.Priority)
	rb := model.PriorityRank(g.Nodes[b].Suite.Priority)
	if ra != rb {
		return ra < rb
	}
	return indexOf(inputOrder, a) < indexOf(inputOrder, b)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

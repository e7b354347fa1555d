package engine

import (
	"slices"

	"github.com/roach88/folio/internal/ir"
)

// waitGraph maps a suspended rep to the rep it waits on.
type waitGraph map[ir.Reference][]ir.Reference

// cycles returns every strongly connected component that is a real cycle
// (more than one rep, or a rep waiting on itself), each as a closed path.
// Output is deterministic.
func (g waitGraph) cycles() [][]ir.Reference {
	var out [][]ir.Reference
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			slices.Sort(scc)
			out = append(out, g.cyclePath(scc))
		}
	}
	slices.SortFunc(out, func(a, b []ir.Reference) int {
		return slices.Compare(a, b)
	})
	return out
}

func (g waitGraph) hasSelfLoop(node ir.Reference) bool {
	return slices.Contains(g[node], node)
}

// tarjanSCC finds strongly connected components. Nodes and edges are
// visited in sorted order.
func tarjanSCC(g waitGraph) [][]ir.Reference {
	var (
		index   = 0
		stack   []ir.Reference
		indices = make(map[ir.Reference]int)
		lowlink = make(map[ir.Reference]int)
		onStack = make(map[ir.Reference]bool)
		sccs    [][]ir.Reference
	)

	var strongConnect func(ir.Reference)
	strongConnect = func(v ir.Reference) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range sortedRefs(g[v]) {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root of an SCC: pop it.
		if lowlink[v] == indices[v] {
			var scc []ir.Reference
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]ir.Reference, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	for _, node := range sortedRefs(nodes) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member until it returns
// to it. A self-loop yields [a, a].
func (g waitGraph) cyclePath(scc []ir.Reference) []ir.Reference {
	if len(scc) == 1 {
		return []ir.Reference{scc[0], scc[0]}
	}

	members := make(map[ir.Reference]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []ir.Reference{current}
	visited := map[ir.Reference]bool{}
	for {
		visited[current] = true
		var next ir.Reference
		for _, w := range sortedRefs(g[current]) {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

func sortedRefs(refs []ir.Reference) []ir.Reference {
	out := slices.Clone(refs)
	slices.Sort(out)
	return out
}

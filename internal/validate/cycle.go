package validate

import (
	"fmt"
	"strings"
)

// findCycle detects a cycle in an instruction reference graph restricted
// to one edge kind. Nodes are instruction table indices; edges[i] lists
// the successors of instruction i in entry order.
//
// It returns the cycle path of the strongly connected component with
// the smallest member index, so the reported cycle is deterministic, or
// ok=false when the graph is a DAG.
func findCycle(edges [][]int) (path []int, ok bool) {
	best := -1
	var bestSCC []int
	for _, scc := range tarjanSCC(edges) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], edges) {
			continue
		}
		lo := scc[0]
		for _, n := range scc[1:] {
			if n < lo {
				lo = n
			}
		}
		if best == -1 || lo < best {
			best = lo
			bestSCC = scc
		}
	}
	if best == -1 {
		return nil, false
	}
	return cyclePath(best, bestSCC, edges), true
}

// formatCycle renders a cycle path for violation details.
func formatCycle(path []int) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, " -> ")
}

func hasSelfLoop(node int, edges [][]int) bool {
	for _, succ := range edges[node] {
		if succ == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm. Nodes are visited in index order, so the component list is
// deterministic. Single-node components without self-loops are not
// cycles; the caller filters them.
func tarjanSCC(edges [][]int) [][]int {
	n := len(edges)
	var (
		index   = 0
		stack   []int
		indices = make([]int, n)
		lowlink = make([]int, n)
		onStack = make([]bool, n)
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if indices[w] == -1 {
				strongConnect(w)
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
			var scc []int
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

	for v := 0; v < n; v++ {
		if indices[v] == -1 {
			strongConnect(v)
		}
	}
	return sccs
}

// cyclePath reconstructs a cycle through an SCC starting from its
// smallest member, following the first in-component successor at each
// step until the walk returns to the start.
func cyclePath(start int, scc []int, edges [][]int) []int {
	inSCC := make(map[int]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	path := []int{start}
	visited := map[int]bool{}
	current := start
	for {
		visited[current] = true
		next := -1
		for _, succ := range edges[current] {
			if inSCC[succ] && (!visited[succ] || succ == start) {
				next = succ
				break
			}
		}
		if next == -1 {
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

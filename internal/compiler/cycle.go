package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/leadflow/internal/sequence"
)

// CycleWarning represents a loop in a sequence step graph.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Follow-up loops that re-engage a cold lead until a condition flips
//   - Nurture cycles with a conditional exit branch
//
// Runaway loops are bounded at runtime by the Runner's step quota, so
// compile-time analysis only needs to surface them to the author.
type CycleWarning struct {
	SequenceID string   `json:"sequence_id"`
	Path       []string `json:"path"`    // Cycle path: ["assess", "nurture", "assess"]
	Message    string   `json:"message"` // Human-readable description
}

// AnalyzeCycles performs static cycle analysis on a step graph.
//
// The algorithm:
//  1. Build step -> next-step adjacency from the definition
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, or a self-loop, as a warning
//
// A DAG returns an empty warning list.
func AnalyzeCycles(def *sequence.Definition) []CycleWarning {
	graph := make(map[string][]string, len(def.Steps))
	for _, step := range def.Steps {
		graph[step.ID] = append([]string(nil), step.Next...)
	}

	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(def.ID, scc))
		}
	}
	return warnings
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Returns SCCs in reverse topological order.
func tarjanSCC(graph map[string][]string) [][]string {
	var (
		index    int
		indices  = make(map[string]int)
		lowlinks = make(map[string]int)
		onStack  = make(map[string]bool)
		stack    []string
		sccs     [][]string
	)

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlinks[v] {
					lowlinks[v] = indices[w]
				}
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
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

	for v := range graph {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}

	return sccs
}

func hasSelfLoop(id string, graph map[string][]string) bool {
	for _, next := range graph[id] {
		if next == id {
			return true
		}
	}
	return false
}

func sccToWarning(sequenceID string, scc []string) CycleWarning {
	path := append([]string(nil), scc...)
	path = append(path, scc[0])
	return CycleWarning{
		SequenceID: sequenceID,
		Path:       path,
		Message: fmt.Sprintf("steps form a loop (%s); runs through this sequence terminate only via the step quota or a conditional exit",
			strings.Join(path, " -> ")),
	}
}

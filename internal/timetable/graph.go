package timetable

import (
	"sort"

	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

// ConflictGraph is an undirected adjacency map over subjects. Two subjects are
// adjacent when at least one student is registered for both. Subjects with no
// conflicts are present with an empty adjacency set.
type ConflictGraph map[string]map[string]struct{}

// BuildConflictGraph expands every student's subject list into all unordered
// pairs. Edges are symmetric and self-loops are never added. Returns
// ErrEmptyDataset when the index holds no subjects.
func BuildConflictGraph(index StudentSubjectIndex) (ConflictGraph, error) {
	graph := make(ConflictGraph)

	for _, subjects := range index {
		for _, subject := range subjects {
			if graph[subject] == nil {
				graph[subject] = make(map[string]struct{})
			}
		}
		for i := 0; i < len(subjects); i++ {
			for j := i + 1; j < len(subjects); j++ {
				a, b := subjects[i], subjects[j]
				if a == b {
					continue
				}
				graph[a][b] = struct{}{}
				graph[b][a] = struct{}{}
			}
		}
	}

	if len(graph) == 0 {
		return nil, appErrors.ErrEmptyDataset
	}
	return graph, nil
}

// Subjects returns all graph nodes sorted by name.
func (g ConflictGraph) Subjects() []string {
	subjects := make([]string, 0, len(g))
	for subject := range g {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Degree returns the number of subjects in conflict with the given subject.
func (g ConflictGraph) Degree(subject string) int {
	return len(g[subject])
}

// Conflicts reports whether two subjects share at least one student.
func (g ConflictGraph) Conflicts(a, b string) bool {
	_, ok := g[a][b]
	return ok
}

// EdgeCount returns the number of undirected edges.
func (g ConflictGraph) EdgeCount() int {
	total := 0
	for _, neighbors := range g {
		total += len(neighbors)
	}
	return total / 2
}

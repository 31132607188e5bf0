package timetable

import (
	"fmt"
	"sort"
)

// GreedyColoring assigns a slot index to every subject so that conflicting
// subjects never share a slot. Subjects are processed by descending degree
// with ties broken by subject name ascending, which makes the assignment
// reproducible for identical input. The number of slots used is an upper
// bound on the chromatic number, not a minimum.
func GreedyColoring(graph ConflictGraph) (map[string]int, int) {
	order := graph.Subjects()
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := graph.Degree(order[i]), graph.Degree(order[j])
		if di != dj {
			return di > dj
		}
		return order[i] < order[j]
	})

	coloring := make(map[string]int, len(order))
	maxSlot := -1
	for _, subject := range order {
		used := make(map[int]bool, len(graph[subject]))
		for neighbor := range graph[subject] {
			if slot, ok := coloring[neighbor]; ok {
				used[slot] = true
			}
		}
		slot := 0
		for used[slot] {
			slot++
		}
		coloring[subject] = slot
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	return coloring, maxSlot + 1
}

// SlotLabel renders a slot index as a human readable "Day-<d> Slot-<s>" label
// for the given slots-per-day setting. Days and in-day slots are 1-based.
func SlotLabel(slotIndex, slotsPerDay int) string {
	day := slotIndex/slotsPerDay + 1
	slotInDay := slotIndex%slotsPerDay + 1
	return fmt.Sprintf("Day-%d Slot-%d", day, slotInDay)
}

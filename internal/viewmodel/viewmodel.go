// Package viewmodel derives the display projection of a user's todo
// collection. Everything here is pure: the projection is recomputed from the
// full collection on every change, never patched incrementally, so identical
// input sets always produce identical output.
package viewmodel

import (
	"sort"
	"time"

	"github.com/followup-todo/todo-sync-backend/internal/domain"
)

// SortForDisplay returns a new slice holding the display order:
//
//  1. all incomplete todos precede all completed todos,
//  2. incomplete todos are ordered by creation time, most recent first,
//  3. completed todos are ordered by completion time, most recent first;
//     a missing completion time sorts as the epoch, i.e. to the end.
//
// Ties on equal timestamps fall back to the record id so the order stays
// deterministic regardless of arrival order.
func SortForDisplay(todos []domain.Todo) []domain.Todo {
	sorted := make([]domain.Todo, len(todos))
	copy(sorted, todos)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		ta, tb := sortKey(a), sortKey(b)
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
	return sorted
}

func sortKey(t domain.Todo) time.Time {
	if t.Completed {
		if t.CompletedDate == nil {
			return time.Unix(0, 0)
		}
		return *t.CompletedDate
	}
	return t.CreatedDate
}

// IsOverdue reports whether the todo has a follow-up whose time has passed
// while the todo is still open. It is evaluated against the supplied clock
// at read time and never stored.
func IsOverdue(t domain.Todo, now time.Time) bool {
	if t.FollowUp == nil || t.Completed {
		return false
	}
	return t.FollowUp.DateTime.Before(now)
}

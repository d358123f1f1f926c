package domain

import "time"

// ToggleStatus is the complete/reopen shortcut. A completed task goes back to
// the backlog; any other status goes to completed. It never restores the
// status a task had before completion.
func ToggleStatus(status string) string {
	if status == StatusCompleted {
		return StatusBacklog
	}
	return StatusCompleted
}

// IsOverdue reports whether t has a due date before now and is not completed.
func IsOverdue(t Task, now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	due, err := time.Parse(time.RFC3339, *t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(now)
}

// Board groups tasks into kanban columns, keeping the input order per column.
type Board struct {
	Backlog    []Task `json:"backlog"`
	InProgress []Task `json:"in_progress"`
	Completed  []Task `json:"completed"`
	Overdue    []Task `json:"overdue"`
}

func BuildBoard(tasks []Task, now time.Time) Board {
	b := Board{Backlog: []Task{}, InProgress: []Task{}, Completed: []Task{}, Overdue: []Task{}}
	for _, t := range tasks {
		switch t.Status {
		case StatusBacklog:
			b.Backlog = append(b.Backlog, t)
		case StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
		if IsOverdue(t, now) {
			b.Overdue = append(b.Overdue, t)
		}
	}
	return b
}

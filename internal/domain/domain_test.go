package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func validTask() domain.Task {
	return domain.Task{
		ID:       "t1",
		OwnerID:  "u1",
		Title:    "Write report",
		Status:   domain.StatusBacklog,
		Priority: domain.PriorityMedium,
	}
}

func TestValidateTaskRejectsBlankTitle(t *testing.T) {
	task := validTask()
	task.Title = "   "
	err := domain.ValidateTask(task)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["title"])
}

func TestValidateTaskEnums(t *testing.T) {
	task := validTask()
	task.Status = "done"
	task.Priority = "urgent"
	err := domain.ValidateTask(task)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "status")
	assert.Contains(t, verr.Fields, "priority")

	for _, s := range domain.Statuses {
		task := validTask()
		task.Status = s
		assert.NoError(t, domain.ValidateTask(task), s)
	}
}

func TestValidateTaskDueDate(t *testing.T) {
	task := validTask()
	bad := "next tuesday"
	task.DueDate = &bad
	require.Error(t, domain.ValidateTask(task))

	good := "2024-05-01T09:00:00Z"
	task.DueDate = &good
	require.NoError(t, domain.ValidateTask(task))
}

func TestParseDueDate(t *testing.T) {
	ts, err := domain.ParseDueDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T00:00:00Z", ts)

	ts, err = domain.ParseDueDate("2024-05-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T08:00:00Z", ts)

	_, err = domain.ParseDueDate("soon")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestNormalizeTags(t *testing.T) {
	got := domain.NormalizeTags([]string{" home ", "", "work", "home", "work "})
	assert.Equal(t, []string{"home", "work"}, got)
	assert.Equal(t, []string{}, domain.NormalizeTags(nil))
}

func TestToggleStatus(t *testing.T) {
	assert.Equal(t, domain.StatusCompleted, domain.ToggleStatus(domain.StatusBacklog))
	assert.Equal(t, domain.StatusBacklog, domain.ToggleStatus(domain.StatusCompleted))
	assert.Equal(t, domain.StatusCompleted, domain.ToggleStatus(domain.StatusInProgress))
}

func TestBuildBoardAndOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	past := "2024-03-01T00:00:00Z"
	future := "2024-04-01T00:00:00Z"
	tasks := []domain.Task{
		{ID: "a", Status: domain.StatusBacklog, DueDate: &past},
		{ID: "b", Status: domain.StatusInProgress, DueDate: &future},
		{ID: "c", Status: domain.StatusCompleted, DueDate: &past},
		{ID: "d", Status: domain.StatusInProgress},
	}
	b := domain.BuildBoard(tasks, now)
	assert.Len(t, b.Backlog, 1)
	assert.Len(t, b.InProgress, 2)
	assert.Len(t, b.Completed, 1)
	require.Len(t, b.Overdue, 1)
	assert.Equal(t, "a", b.Overdue[0].ID)
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &domain.ValidationError{Fields: map[string]string{"title": "is required", "status": "bad"}}
	assert.Equal(t, "validation failed: status bad; title is required", err.Error())
}

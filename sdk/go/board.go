package taskboardsdk

import (
	"context"
	"time"
)

// Board pairs the API client with a Store so views update immediately and
// converge on the server's state.
type Board struct {
	Client *Client
	Store  *Store
}

func NewBoard(c *Client, s *Store) *Board {
	return &Board{Client: c, Store: s}
}

// Refresh reloads every task from the server.
func (b *Board) Refresh(ctx context.Context) error {
	tasks, err := b.Client.ListTasks(ctx, ListOptions{})
	if err != nil {
		return err
	}
	b.Store.Replace(tasks)
	return nil
}

// Create inserts the task once the server has confirmed it.
func (b *Board) Create(ctx context.Context, in TaskInput) (Task, error) {
	t, err := b.Client.CreateTask(ctx, in)
	if err != nil {
		return Task{}, err
	}
	b.Store.Put(t)
	return t, nil
}

func (b *Board) stamp() string {
	return b.Store.now().UTC().Format(time.RFC3339)
}

func (b *Board) Move(ctx context.Context, id, status string) (Task, error) {
	return b.Store.Mutate(ctx, id, func(t *Task) {
		t.Status = status
		t.UpdatedAt = b.stamp()
	}, func(ctx context.Context) (Task, error) {
		return b.Client.MoveTask(ctx, id, status)
	})
}

// ToggleComplete sends completed tasks back to backlog and completes the rest.
func (b *Board) ToggleComplete(ctx context.Context, id string) (Task, error) {
	return b.Store.Mutate(ctx, id, func(t *Task) {
		if t.Status == StatusCompleted {
			t.Status = StatusBacklog
		} else {
			t.Status = StatusCompleted
		}
		t.UpdatedAt = b.stamp()
	}, func(ctx context.Context) (Task, error) {
		return b.Client.ToggleTask(ctx, id)
	})
}

// Update applies a partial update. The returned string carries a calendar
// sync failure reported by the server, if any.
func (b *Board) Update(ctx context.Context, id string, patch TaskPatch) (Task, string, error) {
	var calendarErr string
	t, err := b.Store.Mutate(ctx, id, func(t *Task) {
		patch.Apply(t)
		t.UpdatedAt = b.stamp()
	}, func(ctx context.Context) (Task, error) {
		res, err := b.Client.UpdateTask(ctx, id, patch)
		calendarErr = res.CalendarError
		return res.Task, err
	})
	return t, calendarErr, err
}

func (b *Board) Delete(ctx context.Context, id string) error {
	return b.Store.Remove(ctx, id, func(ctx context.Context) error {
		return b.Client.DeleteTask(ctx, id)
	})
}

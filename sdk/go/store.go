package taskboardsdk

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Snapshot is what a Persister saves and restores.
type Snapshot struct {
	Tasks      []Task `json:"tasks"`
	SelectedID string `json:"selected_id,omitempty"`
}

// Persister keeps the store across process restarts.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// FilePersister stores the snapshot as JSON. A missing file loads as empty.
type FilePersister struct {
	Path string
}

func (p FilePersister) Load() (Snapshot, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (p FilePersister) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return err
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}

// Store is a client-side cache of tasks keyed by id. Writes go through
// Mutate, which applies the change locally first and reconciles it with the
// server's answer.
type Store struct {
	mu       sync.Mutex
	tasks    map[string]Task
	selected string
	persist  Persister
	// OnPersistError observes snapshot save failures; the in-memory state is kept.
	OnPersistError func(error)
	Now            func() time.Time
}

// NewStore loads the persisted snapshot, if any. p may be nil.
func NewStore(p Persister) (*Store, error) {
	s := &Store{tasks: map[string]Task{}, persist: p}
	if p == nil {
		return s, nil
	}
	snap, err := p.Load()
	if err != nil {
		return nil, err
	}
	for _, t := range snap.Tasks {
		s.tasks[t.ID] = t
	}
	if _, ok := s.tasks[snap.SelectedID]; ok {
		s.selected = snap.SelectedID
	}
	return s, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Replace swaps the whole task set, e.g. after a refresh.
func (s *Store) Replace(tasks []Task) {
	s.mu.Lock()
	s.tasks = make(map[string]Task, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	if _, ok := s.tasks[s.selected]; !ok {
		s.selected = ""
	}
	s.mu.Unlock()
	s.save()
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Put inserts or replaces a confirmed record.
func (s *Store) Put(t Task) {
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	s.save()
}

// All returns every task, newest first.
func (s *Store) All() []Task {
	return s.filter(func(Task) bool { return true })
}

func (s *Store) ByStatus(status string) []Task {
	return s.filter(func(t Task) bool { return t.Status == status })
}

func (s *Store) ByPriority(priority string) []Task {
	return s.filter(func(t Task) bool { return t.Priority == priority })
}

// Overdue lists tasks due before now that are not completed.
func (s *Store) Overdue() []Task {
	now := s.now()
	return s.filter(func(t Task) bool {
		if t.Status == StatusCompleted || t.DueDate == nil {
			return false
		}
		due, err := time.Parse(time.RFC3339, *t.DueDate)
		return err == nil && due.Before(now)
	})
}

func (s *Store) filter(keep func(Task) bool) []Task {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Select marks a task as selected; an unknown id clears the selection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; ok {
		s.selected = id
	} else {
		s.selected = ""
	}
	s.mu.Unlock()
	s.save()
}

func (s *Store) Selected() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[s.selected]
	return t, ok
}

// Mutate applies local to the cached task right away, then calls remote. The
// server's record replaces the local one on success; on failure the previous
// record is restored and remote's error returned.
func (s *Store) Mutate(ctx context.Context, id string, local func(*Task), remote func(context.Context) (Task, error)) (Task, error) {
	s.mu.Lock()
	prev, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return Task{}, ErrUnknownTask
	}
	next := prev
	next.Tags = append([]string(nil), prev.Tags...)
	local(&next)
	s.tasks[id] = next
	s.mu.Unlock()

	confirmed, err := remote(ctx)
	s.mu.Lock()
	if err != nil {
		s.tasks[id] = prev
		s.mu.Unlock()
		return prev, err
	}
	s.tasks[id] = confirmed
	s.mu.Unlock()
	s.save()
	return confirmed, nil
}

// Remove drops the task locally, calls remote and puts it back if remote fails.
func (s *Store) Remove(ctx context.Context, id string, remote func(context.Context) error) error {
	s.mu.Lock()
	prev, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownTask
	}
	delete(s.tasks, id)
	wasSelected := s.selected == id
	if wasSelected {
		s.selected = ""
	}
	s.mu.Unlock()

	if err := remote(ctx); err != nil {
		s.mu.Lock()
		s.tasks[id] = prev
		if wasSelected {
			s.selected = id
		}
		s.mu.Unlock()
		return err
	}
	s.save()
	return nil
}

// ErrUnknownTask is returned when a mutation targets a task the store does not hold.
var ErrUnknownTask = errors.New("task not in store")

func (s *Store) save() {
	if s.persist == nil {
		return
	}
	s.mu.Lock()
	snap := Snapshot{Tasks: make([]Task, 0, len(s.tasks)), SelectedID: s.selected}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, t)
	}
	s.mu.Unlock()
	sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].ID < snap.Tasks[j].ID })
	if err := s.persist.Save(snap); err != nil && s.OnPersistError != nil {
		s.OnPersistError(err)
	}
}

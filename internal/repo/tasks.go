package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/domain"
)

const taskColumns = `id,owner_id,title,COALESCE(description,''),status,priority,due_date,tags_json,ai_generated,calendar_event_id,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t        domain.Task
		due      sql.NullString
		eventID  sql.NullString
		tagsJSON string
		aiFlag   int
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &tagsJSON, &aiFlag, &eventID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.DueDate = stringPtr(due)
	t.CalendarEventID = stringPtr(eventID)
	t.AIGenerated = aiFlag != 0
	t.Tags = []string{}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
			return t, fmt.Errorf("decode tags for task %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO tasks(id,owner_id,title,description,status,priority,due_date,tags_json,ai_generated,calendar_event_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.OwnerID, t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.DueDate),
		encodeTags(t.Tags), boolInt(t.AIGenerated), nullableStringPtr(t.CalendarEventID), t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTask rewrites the mutable columns. The owner column is never updated.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, due_date=?, tags_json=?, calendar_event_id=?, updated_at=? WHERE id=? AND owner_id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.DueDate), encodeTags(t.Tags),
		nullableStringPtr(t.CalendarEventID), t.UpdatedAt, t.ID, t.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, ownerID, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, ownerID, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, ownerID, id string) (domain.Task, error) {
	return scanTask(r.on(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=? AND owner_id=?`, id, ownerID))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, ownerID, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TaskFilters narrows ListTasks. Tags match when the task carries any of them;
// Search is a case-insensitive substring match on title or description.
type TaskFilters struct {
	OwnerID      string
	Status       string
	Priority     string
	Tags         []string
	Search       string
	CreatedSince string
	Limit        int
}

// ListTasks returns matching tasks, newest first.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	clauses := []string{"owner_id=?"}
	args := []any{f.OwnerID}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if len(f.Tags) > 0 {
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(tasks.tags_json) WHERE json_each.value IN (%s))", placeholders(len(f.Tags))))
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		clauses = append(clauses, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description,'')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.CreatedSince != "" {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.CreatedSince)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

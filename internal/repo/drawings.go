package repo

import (
	"context"
	"database/sql"
	"errors"

	"taskboard/internal/domain"
)

const drawingColumns = `id,owner_id,task_id,name,data,COALESCE(preview_key,''),created_at,updated_at`

func scanDrawing(row rowScanner) (domain.Drawing, error) {
	var (
		d      domain.Drawing
		taskID sql.NullString
	)
	err := row.Scan(&d.ID, &d.OwnerID, &taskID, &d.Name, &d.Data, &d.PreviewKey, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	d.TaskID = stringPtr(taskID)
	return d, err
}

func (r Repo) InsertDrawing(ctx context.Context, tx *sql.Tx, d domain.Drawing) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO drawings(id,owner_id,task_id,name,data,preview_key,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		d.ID, d.OwnerID, nullableStringPtr(d.TaskID), d.Name, d.Data, nullable(d.PreviewKey), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) UpdateDrawing(ctx context.Context, tx *sql.Tx, d domain.Drawing) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE drawings SET task_id=?, name=?, data=?, preview_key=?, updated_at=? WHERE id=? AND owner_id=?`,
		nullableStringPtr(d.TaskID), d.Name, d.Data, nullable(d.PreviewKey), d.UpdatedAt, d.ID, d.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetDrawing(ctx context.Context, ownerID, id string) (domain.Drawing, error) {
	return r.GetDrawingTx(ctx, nil, ownerID, id)
}

func (r Repo) GetDrawingTx(ctx context.Context, tx *sql.Tx, ownerID, id string) (domain.Drawing, error) {
	return scanDrawing(r.on(tx).QueryRowContext(ctx, `SELECT `+drawingColumns+` FROM drawings WHERE id=? AND owner_id=?`, id, ownerID))
}

// ListDrawings returns the owner's drawings, optionally only those linked to taskID.
func (r Repo) ListDrawings(ctx context.Context, ownerID, taskID string) ([]domain.Drawing, error) {
	return r.listDrawings(ctx, nil, ownerID, taskID)
}

func (r Repo) listDrawings(ctx context.Context, tx *sql.Tx, ownerID, taskID string) ([]domain.Drawing, error) {
	query := `SELECT ` + drawingColumns + ` FROM drawings WHERE owner_id=?`
	args := []any{ownerID}
	if taskID != "" {
		query += ` AND task_id=?`
		args = append(args, taskID)
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	rows, err := r.on(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Drawing{}
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) DeleteDrawing(ctx context.Context, tx *sql.Tx, ownerID, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM drawings WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDrawingsForTask removes every drawing of the owner linked to taskID and
// returns the removed rows.
func (r Repo) DeleteDrawingsForTask(ctx context.Context, tx *sql.Tx, ownerID, taskID string) ([]domain.Drawing, error) {
	removed, err := r.listDrawings(ctx, tx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := r.on(tx).ExecContext(ctx, `DELETE FROM drawings WHERE owner_id=? AND task_id=?`, ownerID, taskID); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r Repo) CountDrawingsForTask(ctx context.Context, ownerID, taskID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM drawings WHERE owner_id=? AND task_id=?`, ownerID, taskID).Scan(&n)
	return n, err
}

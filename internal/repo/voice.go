package repo

import (
	"context"
	"database/sql"

	"taskboard/internal/domain"
)

func (r Repo) InsertRecording(ctx context.Context, tx *sql.Tx, v domain.VoiceRecording) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO voice_recordings(id,owner_id,task_id,transcript,format,size_bytes,duration_seconds,language,audio_key,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.OwnerID, nullableStringPtr(v.TaskID), v.Transcript, v.Format, v.SizeBytes, v.DurationSeconds, v.Language, nullable(v.AudioKey), v.CreatedAt)
	return err
}

// ListRecordings returns one page of the owner's recordings, newest first, and the total count.
func (r Repo) ListRecordings(ctx context.Context, ownerID string, limit, offset int) ([]domain.VoiceRecording, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM voice_recordings WHERE owner_id=?`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,owner_id,task_id,transcript,format,size_bytes,duration_seconds,language,COALESCE(audio_key,''),created_at
FROM voice_recordings WHERE owner_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []domain.VoiceRecording{}
	for rows.Next() {
		var (
			v      domain.VoiceRecording
			taskID sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.OwnerID, &taskID, &v.Transcript, &v.Format, &v.SizeBytes, &v.DurationSeconds, &v.Language, &v.AudioKey, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		v.TaskID = stringPtr(taskID)
		res = append(res, v)
	}
	return res, total, rows.Err()
}

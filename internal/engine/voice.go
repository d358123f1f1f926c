package engine

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/domain"
)

const (
	MaxAudioBytes = 25 << 20

	// bytesPerSecond is a rough compressed-audio rate used to estimate duration.
	bytesPerSecond = 16000

	DefaultRecordingsLimit = 10
	MaxRecordingsLimit     = 100
)

// audioFormats maps accepted upload types to the stored format name.
var audioFormats = map[string]string{
	"audio/webm": "webm",
	"audio/mp4":  "mp4",
	"audio/wav":  "wav",
	"audio/mp3":  "mp3",
	"audio/mpeg": "mp3",
}

// AudioFormat returns the stored format for a content type, ignoring
// parameters such as codecs.
func AudioFormat(contentType string) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	f, ok := audioFormats[mt]
	return f, ok
}

type TranscribeOptions struct {
	OwnerID     string
	Audio       []byte
	ContentType string
	CreateTask  bool
}

type TranscribeResult struct {
	Transcript string                 `json:"transcript"`
	Recording  *domain.VoiceRecording `json:"recording,omitempty"`
	Task       *domain.Task           `json:"task,omitempty"`
}

func (e Engine) Transcribe(ctx context.Context, opts TranscribeOptions) (TranscribeResult, error) {
	if opts.OwnerID == "" {
		return TranscribeResult{}, domain.ErrUnauthorized
	}
	if len(opts.Audio) == 0 {
		return TranscribeResult{}, domain.NewValidationError("audio", "is required")
	}
	if len(opts.Audio) > MaxAudioBytes {
		return TranscribeResult{}, domain.NewValidationError("audio", fmt.Sprintf("must be at most %d bytes", MaxAudioBytes))
	}
	format, ok := AudioFormat(opts.ContentType)
	if !ok {
		return TranscribeResult{}, domain.NewValidationError("audio", "unsupported content type "+opts.ContentType)
	}
	if e.Transcriber == nil {
		return TranscribeResult{}, fmt.Errorf("no transcriber configured: %w", domain.ErrTranscriptionFailed)
	}

	tctx := ctx
	if e.AITimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, e.AITimeout)
		defer cancel()
	}
	transcript, err := e.Transcriber.Transcribe(tctx, opts.Audio, opts.ContentType)
	if err != nil {
		e.log().Warn("transcription failed", zap.String("owner", opts.OwnerID), zap.Error(err))
		return TranscribeResult{}, fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return TranscribeResult{}, fmt.Errorf("%w: empty transcript", domain.ErrTranscriptionFailed)
	}
	res := TranscribeResult{Transcript: transcript}

	rec := domain.VoiceRecording{
		ID:              uuid.NewString(),
		OwnerID:         opts.OwnerID,
		Transcript:      transcript,
		Format:          format,
		SizeBytes:       int64(len(opts.Audio)),
		DurationSeconds: float64(len(opts.Audio)) / bytesPerSecond,
		Language:        "en",
		CreatedAt:       e.stamp(),
	}
	if opts.CreateTask {
		input := transcript
		t, err := e.CreateTask(ctx, TaskCreateOptions{OwnerID: opts.OwnerID, NaturalLanguage: &input})
		if err != nil {
			return res, err
		}
		res.Task = &t
		rec.TaskID = &t.ID
	}
	if e.Blobs != nil {
		key := "voice/" + rec.ID + "." + format
		if err := e.Blobs.Put(ctx, key, opts.Audio, opts.ContentType); err != nil {
			e.log().Warn("audio store failed", zap.String("recording", rec.ID), zap.Error(err))
		} else {
			rec.AudioKey = key
		}
	}
	if err := e.Repo.InsertRecording(ctx, nil, rec); err != nil {
		e.log().Warn("recording store failed", zap.String("recording", rec.ID), zap.Error(err))
		return res, nil
	}
	res.Recording = &rec
	return res, nil
}

// RecordingsPage is one page of stored recordings.
type RecordingsPage struct {
	Recordings []domain.VoiceRecording `json:"recordings"`
	Total      int                     `json:"total"`
	HasMore    bool                    `json:"has_more"`
}

func (e Engine) ListRecordings(ctx context.Context, ownerID string, limit, offset int) (RecordingsPage, error) {
	if ownerID == "" {
		return RecordingsPage{}, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultRecordingsLimit
	}
	if limit > MaxRecordingsLimit {
		limit = MaxRecordingsLimit
	}
	if offset < 0 {
		return RecordingsPage{}, domain.NewValidationError("offset", "must not be negative")
	}
	recs, total, err := e.Repo.ListRecordings(ctx, ownerID, limit, offset)
	if err != nil {
		return RecordingsPage{}, err
	}
	return RecordingsPage{Recordings: recs, Total: total, HasMore: offset+len(recs) < total}, nil
}

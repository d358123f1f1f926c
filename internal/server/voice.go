package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"taskboard/internal/engine"
)

// multipartOverhead leaves room for form boundaries and fields around the audio part.
const multipartOverhead = 1 << 20

func registerVoice(api huma.API, router chi.Router, cfg Config) {
	e := cfg.Engine
	huma.Register(api, huma.Operation{
		OperationID: "list-recordings",
		Method:      http.MethodGet,
		Path:        "/voice/recordings",
		Summary:     "List voice recordings, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit  int `query:"limit" default:"10" minimum:"0" maximum:"100"`
		Offset int `query:"offset" default:"0" minimum:"0"`
	}) (*struct {
		Body engine.RecordingsPage `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		page, err := e.ListRecordings(ctx, owner, input.Limit, input.Offset)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RecordingsPage `json:"body"`
		}{Body: page}, nil
	})

	// Multipart upload: field "audio", optional "create_task=true".
	router.Post(path.Join(cfg.BasePath, "voice/transcribe"), func(w http.ResponseWriter, r *http.Request) {
		owner, authErr := ownerFromContext(r.Context())
		if authErr != nil {
			respondStatusError(w, authErr)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, engine.MaxAudioBytes+multipartOverhead)
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondStatusError(w, newAPIError(http.StatusRequestEntityTooLarge, "validation_error", fmt.Sprintf("audio must be at most %d bytes", engine.MaxAudioBytes), nil))
				return
			}
			respondStatusError(w, newAPIError(http.StatusBadRequest, "invalid_input", "multipart form required: "+err.Error(), nil))
			return
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("audio")
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "validation_error", "audio file is required", map[string]any{"fields": map[string]any{"audio": "is required"}}))
			return
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		createTask, _ := strconv.ParseBool(r.FormValue("create_task"))
		res, err := e.Transcribe(r.Context(), engine.TranscribeOptions{
			OwnerID:     owner,
			Audio:       audio,
			ContentType: header.Header.Get("Content-Type"),
			CreateTask:  createTask,
		})
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
}

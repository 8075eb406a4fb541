package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/adapter"
	"lecture-script-service/internal/infra/asr"
	"lecture-script-service/internal/usecase"
)

type createJobRequest struct {
	Kind         string          `json:"kind"`
	SourceFileID string          `json:"source_file_id"`
	ProjectID    string          `json:"project_id,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
}

type jobResponse struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	SourceFileID string     `json:"source_file_id"`
	ProjectID    string     `json:"project_id,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Kind:         string(j.Kind),
		Status:       string(j.Status),
		Progress:     j.Progress,
		SourceFileID: j.SourceFileID,
		ProjectID:    j.ProjectID,
		Error:        j.ErrorMessage,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP statuses and the stable error
// code taxonomy. Internal details never leak on 500s.
func writeError(w http.ResponseWriter, err error) {
	code := domain.Classify(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrResourceUnavailable),
		errors.Is(err, domain.ErrQueueFull):
		status = http.StatusServiceUnavailable
	default:
		message = "internal error"
	}

	writeJSON(w, status, map[string]errorBody{"error": {Code: string(code), Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func createJobHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
			return
		}

		job, err := jobUC.CreateJob(r.Context(), model.JobKind(req.Kind), req.SourceFileID, req.ProjectID, string(req.Config))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toJobResponse(job))
	}
}

// listJobsHandler accepts 'status', 'offset' and 'limit' query parameters.
func listJobsHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		status := model.JobStatus(r.URL.Query().Get("status"))

		jobs, err := jobUC.ListJobs(r.Context(), status, offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, toJobResponse(j))
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
	}
}

func getJobHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func startJobHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.StartJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func cancelJobHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.CancelJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func getScriptHandler(jobUC *usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		script, err := jobUC.GetJobScript(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		response := struct {
			ID        string          `json:"id"`
			JobID     string          `json:"job_id"`
			Title     string          `json:"title"`
			Content   string          `json:"content"`
			Format    string          `json:"format"`
			Language  string          `json:"language,omitempty"`
			Segments  json.RawMessage `json:"segments,omitempty"`
			WordCount int             `json:"word_count"`
			CreatedAt time.Time       `json:"created_at"`
		}{
			ID:        script.ID,
			JobID:     script.JobID,
			Title:     script.Title,
			Content:   script.Content,
			Format:    script.Format,
			Language:  script.Language,
			WordCount: script.WordCount,
			CreatedAt: script.CreatedAt,
		}
		if script.SegmentsJSON != "" {
			response.Segments = json.RawMessage(script.SegmentsJSON)
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// modelsHandler lists the transcription engine catalog plus whatever chat
// models the configured AI provider reports. Provider lookup failures are
// tolerated; the local catalog is always served.
func modelsHandler(ai adapter.AIServiceAdapter, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			TranscriptionModels []string          `json:"transcription_models"`
			Languages           map[string]string `json:"languages"`
			ChatModels          []string          `json:"chat_models,omitempty"`
		}{
			TranscriptionModels: asr.ModelSizes,
			Languages:           asr.Languages,
		}

		if ai != nil {
			models, err := ai.ListModels(r.Context())
			if err != nil {
				log.Warn().Err(err).Msg("could not list provider models")
			} else {
				response.ChatModels = models
			}
		}
		writeJSON(w, http.StatusOK, response)
	}
}

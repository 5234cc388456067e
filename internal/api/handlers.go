package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kdimtricp/ethoimager/internal/criteria"
	"github.com/kdimtricp/ethoimager/internal/database"
	"github.com/kdimtricp/ethoimager/internal/imager"
	"github.com/kdimtricp/ethoimager/internal/metrics"
)

const maxRequestBody = 1 << 20

// FrameService is the per-archive pipeline behind the API.
type FrameService interface {
	Run(ctx context.Context, req imager.Request) ([]string, error)
	List() ([]string, error)
	Reset() error
}

// Opener returns the pipeline of the archive at path.
type Opener func(ctx context.Context, path string) (FrameService, error)

type App struct {
	Open Opener
	// ArchiveRoot bounds the archive paths clients may name. Empty means
	// the working directory.
	ArchiveRoot string
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

type runRequest struct {
	Path       string  `json:"path"`
	ID         []int64 `json:"id"`
	T          []int64 `json:"t"`
	Connective string  `json:"connective"`
	Annotate   bool    `json:"annotate"`
	Video      bool    `json:"video"`
	FPS        int     `json:"fps"`
	Workers    int     `json:"workers"`
	Resume     bool    `json:"resume"`
}

type filesResponse struct {
	Files []string `json:"files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) RunHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.renderError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		app.renderError(w, http.StatusBadRequest, "path is required")
		return
	}

	service, err := app.open(r, req.Path)
	if err != nil {
		app.renderFailure(w, err)
		return
	}

	files, err := service.Run(r.Context(), imager.Request{
		IDs:        req.ID,
		Times:      req.T,
		Connective: criteria.Connective(req.Connective),
		Annotate:   req.Annotate,
		Video:      req.Video,
		FPS:        req.FPS,
		Workers:    req.Workers,
		Resume:     req.Resume,
	})
	if err != nil {
		app.renderFailure(w, err)
		return
	}

	app.renderJSON(w, http.StatusOK, filesResponse{Files: files})
}

func (app *App) ListHandler(w http.ResponseWriter, r *http.Request) {
	service, ok := app.openFromQuery(w, r)
	if !ok {
		return
	}

	files, err := service.List()
	if err != nil {
		app.renderFailure(w, err)
		return
	}

	app.renderJSON(w, http.StatusOK, filesResponse{Files: files})
}

func (app *App) ResetHandler(w http.ResponseWriter, r *http.Request) {
	service, ok := app.openFromQuery(w, r)
	if !ok {
		return
	}

	if err := service.Reset(); err != nil {
		app.renderFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *App) openFromQuery(w http.ResponseWriter, r *http.Request) (FrameService, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		app.renderError(w, http.StatusBadRequest, "path is required")
		return nil, false
	}

	service, err := app.open(r, path)
	if err != nil {
		app.renderFailure(w, err)
		return nil, false
	}
	return service, true
}

func (app *App) open(r *http.Request, path string) (FrameService, error) {
	resolved, err := resolveArchive(app.ArchiveRoot, path)
	if err != nil {
		return nil, err
	}
	return app.Open(r.Context(), resolved)
}

func (app *App) renderFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, criteria.ErrInvalidFilterValue),
		errors.Is(err, criteria.ErrInvalidConnective),
		errors.Is(err, criteria.ErrInvalidColumn),
		errors.Is(err, ErrPathOutsideRoot):
		app.renderError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrArchiveUnreadable):
		app.renderError(w, http.StatusBadGateway, err.Error())
	default:
		app.logger().Error("request failed", "error", err)
		app.renderError(w, http.StatusInternalServerError, "internal error")
	}
}

func (app *App) renderError(w http.ResponseWriter, status int, message string) {
	app.renderJSON(w, status, errorResponse{Error: message})
}

func (app *App) renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger().Warn("failed to write response", "error", err)
	}
}

func (app *App) logger() *slog.Logger {
	if app.Logger == nil {
		return slog.Default()
	}
	return app.Logger
}

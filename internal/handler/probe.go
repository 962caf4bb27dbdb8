package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/middleware"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/spawn"
)

// Probe route constants.
const (
	IndexMessage        = "Mimosa demo webapp"
	DefaultSpawnCommand = "id"
	TimeoutReturnCode   = -9
	TimeoutStderr       = "Killed by timeout (Falco likely intervened)"
)

// CommandRunner runs a shell command with a deadline.
type CommandRunner interface {
	Run(ctx context.Context, command string, timeout time.Duration) (spawn.Result, error)
}

// ProbeHandler serves the demo routes watched by runtime security tooling.
// /spawn executes caller-supplied commands and must stay that way.
type ProbeHandler struct {
	runner  CommandRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewProbeHandler creates a new ProbeHandler instance.
func NewProbeHandler(runner CommandRunner, timeout time.Duration, logger *zap.Logger) *ProbeHandler {
	return &ProbeHandler{
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
}

// RegisterRoutes registers the probe routes with the router.
func (h *ProbeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", healthCheck(h.logger)).Methods(http.MethodGet)
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	router.HandleFunc("/spawn", h.Spawn).Methods(http.MethodGet)
}

// Index handles GET / requests.
func (h *ProbeHandler) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, model.IndexResponse{
		OK:      true,
		Message: IndexMessage,
	})
}

// Search handles GET /search requests. The query is echoed back untouched;
// nothing is searched.
func (h *ProbeHandler) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, model.SearchResponse{
		OK: true,
		Q:  r.URL.Query().Get("q"),
	})
}

// Spawn handles GET /spawn requests by running cmd through the shell.
func (h *ProbeHandler) Spawn(w http.ResponseWriter, r *http.Request) {
	command := DefaultSpawnCommand
	if values, ok := r.URL.Query()["cmd"]; ok && len(values) > 0 {
		command = values[0]
	}

	h.logger.Info("spawning command",
		zap.String("command", command),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	res, err := h.runner.Run(r.Context(), command, h.timeout)
	if err != nil {
		h.logger.Error("spawn failed", zap.String("command", command), zap.Error(err))
		writeJSON(w, h.logger, http.StatusInternalServerError, model.FailureResponse{
			OK:    false,
			Error: err.Error(),
		})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, spawnResponse(res))
}

// spawnResponse maps a run result onto the /spawn response body.
func spawnResponse(res spawn.Result) model.SpawnResponse {
	if res.Status == spawn.StatusTimedOut {
		return model.SpawnResponse{
			OK:         false,
			ReturnCode: TimeoutReturnCode,
			Stdout:     "",
			Stderr:     TimeoutStderr,
		}
	}

	return model.SpawnResponse{
		OK:         res.ExitCode == 0,
		ReturnCode: res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortforge/internal/api"
	"shortforge/internal/config"
	"shortforge/internal/logging"
	"shortforge/internal/metrics"
	"shortforge/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured; every method
// tolerates a nil receiver.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{bind: bind, logger: logger, daemon: d}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.API.Token)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("GET /api/projects", authMiddleware(token, s.handleProjects))
	mux.HandleFunc("GET /api/projects/{id}", authMiddleware(token, s.handleProject))
	mux.HandleFunc("GET /api/jobs", authMiddleware(token, s.handleJobs))
	mux.HandleFunc("POST /api/jobs", authMiddleware(token, s.handleSubmitJob))
	mux.HandleFunc("GET /api/jobs/{id}", authMiddleware(token, s.handleJob))
	mux.HandleFunc("POST /api/jobs/{id}/render", authMiddleware(token, s.handleRenderJob))
	mux.Handle("GET /metrics", metrics.Handler())
	return requestID(mux)
}

// requestID tags each request with a correlation id, reusing the caller's.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		QueueLength:  status.QueueLength,
		Projects:     status.Projects,
		JobCounts:    api.CountJobs(status.Jobs),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

func (s *apiServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.daemon.Projects(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if stage := strings.TrimSpace(r.URL.Query().Get("stage")); stage != "" {
		filtered := list[:0]
		for _, p := range list {
			if string(p.CurrentStage) == stage {
				filtered = append(filtered, p)
			}
		}
		list = filtered
	}
	s.writeJSON(w, http.StatusOK, api.ProjectListResponse{Items: api.FromProjects(list)})
}

func (s *apiServer) handleProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.daemon.Project(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProjectResponse{Item: api.FromProject(p)})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	list := s.daemon.Jobs()
	if statuses := r.URL.Query()["status"]; len(statuses) > 0 {
		want := map[string]bool{}
		for _, value := range statuses {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				want[trimmed] = true
			}
		}
		filtered := list[:0]
		for _, job := range list {
			if want[string(job.Status)] {
				filtered = append(filtered, job)
			}
		}
		list = filtered
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Items: api.FromJobs(list)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.Job(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitJobRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	job, err := s.daemon.SubmitJob(r.Context(), req.ToJob())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) handleRenderJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.StartRender(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, hint string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Hint: hint})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	details := services.Details(err)
	status := http.StatusInternalServerError
	switch details.Kind {
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindValidation:
		status = http.StatusConflict
		if r.Method == http.MethodPost && r.PathValue("id") == "" {
			status = http.StatusBadRequest
		}
	case services.KindConfiguration:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.String(logging.FieldErrorHint, "check daemon logs for the underlying cause"),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error(), details.Hint)
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}

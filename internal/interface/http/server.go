// Package http implements the REST API of Attendance Hub.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/scheduler"
	"github.com/sekolah-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodyBytes - upper bound of a request body (0 = unlimited).
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS, "*" allows all.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int
	RateBurst          int

	// MediaDir is served read-only under MediaPath when both are set.
	MediaDir  string
	MediaPath string

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        120 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       25 << 20,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		RateBurst:          30,
		MediaPath:          "/storage",
		Version:            "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// JobRunner is the part of the scheduler exposed to administrators.
type JobRunner interface {
	ListJobs() []scheduler.JobInfo
	History(limit int) []scheduler.JobResult
	RunNow(ctx context.Context, name string) (scheduler.JobResult, error)
}

// Dependencies contains everything the handlers call.
type Dependencies struct {
	Tokens    *handlers.TokenService
	Validator *handlers.Validator
	Health    *handlers.HealthChecker

	// Command handlers (write side)
	DirectoryCommands  *command.DirectoryHandler
	Rules              *command.RuleHandler
	Logs               *command.LogHandler
	ExecuteRecord      *command.ExecuteRecordHandler
	SubmitAttendance   *command.SubmitAttendanceHandler
	RollbackAttendance *command.RollbackAttendanceHandler

	// Query handlers (read side)
	Directory  *query.DirectoryHandler
	Attendance *query.AttendanceHandler
	Discipline *query.DisciplineHandler
	Reports    *query.ReportHandler

	// Jobs is optional; the job endpoints answer 404 without it.
	Jobs JobRunner

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))
	if s.deps.Validator == nil {
		s.deps.Validator = handlers.NewValidator()
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, config.RateBurst)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

const (
	student = shared.RoleStudent
	teacher = shared.RoleTeacher
	admin   = shared.RoleAdministrator
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET /health", s.handleHealth)
	r.HandleFunc("GET /ready", s.handleReady)
	r.HandleFunc("GET /live", s.handleLive)
	r.HandleFunc("GET /{$}", s.handleRoot)

	if s.config.MediaDir != "" && s.config.MediaPath != "" {
		prefix := "/" + strings.Trim(s.config.MediaPath, "/") + "/"
		r.Handle("GET "+prefix, http.StripPrefix(prefix, mediaFileServer(s.config.MediaDir)))
	}

	const v1 = "/api/v1"
	auth := s.authenticate

	r.HandleFunc("GET "+v1+"/me", auth(s.handleMe))

	// ─────────────────────────────────────────────────────────────────────────
	// Directory
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/students", auth(s.handleListStudents))
	r.HandleFunc("GET "+v1+"/students/{id}", auth(s.handleGetStudent))
	r.HandleFunc("POST "+v1+"/students", s.requireRole(s.handleCreateStudent, admin))
	r.HandleFunc("PUT "+v1+"/students/{id}", s.requireRole(s.handleUpdateStudent, admin))
	r.HandleFunc("DELETE "+v1+"/students/{id}", s.requireRole(s.handleDeleteStudent, admin))

	r.HandleFunc("GET "+v1+"/teachers", auth(s.handleListTeachers))
	r.HandleFunc("GET "+v1+"/teachers/{id}", auth(s.handleGetTeacher))
	r.HandleFunc("POST "+v1+"/teachers", s.requireRole(s.handleCreateTeacher, admin))
	r.HandleFunc("PUT "+v1+"/teachers/{id}", s.requireRole(s.handleUpdateTeacher, admin))
	r.HandleFunc("DELETE "+v1+"/teachers/{id}", s.requireRole(s.handleDeleteTeacher, admin))

	r.HandleFunc("GET "+v1+"/grades", auth(s.handleListGrades))
	r.HandleFunc("GET "+v1+"/grades/{id}", auth(s.handleGetGrade))
	r.HandleFunc("POST "+v1+"/grades", s.requireRole(s.handleCreateGrade, admin))
	r.HandleFunc("PUT "+v1+"/grades/{id}", s.requireRole(s.handleUpdateGrade, admin))
	r.HandleFunc("DELETE "+v1+"/grades/{id}", s.requireRole(s.handleDeleteGrade, admin))

	r.HandleFunc("GET "+v1+"/targets", auth(s.handleListTargets))
	r.HandleFunc("GET "+v1+"/targets/{id}", auth(s.handleGetTarget))
	r.HandleFunc("POST "+v1+"/targets", s.requireRole(s.handleCreateTarget, admin, teacher))
	r.HandleFunc("PUT "+v1+"/targets/{id}", s.requireRole(s.handleUpdateTarget, admin, teacher))
	r.HandleFunc("DELETE "+v1+"/targets/{id}", s.requireRole(s.handleDeleteTarget, admin, teacher))

	r.HandleFunc("GET "+v1+"/faqs", auth(s.handleListFAQs))
	r.HandleFunc("GET "+v1+"/faqs/{id}", auth(s.handleGetFAQ))
	r.HandleFunc("POST "+v1+"/faqs", s.requireRole(s.handleCreateFAQ, admin))
	r.HandleFunc("PUT "+v1+"/faqs/{id}", s.requireRole(s.handleUpdateFAQ, admin))
	r.HandleFunc("DELETE "+v1+"/faqs/{id}", s.requireRole(s.handleDeleteFAQ, admin))

	r.HandleFunc("GET "+v1+"/contacts", auth(s.handleListContacts))
	r.HandleFunc("GET "+v1+"/contacts/{id}", auth(s.handleGetContact))
	r.HandleFunc("POST "+v1+"/contacts", s.requireRole(s.handleCreateContact, admin))
	r.HandleFunc("PUT "+v1+"/contacts/{id}", s.requireRole(s.handleUpdateContact, admin))
	r.HandleFunc("DELETE "+v1+"/contacts/{id}", s.requireRole(s.handleDeleteContact, admin))

	// ─────────────────────────────────────────────────────────────────────────
	// Rules & Ledger
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/reward-punishment-rules", auth(s.handleListRules))
	r.HandleFunc("GET "+v1+"/reward-punishment-rules/{id}", auth(s.handleGetRule))
	r.HandleFunc("POST "+v1+"/reward-punishment-rules", s.requireRole(s.handleCreateRule, admin))
	r.HandleFunc("PUT "+v1+"/reward-punishment-rules/{id}", s.requireRole(s.handleUpdateRule, admin))
	r.HandleFunc("DELETE "+v1+"/reward-punishment-rules/{id}", s.requireRole(s.handleDeleteRule, admin))

	r.HandleFunc("GET "+v1+"/student-points", s.requireRole(s.handleListLedger, admin, teacher))
	r.HandleFunc("GET "+v1+"/student-points/monthly-report", s.requireRole(s.handleMonthlyReport, admin, teacher))
	r.HandleFunc("GET "+v1+"/student-points/{id}", auth(s.handleGetLedgerEntry))

	// ─────────────────────────────────────────────────────────────────────────
	// Attendance
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/attendances", auth(s.handleListAttendance))
	r.HandleFunc("GET "+v1+"/attendances/{id}", auth(s.handleGetAttendance))
	r.HandleFunc("POST "+v1+"/attendances", s.requireRole(s.handleSubmitAttendance, student, admin))
	r.HandleFunc("POST "+v1+"/admin/attendances/rollback", s.requireRole(s.handleRollbackAttendance, admin))

	// ─────────────────────────────────────────────────────────────────────────
	// Discipline
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/reward-punishment-records", s.requireRole(s.handleListRecords, teacher))
	r.HandleFunc("GET "+v1+"/reward-punishment-records/students/list", s.requireRole(s.handleStudentsWithRecords, admin, teacher))
	r.HandleFunc("GET "+v1+"/reward-punishment-records/{id}", s.requireRole(s.handleGetRecord, admin, teacher))
	r.HandleFunc("PUT "+v1+"/reward-punishment-records/{id}", s.requireRole(s.handleExecuteRecord, teacher))

	r.HandleFunc("GET "+v1+"/reward-punishment-logs", s.requireRole(s.handleListLogs, admin, teacher))
	r.HandleFunc("GET "+v1+"/reward-punishment-logs/{id}", s.requireRole(s.handleGetLog, admin, teacher))
	r.HandleFunc("POST "+v1+"/reward-punishment-logs", s.requireRole(s.handleCreateLog, teacher))
	r.HandleFunc("PUT "+v1+"/reward-punishment-logs/{id}", s.requireRole(s.handleUpdateLog, admin, teacher))
	r.HandleFunc("DELETE "+v1+"/reward-punishment-logs/{id}", s.requireRole(s.handleDeleteLog, admin, teacher))

	// ─────────────────────────────────────────────────────────────────────────
	// Dashboards
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/dashboard/stats", s.requireRole(s.handleDashboardStats, admin, teacher))
	r.HandleFunc("GET "+v1+"/dashboard/student/{id}", auth(s.handleStudentDashboard))
	r.HandleFunc("GET "+v1+"/dashboard/teacher/{id}", s.requireRole(s.handleTeacherDashboard, admin, teacher))

	// ─────────────────────────────────────────────────────────────────────────
	// Jobs
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET "+v1+"/admin/jobs", s.requireRole(s.handleListJobs, admin))
	r.HandleFunc("POST "+v1+"/admin/jobs/{name}/run", s.requireRole(s.handleRunJob, admin))
}

// mediaFileServer serves stored files without directory listings.
func mediaFileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

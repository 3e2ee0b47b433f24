package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sekolah-hub/attendance-hub/config"
	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/media"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/messaging"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/sekolah-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

// Globals defines flags available to all commands.
type Globals struct {
	EnvFile string        `help:"Environment file to load." default:".env" env:"ENV_FILE"`
	Timeout time.Duration `help:"Upper bound for the whole command." default:"5m"`
}

type Commands struct {
	Globals

	Migrate            MigrateCmd            `cmd:"" help:"Manage the database schema."`
	SeedRules          SeedRulesCmd          `cmd:"" name:"seed-rules" help:"Insert the default reward and punishment rules."`
	RollbackAttendance RollbackAttendanceCmd `cmd:"" name:"rollback-attendance" help:"Undo every attendance of a day."`
	CloseDay           CloseDayCmd           `cmd:"" name:"close-day" help:"Mark students without attendance as absent."`
	Token              TokenCmd              `cmd:"" help:"Issue an API bearer token."`
}

// ══════════════════════════════════════════════════════════════════════════════
// ENVIRONMENT
// ══════════════════════════════════════════════════════════════════════════════

// env is what a command needs to reach the database.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	conn  *postgres.Connection
	store *postgres.Store
	bus   *messaging.InMemoryEventBus
	cache *redis.ReportCache
}

func loadConfig(g *Globals) (*config.Config, error) {
	if err := os.Setenv("ENV_FILE", g.EnvFile); err != nil {
		return nil, err
	}
	return config.Load()
}

// open connects to Postgres and, unless disabled, Redis. Domain events are
// delivered synchronously so cached reports are dropped before exit.
func open(ctx context.Context, g *Globals) (*env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.FormatText
	opts.Output = os.Stderr
	log := logger.New(opts).With(logger.Component("admin"))

	pc := postgres.DefaultConfig()
	pc.URL = cfg.Database.URL
	pc.Host = cfg.Database.Host
	pc.Port = cfg.Database.Port
	pc.Database = cfg.Database.Name
	pc.User = cfg.Database.User
	pc.Password = cfg.Database.Password
	pc.SSLMode = cfg.Database.SSLMode
	pc.ConnectTimeout = cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	e := &env{cfg: cfg, log: log, conn: conn, store: postgres.NewStore(conn)}
	e.bus = messaging.NewInMemoryEventBus(messaging.Config{AsyncMode: false, Logger: log})

	var invalidate messaging.PrefixDeleter
	if !cfg.Redis.Disabled {
		rc := redis.DefaultConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		e.cache = redis.NewReportCache(redis.NewClient(rc), log)
		invalidate = e.cache
	}
	if err := messaging.Register(e.bus, invalidate, query.ReportCachePrefix, log); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	_ = e.bus.Close()
	if e.cache != nil {
		_ = e.cache.Close()
	}
	e.conn.Close()
}

func (e *env) mediaStore() (*media.LocalStore, error) {
	return media.NewLocalStore(media.Config{
		Dir:      e.cfg.Media.Dir,
		MaxBytes: int64(e.cfg.Attendance.MaxImageKB) * 1024,
	})
}

func (g *Globals) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.Timeout)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// MigrateCmd groups the schema commands.
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Apply pending migrations."`
	Down   MigrateDownCmd   `cmd:"" help:"Revert the latest migration."`
	Status MigrateStatusCmd `cmd:"" help:"List migrations and whether they are applied."`
}

type MigrateUpCmd struct{}

func (cmd *MigrateUpCmd) Run(ctx *kong.Context, g *Globals) error {
	return withEnv(g, func(c context.Context, e *env) error {
		n, err := postgres.NewMigrator(e.conn).Migrate(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "applied %d migration(s)\n", n)
		return nil
	})
}

type MigrateDownCmd struct{}

func (cmd *MigrateDownCmd) Run(ctx *kong.Context, g *Globals) error {
	return withEnv(g, func(c context.Context, e *env) error {
		version, err := postgres.NewMigrator(e.conn).Rollback(c)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Fprintln(ctx.Stdout, "nothing to roll back")
			return nil
		}
		fmt.Fprintf(ctx.Stdout, "rolled back migration %d\n", version)
		return nil
	})
}

type MigrateStatusCmd struct{}

func (cmd *MigrateStatusCmd) Run(ctx *kong.Context, g *Globals) error {
	return withEnv(g, func(c context.Context, e *env) error {
		list, err := postgres.NewMigrator(e.conn).Status(c)
		if err != nil {
			return err
		}
		for _, m := range list {
			state := "pending"
			if m.IsApplied {
				state = "applied " + m.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(ctx.Stdout, "%04d  %-40s %s\n", m.Version, m.Name, state)
		}
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DATA COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

type SeedRulesCmd struct{}

func (cmd *SeedRulesCmd) Run(ctx *kong.Context, g *Globals) error {
	return withEnv(g, func(c context.Context, e *env) error {
		n, err := command.NewRuleHandler(e.store, e.log).Seed(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "inserted %d rule(s)\n", n)
		return nil
	})
}

type RollbackAttendanceCmd struct {
	Date string `help:"School day to undo (YYYY-MM-DD)." required:""`
}

func (cmd *RollbackAttendanceCmd) Run(ctx *kong.Context, g *Globals) error {
	date, err := timeutil.ParseDate(cmd.Date)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}
	return withEnv(g, func(c context.Context, e *env) error {
		files, err := e.mediaStore()
		if err != nil {
			return err
		}
		h := command.NewRollbackAttendanceHandler(e.store, files, command.NewOutcomeApplier(e.log), timeutil.SystemClock{}, e.bus, e.log)
		res, err := h.Handle(c, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "reverted %d attendance(s) on %s, points reversed %d, files removed %d\n",
			res.Reverted, timeutil.FormatDateStr(res.Date), res.PointsReversed, len(res.MediaPaths))
		return nil
	})
}

type CloseDayCmd struct {
	Date string `help:"School day to close (YYYY-MM-DD); today when omitted."`
}

func (cmd *CloseDayCmd) Run(ctx *kong.Context, g *Globals) error {
	var date time.Time
	if cmd.Date != "" {
		d, err := timeutil.ParseDate(cmd.Date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		date = d
	}
	return withEnv(g, func(c context.Context, e *env) error {
		h := command.NewCloseAttendanceDayHandler(e.store, timeutil.SystemClock{}, e.cfg.App.Location, e.bus, e.log)
		n, err := h.Handle(c, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "marked %d student(s) absent\n", n)
		return nil
	})
}

func withEnv(g *Globals, fn func(context.Context, *env) error) error {
	c, cancel := g.context()
	defer cancel()

	e, err := open(c, g)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(c, e)
}

// ══════════════════════════════════════════════════════════════════════════════
// TOKENS
// ══════════════════════════════════════════════════════════════════════════════

type TokenCmd struct {
	UserID    int64         `name:"user-id" help:"Id of the user the token speaks for." required:""`
	Role      string        `help:"student, teacher, administrator or developer." required:"" enum:"student,teacher,administrator,admin,developer"`
	Name      string        `help:"Display name."`
	StudentID int64         `name:"student-id" help:"Student profile id of a student user."`
	TeacherID int64         `name:"teacher-id" help:"Teacher profile id of a teacher user."`
	TTL       time.Duration `name:"ttl" help:"Token lifetime; the configured AUTH_TOKEN_TTL when zero."`
}

func (cmd *TokenCmd) Run(ctx *kong.Context, g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	role, ok := shared.ParseRole(cmd.Role)
	if !ok {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}

	id := shared.Identity{UserID: cmd.UserID, Role: role, Name: cmd.Name}
	if cmd.StudentID > 0 {
		sid := cmd.StudentID
		id.StudentID = &sid
	}
	if cmd.TeacherID > 0 {
		tid := cmd.TeacherID
		id.TeacherID = &tid
	}

	ttl := cfg.Auth.TokenTTL
	if cmd.TTL > 0 {
		ttl = cmd.TTL
	}
	token, exp, err := handlers.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl).Issue(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, token)
	fmt.Fprintf(ctx.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	return nil
}

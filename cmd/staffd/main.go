// Command staffd serves the staff administration API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/activity"
	"github.com/goliatone/go-staff/adapter/amqp"
	goauth "github.com/goliatone/go-staff/adapter/goauth"
	"github.com/goliatone/go-staff/adapter/jwtauth"
	"github.com/goliatone/go-staff/adapter/securelink"
	"github.com/goliatone/go-staff/command"
	"github.com/goliatone/go-staff/config"
	"github.com/goliatone/go-staff/events"
	"github.com/goliatone/go-staff/httpapi"
	"github.com/goliatone/go-staff/internal/memory"
	"github.com/goliatone/go-staff/invitation"
	"github.com/goliatone/go-staff/migrations"
	_ "github.com/goliatone/go-staff/migrations/bootstrap"
	"github.com/goliatone/go-staff/notify"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/goliatone/go-staff/profile"
	"github.com/goliatone/go-staff/reconcile"
	"github.com/goliatone/go-staff/service"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// stores groups the persistence collaborators for one backend.
type stores struct {
	identities    types.IdentityRepository
	profiles      types.ProfileRepository
	invitations   types.InvitationLog
	directory     types.DirectoryRepository
	activity      types.ActivitySink
	activityQuery types.ActivityRepository
}

type App struct {
	cfg      config.Config
	logger   *glog.BaseLogger
	sqlDB    *sql.DB
	bunDB    *bun.DB
	stores   stores
	broker   *events.Broker
	amqpConn *amqp.Connection
	staff    *service.Service
	srv      router.Server[*fiber.App]
	worker   *reconcile.Worker
	cancel   context.CancelFunc
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) logAdapter(name string) types.Logger {
	return &loggerAdapter{l: a.GetLogger(name)}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("staffd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{cfg: cfg, logger: lgr, cancel: cancel}

	steps := []func(context.Context, *App) error{
		WithStores,
		WithStaffService,
		WithBootstrapAdmin,
		WithHTTPServer,
		WithReconcileWorker,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			app.GetLogger("app").Error("startup failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	go func() {
		app.GetLogger("http").Info("listening", "addr", cfg.HTTP.Addr)
		if err := app.srv.Serve(cfg.HTTP.Addr); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())
	app.Close()
}

// WithStores builds the SQL or in-memory backend.
func WithStores(ctx context.Context, app *App) error {
	if app.cfg.Store == "memory" {
		clock := types.SystemClock{}
		identities := memory.NewIdentityRepository(clock)
		profiles := memory.NewProfileRepository(clock)
		activityStore := memory.NewActivityStore()
		if email := app.cfg.Bootstrap.AdminEmail; email != "" {
			identities.Seed(types.Identity{Email: email, Confirmed: true})
		}
		app.stores = stores{
			identities:    identities,
			profiles:      profiles,
			invitations:   memory.NewInvitationLog(clock),
			directory:     memory.NewDirectory(identities, profiles),
			activity:      activityStore,
			activityQuery: activityStore,
		}
		app.GetLogger("persistence").Info("using in-memory stores")
		return nil
	}
	return withSQLStores(ctx, app)
}

func withSQLStores(ctx context.Context, app *App) error {
	cfg := app.cfg.Persistence
	db, err := sql.Open(sqliteshim.ShimName, cfg.GetServer())
	if err != nil {
		return err
	}
	app.sqlDB = db

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*profile.Record)(nil))
	persistence.RegisterModel((*invitation.Record)(nil))
	persistence.RegisterModel((*activity.LogEntry)(nil))

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}
	client.SetLogger(app.GetLogger("persistence"))

	for _, fsys := range migrations.Filesystems() {
		client.RegisterDialectMigrations(
			fsys,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets("postgres", "sqlite"),
		)
	}
	if err := client.Migrate(ctx); err != nil {
		return err
	}
	if err := migrations.ValidateSchema(ctx, db, cfg.GetDriver()); err != nil {
		return err
	}
	app.bunDB = client.DB()

	profiles, err := profile.NewRepository(profile.RepositoryConfig{DB: app.bunDB})
	if err != nil {
		return err
	}
	directory, err := profile.NewDirectory(app.bunDB, "users")
	if err != nil {
		return err
	}
	invitations, err := invitation.NewRepository(invitation.RepositoryConfig{DB: app.bunDB})
	if err != nil {
		return err
	}
	activityStore, err := activity.NewStore(activity.StoreConfig{DB: app.bunDB})
	if err != nil {
		return err
	}
	users := auth.NewRepositoryManager(app.bunDB).Users()

	app.stores = stores{
		identities:    goauth.NewIdentityAdapter(users),
		profiles:      profiles,
		invitations:   invitations,
		directory:     directory,
		activity:      activityStore,
		activityQuery: activityStore,
	}
	return nil
}

// WithStaffService wires dispatch, events and the service itself.
func WithStaffService(ctx context.Context, app *App) error {
	links, err := securelink.NewManager(app.cfg.SecureLink)
	if err != nil {
		return err
	}

	app.broker = events.NewBroker(events.WithLogger(app.logAdapter("events")))

	var dispatcher types.InvitationDispatcher = notify.LogDispatcher{Logger: app.logAdapter("notify")}
	if app.cfg.AMQP.Enabled() {
		conn, err := amqp.Dial(app.cfg.AMQP.URL, app.cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		app.amqpConn = conn
		publisher, err := amqp.NewPublisher(conn.Channel(), amqp.Config{Exchange: app.cfg.AMQP.Exchange})
		if err != nil {
			return err
		}
		queue, err := notify.NewQueueDispatcher(publisher, app.cfg.AMQP.InvitationKey)
		if err != nil {
			return err
		}
		dispatcher = queue

		forwarder, err := events.NewForwarder(app.broker, publisher, app.cfg.AMQP.EventPrefix, app.logAdapter("amqp"))
		if err != nil {
			return err
		}
		go forwarder.Run(ctx)
	}

	svc := service.New(service.Config{
		Identities:         app.stores.identities,
		Profiles:           app.stores.profiles,
		InvitationLog:      app.stores.invitations,
		Directory:          app.stores.directory,
		ActivitySink:       app.stores.activity,
		ActivityRepository: app.stores.activityQuery,
		Dispatcher:         dispatcher,
		SecureLinks:        links,
		FeatureGate:        newStaticGate(app.cfg.DisabledFeatures),
		Events:             app.broker,
		Links: command.InvitationLinkConfig{
			SiteURL:      app.cfg.Site.URL,
			RedirectPath: app.cfg.Site.RedirectPath,
			Route:        app.cfg.SecureLink.InviteRoute,
		},
		Hooks: types.Hooks{
			AfterInvitation: func(_ context.Context, event types.InvitationEvent) {
				app.GetLogger("hooks").Info("invitation attempt finished",
					"attempt_id", event.Attempt.ID.String(),
					"status", string(event.Attempt.Status),
					"step", string(event.Attempt.Step))
			},
		},
		Logger: app.logAdapter("staff"),
	})
	if err := svc.HealthCheck(ctx); err != nil {
		return err
	}
	app.staff = svc
	return nil
}

// WithBootstrapAdmin promotes STAFF_BOOTSTRAP_ADMIN_EMAIL to admin.
func WithBootstrapAdmin(ctx context.Context, app *App) error {
	return bootstrapAdmin(ctx, app.stores.identities, app.stores.profiles,
		app.cfg.Bootstrap.AdminEmail, app.logAdapter("bootstrap"))
}

// WithHTTPServer mounts the API on a fiber backed go-router server.
func WithHTTPServer(_ context.Context, app *App) error {
	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		SigningKey: app.cfg.JWT.SigningKey,
		Issuer:     app.cfg.JWT.Issuer,
		Audience:   app.cfg.JWT.Audience,
		Leeway:     app.cfg.JWT.Leeway,
	})
	if err != nil {
		return err
	}
	api, err := httpapi.New(httpapi.Config{
		Service:  app.staff,
		Verifier: verifier,
		Logger:   app.logAdapter("http"),
	})
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		f := fiber.New(fiber.Config{
			UnescapePath:          true,
			StrictRouting:         false,
			DisableStartupMessage: !app.cfg.Debug,
		})
		f.Use(httpapi.CORS(httpapi.CORSConfig{AllowOrigins: app.cfg.HTTP.CORSOrigins}))
		return f
	})
	srv.Router().WithLogger(app.GetLogger("router"))
	httpapi.Register(srv.Router(), api)

	app.srv = srv
	return nil
}

// WithReconcileWorker schedules the invitation sweep.
func WithReconcileWorker(ctx context.Context, app *App) error {
	worker, err := reconcile.NewWorker(app.staff.Commands().ReconcileInvitations, reconcile.Config{
		Schedule:   app.cfg.Reconcile.Schedule,
		OlderThan:  app.cfg.Reconcile.OlderThan,
		Limit:      app.cfg.Reconcile.Limit,
		MaxRetries: app.cfg.Reconcile.MaxRetries,
		Logger:     app.logAdapter("reconcile"),
	})
	if err != nil {
		return err
	}
	if err := worker.Start(ctx); err != nil {
		return err
	}
	app.worker = worker
	return nil
}

// Close releases resources in reverse start order.
func (a *App) Close() {
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.srv != nil {
		timeout := a.cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.srv.Shutdown(ctx); err != nil {
			a.GetLogger("http").Error("shutdown failed", "error", err)
		}
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.GetLogger("amqp").Error("close failed", "error", err)
		}
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

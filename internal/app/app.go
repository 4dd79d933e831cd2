package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/cinearenas/booking-engine/internal/notifier"
	"github.com/cinearenas/booking-engine/internal/payment"
	"github.com/cinearenas/booking-engine/internal/repository"
	"github.com/cinearenas/booking-engine/internal/reservation"
	appvalidator "github.com/cinearenas/booking-engine/internal/validator"
	"github.com/cinearenas/booking-engine/internal/vcs"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    config
	logger    *slog.Logger
	db        *pgxpool.Pool
	validator *validator.Validate

	engine   *reservation.Engine
	catalog  domain.Catalog
	ledger   domain.SalesLedger
	provider domain.PaymentProvider
}

type config struct {
	Port             int
	Env              string
	OtelCollectorUrl string

	db struct {
		dsn          string
		maxOpenConns int
		maxIdleTime  time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	stripe struct {
		secretKey     string
		webhookSecret string
		successUrl    string
		failureUrl    string
	}
	reservation struct {
		holdTTL       time.Duration
		sweepInterval time.Duration
	}
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "CineArenas <no-reply@cinearenas.example>", "SMTP sender")

	flag.StringVar(&cfg.stripe.secretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.stripe.webhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.stripe.successUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.stripe.failureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.DurationVar(&cfg.reservation.holdTTL, "hold-ttl", reservation.DefaultHoldTTL, "TTL of unresolved seat holds")
	flag.DurationVar(&cfg.reservation.sweepInterval, "sweep-interval", reservation.DefaultSweepInterval, "Interval of the hold expiry sweep")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.stripe.secretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := repository.Migrate(cfg.db.dsn)
	if err != nil {
		return err
	}

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog := repository.NewPostgresCatalog(db)
	ledger := repository.NewPostgresSalesLedger(db)

	emailNotifier := notifier.NewEmailNotifier(
		cfg.smtp.host,
		cfg.smtp.port,
		cfg.smtp.username,
		cfg.smtp.password,
		cfg.smtp.sender,
	)

	engine := reservation.New(catalog, ledger, emailNotifier, logger,
		reservation.WithHoldTTL(cfg.reservation.holdTTL),
	)

	app := &Application{
		config:    cfg,
		logger:    logger,
		db:        db,
		validator: appvalidator.NewValidator(),
		engine:    engine,
		catalog:   catalog,
		ledger:    ledger,
		provider:  payment.NewStripePaymentProvider(cfg.stripe.failureUrl, cfg.stripe.successUrl),
	}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.run()
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	go app.engine.RunSweeper(sweeperCtx, app.config.reservation.sweepInterval)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		stopSweeper()
		app.engine.Shutdown()

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("booking-engine", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	r.Get("/healthcheck", app.GetHealth)

	r.Route("/showtimes/{showtimeID}", func(r chi.Router) {
		r.Get("/seats", app.GetAvailableSeatsHandler)
		r.Post("/holds", app.CreateHoldHandler)
	})

	r.Route("/holds/{holdID}", func(r chi.Router) {
		r.Delete("/", app.ReleaseHoldHandler)
		r.Post("/checkout", app.CreateCheckoutSessionHandler)
	})

	r.Post("/webhook", app.ProviderWebhookHandler)

	r.Get("/sales", app.GetSalesHandler)

	return r
}

// Command profepj runs the Profe PJ API, the gated PWA and the DAS
// reminder job.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/cache"
	"github.com/profepj/profepj/pkg/config"
	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/email"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/gate"
	"github.com/profepj/profepj/pkg/httpserver"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
	"github.com/profepj/profepj/pkg/ratelimiter"
	"github.com/profepj/profepj/pkg/redis"
	"github.com/profepj/profepj/pkg/requestid"
	"github.com/profepj/profepj/pkg/subscription"
	"github.com/profepj/profepj/svc/account"
	"github.com/profepj/profepj/svc/assistant"
	"github.com/profepj/profepj/svc/billing"
	"github.com/profepj/profepj/svc/records"
	"github.com/profepj/profepj/svc/reminder"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"`
	StaticDir string `env:"STATIC_DIR" envDefault:"./web/out"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("profepj stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(app.Env, "profepj"),
		logger.WithLevelName(app.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)
	metrics.MustRegister()

	var (
		fbCfg     firebase.Config
		subCfg    subscription.Config
		ledgerCfg ledger.Config
		redisCfg  redis.Config
		aiCfg     copywriter.Config
		mailCfg   email.Config
		cookieCfg cookie.Config
		gateCfg   gate.Config
		rlCfg     ratelimiter.Config
		remCfg    reminder.Config
		srvCfg    httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&fbCfg) },
		func() error { return config.Load(&subCfg) },
		func() error { return config.Load(&ledgerCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&aiCfg) },
		func() error { return config.Load(&mailCfg) },
		func() error { return config.Load(&cookieCfg) },
		func() error { return config.Load(&gateCfg) },
		func() error { return config.Load(&rlCfg) },
		func() error { return config.Load(&remCfg) },
		func() error { return config.Load(&srvCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	fbApp, err := firebase.NewApp(ctx, fbCfg)
	if err != nil {
		return err
	}
	authClient, fsClient, err := firebase.Clients(ctx, fbApp)
	if err != nil {
		return err
	}

	var (
		checks    []httpserver.Check
		stopHooks []httpserver.Option
	)
	stopHooks = append(stopHooks, httpserver.WithStopHook(func(context.Context) error { return fsClient.Close() }))

	db, err := openStore(ctx, log, fsClient)
	if err != nil {
		return err
	}
	checks = append(checks, db.checks...)
	stopHooks = append(stopHooks, db.stop...)

	provider, err := newProvider(subCfg)
	if err != nil {
		return err
	}
	subs := subscription.NewService(subCfg, provider, db.store, subscription.WithLogger(log))
	books := ledger.NewService(db.store, ledgerCfg, ledger.WithLogger(log))

	var (
		rdb       *goredis.Client
		rlStore   ratelimiter.Store
		claimers  []reminder.Option
		copyCache copywriter.Cache = cache.NewMemory(memoryCopyEntries)
	)
	if redisCfg.Enabled() {
		rdb, err = redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		kv := redis.NewStore(rdb, redisCfg.KeyPrefix)
		copyCache = kv
		rlStore = ratelimiter.NewRedisStore(rdb, redisCfg.KeyPrefix+"ratelimit:")
		claimers = append(claimers, reminder.WithClaimer(kv))
		checks = append(checks, httpserver.Check{Name: "redis", Func: redis.Healthcheck(rdb)})
		stopHooks = append(stopHooks, httpserver.WithStopHook(func(context.Context) error { return rdb.Close() }))
	} else {
		mem := ratelimiter.NewMemoryStore()
		defer mem.Close()
		rlStore = mem
		log.Info("redis not configured, using in-process rate limits and copy cache")
	}

	limiter, err := ratelimiter.NewBucket(rlStore, rlCfg)
	if err != nil {
		return err
	}

	gen, err := newCopywriter(ctx, log, aiCfg, copyCache)
	if err != nil {
		return err
	}

	sender, err := email.New(mailCfg)
	if err != nil {
		return err
	}

	sessions, err := cookie.New(cookieCfg)
	if err != nil {
		return err
	}

	errorHandler := handler.NewJSONErrorHandler(log)
	authenticate := firebase.Authenticate(authClient, firebase.WithCookie(sessions), firebase.WithLogger(log))
	resolve := gate.UserAccess(subs)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		middleware.RealIP,
		middleware.Recoverer,
		httpserver.AccessLog(log),
	)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, readinessTimeout, checks...))
	r.Handle("/metrics", metrics.Handler())

	billingRoutes := billing.NewService(subs, errorHandler).Handle()
	r.Mount("/api/stripe", billingRoutes)
	r.Mount("/api/billing", billingRoutes)

	mountAdmin(r, authClient, db.store, errorHandler, log)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Mount("/api/account", account.NewService(books, subs, db.store, sessions, errorHandler).Handle())
		r.Mount("/api/ai", assistant.NewService(gen, books, db.store,
			assistant.WithRateLimiter(limiter),
			assistant.WithErrorHandler(errorHandler),
			assistant.WithLogger(log),
		).Handle())
		r.Mount("/api", records.NewService(books, db.store,
			records.WithGuard(gate.RequireAccess(resolve, gate.WithJSON(), gate.WithLogger(log))),
			records.WithCopywriter(gen),
			records.WithErrorHandler(errorHandler),
			records.WithLogger(log),
		).Handle())
	})

	mountPWA(r, app.StaticDir, sessions, gateCfg, authClient, resolve, log)

	job := reminder.New(remCfg, db.store, books, gen, sender, append(claimers, reminder.WithLogger(log))...)
	if remCfg.Enabled {
		go func() {
			if err := job.Run(ctx); err != nil {
				log.Error("reminder job failed", logger.Error(err))
			}
		}()
	}

	srv := httpserver.NewFromConfig(srvCfg, append(stopHooks, httpserver.WithLogger(log))...)
	if err := srv.Run(ctx, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

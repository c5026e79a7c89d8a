package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/config"
	"github.com/profepj/profepj/pkg/cookie"
	"github.com/profepj/profepj/pkg/copywriter"
	"github.com/profepj/profepj/pkg/docstore"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/gate"
	"github.com/profepj/profepj/pkg/httpserver"
	"github.com/profepj/profepj/pkg/ledger"
	"github.com/profepj/profepj/pkg/mongo"
	"github.com/profepj/profepj/pkg/subscription"
	"github.com/profepj/profepj/svc/admin"
)

const (
	readinessTimeout  = 5 * time.Second
	memoryCopyEntries = 2000
)

// gatedPages render the blocked screen in place instead of redirecting.
var gatedPages = []string{"/agenda", "/instituicoes", "/potinhos"}

// backendStore is what every document backend implements.
type backendStore interface {
	subscription.Store
	ledger.Store
	ListProfiles(ctx context.Context) ([]subscription.Profile, error)
	SetAdmin(ctx context.Context, uid string, admin bool) error
}

type openedStore struct {
	store  backendStore
	checks []httpserver.Check
	stop   []httpserver.Option
}

func openStore(ctx context.Context, log *slog.Logger, fs *firestore.Client) (*openedStore, error) {
	var cfg docstore.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case docstore.BackendFirestore:
		store := docstore.NewFirestore(fs)
		return &openedStore{
			store:  store,
			checks: []httpserver.Check{{Name: "firestore", Func: store.Healthcheck}},
		}, nil

	case docstore.BackendMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return nil, err
		}
		db, err := mongo.Connect(ctx, mcfg)
		if err != nil {
			return nil, err
		}
		return &openedStore{
			store:  docstore.NewMongo(db),
			checks: []httpserver.Check{{Name: "mongo", Func: mongo.Healthcheck(db)}},
			stop:   []httpserver.Option{httpserver.WithStopHook(mongo.Disconnect(db))},
		}, nil

	case docstore.BackendMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		return &openedStore{store: docstore.NewMemory()}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
}

// mountAdmin serves /api/admin to bearer tokens only. The session cookie
// is not accepted there.
func mountAdmin(r chi.Router, verifier firebase.TokenVerifier, store admin.Store, errorHandler handler.ErrorHandler[handler.Context], log *slog.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(firebase.Authenticate(verifier, firebase.WithLogger(log)))
		r.Mount("/api/admin", admin.NewService(store, errorHandler, admin.WithLogger(log)).Handle())
	})
}

func newProvider(cfg subscription.Config) (subscription.Provider, error) {
	switch cfg.Provider {
	case "paddle":
		var pcfg subscription.PaddleConfig
		if err := config.Load(&pcfg); err != nil {
			return nil, err
		}
		return subscription.NewPaddleProvider(pcfg)
	case "stripe", "":
		var scfg subscription.StripeConfig
		if err := config.Load(&scfg); err != nil {
			return nil, err
		}
		return subscription.NewStripeProvider(scfg)
	}
	return nil, fmt.Errorf("unknown BILLING_PROVIDER %q", cfg.Provider)
}

// newCopywriter chains Gemini, the cache and the static fallback. Without
// an API key only static copy is served.
func newCopywriter(ctx context.Context, log *slog.Logger, cfg copywriter.Config, cache copywriter.Cache) (copywriter.Generator, error) {
	if !cfg.Enabled() {
		log.Info("GEMINI_API_KEY not set, serving static copy")
		return copywriter.Static{}, nil
	}
	client, err := copywriter.NewGeminiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var gen copywriter.Generator = copywriter.NewGemini(client.Models, cfg, copywriter.WithGeminiLogger(log))
	if cache != nil {
		gen = copywriter.NewCached(gen, cache, cfg.CacheTTL, log)
	}
	return copywriter.NewFallback(gen, nil, log), nil
}

// mountPWA serves the exported app behind the session cookie check. The
// gated pages also verify the token and the subscription. A rejected token
// clears the cookie and goes back to the login page.
func mountPWA(
	r chi.Router,
	dir string,
	sessions *cookie.Manager,
	cfg gate.Config,
	verifier firebase.TokenVerifier,
	resolve gate.Resolver,
	log *slog.Logger,
) {
	files := staticFiles(dir)
	toLogin := func(w http.ResponseWriter, r *http.Request, _ error) {
		sessions.Delete(w)
		http.Redirect(w, r, cfg.LoginPath, http.StatusTemporaryRedirect)
	}
	authenticate := firebase.Authenticate(verifier,
		firebase.WithCookie(sessions),
		firebase.WithErrorHandler(toLogin),
		firebase.WithLogger(log),
	)
	r.Group(func(r chi.Router) {
		r.Use(gate.Route(sessions, cfg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate, gate.RequireAccess(resolve,
				gate.WithBlockedScreen(),
				gate.WithPaths(cfg),
				gate.WithLogger(log),
			))
			for _, p := range gatedPages {
				r.Handle(p, files)
				r.Handle(p+"/*", files)
			}
		})

		r.Handle("/*", files)
	})
}

// staticFiles serves a static export where /agenda is agenda.html and
// unknown paths fall back to index.html.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" && !exists(dir, clean) {
			switch {
			case exists(dir, clean+".html"):
				r = withPath(r, clean+".html")
			case path.Ext(clean) == "":
				r = withPath(r, "/")
			}
		}
		fs.ServeHTTP(w, r)
	})
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(name, "/"))))
	return err == nil
}

func withPath(r *http.Request, p string) *http.Request {
	r2 := r.Clone(r.Context())
	r2.URL.Path, r2.URL.RawPath = p, ""
	return r2
}

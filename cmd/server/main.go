package main

import (
	"context"
	"crypto/rand"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"driverreview"
	"driverreview/internal/api"
	"driverreview/internal/config"
	"driverreview/internal/console"
	"driverreview/internal/driverapi"
	"driverreview/internal/history"
	"driverreview/internal/imagecheck"
	"driverreview/internal/logger"
	"driverreview/internal/notify"
	"driverreview/internal/review"
	"driverreview/internal/session"
)

const (
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	serverIdleTimeout = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
	sessionSweep      = 10 * time.Minute
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	store := setupHistory(cfg, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close history store", logger.Error(err))
		}
	}()

	notifier := setupNotifier(cfg, log)

	client := driverapi.New(cfg.DriverAPIBaseURL, &http.Client{Timeout: cfg.DriverAPITimeout}, log)
	log.Info("Driver service configured", logger.String("base_url", client.BaseURL()))

	factory := console.NewFactory(client, review.NewInFlight(), cfg.PageSize,
		console.RecordDecisions(store, notifier, log), log)
	sessions := session.NewStore(cfg.SessionTTL, cfg.CSRFSecure, factory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startBackgroundServices(ctx, sessions, log)

	r := mux.NewRouter()
	registerHandlers(r, console.Deps{
		Sessions: sessions,
		History:  store,
		Images:   imagecheck.NewChecker(cfg.ImageCheckEnabled, cfg.ImageCheckTimeout, cfg.PlaceholderImage, log),
		Log:      log,
	}, client)

	setupStaticFiles(r, log)
	console.InitTemplates(parseTemplates(log))

	protected := setupCSRFMiddleware(r, cfg, log)

	startServer(ctx, protected, cfg.Port, log)
}

func setupHistory(cfg config.Config, log logger.ILogger) history.Store {
	if cfg.DBConnectionString == "" {
		log.Warning("DB_CONNECTION_STRING not set; decision history is kept in memory")
		return history.NewMemory(history.DefaultLimit)
	}

	store, err := history.NewPostgres(cfg.DBConnectionString, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	return store
}

func setupNotifier(cfg config.Config, log logger.ILogger) notify.Notifier {
	if cfg.TelegramBotToken == "" || cfg.TelegramAdminChatID == 0 {
		log.Debug("TELEGRAM_BOT_TOKEN or TELEGRAM_ADMIN_CHAT_ID not set, skipping decision notifications")
		return notify.Nop{}
	}

	n, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID, log)
	if err != nil {
		log.Error("Failed to set up Telegram notifications", logger.Error(err))
		return notify.Nop{}
	}
	return n
}

func startBackgroundServices(ctx context.Context, sessions *session.Store, log logger.ILogger) {
	go func() {
		ticker := time.NewTicker(sessionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.CleanExpired(); n > 0 {
					log.Debug("Expired console sessions removed", logger.Int("count", n))
				}
			}
		}
	}()
}

func registerHandlers(r *mux.Router, deps console.Deps, client *driverapi.Client) {
	api.RegisterSwaggerHandlers(r)
	api.RegisterHandlers(r, client, deps.History, deps.Log)
	console.RegisterHandlers(r, deps)
}

func setupStaticFiles(r *mux.Router, log logger.ILogger) {
	staticFiles, err := fs.Sub(driverreview.Files, "static")
	if err != nil {
		log.Error("Error accessing static files", logger.Error(err))
		os.Exit(1)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles))))
}

func parseTemplates(log logger.ILogger) *template.Template {
	funcMap := template.FuncMap{
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"csrfField": csrf.TemplateField,
		"csrfToken": csrf.Token,
	}

	t, err := template.New("").Funcs(funcMap).ParseFS(driverreview.Files, "internal/console/templates/*.html")
	if err != nil {
		log.Error("Error parsing templates", logger.Error(err))
		os.Exit(1)
	}
	return t
}

func setupCSRFMiddleware(r *mux.Router, cfg config.Config, log logger.ILogger) http.Handler {
	var key []byte
	if cfg.CSRFAuthKey != "" {
		key = []byte(cfg.CSRFAuthKey)
	} else {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Error("CSRF key generation failed", logger.Error(err))
			os.Exit(1)
		}
		log.Warning("CSRF_AUTH_KEY not set; using ephemeral key (tokens reset on restart)")
	}
	if len(key) < 32 {
		log.Error("CSRF_AUTH_KEY must be at least 32 bytes", logger.Int("length", len(key)))
		os.Exit(1)
	}

	sameSite := csrf.SameSiteLaxMode
	switch cfg.CSRFSameSite {
	case "strict":
		sameSite = csrf.SameSiteStrictMode
	case "none":
		sameSite = csrf.SameSiteNoneMode
	}

	opts := []csrf.Option{
		csrf.CookieName(cfg.CSRFCookieName),
		csrf.Secure(cfg.CSRFSecure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(sameSite),
		csrf.TrustedOrigins(cfg.CSRFTrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warning("CSRF validation failed",
				logger.String("path", r.URL.Path),
				logger.Error(csrf.FailureReason(r)))
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
		})),
	}

	protect := csrf.Protect(key, opts...)
	protected := protect(withCSRFTokHeader(r))

	if !cfg.CSRFSecure {
		return plaintextHTTP(protected)
	}
	return protected
}

// plaintextHTTP lets the origin check accept http:// pages in local setups.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func withCSRFTokHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			w.Header().Set("X-CSRF-Token", csrf.Token(r))
		}
		next.ServeHTTP(w, r)
	})
}

func startServer(ctx context.Context, handler http.Handler, port string, log logger.ILogger) {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", logger.Error(err))
		}
	}()

	log.Info("Starting server", logger.String("port", port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server failed to start", logger.Error(err))
	}
}

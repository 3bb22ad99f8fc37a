package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/bandscore/internal/band"
	"github.com/pavelanni/bandscore/internal/grading"
	"github.com/pavelanni/bandscore/internal/handler"
	appI18n "github.com/pavelanni/bandscore/internal/i18n"
	"github.com/pavelanni/bandscore/internal/llm"
	"github.com/pavelanni/bandscore/internal/llm/prompts"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/report"
	"github.com/pavelanni/bandscore/internal/store"
)

func main() {
	loadDotEnv(".env")
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv exports the variables in path unless they are already set.
// A missing file is not an error.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "stat %s: %v\n", path, err)
		}
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", path, err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bandscore",
		Short:         "Grade listening and reading tests and convert scores to bands",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), numberCmd(), gradeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `bandscore --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the flags every command shares.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// addGradingFlags registers the flags that shape grading.
func addGradingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("component", "", "Band table for tests that name none (listening, reading-academic, reading-general)")
	f.String("answer-policy", string(model.PolicyCollectAll), "Accepted-answer fallback (collect-all, first-non-empty)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "bandscore.db", "SQLite database path")
	f.StringSliceP("tests", "t", nil, "Test content JSON files to import at startup (repeatable)")
	f.StringP("lang", "l", "en", "Default language for labels (en, ru)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "", "LLM model for override suggestions (empty disables suggestions)")
	f.String("prompt-variant", string(prompts.PromptStandard), "Suggestion prompt variant (strict, standard, lenient)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /grading)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Duration("session-ttl", store.DefaultAuthSessionTTL, "Lifetime of login sessions")
	f.String("admin-password", "", "Initial admin password (or set BANDSCORE_ADMIN_PASSWORD)")
	addGradingFlags(cmd)
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("BANDSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("bandscore")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/bandscore")
	v.AddConfigPath("/etc/bandscore")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newGrader builds the band registry, including tables from config, and
// the answer matcher.
func newGrader(v *viper.Viper) (report.Grader, error) {
	reg := band.NewRegistry()
	if err := band.LoadConfig(v, reg); err != nil {
		return report.Grader{}, fmt.Errorf("load band tables: %w", err)
	}

	policy := model.AnswerPolicy(strings.ToLower(v.GetString("answer-policy")))
	if !policy.Valid() {
		slog.Warn("invalid answer-policy, using collect-all", "policy", policy)
		policy = model.PolicyCollectAll
	}

	component := strings.ToLower(strings.TrimSpace(v.GetString("component")))
	if component != "" {
		if _, ok := reg.Table(component); !ok {
			return report.Grader{}, fmt.Errorf("component %q: %w", component, band.ErrUnknownComponent)
		}
	}

	return report.Grader{
		Registry:         reg,
		Matcher:          grading.NewMatcher(policy),
		DefaultComponent: component,
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetAuthSessionTTL(v.GetDuration("session-ttl"))

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	grader, err := newGrader(v)
	if err != nil {
		return err
	}

	if _, err := importTests(db, grader.Registry, v.GetStringSlice("tests")); err != nil {
		return fmt.Errorf("import tests: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Suggestions are optional; a nil suggester turns the endpoint off.
	var suggester handler.Suggester
	if modelName := v.GetString("llm-model"); modelName != "" {
		client, err := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), modelName,
			strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant"))))
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		suggester = client
		slog.Info("override suggestions enabled", "url", v.GetString("llm-url"), "model", modelName)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServiceConfig{
		Component:     grader.DefaultComponent,
		AnswerPolicy:  grader.Matcher.Policy,
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	}
	h := handler.New(db, grader, suggester, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupSessions(ctx, db, time.Hour)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"component", cfg.Component,
		"answer_policy", cfg.AnswerPolicy,
		"bands", grader.Registry.Components(),
		"suggestions", suggester != nil,
		"base_path", basePath,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or BANDSCORE_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}

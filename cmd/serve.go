package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/api"
	"gitlab.com/yelinaung/finance-concierge/internal/auth"
	"gitlab.com/yelinaung/finance-concierge/internal/bot"
	"gitlab.com/yelinaung/finance-concierge/internal/config"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/exchange"
	"gitlab.com/yelinaung/finance-concierge/internal/gemini"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
	"gitlab.com/yelinaung/finance-concierge/internal/scheduler"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
	"gitlab.com/yelinaung/finance-concierge/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

var flagSkipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API, background jobs and the optional Telegram relay",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagSkipMigrate, "skip-migrate", false, "Do not apply the schema on startup")
	rootCmd.AddCommand(serveCmd)
}

// services is everything the transports need.
type services struct {
	issuer     *auth.TokenIssuer
	auth       *service.AuthService
	users      *service.UserService
	categories *service.CategoryService
	currencies *service.CurrencyService
	expenses   *service.ExpenseService
	budgets    *service.BudgetService
	dashboard  *service.DashboardService
	analytics  *service.AnalyticsService
	sessions   *service.SessionService
	chat       *service.ChatService
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !flagSkipMigrate {
		if err := migrate(ctx, pool, cfg.Defaults); err != nil {
			return err
		}
		logger.Log.Info().Msg("Database initialized successfully")
	}

	svc, err := buildServices(ctx, cfg, pool)
	if err != nil {
		return err
	}

	jobs, err := startJobs(cfg, svc)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}()

	if cfg.TelegramEnabled() {
		relay, err := bot.New(cfg.TelegramBotToken, bot.Deps{
			Auth:     svc.auth,
			Accounts: svc.users,
			Chat:     svc.chat,
			Budgets:  svc.budgets,
			Spending: svc.expenses,
		})
		if err != nil {
			return err
		}
		go relay.Start(ctx)
	}

	return serveHTTP(ctx, cfg, svc)
}

func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*services, error) {
	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	clock := service.Clock{Location: cfg.Location}

	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	currencyRepo := repository.NewCurrencyRepository(pool)
	expenseRepo := repository.NewExpenseRepository(pool)
	budgetRepo := repository.NewBudgetRepository(pool)

	rates := exchange.NewCachedService(
		exchange.NewFrankfurterClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateTimeout),
		cfg.ExchangeRateCacheTTL,
	)

	s := &services{issuer: auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)}
	s.auth = service.NewAuthService(userRepo, repository.NewRefreshTokenRepository(pool), s.issuer, cfg.RefreshTokenTTL, clock)
	s.users = service.NewUserService(userRepo, currencyRepo)
	s.categories = service.NewCategoryService(categoryRepo)
	s.currencies = service.NewCurrencyService(currencyRepo, rates)
	s.sessions = service.NewSessionService(repository.NewSessionRepository(pool))

	opts := []service.ExpenseOption{
		service.WithMetrics(metrics),
		service.WithDefaultCurrency(cfg.Defaults.Currency),
	}
	var client *gemini.Client
	if cfg.ChatEnabled() {
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithAI(client, client))
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY not set, chat and LLM parsing are disabled")
	}

	s.expenses = service.NewExpenseService(expenseRepo, categoryRepo, userRepo, repository.NewParsingLogRepository(pool), clock, opts...)
	s.budgets = service.NewBudgetService(budgetRepo, categoryRepo, expenseRepo, budgetLimits(cfg.Defaults), metrics, clock)
	s.dashboard = service.NewDashboardService(expenseRepo, s.budgets, clock)
	s.analytics = service.NewAnalyticsService(expenseRepo, clock)

	var agent service.Agent
	if client != nil {
		agent = gemini.NewAgent(client, service.NewAgentTools(s.expenses, s.budgets, s.currencies, clock))
	}
	s.chat = service.NewChatService(agent, s.sessions, repository.NewChatHistoryRepository(pool), s.categories, metrics, clock)

	return s, nil
}

// budgetLimits overlays the configured fallback limits on the built-in ones.
func budgetLimits(d *config.Defaults) map[string]decimal.Decimal {
	limits := analytics.DefaultLimits()
	for name, limit := range d.BudgetLimitOverrides() {
		limits[name] = limit
	}
	return limits
}

func startJobs(cfg *config.Config, svc *services) (*scheduler.Scheduler, error) {
	s := scheduler.New(cfg.Location)
	if err := s.Add("session-sweep", cfg.SessionSweepSchedule,
		scheduler.SweepSessions(svc.sessions, cfg.SessionIdleTimeout, time.Now)); err != nil {
		return nil, err
	}
	if err := s.Add("token-purge", cfg.TokenPurgeSchedule, scheduler.PurgeTokens(svc.auth)); err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, svc *services) error {
	router := api.NewRouter(api.Deps{
		Tokens:     svc.issuer,
		Auth:       svc.auth,
		Users:      svc.users,
		Expenses:   svc.expenses,
		Dashboard:  svc.dashboard,
		Budgets:    svc.budgets,
		Analytics:  svc.analytics,
		Categories: svc.categories,
		Currencies: svc.currencies,
		Chat:       svc.chat,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.OTelServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

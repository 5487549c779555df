package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/burjnawas/sitecoord/internal/ai"
	"github.com/burjnawas/sitecoord/internal/alerting"
	"github.com/burjnawas/sitecoord/internal/api"
	"github.com/burjnawas/sitecoord/internal/dispatch"
	"github.com/burjnawas/sitecoord/internal/jobs"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/openproject"
	"github.com/burjnawas/sitecoord/internal/render"
	"github.com/burjnawas/sitecoord/internal/report"
	"github.com/burjnawas/sitecoord/internal/scheduler"
	"github.com/burjnawas/sitecoord/internal/telegram"
	"github.com/burjnawas/sitecoord/internal/weather"
	"github.com/burjnawas/sitecoord/pkg/config"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sitecoord",
	Short: "Sitecoord - Construction site coordination service",
	Long: `Sitecoord records site logs from Telegram, watches the weather for
unsafe conditions, reminds the crew to log activity, and compiles
daily site reports.`,
	RunE: runCoordinator,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sitecoord %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}
	cfg.Verbose = verbose

	// Credentials come from the environment only.
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}
	weatherKey := os.Getenv("OPENWEATHER_API_KEY")
	if weatherKey == "" {
		return fmt.Errorf("OPENWEATHER_API_KEY environment variable is required")
	}
	aiKey := os.Getenv("AI_API_KEY")
	if aiKey == "" {
		return fmt.Errorf("AI_API_KEY environment variable is required")
	}
	projectURL := os.Getenv("OPENPROJECT_URL")
	projectKey := os.Getenv("OPENPROJECT_API_KEY")
	if projectURL == "" || projectKey == "" {
		return fmt.Errorf("OPENPROJECT_URL and OPENPROJECT_API_KEY environment variables are required")
	}

	location, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Storage.
	store := logstore.NewStore(filepath.Join(cfg.DataDir, "sitecoord.db"))
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", filepath.Join(cfg.DataDir, "sitecoord.db"))

	// Alert rules, from file when configured, defaults otherwise.
	rules := alerting.DefaultRules()
	if cfg.Alerts.RulesFile != "" {
		rules, err = alerting.LoadRulesFromFile(cfg.Alerts.RulesFile)
		if err != nil {
			return fmt.Errorf("load alert rules: %w", err)
		}
	}
	engine := alerting.NewEngine(rules)

	// External collaborators.
	clock := clockwork.NewRealClock()
	formatter := dispatch.NewFormatter(cfg.Site.Locale)
	tgClient := telegram.NewClient(botToken, 60*time.Second)
	weatherClient := weather.NewClient(weatherKey, cfg.Weather.Latitude, cfg.Weather.Longitude, 30*time.Second)
	projectClient := openproject.NewClient(projectURL, projectKey, 30*time.Second)
	aiClient := ai.NewHTTPClient(cfg.AI.BaseURL, aiKey, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.RequestsPerMinute)

	// Outbound delivery.
	dispatcher := dispatch.NewDispatcher(tgClient, dispatch.Options{})
	alertNotifier := dispatch.NewAlertNotifier(dispatcher, store.Settings(), formatter, cfg.Site.AdminChatID)

	// Report pipeline.
	renderer, err := render.NewMarkdownRenderer(filepath.Join(cfg.DataDir, "reports"))
	if err != nil {
		return fmt.Errorf("create report renderer: %w", err)
	}
	compiler := report.NewCompiler(store.Logs(), store.Reports(), projectClient, weatherClient, aiClient, report.FilePhotoLoader{}, report.Options{
		IDPrefix:      cfg.Report.IDPrefix,
		AITimeout:     cfg.Report.AITimeout,
		AIConcurrency: cfg.Report.AIConcurrency,
	})
	reportService := report.NewService(compiler, renderer, store.Reports(), store.Settings(), dispatcher, formatter)

	// Weather poller.
	poller := weather.NewPoller(weatherClient, engine, alertNotifier, cfg.Site.ID, cfg.Weather.PollInterval, location, clock)

	// Scheduled jobs.
	sched := scheduler.New(clock, location)
	safetyTip := jobs.NewSafetyTip(aiClient, store.Settings(), dispatcher, clock, location)
	reminder := jobs.NewActivityReminder(cfg.Site.ID, store.Logs(), store.Settings(), dispatcher, formatter, clock, location)
	if err := sched.Daily("safety-tip", cfg.Jobs.SafetyTipAt, safetyTip.Run); err != nil {
		return fmt.Errorf("register safety tip job: %w", err)
	}
	if err := sched.Daily("activity-reminder", cfg.Jobs.ActivityReminderAt, reminder.Run); err != nil {
		return fmt.Errorf("register activity reminder job: %w", err)
	}
	if cfg.Jobs.DailyReportAt != "" {
		if err := sched.Daily("daily-report", cfg.Jobs.DailyReportAt, func(ctx context.Context) error {
			period := report.DayPeriod(clock.Now().In(location), location)
			_, err := reportService.GenerateAndPublish(ctx, cfg.Site.ID, period, "")
			return err
		}); err != nil {
			return fmt.Errorf("register daily report job: %w", err)
		}
	}

	// Telegram update loop.
	bot := telegram.NewBot(tgClient, store.Logs(), store.Settings(), reportService, telegram.BotOptions{
		SiteID:   cfg.Site.ID,
		AdminIDs: cfg.Site.AdminIDs,
		PhotoDir: filepath.Join(cfg.DataDir, "photos"),
		Location: location,
	})

	// Operational HTTP and metrics servers.
	apiServer := api.NewServer(api.Config{
		Address:  cfg.HTTP.Address,
		SiteID:   cfg.Site.ID,
		Location: location,
	}, store, reportService, engine)
	metricsServer := metrics.NewServer(cfg.Metrics.Address)

	// Signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting sitecoord %s for site %s", config.Version, cfg.Site.ID)

	go dispatcher.Run(ctx)
	go poller.Run(ctx)
	go bot.Run(ctx)

	if cfg.Alerts.RulesFile != "" {
		watcher, err := alerting.NewWatcher(cfg.Alerts.RulesFile, engine)
		if err != nil {
			return fmt.Errorf("watch alert rules: %w", err)
		}
		go watcher.Run(ctx)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sched.Stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	<-dispatcher.Done()

	log.Printf("sitecoord stopped")
	return nil
}

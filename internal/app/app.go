package app

import (
	"context"
	"fmt"
	"log/slog"

	"outagereminder/internal/calendar"
	"outagereminder/internal/config"
	"outagereminder/internal/db"
	"outagereminder/internal/fetch"
	"outagereminder/internal/integrations"
	"outagereminder/internal/metrics"
	"outagereminder/internal/reminder"
	"outagereminder/internal/repository"
	"outagereminder/internal/telegram"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

// Options selects the optional collaborators a binary needs.
type Options struct {
	// Calendar connects Google Calendar. Prompt, when set, runs the
	// first-time authorization; without it a missing token is an error.
	Calendar bool
	Prompt   calendar.CodePrompt
	// Feed publishes the ICS feed to S3 when the bucket is configured.
	Feed bool
}

// App is the wired pipeline plus what its callers may need directly.
type App struct {
	Service *reminder.Service
	Syncer  *calendar.Syncer
	Repo    *repository.Repository
	Metrics *metrics.Metrics

	pool *pgxpool.Pool
}

// Build wires the pipeline from cfg. The database is optional: without
// DATABASE_URL nothing is archived and Repo is nil.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Metrics: metrics.New()}
	deps := reminder.Deps{
		Source:   telegram.NewSource(fetch.New(logger, fetch.OptionsFrom(cfg.Fetch)), logger),
		Location: cfg.Location(),
		Logger:   logger,
		Metrics:  a.Metrics,
	}

	if opts.Calendar {
		syncer, err := newSyncer(ctx, cfg, logger, opts.Prompt)
		if err != nil {
			return nil, err
		}
		a.Syncer = syncer
		deps.Calendar = syncer
	}

	if opts.Calendar && cfg.Notify.Enabled() {
		deps.Notifier = botNotifier{bot: integrations.NewTelegramBot(cfg.Notify.BotToken, cfg.Notify.ChatID)}
	}

	if opts.Feed && cfg.S3.Enabled() {
		s3, err := integrations.NewS3(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		deps.Feed = s3
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		a.pool = pool
		a.Repo = repository.New(pool)
		deps.Archive = a.Repo
	}

	a.Service = reminder.New(deps)
	return a, nil
}

func newSyncer(ctx context.Context, cfg *config.Config, logger *slog.Logger, prompt calendar.CodePrompt) (*calendar.Syncer, error) {
	if cfg.Google.CredentialsPath == "" {
		return nil, fmt.Errorf("GOOGLE_CREDENTIALS_PATH is required to reach the calendar")
	}
	oauthCfg, err := calendar.LoadOAuthConfig(cfg.Google.CredentialsPath)
	if err != nil {
		return nil, err
	}
	ts, err := calendar.TokenSource(ctx, oauthCfg, cfg.Google.TokenPath, prompt)
	if err != nil {
		return nil, err
	}
	client, err := calendar.NewClient(ctx, logger, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return calendar.NewSyncer(client, cfg.Google.CalendarID, cfg.Location(), logger), nil
}

type botNotifier struct {
	bot *integrations.TelegramBot
}

func (n botNotifier) Notify(ctx context.Context, text, feedURL string) error {
	var links []integrations.InlineKeyboardButton
	if feedURL != "" {
		links = append(links, integrations.InlineKeyboardButton{Text: "Підписатися (ICS)", URL: feedURL})
	}
	return n.bot.Notify(ctx, text, links)
}

// RunOptions maps cfg onto one pipeline pass.
func RunOptions(cfg *config.Config) reminder.Options {
	opts := reminder.Options{
		Channel: cfg.Telegram.Channel,
		Limit:   cfg.Telegram.MaxMessages,
		Group:   cfg.Group,
		DryRun:  cfg.DryRun,
	}
	if cfg.S3.Enabled() {
		opts.FeedKey = cfg.S3.FeedKey
	}
	return opts
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

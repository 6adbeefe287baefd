// Package sheetbot parses the bot's configuration and launches its
// runtime: SQLite store, command registry, dispatcher and HTTP server.
package sheetbot

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/grouprpg/sheetbot/internal/app/server"
	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/dispatch"
	"github.com/grouprpg/sheetbot/internal/bot/handlers"
	"github.com/grouprpg/sheetbot/internal/core/dice"
	"github.com/grouprpg/sheetbot/internal/platform/config"
	"github.com/grouprpg/sheetbot/internal/platform/i18n/catalog"
	"github.com/grouprpg/sheetbot/internal/storage/sqlite"
	"github.com/grouprpg/sheetbot/internal/telemetry"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Config holds the bot command configuration.
type Config struct {
	Addr            string `env:"SHEETBOT_ADDR" envDefault:":8080"`
	DBPath          string `env:"SHEETBOT_DB_PATH" envDefault:"data/sheetbot.db"`
	BotUsername     string `env:"SHEETBOT_BOT_USERNAME"`
	APIKey          string `env:"SHEETBOT_API_KEY"`
	SendEndpoint    string `env:"SHEETBOT_SEND_ENDPOINT" envDefault:"https://api.kik.com/v1/message"`
	WebhookKey      string `env:"SHEETBOT_WEBHOOK_KEY"`
	Admins          string `env:"SHEETBOT_ADMINS"`
	HomeGroup       string `env:"SHEETBOT_HOME_GROUP"`
	HomeGroupChatID string `env:"SHEETBOT_HOME_GROUP_CHAT_ID"`
	PictureDir      string `env:"SHEETBOT_PICTURE_DIR" envDefault:"data/pictures"`
	PictureBaseURL  string `env:"SHEETBOT_PICTURE_BASE_URL"`
	DefaultLocale   string `env:"SHEETBOT_LOCALE" envDefault:"de"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.BotUsername, "bot-username", cfg.BotUsername, "The bot's platform username")
	fs.StringVar(&cfg.PictureDir, "picture-dir", cfg.PictureDir, "Directory storing character pictures")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.BotUsername == "" {
		return Config{}, fmt.Errorf("bot username is required (SHEETBOT_BOT_USERNAME)")
	}
	return cfg, nil
}

// Run starts the bot runtime and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.PictureDir, 0o750); err != nil {
		return fmt.Errorf("create picture dir: %w", err)
	}

	seed, err := dice.NewSeed()
	if err != nil {
		return err
	}

	env := &handlers.Env{
		Records:  store,
		Catalog:  catalog.Default(),
		Registry: command.NewRegistry(cfg.DefaultLocale),
		Config: handlers.Config{
			BotUsername:     cfg.BotUsername,
			Admins:          config.SplitList(cfg.Admins),
			HomeGroup:       cfg.HomeGroup,
			HomeGroupChatID: cfg.HomeGroupChatID,
			PictureBaseURL:  cfg.PictureBaseURL,
			DefaultLocale:   cfg.DefaultLocale,
		},
		Rand:    rand.New(rand.NewSource(seed)),
		Clock:   time.Now,
		Fetcher: transport.NewFetcher(cfg.PictureDir),
	}
	if err := env.Register(env.Registry); err != nil {
		return err
	}

	dispatcher := dispatch.New(env, store, telemetry.NewEmitter(store))
	sender := transport.NewHTTPSender(cfg.SendEndpoint, cfg.BotUsername, cfg.APIKey)

	srv, err := server.New(cfg.Addr, dispatcher, sender, cfg.PictureDir, cfg.WebhookKey, log.Default())
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

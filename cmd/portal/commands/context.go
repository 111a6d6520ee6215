package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/internal/config"
	"github.com/jakechorley/volunteer-portal/pkg/clients/sheetsclient"
	"github.com/jakechorley/volunteer-portal/pkg/clients/telegramclient"
	"github.com/jakechorley/volunteer-portal/pkg/db"
	"github.com/jakechorley/volunteer-portal/pkg/notify"
	"github.com/jakechorley/volunteer-portal/pkg/postgres"
	"github.com/jakechorley/volunteer-portal/pkg/sqlite"
)

// AppContext holds the application dependencies shared across all commands.
// Connections are opened on first use so commands only pay for what they need.
type AppContext struct {
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context

	database db.Database
	closeDB  func()
	sheets   *sheetsclient.Client
}

// Database opens the configured datastore
func (a *AppContext) Database() (db.Database, error) {
	if a.database != nil {
		return a.database, nil
	}

	a.Logger.Info("Connecting to database", zap.String("driver", a.Cfg.Database.Driver))

	switch a.Cfg.Database.Driver {
	case "postgres":
		pg, err := postgres.NewDB(a.Ctx, a.Cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.database, a.closeDB = pg, pg.Close
	case "sqlite":
		lite, err := sqlite.NewDB(a.Ctx, a.Cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.database, a.closeDB = lite, lite.Close
	default:
		return nil, fmt.Errorf("unsupported database driver %q", a.Cfg.Database.Driver)
	}

	a.Logger.Debug("Database connected")
	return a.database, nil
}

// SheetsClient creates the Google Sheets client from the reports credentials
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if a.sheets != nil {
		return a.sheets, nil
	}
	if a.Cfg.Reports.CredentialsFile == "" {
		return nil, fmt.Errorf("reports.credentialsFile is not configured")
	}

	a.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(a.Ctx, a.Cfg.Reports.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.sheets = client
	return client, nil
}

// NewDispatcher starts a notification dispatcher delivering through the Telegram Bot API.
// The caller must Close it.
func (a *AppContext) NewDispatcher() (*notify.Dispatcher, error) {
	bot, err := telegramclient.NewClient(a.Cfg.Telegram.APIURL, a.Cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	return notify.NewDispatcher(bot, notify.Options{
		AdminChatID: a.Cfg.Telegram.AdminChatID,
		QueueSize:   a.Cfg.Notify.QueueSize,
		MaxAttempts: a.Cfg.Notify.MaxAttempts,
		RetryDelay:  a.Cfg.Notify.RetryDelay,
	}, a.Logger), nil
}

// Close releases any open connections
func (a *AppContext) Close() {
	if a.closeDB != nil {
		a.closeDB()
		a.closeDB = nil
		a.database = nil
	}
}

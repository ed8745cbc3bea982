package main

import (
	"flag"
	"log/slog"
	"time"

	"clinichat/bot"
	"clinichat/internal/config"
	repository "clinichat/internal/database"
	"clinichat/internal/http-server/api"
	"clinichat/internal/lib/logger"
	"clinichat/internal/lib/sl"
	"clinichat/internal/service/auth"
	"clinichat/internal/service/chat"
	"clinichat/internal/ws"
)

// handler bundles the persistence layer and the token verifier behind the
// single interface the HTTP surface consumes.
type handler struct {
	*repository.MongoDB
	*auth.Service
}

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelError)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram alert bot initialized")
		}
	}

	lg.Info("starting clinichat", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.Error("mongo client", sl.Err(err))
		return
	}
	if err := db.EnsureIndexes(); err != nil {
		lg.Error("mongo indexes", sl.Err(err))
		return
	}
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	authService := auth.NewService(
		conf.Auth.JWTSecret,
		time.Duration(conf.Auth.TokenTTLHours)*time.Hour,
		lg,
	)

	hub := ws.NewHub(lg)

	chatService := chat.NewService(db, db, db, hub, conf.MaxFileSize(), conf.Upload.BaseURL, lg)
	hub.SetHandler(chatService)

	// *** blocking start with http server ***
	err = api.New(conf, lg, &handler{db, authService}, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}

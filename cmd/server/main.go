package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sortec/bot"
	"sortec/impl/core"
	"sortec/internal/config"
	"sortec/internal/database"
	"sortec/internal/http-server/api"
	"sortec/internal/metrics"
	"sortec/internal/notify"
	"sortec/internal/sequence"
	"sortec/internal/workflow"
	"sortec/lib/logger"
	"sortec/lib/sl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// store is what the server needs from a record store implementation.
type store interface {
	workflow.Store
	workflow.Allocator
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	baseLog := logger.SetupLogger(conf.Env, *logPath)
	log := baseLog
	log.Info("starting sortec", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// bot first: its log mirror wraps every logger created below
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		level := logger.ParseLevel(conf.Telegram.LogLevel)
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, baseLog, bot.BotConfig{
			Admins:      conf.Telegram.Admins,
			MinLogLevel: level,
		})
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			log = slog.New(logger.NewTelegramHandler(baseLog.Handler(), tgBot, level))
			log.Info("telegram bot created")
		}
	}

	var recordStore store
	var closeStore func()
	if mongo := database.NewMongoClient(conf); mongo != nil {
		c, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mongo.EnsureIndexes(c); err != nil {
			log.Error("mongodb indexes", sl.Err(err))
		}
		cancel()
		recordStore = mongo
		closeStore = func() { mongo.Close(context.Background()) }
		log.With(slog.String("host", conf.Mongo.Host)).Info("using mongodb store")
	} else if conf.MySql.Enabled {
		mysql, err := database.NewSQLClient(conf)
		if err != nil {
			log.Error("mysql client", sl.Err(err))
			os.Exit(1)
		}
		recordStore = mysql
		closeStore = mysql.Close
		log.With(slog.String("host", conf.MySql.HostName)).Info("using mysql store")
	} else {
		recordStore = database.NewMemory()
		closeStore = func() {}
		log.Warn("no database configured, using in-memory store")
	}
	defer closeStore()

	var allocator workflow.Allocator = recordStore
	redisSeq, err := sequence.NewRedis(conf)
	if err != nil {
		log.Error("redis sequence", sl.Err(err))
		os.Exit(1)
	}
	if redisSeq != nil {
		allocator = redisSeq
		defer redisSeq.Close()
		log.With(slog.String("addr", conf.Redis.Addr)).Info("using redis sequence")
	}

	notifiers := notify.Fanout{notify.NewLog(log)}
	if conf.Mail.Enabled {
		mailer, err := notify.NewMailer(conf.Mail, log)
		if err != nil {
			log.Error("mailer", sl.Err(err))
		} else {
			notifiers = append(notifiers, mailer)
		}
	}
	if tgBot != nil {
		notifiers = append(notifiers, tgBot)
	}

	dispatcher := notify.NewDispatcher(notifiers, notify.Config{
		Workers:        conf.Notify.Workers,
		QueueSize:      conf.Notify.QueueSize,
		EnqueueTimeout: time.Duration(conf.Notify.EnqueueTimeoutMs) * time.Millisecond,
	}, log)
	dispatcher.SetObserver(m)
	dispatcher.Start()

	wf := workflow.New(recordStore, allocator, dispatcher, workflow.Config{
		CodePrefix: conf.Contest.CodePrefix,
		AdminEmail: conf.Contest.AdminEmail,
		BaseUrl:    conf.Contest.BaseUrl,
		SiteUrl:    conf.Contest.SiteUrl,
		ImageUrl:   conf.Contest.ImageUrl,

		StoreTimeout: time.Duration(conf.Contest.StoreTimeoutMs) * time.Millisecond,
	}, log)

	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err = wf.SeedSequence(seedCtx); err != nil {
		log.Error("seed sequence", sl.Err(err))
	}
	cancel()

	handler := core.New(wf, log)
	handler.SetMetrics(m)

	server := api.New(conf, log, handler, reg)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Run(gctx)
	})
	if tgBot != nil {
		tgBot.SetCore(handler)
		group.Go(func() error {
			return tgBot.Start()
		})
		group.Go(func() error {
			<-gctx.Done()
			tgBot.Stop()
			return nil
		})
	}

	if err = group.Wait(); err != nil {
		log.Error("server stopped", sl.Err(err))
	}

	// the queue may still hold notifications for writes that already succeeded
	dispatcher.Stop()
	log.Info("sortec stopped")
}

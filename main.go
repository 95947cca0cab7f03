package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"busbooking/internal/app"
	intconfig "busbooking/internal/config"
	"busbooking/internal/db"
	"busbooking/internal/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := intconfig.LoadEnv()
	utils.ConfigureLogger(env.LogLevel, env.Release())
	if err := env.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	sqlDB, err := intconfig.OpenDB(ctx, env)
	if err != nil {
		logrus.WithError(err).Fatal("database unavailable")
	}
	defer sqlDB.Close()

	if env.DBAutoMigrate {
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			logrus.WithError(err).Fatal("schema migration failed")
		}
	}

	a, err := app.New(env, sqlDB)
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Error("service stopped with error")
		return
	}
	logrus.Info("service stopped")
}

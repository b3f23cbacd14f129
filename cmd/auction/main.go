package main

import (
	"os"

	"github.com/fsdevblog/groph-auction/internal/app"
	"github.com/fsdevblog/groph-auction/internal/config"
	"github.com/fsdevblog/groph-auction/internal/logger"
)

func main() {
	conf := config.MustLoadConfig()
	l, err := logger.New(os.Stdout, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	if err = app.New(conf, l).Run(); err != nil {
		l.WithError(err).Fatal("app stopped")
	}
	l.Info("graceful shutdown")
}

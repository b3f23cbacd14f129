// Package logger настраивает logrus для сервиса аукционов.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ServiceName значение поля service в каждой записи.
const ServiceName = "auction"

// New создает логгер, пишущий в output. В релизном режиме gin записи идут в JSON с уровнем info, иначе
// текстом с уровнем debug. Непустой level задает уровень явно.
func New(output io.Writer, level string) (*logrus.Logger, error) {
	release := os.Getenv("GIN_MODE") == "release"

	l := logrus.New()
	l.SetOutput(output)
	l.AddHook(serviceHook{})

	if release {
		l.SetFormatter(&logrus.JSONFormatter{FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "message"}})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	}

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		l.SetLevel(lvl)
	}
	return l, nil
}

// serviceHook добавляет имя сервиса в записи, где его нет.
type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = ServiceName
	}
	return nil
}

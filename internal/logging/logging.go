// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Options controls logger construction.
type Options struct {
	// Level is a logrus level name. Unknown names fall back to info.
	Level string
	// Dir enables a rotating log file under the directory when non-empty.
	Dir string
	// Name is used for the log file name prefix.
	Name string
}

// New returns the shared logger, building it on first use.
// Options passed after the first call are ignored.
func New(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = build(opts, os.Stderr)
	})
	return logger
}

// L returns the shared logger, creating a default one if New was never called.
func L() *logrus.Logger {
	return New(Options{Level: "info"})
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return L().WithField("component", name)
}

func build(opts Options, stderr io.Writer) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        false,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	writers := []io.Writer{stderr}
	if w := fileWriter(opts); w != nil {
		writers = append(writers, w)
	}

	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

// fileWriter returns a rotating writer, or nil in tests or without a directory.
func fileWriter(opts Options) io.Writer {
	if opts.Dir == "" || os.Getenv("EYE_ENV") == "test" {
		return nil
	}
	name := opts.Name
	if name == "" {
		name = "eyecontrol"
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, fmt.Sprintf("%s-%s.log", name, time.Now().Format("2006-01-02"))),
		LocalTime:  true,
		Compress:   true,
		MaxSize:    20,
		MaxAge:     7,
		MaxBackups: 3,
	}
}

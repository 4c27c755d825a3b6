package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
)

const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects the console format and an optional JSON log file that
// receives the same records.
type Options struct {
	Level  string
	Format string
	File   string
	Writer io.Writer
}

// Logger carries the level so it can be changed after construction.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
	close func() error
}

func (l *Logger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func New(opts Options) (*Logger, error) {
	level := new(slog.LevelVar)
	if opts.Level != "" {
		parsed, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level.Set(parsed)
	}

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	switch format := strings.ToLower(opts.Format); format {
	case "", FormatAuto:
		if isTerminal(writer) {
			console = slog.NewTextHandler(writer, handlerOpts)
		} else {
			console = slog.NewJSONHandler(writer, handlerOpts)
		}
	case FormatText:
		console = slog.NewTextHandler(writer, handlerOpts)
	case FormatJSON:
		console = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	if opts.File == "" {
		return &Logger{Logger: slog.New(console), Level: level}, nil
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slogmulti.Fanout(console, slog.NewJSONHandler(file, handlerOpts))
	return &Logger{Logger: slog.New(handler), Level: level, close: file.Close}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

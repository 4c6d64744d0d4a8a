package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mazrean/formseq"
	httpform "github.com/mazrean/formseq/http"
	"github.com/mazrean/formseq/metrics"
)

func main() {
	app := &cli.App{
		Name:  "http-upload",
		Usage: "Accept icon uploads as a multipart/form-data stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "Listen address",
			},
			&cli.StringFlag{
				Name:  "dir",
				Value: "icons",
				Usage: "Directory icons are saved to",
			},
			&cli.Int64Flag{
				Name:  "max-file-size",
				Value: int64(10 * formseq.MB),
				Usage: "Maximum icon size in bytes; larger icons are rejected",
			},
			&cli.UintFlag{
				Name:  "max-parts",
				Value: 16,
				Usage: "Maximum number of parts in one form",
			},
			&cli.Int64Flag{
				Name:  "high-water-mark",
				Value: int64(64 * formseq.KB),
				Usage: "Bytes buffered before reading the request body pauses",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	return zap.New(core)
}

func run(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))
	defer logger.Sync() //nolint:errcheck

	iconDir := c.String("dir")
	err := os.MkdirAll(iconDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create icon directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New("upload", reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	u := &uploader{
		iconDir: iconDir,
		logger:  logger,
		options: []formseq.ParserOption{
			formseq.WithMaxFileSize(formseq.DataSize(c.Int64("max-file-size"))),
			formseq.WithMaxParts(c.Uint("max-parts")),
			formseq.WithHighWaterMark(formseq.DataSize(c.Int64("high-water-mark"))),
			formseq.WithLogger(logger),
			formseq.WithMetrics(m),
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /submit", u.submit)
	mux.Handle("/icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(iconDir))))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	logger.Info("listening", zap.String("addr", c.String("addr")))

	return http.ListenAndServe(c.String("addr"), mux)
}

var (
	errUnsupportedType = errors.New("content type is not supported")
	errUserExists      = errors.New("user already exists")
	errMissingID       = errors.New("id must precede icon")
	errTooLarge        = errors.New("icon is too large")
	errTooManyParts    = errors.New("too many parts")
)

type uploader struct {
	iconDir string
	logger  *zap.Logger
	options []formseq.ParserOption
}

func (u *uploader) submit(w http.ResponseWriter, r *http.Request) {
	parser, err := httpform.NewParser(r, u.options...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var id string
	err = parser.Run(func(ev formseq.Event) error {
		switch ev := ev.(type) {
		case *formseq.FieldEvent:
			if ev.Name == "id" {
				id = filepath.Base(ev.Value)
			}
		case *formseq.FileEvent:
			if ev.Name != "icon" {
				return nil
			}

			return u.saveIcon(id, ev)
		case *formseq.LimitEvent:
			return errTooManyParts
		}

		return nil
	})
	if err != nil {
		u.logger.Info("upload rejected", zap.String("id", id), zap.Error(err))
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (u *uploader) saveIcon(id string, file *formseq.FileEvent) error {
	if id == "" || id == "." {
		return errMissingID
	}
	if file.MIMEType != "image/png" {
		return errUnsupportedType
	}

	iconPath := filepath.Join(u.iconDir, id)

	_, err := os.Stat(iconPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to check file existence: %w", err)
	}
	if err == nil {
		return errUserExists
	}

	f, err := os.Create(iconPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(f, file.Content)
	if err != nil {
		os.Remove(iconPath)
		return fmt.Errorf("failed to copy: %w", err)
	}

	if file.Content.Truncated() {
		os.Remove(iconPath)
		return errTooLarge
	}

	return nil
}

func statusCode(err error) int {
	var faultErr *formseq.FaultError

	switch {
	case errors.Is(err, errUnsupportedType), errors.Is(err, errMissingID):
		return http.StatusBadRequest
	case errors.Is(err, errUserExists):
		return http.StatusConflict
	case errors.Is(err, errTooLarge), errors.Is(err, errTooManyParts):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &faultErr):
		// the body was malformed or the client went away
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

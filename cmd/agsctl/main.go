package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/martian/har"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sre-norns/ags/pkg/grace"
	"github.com/sre-norns/ags/pkg/rest"
)

type commandContext struct {
	*rest.ClientConfig

	OutputFormatter formatter
	Context         context.Context
	Logger          log.Logger

	registry  *prometheus.Registry
	harLogger *har.Logger
}

type outputFormat string

func (f outputFormat) AfterApply(cfg *commandContext) (err error) {
	cfg.OutputFormatter, err = getFormatter(f)
	return err
}

type logLevel string

func (l logLevel) AfterApply(cfg *commandContext) error {
	option, err := levelOption(l)
	if err != nil {
		return err
	}

	cfg.Logger = level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), option)
	cfg.Logger = log.With(cfg.Logger, "ts", log.DefaultTimestampUTC)
	return nil
}

func levelOption(l logLevel) (level.Option, error) {
	switch strings.ToLower(string(l)) {
	case "debug":
		return level.AllowDebug(), nil
	case "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	case "none":
		return level.AllowNone(), nil
	}

	return nil, fmt.Errorf("unexpected log level %q", l)
}

// connection creates a client of the server, URLs relative to baseUrl are resolved against it
func (cfg *commandContext) connection(baseUrl string) (*rest.Client, error) {
	metrics, err := rest.NewMetrics(cfg.registry)
	if err != nil {
		return nil, err
	}

	options := []rest.Option{
		rest.WithLogger(cfg.Logger),
		rest.WithMetrics(metrics),
	}
	if cfg.harLogger != nil {
		options = append(options, rest.WithHAR(cfg.harLogger))
	}

	client, err := cfg.NewClient(baseUrl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API Client: %w", err)
	}
	return client, nil
}

// flush writes request log and metrics collected while running a command
func (cfg *commandContext) flush(showMetrics bool) error {
	if cfg.harLogger != nil && cfg.HAR != "" {
		data, err := json.MarshalIndent(cfg.harLogger.Export(), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.HAR, data, 0o644); err != nil {
			return fmt.Errorf("failed to write HAR file: %w", err)
		}
		level.Info(cfg.Logger).Log("msg", "requests recorded", "file", cfg.HAR)
	}

	if !showMetrics {
		return nil
	}

	families, err := cfg.registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, family); err != nil {
			return err
		}
	}

	return nil
}

var appCli struct {
	rest.ClientConfig `embed:"" prefix:"client."`

	Format   outputFormat `enum:"yaml,yml,json,table" help:"Data output format" default:"yml" short:"o"`
	LogLevel logLevel     `enum:"debug,info,warn,error,none" help:"Minimal level of log messages" default:"warn" env:"AGS_LOG_LEVEL"`
	Metrics  bool         `help:"Print client request metrics to stderr on exit"`

	Get      GetCmd      `cmd:"" help:"Get a resource addressed by URL and display its properties"`
	Query    QueryCmd    `cmd:"" help:"Query features of a layer or a table"`
	Catalog  CatalogCmd  `cmd:"" help:"List folders and services of a server"`
	Info     InfoCmd     `cmd:"" help:"Show server information and health"`
	Kinds    KindsCmd    `cmd:"" help:"List resource kinds recognised by URL"`
	Geometry GeometryCmd `cmd:"" help:"Inspect geometry JSON"`
}

func main() {
	// Variables from .env file in the working directory are optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		grace.ExitOrLog(err)
	}

	mainContext := grace.SetupSignalHandler()
	cfg := &commandContext{
		Context:         mainContext,
		OutputFormatter: yamlFormatter,
		Logger:          log.NewNopLogger(),
		ClientConfig:    &appCli.ClientConfig,
		registry:        prometheus.NewRegistry(),
	}
	appCtx := kong.Parse(&appCli,
		kong.Name("agsctl"),
		kong.Description("ArcGIS Server command line tool"),
		kong.Bind(cfg),
	)

	if appCli.HAR != "" {
		cfg.harLogger = har.NewLogger()
	}

	err := appCtx.Run(cfg)
	grace.ExitOrLog(cfg.flush(appCli.Metrics))
	appCtx.FatalIfErrorf(err)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/rfpextract/internal/app"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitBadConfig = 2
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := realMain(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// options mirrors the command line before it is merged with env and file.
type options struct {
	cfg         app.Config
	folders     string
	configPath  string
	envPath     string
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("rfpextract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rfpextract [flags] <output_dir>\n\nExtracts structured RFP fields from the HTML and PDF files of each input folder.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.BoolVar(&o.cfg.Combine, "combine", false, "Write one <folder>_processed.json per folder instead of one JSON per file")
	fs.StringVar(&o.folders, "folders", "", "Comma-separated input folders (default bid1,bid2; env RFP_FOLDERS)")
	fs.StringVar(&o.configPath, "config", os.Getenv("RFP_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&o.envPath, "env", ".env", "Path to dotenv file; existing environment variables are not overridden")
	fs.StringVar(&o.cfg.LLMProvider, "llm.provider", "", "LLM provider: openai or vertex (env LLM_PROVIDER)")
	fs.StringVar(&o.cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL (env LLM_BASE_URL)")
	fs.StringVar(&o.cfg.LLMModel, "llm.model", "", "Model name (default gpt-4o-mini; env LLM_MODEL)")
	fs.StringVar(&o.cfg.LLMAPIKey, "llm.key", "", "API key (env OPENAI_API_KEY or LLM_API_KEY)")
	fs.Float64Var(&o.cfg.LLMTemperature, "llm.temperature", 0, "Sampling temperature (default 0.3)")
	fs.IntVar(&o.cfg.LLMMaxTokens, "llm.maxTokens", 0, "Maximum reply tokens (default 2000)")
	fs.IntVar(&o.cfg.LLMAttempts, "llm.attempts", 0, "Model call attempts per document; values above 1 retry transient errors (default 1)")
	fs.DurationVar(&o.cfg.LLMRetryBackoff, "llm.retryBackoff", 0, "First retry delay, doubled per attempt (default 2s)")
	fs.DurationVar(&o.cfg.HTTPTimeout, "llm.timeout", 0, "HTTP timeout per model call (default 2m)")
	fs.BoolVar(&o.cfg.LLMInsecure, "llm.insecure", false, "Skip TLS certificate verification for the model server")
	fs.StringVar(&o.cfg.SystemPrompt, "llm.systemPrompt", "", "Override the system message")
	fs.StringVar(&o.cfg.VertexProject, "vertex.project", "", "Google Cloud project for -llm.provider=vertex (env VERTEX_PROJECT)")
	fs.StringVar(&o.cfg.VertexLocation, "vertex.location", "", "Vertex AI region, e.g. us-central1 (env VERTEX_LOCATION)")
	fs.IntVar(&o.cfg.Workers, "workers", 0, "Documents processed concurrently per folder (default 1)")
	fs.BoolVar(&o.cfg.XLSX, "xlsx", false, "With -combine, also write <folder>_processed.xlsx")
	fs.BoolVar(&o.cfg.SkipPDFPreflight, "pdf.skipPreflight", false, "Skip PDF structure validation before text extraction")
	fs.BoolVar(&o.cfg.DryRun, "dry-run", false, "Read documents and report prompt sizes without calling the model")
	fs.BoolVar(&o.cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.showVersion {
		return o, nil
	}
	switch fs.NArg() {
	case 0:
	case 1:
		o.cfg.OutputDir = fs.Arg(0)
	default:
		fs.Usage()
		return o, fmt.Errorf("expected one output directory, got %d arguments", fs.NArg())
	}
	o.cfg.Folders = app.SplitList(o.folders)
	return o, nil
}

// buildConfig merges flags, environment and config file, in that order of
// precedence, then applies defaults.
func buildConfig(o options) (app.Config, error) {
	if err := app.LoadEnvFiles(o.envPath); err != nil {
		return app.Config{}, &app.StartupConfigError{Field: "env", Reason: err.Error()}
	}
	cfg := o.cfg
	app.ApplyEnvToConfig(&cfg)
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return app.Config{}, &app.StartupConfigError{Field: "config", Reason: err.Error()}
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyDefaults(&cfg)
	return cfg, nil
}

func realMain(ctx context.Context, args []string, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		return exitBadConfig
	}
	if o.showVersion {
		fmt.Fprintf(stderr, "rfpextract %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return exitOK
	}

	cfg, err := buildConfig(o)
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		return exitBadConfig
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		var sce *app.StartupConfigError
		if errors.As(err, &sce) {
			return exitBadConfig
		}
		return exitFailure
	}
	return exitOK
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	prev := log.Logger
	log.Logger = log.With().Str("run_id", a.RunID()).Logger()
	defer func() { log.Logger = prev }()

	_, err = a.Run(ctx)
	return err
}

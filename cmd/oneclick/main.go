// Oneclick - catalog-driven software downloader
// Downloads a curated software catalog, validates every file and
// repairs anything that fails verification.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/budingricky/oneclick/internal/batch"
	"github.com/budingricky/oneclick/internal/catalog"
	"github.com/budingricky/oneclick/internal/config"
	"github.com/budingricky/oneclick/internal/fetch"
	"github.com/budingricky/oneclick/internal/hooks"
	"github.com/budingricky/oneclick/internal/logging"
	"github.com/budingricky/oneclick/internal/metrics"
	"github.com/budingricky/oneclick/internal/repair"
	"github.com/budingricky/oneclick/internal/tui"
	"github.com/budingricky/oneclick/internal/ui"
	"github.com/budingricky/oneclick/internal/verify"
	"github.com/budingricky/oneclick/internal/version"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitParseError   = 2
	ExitCatalogError = 3
	ExitDownloadFail = 4
	ExitInterrupted  = 5
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	CatalogPath string
	DownloadDir string
	ConfigFile  string
	All         bool
	Category    string
	Quiet       bool
	NoColor     bool
	JSON        bool
	Timeout     time.Duration
	MaxRetries  int
	LimitRate   string // e.g. "10M", "500K"
	Proxy       string
	NoCheckCert bool
	HTTP3       bool
	MetricsAddr string
	OnComplete  string
	OnError     string
	WebhookURL  string
	InitConfig  bool
	ShowVersion bool
	ShowHelp    bool
}

func main() {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Println(version.Full())
		os.Exit(ExitSuccess)
	}

	if cliCfg.InitConfig {
		os.Exit(initConfig())
	}

	if cliCfg.ShowHelp || pflag.NArg() == 0 {
		printUsage()
		if pflag.NArg() == 0 && !cliCfg.ShowHelp {
			os.Exit(ExitParseError)
		}
		os.Exit(ExitSuccess)
	}

	os.Exit(run(cliCfg, pflag.Arg(0), pflag.Args()[1:]))
}

func parseFlags() CLIConfig {
	cfg := CLIConfig{}

	pflag.StringVarP(&cfg.CatalogPath, "catalog", "f", "", "Catalog file (JSON)")
	pflag.StringVarP(&cfg.DownloadDir, "dir", "P", "", "Download directory")
	pflag.StringVar(&cfg.ConfigFile, "config", "", "Use custom config file")
	pflag.BoolVar(&cfg.All, "all", false, "Operate on every catalog entry")
	pflag.StringVarP(&cfg.Category, "category", "c", "", "Restrict to one category")
	pflag.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Quiet mode (no per-item output)")
	pflag.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	pflag.BoolVar(&cfg.JSON, "json", false, "JSON output (stats command)")
	pflag.DurationVarP(&cfg.Timeout, "timeout", "T", 0, "Connection timeout")
	pflag.IntVarP(&cfg.MaxRetries, "retries", "r", 0, "Download attempts per item")
	pflag.StringVar(&cfg.LimitRate, "limit-rate", "", "Limit download speed (e.g., 10M, 500K)")
	pflag.StringVar(&cfg.Proxy, "proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	pflag.BoolVar(&cfg.NoCheckCert, "no-check-certificate", false, "Skip TLS certificate verification")
	pflag.BoolVar(&cfg.HTTP3, "http3", false, "Prefer HTTP/3 for https URLs")
	pflag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pflag.StringVar(&cfg.OnComplete, "on-complete", "", "Command to run after each completed item")
	pflag.StringVar(&cfg.OnError, "on-error", "", "Command to run after each failed item")
	pflag.StringVar(&cfg.WebhookURL, "webhook", "", "Webhook URL for item notifications")
	pflag.BoolVar(&cfg.InitConfig, "init-config", false, "Generate default config file")
	pflag.BoolVarP(&cfg.ShowVersion, "version", "V", false, "Show version")
	pflag.BoolVarP(&cfg.ShowHelp, "help", "h", false, "Show help")

	pflag.Usage = printUsage
	pflag.Parse()

	return cfg
}

// app bundles everything a command needs.
type app struct {
	cliCfg  CLIConfig
	cfg     *config.Config
	log     *logging.Logger
	cat     *catalog.Catalog
	printer *ui.Printer
	metrics *metrics.Metrics
	hooks   *hooks.Manager
	runner  *batch.Runner
	valid   *verify.Validator
	dir     string
}

func run(cliCfg CLIConfig, command string, args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing current item...")
		cancel()
	}()

	a, code := setup(cliCfg)
	if code != ExitSuccess {
		return code
	}
	defer a.log.Close()

	switch command {
	case "list":
		return a.cmdList()
	case "search":
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Error: search requires a query")
			return ExitParseError
		}
		return a.cmdSearch(strings.Join(args, " "))
	case "download":
		return a.cmdDownload(ctx, args)
	case "validate":
		return a.cmdValidate(args)
	case "stats":
		return a.cmdStats()
	case "interactive":
		return a.cmdInteractive()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		return ExitParseError
	}
}

// setup loads config, catalog and wires the download pipeline.
func setup(cliCfg CLIConfig) (*app, int) {
	cfg, err := loadConfig(cliCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return nil, ExitParseError
	}

	log, err := logging.New(cfg.Logging.Dir, logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening logs: %v\n", err)
		return nil, ExitGeneralError
	}

	catalogPath := cliCfg.CatalogPath
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}
	if catalogPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no catalog file (use --catalog or set catalog.path)")
		return nil, ExitParseError
	}

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		return nil, ExitCatalogError
	}
	log.Info(logging.ChannelMain, "catalog loaded", "path", catalogPath, "entries", cat.Len())

	dir := cliCfg.DownloadDir
	if dir == "" {
		dir = cfg.General.DownloadDir
	}

	timeout := cliCfg.Timeout
	if timeout <= 0 {
		timeout = cfg.General.Timeout
	}
	userAgent := cfg.General.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("oneclick/%s", version.Version)
	}

	httpOpts := []fetch.HTTPClientOption{
		fetch.WithTimeout(timeout),
		fetch.WithUserAgent(userAgent),
	}
	proxyURL := cliCfg.Proxy
	if proxyURL == "" && cfg.Proxy.SOCKS5 != "" {
		proxyURL = "socks5://" + cfg.Proxy.SOCKS5
	}
	if proxyURL == "" && cfg.Proxy.HTTP != "" {
		proxyURL = cfg.Proxy.HTTP
	}
	if proxyURL != "" {
		if strings.HasPrefix(proxyURL, "socks5://") {
			httpOpts = append(httpOpts, fetch.WithSOCKS5Proxy(strings.TrimPrefix(proxyURL, "socks5://"), nil))
		} else {
			httpOpts = append(httpOpts, fetch.WithProxy(proxyURL))
		}
	}
	if cliCfg.NoCheckCert || !cfg.TLS.Verify {
		httpOpts = append(httpOpts, fetch.WithInsecureSkipVerify(true))
	}

	clients := []fetch.Client{}
	if cliCfg.HTTP3 {
		clients = append(clients, fetch.NewHTTP3Client(
			fetch.WithHTTP3Timeout(timeout),
			fetch.WithHTTP3UserAgent(userAgent),
			fetch.WithHTTP3InsecureSkipVerify(cliCfg.NoCheckCert || !cfg.TLS.Verify),
		))
	}
	clients = append(clients,
		fetch.NewHTTPClient(httpOpts...),
		fetch.NewFTPClient(fetch.WithFTPTimeout(timeout)),
		fetch.NewSFTPClient(fetch.WithSFTPTimeout(timeout)),
	)
	dispatcher := fetch.NewDispatcher(clients...)

	validator := verify.NewValidator(log, verify.Algorithm(cfg.General.HashAlgorithm))

	correctorCfg := repair.DefaultConfig()
	if cliCfg.MaxRetries > 0 {
		correctorCfg.MaxRetries = cliCfg.MaxRetries
	} else if cfg.General.MaxRetries > 0 {
		correctorCfg.MaxRetries = cfg.General.MaxRetries
	}
	limitRate := cliCfg.LimitRate
	if limitRate == "" {
		limitRate = cfg.General.RateLimit
	}
	if limitRate != "" {
		bytesPerSec, err := config.ParseRateLimit(limitRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid rate limit: %v\n", err)
			return nil, ExitParseError
		}
		correctorCfg.RateLimit = fetch.NewLimiter(bytesPerSec)
	}

	m := metrics.New()
	correctorCfg.OnRepair = m.IncRepairsTotal
	correctorCfg.OnBytes = m.AddBytesDownloaded

	corrector := repair.NewCorrector(dispatcher, validator, log, correctorCfg)
	runner := batch.NewRunner(corrector, log)

	metricsAddr := cliCfg.MetricsAddr
	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		srv := metrics.NewServer(metricsAddr, m)
		if err := srv.Start(); err != nil {
			log.Warn(logging.ChannelMain, "metrics server failed to start",
				"addr", metricsAddr, "error", err)
		} else {
			log.Info(logging.ChannelMain, "metrics server listening", "addr", srv.Addr())
		}
	}

	a := &app{
		cliCfg:  cliCfg,
		cfg:     cfg,
		log:     log,
		cat:     cat,
		metrics: m,
		hooks:   setupHooks(cliCfg, cfg),
		runner:  runner,
		valid:   validator,
		dir:     dir,
		printer: ui.NewPrinter(
			ui.WithNoColor(cliCfg.NoColor),
			ui.WithQuiet(cliCfg.Quiet),
		),
	}
	a.wireObservers()
	return a, ExitSuccess
}

// wireObservers connects metrics and hooks to batch item transitions.
func (a *app) wireObservers() {
	a.runner.SetItemFunc(func(item *batch.Item, outcome batch.Outcome) {
		if item.Status == batch.StatusDownloading {
			a.metrics.IncDownloadsTotal()
			return
		}

		event := hooks.EventComplete
		switch item.Status {
		case batch.StatusCompleted:
			a.metrics.IncDownloadsCompleted()
			a.metrics.RecordItemDuration(outcome.Duration)
		case batch.StatusFailed:
			a.metrics.IncDownloadsFailed()
			event = hooks.EventFailed
		default:
			return
		}

		if a.hooks.Count() == 0 {
			return
		}
		a.hooks.ExecuteAsync(context.Background(), &hooks.Payload{
			Event:     event,
			Software:  item.Record.Name,
			URL:       item.Record.URL,
			Filename:  repair.Filename(item.Record),
			Message:   outcome.Message,
			Timestamp: time.Now(),
			Duration:  outcome.Duration.Seconds(),
		})
	})
}

// records resolves the target record set from names, --all and --category.
func (a *app) records(names []string) ([]*catalog.Record, int) {
	if a.cliCfg.All {
		if a.cliCfg.Category != "" {
			return a.cat.ByCategory(a.cliCfg.Category), ExitSuccess
		}
		return a.cat.Records(), ExitSuccess
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no software names given (or use --all)")
		return nil, ExitParseError
	}

	records := make([]*catalog.Record, 0, len(names))
	for _, name := range names {
		rec, ok := a.cat.Get(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: %q is not in the catalog\n", name)
			return nil, ExitCatalogError
		}
		records = append(records, rec)
	}
	return records, ExitSuccess
}

func (a *app) cmdList() int {
	records := a.cat.Records()
	if a.cliCfg.Category != "" {
		records = a.cat.ByCategory(a.cliCfg.Category)
	}
	a.printer.CatalogListing(records)
	return ExitSuccess
}

func (a *app) cmdSearch(query string) int {
	records := a.cat.Search(query)
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No catalog entries match %q\n", query)
		return ExitGeneralError
	}
	a.printer.CatalogListing(records)
	return ExitSuccess
}

func (a *app) cmdDownload(ctx context.Context, names []string) int {
	records, code := a.records(names)
	if code != ExitSuccess {
		return code
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to download")
		return ExitGeneralError
	}

	if !a.cliCfg.Quiet {
		fmt.Printf("oneclick %s - downloading %d item(s) to %s\n\n",
			version.Version, len(records), a.dir)
	}

	a.runner.SetProgress(a.printer.ItemDone)
	a.metrics.IncActiveBatches()
	results := <-a.runner.Start(ctx, records, a.dir)
	a.metrics.DecActiveBatches()

	a.printer.Summary(results)

	if ctx.Err() != nil {
		return ExitInterrupted
	}
	for _, outcome := range results {
		if !outcome.OK {
			return ExitDownloadFail
		}
	}
	return ExitSuccess
}

func (a *app) cmdValidate(names []string) int {
	records, code := a.records(names)
	if code != ExitSuccess {
		return code
	}

	results := batch.ValidateExisting(a.valid, a.log, records, a.dir)

	failed := 0
	for _, rec := range records {
		outcome := results[rec.Name]
		if outcome.OK {
			if !a.cliCfg.Quiet {
				fmt.Printf("  ok      %s\n", rec.Name)
			}
			continue
		}
		failed++
		a.metrics.IncValidationFailures()
		fmt.Printf("  INVALID %s: %s\n", rec.Name, outcome.Message)
	}

	fmt.Printf("\n%d of %d valid\n", len(records)-failed, len(records))
	if failed > 0 {
		return ExitDownloadFail
	}
	return ExitSuccess
}

func (a *app) cmdStats() int {
	stats := batch.Statistics(a.valid, a.log, a.cat.Records(), a.dir)

	if a.cliCfg.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
		return ExitSuccess
	}

	fmt.Printf("Download directory: %s\n", a.dir)
	fmt.Printf("  Catalog entries:  %d\n", a.cat.Len())
	fmt.Printf("  Files present:    %d\n", stats.TotalFiles)
	fmt.Printf("  Valid:            %d\n", stats.ValidFiles)
	fmt.Printf("  Invalid:          %d\n", stats.InvalidFiles)
	fmt.Printf("  Total size:       %s\n", ui.FormatSize(stats.TotalBytes))
	return ExitSuccess
}

func (a *app) cmdInteractive() int {
	records := a.cat.Records()
	if a.cliCfg.Category != "" {
		records = a.cat.ByCategory(a.cliCfg.Category)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "Catalog is empty")
		return ExitCatalogError
	}

	runner := tui.NewRunner(records, a.runner, a.dir)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	if results := runner.Results(); results != nil {
		for _, outcome := range results {
			if !outcome.OK {
				return ExitDownloadFail
			}
		}
	}
	return ExitSuccess
}

// loadConfig loads configuration from file and applies CLI overrides
func loadConfig(cliCfg CLIConfig) (*config.Config, error) {
	if cliCfg.ConfigFile != "" {
		cfg := config.DefaultConfig()
		if err := cfg.LoadFile(cliCfg.ConfigFile); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load()
}

// initConfig generates a default configuration file
func initConfig() int {
	configPath, err := config.GetDefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot determine config path: %v\n", err)
		return ExitGeneralError
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "Config file already exists: %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Use --config to specify a different file.\n")
		return ExitGeneralError
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save config: %v\n", err)
		return ExitGeneralError
	}

	fmt.Printf("Created default config file: %s\n", configPath)
	return ExitSuccess
}

// setupHooks creates a hook manager from config and CLI options
func setupHooks(cliCfg CLIConfig, cfg *config.Config) *hooks.Manager {
	manager := hooks.NewManager()

	onComplete := cliCfg.OnComplete
	if onComplete == "" {
		onComplete = cfg.Hooks.OnComplete
	}
	if onComplete != "" {
		manager.AddCommand(onComplete, hooks.EventComplete)
	}

	onError := cliCfg.OnError
	if onError == "" {
		onError = cfg.Hooks.OnError
	}
	if onError != "" {
		manager.AddCommand(onError, hooks.EventFailed)
	}

	webhookURL := cliCfg.WebhookURL
	if webhookURL == "" {
		webhookURL = cfg.Hooks.WebhookURL
	}
	if webhookURL != "" {
		manager.AddWebhook(webhookURL, hooks.EventComplete, hooks.EventFailed)
	}

	return manager
}

func printUsage() {
	fmt.Printf(`%s

Usage:
  oneclick [OPTIONS] COMMAND [ARGS]

Downloads a software catalog, validates every file against its
expected size and hash, and repairs anything that fails.

Commands:
  list                   List catalog entries
  search QUERY           Search the catalog
  download NAME...       Download and verify the named entries
  validate [NAME...]     Validate already-downloaded files
  stats                  Report download directory statistics
  interactive            Pick and download entries interactively

Options:
  -f, --catalog FILE     Catalog file (JSON)
  -P, --dir DIR          Download directory
  -c, --category NAME    Restrict to one category
      --all              Operate on every catalog entry
  -r, --retries N        Download attempts per item
  -T, --timeout DUR      Connection timeout
  -q, --quiet            Quiet mode
      --json             JSON output (stats command)
      --no-color         Disable colored output
  -h, --help             Show this help message
  -V, --version          Show version information

Advanced Options:
      --limit-rate RATE  Limit download speed (e.g., 10M, 500K)
      --proxy URL        Use proxy (http://host:port or socks5://host:port)
      --no-check-certificate  Skip TLS certificate verification
      --http3            Prefer HTTP/3 for https URLs
      --config FILE      Use custom config file
      --init-config      Generate default config file
      --metrics-addr A   Serve Prometheus metrics on this address
      --on-complete CMD  Run command after each completed item
      --on-error CMD     Run command after each failed item
      --webhook URL      Send webhook notification per item

Exit Codes:
  0  Success
  1  General error
  2  Parse/config error
  3  Catalog error
  4  Download or validation failure
  5  Interrupted (Ctrl+C)

Examples:
  oneclick -f catalog.json list
  oneclick -f catalog.json download "7-Zip" "Firefox"
  oneclick -f catalog.json --all -P /downloads download
  oneclick -f catalog.json validate --all
  oneclick -f catalog.json stats --json
  oneclick -f catalog.json interactive
`, version.Full())
}

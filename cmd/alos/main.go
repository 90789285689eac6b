package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"alos/internal/capture"
	"alos/internal/catalog"
	"alos/internal/config"
	"alos/internal/console"
	"alos/internal/dashboard"
	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
	"alos/internal/ticker"
	"alos/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values. Non-empty values override the config
// file.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	timezone   string
	console    bool
	once       bool
	snapshot   string
}

func main() {
	flags := parseFlags()

	if err := config.LoadEnvFile(flags.envPath); err != nil {
		appLog.Error("failed to load env file", err, "env_path", flags.envPath)
		os.Exit(1)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.timezone != "" {
		conf.Timezone = flags.timezone
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid flag overrides", err)
		os.Exit(1)
	}

	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	if conf.Log.File != "" {
		appLog.EnableFile(appLog.FileOptions{
			Path:       conf.Log.File,
			MaxSizeMB:  conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			MaxAgeDays: conf.Log.MaxAgeDays,
			Compress:   conf.Log.Compress,
		})
	}
	defer appLog.Sync()

	appLog.Info("alos starting", "version", version)

	cat, err := catalog.Load(conf.Catalog)
	if err != nil {
		appLog.Error("failed to load catalog", err, "catalog", conf.Catalog)
		os.Exit(1)
	}

	clock := schedule.NewClock(conf.Timezone)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", clock.Zone,
		"refresh", conf.RefreshCron,
		"catalog", conf.Catalog,
		"capture", conf.Capture.Enabled,
		"console", flags.console,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	if flags.once {
		printOnce(cat, clock)
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	sampler := ticker.New(clock, conf.RefreshCron)
	board := dashboard.NewBoard(cat, clock.Zone, clock.Instant())
	sampler.OnTick(board.Tick)

	server := web.NewServer(conf, cat, sampler)

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, cancel, conf, server, sampler, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	if conf.Capture.Enabled {
		opts := captureOptions(conf, conf.Capture.Output)
		if err := sampler.AddJob("capture", conf.Capture.Refresh, func(ctx context.Context) error {
			return capture.Snapshot(ctx, opts)
		}); err != nil {
			appLog.Error("failed to schedule capture", err)
			os.Exit(1)
		}
	}

	if err := sampler.Start(ctx); err != nil {
		appLog.Error("failed to start clock sampler", err)
		os.Exit(1)
	}
	defer sampler.Stop()

	if flags.console {
		cli := console.NewService(board, cancel)
		if err := cli.Start(ctx); err != nil {
			appLog.Error("failed to start console", err)
			os.Exit(1)
		}
		defer cli.Stop()
	}

	if err := server.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		cancel()
	}
	appLog.Info("alos exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./alos.yaml", "Path to config file (created with defaults on first run)")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional .env file with ALOS_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.timezone, "tz", "", "IANA timezone of the viewer (overrides config if set)")
	flag.BoolVar(&cfg.console, "console", false, "Run the interactive console alongside the HTTP server")
	flag.BoolVar(&cfg.once, "once", false, "Print today's focus and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture one PNG snapshot of the dashboard to this path and exit")

	flag.Parse()

	return cfg
}

// printOnce writes today's day-type, focus and sequence to stdout.
func printOnce(cat *model.Catalog, clock schedule.Clock) {
	now := clock.Instant()
	v := dashboard.Compose(cat, dashboard.Selection{}, now, clock.Zone)

	fmt.Printf("%s | %s (%s %s)\n", v.Day.Label, v.Day.Theme, now.In(clock.Location()).Format("15:04"), clock.Zone)
	if v.Active != nil && v.Focus.BlockID != "" {
		fmt.Printf("%s: %s %s\n", v.Focus.Label(), v.Active.Block.Time, v.Active.Block.Title)
	} else {
		fmt.Println(v.Focus.Label())
	}
	for _, t := range v.Tiles {
		tag := ""
		if t.Tag != "" {
			tag = " [" + t.Tag + "]"
		}
		fmt.Printf("  %-13s %s%s\n", t.Block.Time, t.Block.Title, tag)
	}
}

// runSnapshot binds the listen address, serves the UI just long enough to
// capture it once, and shuts down. A taken port fails before any capture.
func runSnapshot(ctx context.Context, cancel context.CancelFunc, conf *config.Config, server *web.Server, sampler *ticker.Sampler, output string) error {
	sampler.Sample()

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", conf.Listen, err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ctx, ln) }()

	opts := captureOptions(conf, output)
	opts.URL = "http://" + loopbackAddr(ln.Addr().String()) + "/"
	err = capture.Snapshot(ctx, opts)
	cancel()
	if serr := <-errCh; serr != nil && err == nil {
		err = serr
	}
	return err
}

func captureOptions(conf *config.Config, output string) capture.Options {
	opts := capture.Options{
		URL:        "http://" + loopbackAddr(conf.Listen) + "/",
		OutputPath: output,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    conf.CaptureTimeout(),
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return opts
}

// loopbackAddr turns a wildcard listen address into one Chromium can dial.
func loopbackAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

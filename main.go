package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/shazow/wifiman/internal/kv"
	"github.com/shazow/wifiman/internal/kv/sqlite"
	wifilog "github.com/shazow/wifiman/internal/log"
	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/internal/tui"
	"github.com/shazow/wifiman/usage"
	"github.com/shazow/wifiman/wifi/connect"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

const debugLogFile = "wifiman-debug.log"

// app holds the global flags and builds the manager for a command.
type app struct {
	iface     string
	storePath string
	debug     bool
	timeout   time.Duration

	program tui.Program
	logs    *wifilog.TUIHandler
}

// open builds the logger, the usage store and the manager. In TUI mode log
// records are forwarded to the program and connection transitions become
// TUI messages. The returned func releases what open acquired.
func (a *app) open(tuiMode bool, opts ...manager.Option) (*manager.Manager, func(), error) {
	var closers []io.Closer
	cleanup := func() { closeAll(closers) }

	var w io.Writer = os.Stderr
	level := slog.LevelWarn
	if tuiMode {
		// Stderr is the terminal the TUI draws on.
		w = nil
	}
	if a.debug {
		f, err := wifilog.OpenDebugFile(debugLogFile)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		w, level = f, slog.LevelDebug
	}
	base := wifilog.NewBaseHandler(w, level)

	if a.timeout > 0 {
		opts = append(opts, manager.WithConnectOptions(connect.WithTiming(connect.DefaultPollInterval, a.timeout)))
	}

	var logger *slog.Logger
	if tuiMode {
		a.logs = wifilog.NewTUIHandler(base, a.program.Send)
		logger = slog.New(a.logs)
		opts = append(opts, manager.WithConnectOptions(connect.WithObserver(func(t connect.Transition) {
			a.program.Send(tui.TransitionMsg(t))
		})))
	} else {
		logger = slog.New(base)
	}
	slog.SetDefault(logger)

	var store kv.Store
	path := a.storePath
	if path == "" {
		var err error
		if path, err = sqlite.DefaultPath(); err != nil {
			logger.Warn("no usage store location, usage will not be saved", "error", err)
		}
	}
	if path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			logger.Warn("could not open usage store, usage will not be saved", "path", path, "error", err)
		} else {
			closers = append(closers, db)
			store = db
		}
	}
	if store == nil {
		store = &kv.Memory{}
	}

	backend, err := GetBackend(logger, a.iface)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return manager.New(backend, usage.New(store), logger, opts...), cleanup, nil
}

// closeAll closes closers in reverse order. Failures are logged, not returned.
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// main is the entry point of the application
func main() {
	var (
		a           app
		rootFlagSet = flag.NewFlagSet("wifiman", flag.ExitOnError)
		theme       = rootFlagSet.String("theme", "", "path to theme toml file (env: WIFIMAN_THEME)")
		rescan      = rootFlagSet.Duration("rescan", tui.ScanSlow, "background refresh interval in the TUI, 0 disables it (env: WIFIMAN_RESCAN)")
		version     = rootFlagSet.Bool("version", false, "display version")
	)
	rootFlagSet.StringVar(&a.iface, "interface", "", "wireless interface to use, detected when empty (env: WIFIMAN_INTERFACE)")
	rootFlagSet.StringVar(&a.storePath, "store", "", "path to the usage database (env: WIFIMAN_STORE)")
	rootFlagSet.DurationVar(&a.timeout, "timeout", connect.DefaultDeadline, "how long to wait for a joined network to come up (env: WIFIMAN_TIMEOUT)")
	rootFlagSet.BoolVar(&a.debug, "debug", false, "write a debug log to "+debugLogFile)
	rootFlagSet.String("config", "", "config file with one flag per line (optional)")

	ffOptions := []ff.Option{
		ff.WithEnvVarPrefix("WIFIMAN"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}

	listFlagSet := flag.NewFlagSet("list", flag.ExitOnError)
	listJSON := listFlagSet.Bool("json", false, "output in JSON format")
	listCmd := &ffcli.Command{
		Name:       "list",
		ShortUsage: "wifiman list [-json]",
		ShortHelp:  "List wifi networks, most relevant first",
		FlagSet:    listFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := a.open(false)
			if err != nil {
				return err
			}
			defer cleanup()
			return runList(ctx, os.Stdout, *listJSON, mgr)
		},
	}

	connectFlagSet := flag.NewFlagSet("connect", flag.ExitOnError)
	connectPassword := connectFlagSet.String("password", "", "password for the network, prompted for when needed")
	connectCmd := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "wifiman connect [-password <password>] <ssid>",
		ShortHelp:  "Connect to a wifi network",
		FlagSet:    connectFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("connect requires an ssid")
			}
			mgr, cleanup, err := a.open(false)
			if err != nil {
				return err
			}
			defer cleanup()
			return runConnect(ctx, os.Stdout, args[0], *connectPassword, terminalPrompt, mgr)
		},
	}

	toggleCmd := &ffcli.Command{
		Name:      "toggle",
		ShortHelp: "Turn the wifi radio on or off",
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := a.open(false, manager.WithRadioSettle(0))
			if err != nil {
				return err
			}
			defer cleanup()
			return runToggle(ctx, os.Stdout, mgr)
		},
	}

	shareCmd := &ffcli.Command{
		Name:       "share",
		ShortUsage: "wifiman share <ssid>",
		ShortHelp:  "Print a QR code that joins a wifi network",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("share requires an ssid")
			}
			mgr, cleanup, err := a.open(false)
			if err != nil {
				return err
			}
			defer cleanup()
			return runShare(ctx, os.Stdout, args[0], mgr)
		},
	}

	usageFlagSet := flag.NewFlagSet("usage", flag.ExitOnError)
	usageJSON := usageFlagSet.Bool("json", false, "output in JSON format")
	usageCmd := &ffcli.Command{
		Name:       "usage",
		ShortUsage: "wifiman usage [-json]",
		ShortHelp:  "Show how often each network was joined",
		FlagSet:    usageFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := a.open(false)
			if err != nil {
				return err
			}
			defer cleanup()
			return runUsage(ctx, os.Stdout, *usageJSON, mgr)
		},
	}

	root := &ffcli.Command{
		ShortUsage:  "wifiman [flags] <subcommand> [args...]",
		FlagSet:     rootFlagSet,
		Options:     ffOptions,
		Subcommands: []*ffcli.Command{listCmd, connectCmd, toggleCmd, shareCmd, usageCmd},
		Exec: func(ctx context.Context, args []string) error {
			mgr, cleanup, err := a.open(true)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.program.Run(mgr, tui.WithLogs(a.logs), tui.WithRescanInterval(*rescan))
		},
	}

	// Parse the root flags first so the theme is loaded and -version is
	// handled before any subcommand runs. root.ParseAndRun parses them again.
	err := ff.Parse(rootFlagSet, os.Args[1:], append(ffOptions, ff.WithIgnoreUndefined(true))...)
	if err != nil {
		if err == flag.ErrHelp {
			root.FlagSet.Usage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if *version {
		fmt.Println(Version)
		os.Exit(0)
	}

	if err := tui.LoadThemeFile(*theme); err != nil {
		fmt.Fprintf(os.Stderr, "error loading theme: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

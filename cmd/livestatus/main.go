package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/QwQ-dev/LiveStatus/internal/config"
	"github.com/QwQ-dev/LiveStatus/internal/daemon"
	"github.com/QwQ-dev/LiveStatus/internal/database"
	"github.com/QwQ-dev/LiveStatus/internal/reporter"
	"github.com/QwQ-dev/LiveStatus/internal/settings"
	"github.com/QwQ-dev/LiveStatus/pkg/detector"
	"github.com/QwQ-dev/LiveStatus/pkg/utils"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "livestatus"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "start":
		startDaemon(args)
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "config":
		configCommand(args)
	case "enable":
		setServiceEnabled(true)
	case "disable":
		setServiceEnabled(false)
	case "autostart":
		autostart()
	case "errors":
		showErrors(args)
	case "report":
		showReport(args)
	case "version":
		fmt.Printf("livestatus version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`livestatus - Report the foreground application to a status server

Usage:
  livestatus <command> [options]

Commands:
  start [--foreground] [--supervise]
                       Start the reporting daemon
  stop                 Stop the reporting daemon
  status               Show daemon status and the current foreground app
  config show          Show configuration and settings
  config set KEY VAL   Change a setting (%s)
  enable               Start the daemon automatically at login
  disable              Do not start the daemon at login
  autostart            Login entry point; starts only if enabled and configured
  errors [--limit N]   Show recent delivery failures
  report [period] [--json]
                       Summarize delivery failures (day, week, month)
  version              Show version information
  help                 Show this help message

Examples:
  livestatus config set url https://status.example.com/api/status
  livestatus config set auth_key my-secret
  livestatus start
  livestatus status
  livestatus report week
  livestatus stop

Environment Variables:
  LIVESTATUS_SETTINGS         Settings file (.toml, .yaml or .yml)
  LIVESTATUS_DB_PATH          Database file path
  LIVESTATUS_PID_FILE         PID file path
  LIVESTATUS_LOCK_FILE        Singleton lock file path
  LIVESTATUS_LOG_FILE         Daemon log file path
  LIVESTATUS_STEP_TIMEOUT_MS  Detector step timeout in milliseconds
  LIVESTATUS_PUSH_EVENTS      Follow window change events (true/false)
  LIVESTATUS_HTTP_TIMEOUT     Publish timeout in seconds
  LIVESTATUS_WAKE_TIMEOUT     Wake inhibitor lapse in seconds
  LIVESTATUS_WEB              Serve the local status API (true/false)
  LIVESTATUS_WEB_HOST         Local status API host
  LIVESTATUS_WEB_PORT         Local status API port

Version: %s
`, strings.Join(settings.Keys(), ", "), version)
}

func loadConfig() *config.Config {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func openSettings(cfg *config.Config) *settings.Store {
	path := cfg.Settings.Path
	if path == "" {
		var err error
		path, err = settings.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to locate settings: %v", err)
		}
	}

	store, err := settings.Open(path)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	return store
}

func openRepository(cfg *config.Config) (*database.Repository, func()) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return database.NewRepository(db), func() { db.Close() }
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LockFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LockFile)
	store := openSettings(cfg)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
	}
	fmt.Printf("Configured: %v\n", store.IsConfigured())
	fmt.Printf("Update Interval: %v\n", store.Interval())
	fmt.Printf("Start at Login: %v\n", store.ServiceEnabled())

	repo, closeDB := openRepository(cfg)
	defer closeDB()

	row, err := repo.GetIndicator()
	switch {
	case err != nil:
		fmt.Printf("Indicator: unavailable (%v)\n", err)
	case row != nil:
		fmt.Printf("Indicator: %s (%s ago)\n", row.Message, utils.Ago(row.UpdatedAt))
	default:
		fmt.Println("Indicator: none")
	}

	// Show the current foreground app even when the daemon is not running
	platform, err := detector.NewPlatform()
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	defer platform.Close()

	det := detector.New(platform, detector.WithStepTimeout(cfg.Detector.StepTimeout))
	st := detector.NewStatusProvider(det, platform.Screen).Current(context.Background())

	fmt.Printf("\nCurrent Status:\n")
	fmt.Printf("  Title: %s\n", st.Title)
	fmt.Printf("  App: %s\n", st.AppName)
	fmt.Printf("  Platform: %s\n", st.PlatformName)
	fmt.Printf("  Detector: %s\n", det)
}

func configCommand(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: livestatus config show | livestatus config set KEY VALUE")
		os.Exit(1)
	}

	cfg := config.New()
	store := openSettings(cfg)

	switch args[0] {
	case "show":
		fmt.Println(cfg.String())
		fmt.Printf("Settings File: %s\n", store.Path())
		fmt.Println(store.Values().String())
	case "set":
		if len(args) != 3 {
			fmt.Printf("Usage: livestatus config set KEY VALUE (keys: %s)\n", strings.Join(settings.Keys(), ", "))
			os.Exit(1)
		}
		if err := store.Set(args[1], args[2]); err != nil {
			log.Fatalf("Failed to change setting: %v", err)
		}
		if err := store.Save(); err != nil {
			log.Fatalf("Failed to save settings: %v", err)
		}
		fmt.Printf("%s updated\n", args[1])
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

func setServiceEnabled(enabled bool) {
	cfg := config.New()
	store := openSettings(cfg)

	store.SetServiceEnabled(enabled)
	if err := store.Save(); err != nil {
		log.Fatalf("Failed to save settings: %v", err)
	}

	if enabled {
		fmt.Println("Service enabled; `livestatus autostart` will start it at login")
		if !store.IsConfigured() {
			fmt.Println("Warning: server URL or auth key not configured yet")
		}
	} else {
		fmt.Println("Service disabled")
	}
}

func autostart() {
	cfg := loadConfig()
	store := openSettings(cfg)

	available := false
	if platform, err := detector.NewPlatform(); err == nil {
		available = true
		platform.Close()
	}

	ok, reason := daemon.ShouldAutostart(daemon.AutostartCheck{
		ServiceEnabled:    store.ServiceEnabled(),
		Configured:        store.IsConfigured(),
		DetectorAvailable: available,
	})
	if !ok {
		log.Printf("Not starting at login: %s", reason)
		return
	}

	dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LockFile)
	if running, pid, _ := dm.IsRunning(); running {
		log.Printf("Daemon is already running (PID: %d)", pid)
		return
	}

	detach(cfg, []string{"start", "--foreground", "--supervise"})
}

func showErrors(args []string) {
	flags := pflag.NewFlagSet("errors", pflag.ExitOnError)
	limit := flags.IntP("limit", "n", 20, "number of failures to show")
	flags.Parse(args)

	if *limit < 1 {
		log.Fatalf("--limit must be at least 1")
	}

	cfg := config.New()
	repo, closeDB := openRepository(cfg)
	defer closeDB()

	logs, err := repo.RecentErrors(*limit)
	if err != nil {
		log.Fatalf("Failed to read delivery failures: %v", err)
	}

	if len(logs) == 0 {
		fmt.Println("No delivery failures recorded")
		return
	}

	for _, e := range logs {
		age := utils.Ago(e.Timestamp)
		fmt.Printf("%-20s %5s ago  %-9s  %-20s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), age, e.Kind, e.AppName, e.ErrorMsg)
	}
}

func showReport(args []string) {
	flags := pflag.NewFlagSet("report", pflag.ExitOnError)
	asJSON := flags.Bool("json", false, "print the report as JSON")
	flags.Parse(args)

	period := "day"
	if flags.NArg() > 0 {
		period = flags.Arg(0)
	}

	cfg := config.New()
	repo, closeDB := openRepository(cfg)
	defer closeDB()

	rep := reporter.New(repo)
	report, err := rep.GenerateReport(period)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if *asJSON {
		out, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format report: %v", err)
		}
		fmt.Println(out)
		return
	}
	fmt.Print(rep.FormatReportText(report))
}

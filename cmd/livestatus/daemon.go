package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/QwQ-dev/LiveStatus/internal/config"
	"github.com/QwQ-dev/LiveStatus/internal/daemon"
	"github.com/QwQ-dev/LiveStatus/internal/tracker"
	"github.com/QwQ-dev/LiveStatus/internal/web"
)

func startDaemon(args []string) {
	flags := pflag.NewFlagSet("start", pflag.ExitOnError)
	foreground := flags.BoolP("foreground", "f", false, "run in the foreground instead of detaching")
	supervise := flags.Bool("supervise", false, "restart the daemon if it is killed")
	flags.Parse(args)

	cfg := loadConfig()

	// Check if already running
	dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LockFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}

	if !*foreground && !daemon.IsChild() {
		childArgs := []string{"start", "--foreground"}
		if *supervise {
			childArgs = append(childArgs, "--supervise")
		}
		detach(cfg, childArgs)
		return
	}

	if daemon.IsChild() {
		redirectLogs(cfg)
	}

	if *supervise {
		runSupervisor()
		return
	}

	runDaemon(cfg, dm)
}

func detach(cfg *config.Config, args []string) {
	process, err := daemon.Detach(append([]string{os.Args[0]}, args...))
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	if cfg.Web.Enabled {
		fmt.Printf("Status API available at: http://%s\n", cfg.WebAddress())
	}
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
}

func redirectLogs(cfg *config.Config) {
	logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
	}
}

// runSupervisor re-runs this binary as the worker until it exits cleanly.
func runSupervisor() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	executable, err := os.Executable()
	if err != nil {
		log.Fatalf("Failed to locate executable: %v", err)
	}

	sup := daemon.NewSupervisor(func() *exec.Cmd {
		cmd := exec.Command(executable, "start", "--foreground")
		cmd.Env = append(os.Environ(), daemon.ChildEnv+"=1")
		return cmd
	})

	log.Println("Supervising livestatus daemon...")
	if err := sup.Run(ctx); err != nil {
		log.Fatalf("Supervisor error: %v", err)
	}
	log.Printf("Supervisor stopped after %d restarts", sup.Restarts)
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon) {
	if err := dm.Lock(); err != nil {
		log.Fatalf("%v", err)
	}
	defer dm.Unlock()

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	store := openSettings(cfg)
	repo, closeDB := openRepository(cfg)
	defer closeDB()

	opts, closers := tracker.DefaultOptions(repo)
	defer closeAll(closers)

	svc := tracker.NewService(cfg, store, opts)
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var webServer *web.Server
	if cfg.Web.Enabled {
		handler := web.NewHandler(store, svc.Scheduler(), svc.Indicator(), repo)
		webServer = web.NewServer(cfg, handler)
		go func() {
			if err := webServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Web server error: %v", err)
			}
		}()
	}

	log.Println("Starting livestatus daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Tracker error: %v", err)
	}
	log.Println("Received shutdown signal")

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	if err := repo.ClearIndicator(); err != nil {
		log.Printf("Warning: %v", err)
	}
	log.Println("Daemon stopped successfully")
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("Error closing %T: %v", c, err)
		}
	}
}

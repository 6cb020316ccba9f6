// Command kcore boots the simulated kernel with the sh shell as init.
//
// Console input is read from stdin. The first SIGINT kills the foreground
// process, a second one within a second shuts the kernel down.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/viant/afs"
	"github.com/viant/kcore"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/event"
	"github.com/viant/kcore/service/meta"
)

func main() {
	var (
		configURL   = flag.String("config", "", "Config YAML location (file path or afs URL)")
		manifest    = flag.String("manifest", "", "Boot manifest location, overrides boot.manifest")
		traceOutput = flag.String("trace", "", "Write OpenTelemetry spans to this file, - for stdout")
		logLevel    = flag.String("log", "", "Log level: debug, info, warn, error")
		interactive = flag.Bool("i", true, "Read shell commands from stdin after the boot script")
		watch       = flag.Bool("events", false, "Log process lifecycle events")
	)
	flag.Parse()

	config, metaService, err := loadConfig(*configURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kcore: %v\n", err)
		os.Exit(2)
	}
	if *manifest != "" {
		config.Boot.Manifest = *manifest
	}
	if *logLevel != "" {
		config.Log.Level = *logLevel
	}
	if *traceOutput != "" {
		config.Trace.Enabled = true
		if *traceOutput != "-" {
			config.Trace.Output = *traceOutput
		}
	}
	config.Boot.Interactive = *interactive
	config.Boot.Script = append(config.Boot.Script, flag.Args()...)
	if *watch {
		config.Events.Enabled = true
	}
	if err = config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "kcore: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.Log.SlogLevel()}))
	slog.SetDefault(logger)

	status, err := run(config, metaService, logger)
	if err != nil {
		logger.Error("kernel failed", "error", err)
		os.Exit(1)
	}
	os.Exit(int(status))
}

func loadConfig(location string) (*kcore.Config, *meta.Service, error) {
	if location == "" {
		wd, _ := os.Getwd()
		return kcore.DefaultConfig(), meta.New(afs.New(), wd), nil
	}
	baseURL := filepath.Dir(location)
	metaService := meta.New(afs.New(), baseURL)
	config, err := kcore.LoadConfig(context.Background(), metaService, filepath.Base(location))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return config, metaService, nil
}

func run(config *kcore.Config, metaService *meta.Service, logger *slog.Logger) (int32, error) {
	srv, err := kcore.New(config, kcore.WithLogger(logger), kcore.WithMetaService(metaService))
	if err != nil {
		return 0, err
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := srv.Runtime()

	if events := srv.Events(); events != nil {
		event.SetListenerOf[process.Change](ctx, events, func(evt *event.Event[process.Change]) {
			change := evt.Data
			logger.Info("process "+string(change.Type), "pid", change.PID, "name", change.Name,
				"state", change.State, "priority", change.Priority, "parent", change.Parent)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		var last time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if sig == syscall.SIGTERM || time.Since(last) < time.Second {
					logger.Info("shutting down", "signal", sig.String())
					cancel()
					return
				}
				last = time.Now()
				runtime.Interrupt()
			}
		}
	}()

	if config.Boot.Interactive {
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := runtime.Feed(ctx, scanner.Text()); err != nil {
					return
				}
			}
			runtime.CloseInput()
		}()
	} else {
		runtime.CloseInput()
	}

	logger.Debug("booting", "boot_id", runtime.BootID(), "shell", config.Boot.Shell)
	status, err := srv.Boot(ctx)
	if err != nil && ctx.Err() != nil {
		return status, nil
	}
	return status, err
}

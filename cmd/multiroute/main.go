package main

import (
	"context"
	"flag"
	"os"
	"syscall"

	"github.com/hashicorp/errwrap"

	"multiroute/internal/build"
	"multiroute/internal/config"
	"multiroute/internal/publish"
	"multiroute/pkg/log"
)

func main() {
	configPath := flag.String("config", "config/routes.yaml", "pipeline configuration file")
	publicRepo := flag.String("public-repo", "", "owner/repo the generated files are published under")
	publicBranch := flag.String("public-branch", "main", "branch the generated files are published on")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	logger := log.NewLogger(level, os.Stderr, "[multiroute] ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}

	ctx, cancel := CancelContextWithSignal(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	builder := &build.Builder{Logger: logger, Config: cfg}
	res, err := builder.Run(ctx)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	writer := publish.NewWriter(cfg, *publicRepo, *publicBranch, logger)
	if err := writer.Write(res.Warehouses, res.Records); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	// Degraded sources and dropped candidates are reported but never
	// change the exit status; the next scheduled run is the retry.
	if res.Warnings != nil {
		reportWarnings(logger, res.Warnings)
	}
}

func reportWarnings(logger log.Logger, err error) {
	w, ok := err.(errwrap.Wrapper)
	if !ok {
		logger.Warnf("%v", err)
		return
	}

	errs := w.WrappedErrors()
	logger.Warnf("%d failures degraded this run:", len(errs))
	for _, err := range errs {
		logger.Warnf("* %v", err)
	}
}

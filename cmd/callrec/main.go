package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/justa-cai/glite-go/internal/cli"
	"github.com/justa-cai/glite-go/internal/config"
	"github.com/justa-cai/glite-go/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("GLITE_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// 控制命令只输出警告以上的日志
	level := "warn"
	if logging.ParseLevel(cfg.LogLevel) == logrus.DebugLevel {
		level = "debug"
	}
	if _, err := logging.Setup(logging.Options{Level: level}); err != nil {
		return err
	}

	return cli.NewRootCmd(&cli.Dependencies{Config: cfg}).Execute()
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sensorscan/sensorscan/internal/config"
	"github.com/sensorscan/sensorscan/internal/hwmon"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Error("load config", "err", err)
			os.Exit(1)
		}
	}
	hwmon.SetSysfsRoot(cfg.Discovery.SysfsRoot)

	chips, err := hwmon.Discover(logger)
	if err != nil {
		logger.Error("discover sensors", "err", err)
		os.Exit(1)
	}

	ignored := make(map[string]bool)
	for _, name := range cfg.Discovery.IgnoreChips {
		ignored[name] = true
	}

	for _, chip := range chips {
		if ignored[chip.Name] {
			chip.Close()
			continue
		}
		for _, in := range chip.Inputs {
			fmt.Printf("%s: %g%s\n", in.Label(), in.Value(), in.Unit())
		}
		chip.Close()
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sensorscan/sensorscan/internal/config"
	dbussvc "github.com/sensorscan/sensorscan/internal/dbus"
	"github.com/sensorscan/sensorscan/internal/hwmon"
)

// kindHandler wraps an slog.Handler and filters records by the sensor kind
// carried in a "topic" attribute. Records without a topic always pass
// through (startup messages, errors). Records with a topic only pass if
// that topic is enabled.
type kindHandler struct {
	inner  slog.Handler
	topics map[string]bool
}

func (h *kindHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *kindHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.topics["all"] {
		return h.inner.Handle(ctx, r)
	}
	topic := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "topic" {
			topic = a.Value.String()
			return false
		}
		return true
	})
	if topic != "" && !h.topics[topic] {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *kindHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &kindHandler{inner: h.inner.WithAttrs(attrs), topics: h.topics}
}

func (h *kindHandler) WithGroup(name string) slog.Handler {
	return &kindHandler{inner: h.inner.WithGroup(name), topics: h.topics}
}

// inventory holds the current chip set. The mutex covers both the slice and
// the value reads beneath it, so a rescan can close old handles without
// racing the D-Bus snapshot methods.
type inventory struct {
	mu    sync.Mutex
	chips []*hwmon.Chip
}

func (v *inventory) replace(chips []*hwmon.Chip) {
	v.mu.Lock()
	old := v.chips
	v.chips = chips
	v.mu.Unlock()
	for _, c := range old {
		c.Close()
	}
}

func (v *inventory) Describe() []dbussvc.ChipInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	infos := make([]dbussvc.ChipInfo, 0, len(v.chips))
	for _, c := range v.chips {
		info := dbussvc.ChipInfo{Name: c.Name}
		for _, in := range c.Inputs {
			info.Inputs = append(info.Inputs, dbussvc.InputInfo{
				Label: in.Label(),
				Kind:  in.Kind().String(),
				Unit:  in.Unit(),
			})
		}
		infos = append(infos, info)
	}
	return infos
}

func (v *inventory) Snapshot() []dbussvc.Reading {
	v.mu.Lock()
	defer v.mu.Unlock()
	var readings []dbussvc.Reading
	for _, c := range v.chips {
		for _, in := range c.Inputs {
			readings = append(readings, dbussvc.Reading{
				Chip:  c.Name,
				Label: in.Label(),
				Kind:  in.Kind().String(),
				Value: in.Value(),
				Unit:  in.Unit(),
			})
		}
	}
	return readings
}

func main() {
	verbose := flag.Bool("verbose", false, "enable all reading logs (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated sensor kind topics: voltage,fan,temp,other (or 'all')")
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	topics := make(map[string]bool)
	if *verbose {
		topics["all"] = true
	}
	if *logFlag != "" {
		for _, t := range strings.Split(*logFlag, ",") {
			topics[strings.TrimSpace(t)] = true
		}
	}

	handler := &kindHandler{
		inner:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		topics: topics,
	}
	logger := slog.New(handler)

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

	inv := &inventory{}
	if err := rescan(inv, cfg, logger); err != nil {
		logger.Error("discover sensors", "err", err)
		os.Exit(1)
	}

	svc := dbussvc.NewService(inv)
	conn, err := svc.Export()
	if err != nil {
		logger.Warn("D-Bus unavailable, continuing without it", "err", err)
	} else {
		defer conn.Close()
		logger.Info("D-Bus service registered", "name", "org.sensorscan.Scanner")
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	logger.Info("sensorscan-daemon started, reading every 5s")
	for {
		select {
		case <-ticker.C:
			for _, r := range inv.Snapshot() {
				logger.Info("reading",
					"topic", r.Kind,
					"chip", r.Chip,
					"label", r.Label,
					"value", r.Value,
					"unit", strings.TrimSpace(r.Unit))
			}
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, rescanning sensors")
				if err := rescan(inv, cfg, logger); err != nil {
					logger.Error("rescan sensors", "err", err)
				}
				continue
			}
			logger.Info("shutting down")
			inv.replace(nil)
			return
		}
	}
}

// rescan runs discovery, drops ignored chips, and swaps the result into the
// inventory.
func rescan(inv *inventory, cfg *config.Config, logger *slog.Logger) error {
	chips, err := hwmon.Discover(logger)
	if err != nil {
		return err
	}

	ignored := make(map[string]bool)
	for _, name := range cfg.Discovery.IgnoreChips {
		ignored[name] = true
	}

	kept := chips[:0]
	for _, c := range chips {
		if ignored[c.Name] {
			c.Close()
			continue
		}
		kept = append(kept, c)
	}
	inv.replace(kept)

	inputs := 0
	for _, c := range kept {
		inputs += len(c.Inputs)
	}
	logger.Info("sensors discovered", "chips", len(kept), "inputs", inputs)
	return nil
}

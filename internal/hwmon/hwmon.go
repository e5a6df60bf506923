// Package hwmon discovers hardware-monitoring sensors under the sysfs
// hwmon class, classifies their value files by sensor kind, and reads
// scaled values from them.
package hwmon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sysfsRoot is the sysfs mount point. Tests and the config override swap it.
var sysfsRoot = "/sys"

// SetSysfsRoot overrides the sysfs mount point, for containers and tests.
func SetSysfsRoot(root string) { sysfsRoot = root }

// Chip is one hardware-monitoring source: a directory under class/hwmon
// with a name file and zero or more sensor inputs. The input set is fixed
// at load time; there is no live re-scan.
type Chip struct {
	Name   string
	Inputs []*Input
}

// LoadChip reads one hwmon directory. The name file must be readable.
// Individual inputs that fail to classify or open are logged and skipped
// so one malformed sensor file cannot hide the rest of the chip.
func LoadChip(dir string, log *slog.Logger) (*Chip, error) {
	if log == nil {
		log = slog.Default()
	}

	data, err := os.ReadFile(filepath.Join(dir, "name"))
	if err != nil {
		return nil, fmt.Errorf("read chip name: %w", err)
	}
	name := strings.TrimSuffix(string(data), "\n")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list chip dir: %w", err)
	}

	chip := &Chip{Name: name}
	for _, ent := range entries {
		if !strings.HasSuffix(ent.Name(), "_input") {
			continue
		}
		in, err := NewInput(filepath.Join(dir, ent.Name()), log)
		if err != nil {
			log.Debug("skip input", "chip", name, "file", ent.Name(), "err", err)
			continue
		}
		chip.Inputs = append(chip.Inputs, in)
	}
	return chip, nil
}

// Close releases every input's file handle.
func (c *Chip) Close() error {
	var firstErr error
	for _, in := range c.Inputs {
		if err := in.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Discover enumerates every chip under <sysfsRoot>/class/hwmon. Failure to
// list the class directory is fatal; a chip that fails to load is logged
// and skipped, since one misbehaving device should not hide the others.
func Discover(log *slog.Logger) ([]*Chip, error) {
	if log == nil {
		log = slog.Default()
	}

	classDir := filepath.Join(sysfsRoot, "class/hwmon")
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return nil, fmt.Errorf("list hwmon class: %w", err)
	}

	var chips []*Chip
	for _, ent := range entries {
		chip, err := LoadChip(filepath.Join(classDir, ent.Name()), log)
		if err != nil {
			log.Warn("skip chip", "dir", ent.Name(), "err", err)
			continue
		}
		chips = append(chips, chip)
	}
	return chips, nil
}

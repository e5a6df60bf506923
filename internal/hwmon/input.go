package hwmon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a sensor input by the type tag embedded in its filename.
type Kind int

const (
	Voltage Kind = iota
	Fan
	Temperature
	Other
)

func (k Kind) String() string {
	switch k {
	case Voltage:
		return "voltage"
	case Fan:
		return "fan"
	case Temperature:
		return "temp"
	default:
		return "other"
	}
}

var (
	// ErrMalformedName reports an _input filename without the expected
	// <type><index>_ prefix.
	ErrMalformedName = errors.New("input filename does not match <type><index>_ pattern")

	// ErrLabelFormat reports a label file that does not end with a newline.
	ErrLabelFormat = errors.New("label file does not end with a newline")
)

// inputNameRE splits an input filename into its type tag and index,
// e.g. "temp1_input" -> ("temp", "1").
var inputNameRE = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)_`)

// Input is one readable sensor value file. The file handle stays open for
// the lifetime of the Input so repeated reads need no reopen; kind and
// label are fixed at construction, only the measured value changes.
type Input struct {
	f     *os.File
	label string
	kind  Kind
	tag   string
	log   *slog.Logger
}

// NewInput classifies and opens the sensor value file at path. The filename
// must carry a <type><index>_ prefix. A sibling <type><index>_label file,
// when present, supplies the label; otherwise the stem itself is used.
func NewInput(path string, log *slog.Logger) (*Input, error) {
	if log == nil {
		log = slog.Default()
	}

	name := filepath.Base(path)
	m := inputNameRE.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrMalformedName)
	}
	tag := m[1]
	stem := m[1] + m[2]

	kind := Other
	switch tag {
	case "in":
		kind = Voltage
	case "fan":
		kind = Fan
	case "temp":
		kind = Temperature
	}

	label, err := readLabel(filepath.Join(filepath.Dir(path), stem+"_label"), stem)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	return &Input{f: f, label: label, kind: kind, tag: tag, log: log}, nil
}

// readLabel returns the label file's content with its single trailing
// newline removed, or fallback if the file does not exist. A label file
// without a trailing newline violates the sysfs format and fails the load.
func readLabel(path, fallback string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return "", fmt.Errorf("read label: %w", err)
	}
	s := string(data)
	if !strings.HasSuffix(s, "\n") {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrLabelFormat)
	}
	return s[:len(s)-1], nil
}

// Value reads the current raw value and scales it to its physical unit.
// Read and parse failures are logged and reported as 0 so one misbehaving
// sensor cannot take down a whole probe. Every call re-reads the file.
func (in *Input) Value() float64 {
	buf := make([]byte, 4096)
	n, err := in.f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		in.log.Warn("read sensor value", "label", in.label, "err", err)
		return 0
	}
	if n == 0 {
		in.log.Warn("empty sensor value file", "label", in.label)
		return 0
	}

	// Value files are a decimal integer plus one trailing newline.
	raw, err := strconv.ParseUint(string(buf[:n-1]), 10, 64)
	if err != nil {
		in.log.Warn("parse sensor value", "label", in.label, "err", err)
		return 0
	}

	v := float64(raw)
	if in.kind == Temperature {
		// Raw unit is thousandths of a degree.
		v /= 1000
	}
	return v
}

// Unit returns the display unit for this input's kind. Fan keeps its
// conventional leading space.
func (in *Input) Unit() string {
	switch in.kind {
	case Voltage:
		return "V"
	case Fan:
		return " RPM"
	case Temperature:
		return "°C"
	default:
		return in.tag
	}
}

// Label returns the human-readable name fixed at construction.
func (in *Input) Label() string { return in.label }

// Kind returns the sensor kind fixed at construction.
func (in *Input) Kind() Kind { return in.kind }

// Close releases the retained file handle.
func (in *Input) Close() error { return in.f.Close() }

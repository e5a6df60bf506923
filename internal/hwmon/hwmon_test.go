package hwmon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setTestSysfsRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	oldRoot := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() {
		sysfsRoot = oldRoot
	})

	return root
}

func writeTestChip(t *testing.T, dir, name string, files map[string]string) {
	t.Helper()

	writeTestFile(t, filepath.Join(dir, "name"), name+"\n")
	for file, contents := range files {
		writeTestFile(t, filepath.Join(dir, file), contents)
	}
}

func TestLoadChip_CollectsInputs(t *testing.T) {
	dir := t.TempDir()
	writeTestChip(t, dir, "coretemp", map[string]string{
		"temp1_input": "45230\n",
		"temp2_input": "51000\n",
		"temp2_label": "Core 0\n",
		"fan1_input":  "1200\n",
		"temp1_max":   "100000\n", // not an input, skipped
	})

	chip, err := LoadChip(dir, discardLogger())
	if err != nil {
		t.Fatalf("LoadChip() error = %v", err)
	}
	defer chip.Close()

	if chip.Name != "coretemp" {
		t.Fatalf("Name = %q, want coretemp", chip.Name)
	}
	if len(chip.Inputs) != 3 {
		t.Fatalf("len(Inputs) = %d, want 3", len(chip.Inputs))
	}

	labels := make(map[string]bool)
	for _, in := range chip.Inputs {
		labels[in.Label()] = true
	}
	for _, want := range []string{"fan1", "temp1", "Core 0"} {
		if !labels[want] {
			t.Fatalf("missing input with label %q, got %v", want, labels)
		}
	}
}

func TestLoadChip_SkipsMalformedInput(t *testing.T) {
	dir := t.TempDir()
	writeTestChip(t, dir, "nct6775", map[string]string{
		"bad_input":  "1\n", // no index digits, fails classification
		"fan1_input": "900\n",
	})

	chip, err := LoadChip(dir, discardLogger())
	if err != nil {
		t.Fatalf("LoadChip() error = %v", err)
	}
	defer chip.Close()

	if len(chip.Inputs) != 1 {
		t.Fatalf("len(Inputs) = %d, want 1", len(chip.Inputs))
	}
	if chip.Inputs[0].Label() != "fan1" {
		t.Fatalf("Label() = %q, want fan1", chip.Inputs[0].Label())
	}
}

func TestLoadChip_SkipsInputWithBrokenLabelFile(t *testing.T) {
	dir := t.TempDir()
	writeTestChip(t, dir, "nct6775", map[string]string{
		"temp1_input": "30000\n",
		"temp1_label": "no newline", // violates label format, input skipped
		"temp2_input": "40000\n",
	})

	chip, err := LoadChip(dir, discardLogger())
	if err != nil {
		t.Fatalf("LoadChip() error = %v", err)
	}
	defer chip.Close()

	if len(chip.Inputs) != 1 {
		t.Fatalf("len(Inputs) = %d, want 1", len(chip.Inputs))
	}
	if chip.Inputs[0].Label() != "temp2" {
		t.Fatalf("Label() = %q, want temp2", chip.Inputs[0].Label())
	}
}

func TestLoadChip_MissingNameFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "temp1_input"), "30000\n")

	_, err := LoadChip(dir, discardLogger())
	if err == nil {
		t.Fatal("LoadChip() error = nil, want read chip name error")
	}
	if !strings.Contains(err.Error(), "read chip name") {
		t.Fatalf("LoadChip() error = %q, want contains %q", err.Error(), "read chip name")
	}
}

func TestLoadChip_NoInputs(t *testing.T) {
	dir := t.TempDir()
	writeTestChip(t, dir, "acpitz", nil)

	chip, err := LoadChip(dir, discardLogger())
	if err != nil {
		t.Fatalf("LoadChip() error = %v", err)
	}

	if chip.Name != "acpitz" {
		t.Fatalf("Name = %q, want acpitz", chip.Name)
	}
	if len(chip.Inputs) != 0 {
		t.Fatalf("len(Inputs) = %d, want 0", len(chip.Inputs))
	}
}

func TestDiscover_EnumeratesChips(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeTestChip(t, filepath.Join(root, "class/hwmon/hwmon0"), "acpitz", map[string]string{
		"temp1_input": "27800\n",
	})
	writeTestChip(t, filepath.Join(root, "class/hwmon/hwmon1"), "coretemp", map[string]string{
		"temp1_input": "45230\n",
		"fan1_input":  "1200\n",
	})

	chips, err := Discover(discardLogger())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	defer func() {
		for _, c := range chips {
			c.Close()
		}
	}()

	if len(chips) != 2 {
		t.Fatalf("len(chips) = %d, want 2", len(chips))
	}
	if chips[0].Name != "acpitz" || chips[1].Name != "coretemp" {
		t.Fatalf("chip names = %q, %q; want acpitz, coretemp", chips[0].Name, chips[1].Name)
	}
	if len(chips[1].Inputs) != 2 {
		t.Fatalf("len(coretemp inputs) = %d, want 2", len(chips[1].Inputs))
	}
}

func TestDiscover_SkipsChipWithoutNameFile(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeTestChip(t, filepath.Join(root, "class/hwmon/hwmon0"), "coretemp", map[string]string{
		"temp1_input": "45230\n",
	})
	// hwmon1 has no name file and must not hide hwmon0.
	writeTestFile(t, filepath.Join(root, "class/hwmon/hwmon1/temp1_input"), "30000\n")

	chips, err := Discover(discardLogger())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	defer func() {
		for _, c := range chips {
			c.Close()
		}
	}()

	if len(chips) != 1 {
		t.Fatalf("len(chips) = %d, want 1", len(chips))
	}
	if chips[0].Name != "coretemp" {
		t.Fatalf("Name = %q, want coretemp", chips[0].Name)
	}
}

func TestDiscover_MissingClassDir(t *testing.T) {
	_ = setTestSysfsRoot(t)

	_, err := Discover(discardLogger())
	if err == nil {
		t.Fatal("Discover() error = nil, want list hwmon class error")
	}
	if !os.IsNotExist(err) && !strings.Contains(err.Error(), "list hwmon class") {
		t.Fatalf("Discover() error = %q, want list hwmon class error", err.Error())
	}
}

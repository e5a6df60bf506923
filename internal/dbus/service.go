package dbus

import (
	"encoding/json"
	"fmt"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	busName   = "org.sensorscan.Scanner"
	objPath   = "/org/sensorscan/Scanner"
	ifaceName = "org.sensorscan.Scanner"
)

const introspectXML = `
<node>
  <interface name="` + ifaceName + `">
    <method name="ListChips">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetReadings">
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// InputInfo describes one sensor input without its value.
type InputInfo struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Unit  string `json:"unit"`
}

// ChipInfo describes one monitoring chip and its inputs.
type ChipInfo struct {
	Name   string      `json:"name"`
	Inputs []InputInfo `json:"inputs"`
}

// Reading is one sensor value at the moment of the snapshot.
type Reading struct {
	Chip  string  `json:"chip"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Inventory supplies the current sensor inventory. Implementations must be
// safe for concurrent use; D-Bus method calls arrive on their own goroutine.
type Inventory interface {
	Describe() []ChipInfo
	Snapshot() []Reading
}

// Service exposes the sensor inventory over D-Bus.
type Service struct {
	inv Inventory
}

// NewService creates a new D-Bus service backed by inv.
func NewService(inv Inventory) *Service {
	return &Service{inv: inv}
}

// Export registers the service on the session bus.
func (s *Service) Export() (*godbus.Conn, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	conn.Export(s, objPath, ifaceName)
	conn.Export(introspect.Introspectable(introspectXML), objPath, "org.freedesktop.DBus.Introspectable")

	reply, err := conn.RequestName(busName, godbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", busName)
	}

	return conn, nil
}

// ListChips returns the discovered chips and their inputs as JSON.
func (s *Service) ListChips() (string, *godbus.Error) {
	data, err := json.Marshal(s.inv.Describe())
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}

// GetReadings returns a snapshot of every sensor's current value as JSON.
func (s *Service) GetReadings() (string, *godbus.Error) {
	data, err := json.Marshal(s.inv.Snapshot())
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}

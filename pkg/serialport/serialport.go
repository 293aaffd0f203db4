// Package serialport finds the Zigbee coordinator dongle that Zigbee2MQTT
// will drive after migration.
package serialport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is one serial device found on the host.
type Port struct {
	Name         string `json:"name"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
	Adapter      string `json:"adapter,omitempty"` // known coordinator model, if recognized
}

type usbID struct{ vid, pid string }

// knownAdapters maps USB ids of common Zigbee coordinators to a name.
var knownAdapters = map[usbID]string{
	{"1cf1", "0030"}: "ConBee II",
	{"1cf1", "0031"}: "ConBee III",
	{"0403", "6015"}: "ConBee / RaspBee (FTDI)",
	{"10c4", "ea60"}: "Silicon Labs CP210x (Sonoff ZBDongle-P, SkyConnect)",
	{"1a86", "55d4"}: "Sonoff ZBDongle-E",
	{"0451", "16a8"}: "TI CC2531",
	{"0451", "bef3"}: "TI CC1352/CC2652 LaunchPad",
}

// detailedPorts is replaced in tests.
var detailedPorts = enumerator.GetDetailedPortsList

// List returns the serial ports on this host, recognized coordinators first.
func List() ([]Port, error) {
	details, err := detailedPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		p := Port{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          strings.ToLower(d.VID),
			PID:          strings.ToLower(d.PID),
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		}
		if p.USB {
			p.Adapter = knownAdapters[usbID{p.VID, p.PID}]
		}
		ports = append(ports, p)
	}

	slices.SortStableFunc(ports, func(a, b Port) int {
		if (a.Adapter != "") != (b.Adapter != "") {
			if a.Adapter != "" {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	log.Debug().Int("ports", len(ports)).Msg("Serial ports enumerated")
	return ports, nil
}

// Suggest returns the first recognized coordinator in ports, or fallback.
func Suggest(ports []Port, fallback string) string {
	for _, p := range ports {
		if p.Adapter != "" {
			return p.Name
		}
	}
	return fallback
}

// Probe opens the port at 115200 baud, 8N1, and closes it again. It fails
// when the device is missing or held by another process such as deCONZ.
func Probe(path string) error {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", path, err)
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", path, err)
	}

	log.Debug().Str("port", path).Msg("Serial port available")
	return nil
}

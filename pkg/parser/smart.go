package parser

import "encoding/json"

// smartctl exit status is a bitmask; bit 1 covers "device open failed,
// or SMART not enabled". Reports carrying that bit are still valid
// payloads for devices without SMART support.
const SmartctlExitNotEnabled = 2

// SmartDevice is one device from `smartctl --scan -j`.
type SmartDevice struct {
	Name string // e.g. /dev/sda
	Type string // e.g. sat, nvme
}

// SmartReport is the health summary of one device from
// `smartctl -a -j <dev>`.
type SmartReport struct {
	Device       string
	ModelName    string
	SerialNumber string
	Healthy      bool
	HasHealth    bool

	TemperatureC   float64
	HasTemperature bool

	// Monotonic counters walked out of the attribute table (or the
	// NVMe health log's direct fields).
	PowerOnHours int64
	PowerCycles  int64

	// Raw ATA attribute values by normalized name.
	Attributes map[string]int64
}

// ParseSmartScan parses `smartctl --scan -j` output into the device
// list. Devices without a name are skipped.
func ParseSmartScan(data []byte) []SmartDevice {
	var raw struct {
		Devices []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"devices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	devices := make([]SmartDevice, 0, len(raw.Devices))
	for _, d := range raw.Devices {
		if d.Name == "" {
			continue
		}
		devices = append(devices, SmartDevice{Name: d.Name, Type: d.Type})
	}
	return devices
}

// ParseSmartReport parses `smartctl -a -j` output. The health boolean
// sits at smart_status.passed; power-on hours and power cycles come
// from their dedicated fields, with the ATA attribute table walked by
// name as a fallback and for sector-health attributes.
func ParseSmartReport(device string, data []byte) (SmartReport, bool) {
	var raw struct {
		ModelName    string `json:"model_name"`
		SerialNumber string `json:"serial_number"`
		SmartStatus  *struct {
			Passed bool `json:"passed"`
		} `json:"smart_status"`
		Temperature *struct {
			Current float64 `json:"current"`
		} `json:"temperature"`
		PowerOnTime *struct {
			Hours int64 `json:"hours"`
		} `json:"power_on_time"`
		PowerCycleCount int64 `json:"power_cycle_count"`
		AtaAttributes   *struct {
			Table []struct {
				Name string `json:"name"`
				Raw  struct {
					Value int64 `json:"value"`
				} `json:"raw"`
			} `json:"table"`
		} `json:"ata_smart_attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return SmartReport{}, false
	}

	report := SmartReport{
		Device:       device,
		ModelName:    raw.ModelName,
		SerialNumber: raw.SerialNumber,
		PowerCycles:  raw.PowerCycleCount,
		Attributes:   make(map[string]int64),
	}

	if raw.SmartStatus != nil {
		report.Healthy = raw.SmartStatus.Passed
		report.HasHealth = true
	}
	if raw.Temperature != nil {
		report.TemperatureC = raw.Temperature.Current
		report.HasTemperature = true
	}
	if raw.PowerOnTime != nil {
		report.PowerOnHours = raw.PowerOnTime.Hours
	}

	if raw.AtaAttributes != nil {
		for _, attr := range raw.AtaAttributes.Table {
			report.Attributes[attr.Name] = attr.Raw.Value
			switch attr.Name {
			case "Power_On_Hours":
				if report.PowerOnHours == 0 {
					report.PowerOnHours = attr.Raw.Value
				}
			case "Power_Cycle_Count":
				if report.PowerCycles == 0 {
					report.PowerCycles = attr.Raw.Value
				}
			}
		}
	}

	return report, true
}

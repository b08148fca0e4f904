package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smartReportSample = `{
	"model_name": "Samsung SSD 870 EVO 1TB",
	"serial_number": "S5Y1NL0T123456A",
	"smart_status": {"passed": true},
	"temperature": {"current": 31},
	"power_on_time": {"hours": 12345},
	"power_cycle_count": 321,
	"ata_smart_attributes": {
		"table": [
			{"id": 5, "name": "Reallocated_Sector_Ct", "raw": {"value": 0}},
			{"id": 9, "name": "Power_On_Hours", "raw": {"value": 12345}},
			{"id": 12, "name": "Power_Cycle_Count", "raw": {"value": 321}},
			{"id": 197, "name": "Current_Pending_Sector", "raw": {"value": 2}}
		]
	}
}`

func TestParseSmartReport(t *testing.T) {
	report, ok := ParseSmartReport("/dev/sda", []byte(smartReportSample))
	require.True(t, ok)

	assert.Equal(t, "/dev/sda", report.Device)
	assert.Equal(t, "Samsung SSD 870 EVO 1TB", report.ModelName)
	assert.True(t, report.HasHealth)
	assert.True(t, report.Healthy)
	assert.True(t, report.HasTemperature)
	assert.InDelta(t, 31, report.TemperatureC, 1e-9)
	assert.Equal(t, int64(12345), report.PowerOnHours)
	assert.Equal(t, int64(321), report.PowerCycles)
	assert.Equal(t, int64(0), report.Attributes["Reallocated_Sector_Ct"])
	assert.Equal(t, int64(2), report.Attributes["Current_Pending_Sector"])
}

func TestParseSmartReport_AttributeFallback(t *testing.T) {
	// NVMe-style reports have no ata attribute table; ATA reports
	// without top-level power fields fall back to the table.
	data := []byte(`{
		"model_name": "OLD-DISK",
		"smart_status": {"passed": false},
		"ata_smart_attributes": {"table": [
			{"name": "Power_On_Hours", "raw": {"value": 999}},
			{"name": "Power_Cycle_Count", "raw": {"value": 44}}
		]}
	}`)

	report, ok := ParseSmartReport("/dev/sdb", data)
	require.True(t, ok)
	assert.True(t, report.HasHealth)
	assert.False(t, report.Healthy)
	assert.Equal(t, int64(999), report.PowerOnHours)
	assert.Equal(t, int64(44), report.PowerCycles)
}

func TestParseSmartReport_NoHealthSection(t *testing.T) {
	report, ok := ParseSmartReport("/dev/sdc", []byte(`{"model_name": "X"}`))
	require.True(t, ok)
	assert.False(t, report.HasHealth)
	assert.False(t, report.HasTemperature)
}

func TestParseSmartReport_Malformed(t *testing.T) {
	_, ok := ParseSmartReport("/dev/sda", []byte("not json"))
	assert.False(t, ok)
}

func TestParseSmartScan(t *testing.T) {
	data := []byte(`{"devices": [
		{"name": "/dev/sda", "type": "sat"},
		{"name": "/dev/nvme0", "type": "nvme"},
		{"type": "sat"}
	]}`)

	devices := ParseSmartScan(data)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/sda", devices[0].Name)
	assert.Equal(t, "nvme", devices[1].Type)
}

func TestParseSmartScan_Malformed(t *testing.T) {
	assert.Nil(t, ParseSmartScan([]byte("nope")))
	assert.Empty(t, ParseSmartScan([]byte("{}")))
}

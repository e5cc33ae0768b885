package platform

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsSensors reads device sensor values from the Linux sysfs tree. Battery
// level comes from /sys/class/power_supply/*/capacity; there is no portable
// notification counter, so NotificationCount reports zero.
type SysfsSensors struct {
	powerSupplyDir string
}

// NewSysfsSensors creates sensors backed by the default sysfs paths
func NewSysfsSensors() *SysfsSensors {
	return &SysfsSensors{powerSupplyDir: "/sys/class/power_supply"}
}

// BatteryLevel returns the first readable battery capacity percentage, or nil
// when the device exposes no battery
func (s *SysfsSensors) BatteryLevel() *int {
	entries, err := os.ReadDir(s.powerSupplyDir)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(s.powerSupplyDir, entry.Name(), "capacity"))
		if err != nil {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil || level < 0 || level > 100 {
			continue
		}
		return &level
	}
	return nil
}

// NotificationCount always returns 0; the platform exposes no counter here
func (s *SysfsSensors) NotificationCount() int {
	return 0
}

// StaticSensors returns fixed readings, for wiring tests and headless
// deployments without sysfs access
type StaticSensors struct {
	Battery       *int
	Notifications int
}

// BatteryLevel returns the configured battery reading
func (s *StaticSensors) BatteryLevel() *int {
	return s.Battery
}

// NotificationCount returns the configured notification count
func (s *StaticSensors) NotificationCount() int {
	return s.Notifications
}

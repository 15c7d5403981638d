package api

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
)

// Settings identify the reporting process. They are copied into every
// event a client produces.
type Settings struct {
	ServerName  string
	Release     string
	Environment string
	Device      Device
}

// DefaultSettings returns empty identifiers and the DefaultDevice.
func DefaultSettings() Settings {
	return Settings{Device: DefaultDevice()}
}

// EventOptions returns options pre-filled from s.
func (s Settings) EventOptions() EventOptions {
	return EventOptions{
		ServerName:  s.ServerName,
		Release:     s.Release,
		Environment: s.Environment,
		Device:      s.Device,
	}
}

var defaultDevice = sync.OnceValue(func() Device {
	d := Device{Name: os.Getenv("OSTYPE")}

	info, err := host.Info()
	if err != nil {
		return d
	}
	if d.Name == "" {
		d.Name = info.OS
	}
	d.Version = info.PlatformVersion
	d.Build = info.KernelVersion
	return d
})

// DefaultDevice describes the local host. The name comes from $OSTYPE when
// set; otherwise it and the version details are read from the OS. The
// result is computed once per process.
func DefaultDevice() Device {
	return defaultDevice()
}

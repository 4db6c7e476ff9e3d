package glium

import (
	"time"

	"github.com/glium/glium/driver"
)

// config holds context construction settings.
type config struct {
	device       driver.Device
	deviceName   string
	fenceTimeout time.Duration
}

func defaultConfig() config {
	return config{
		fenceTimeout: 5 * time.Second,
	}
}

// Option configures a Context at construction.
type Option func(*config)

// WithDevice uses the given device instead of consulting the driver
// registry. The context takes ownership and calls Init and Close.
func WithDevice(d driver.Device) Option {
	return func(c *config) { c.device = d }
}

// WithDeviceName selects a registered device by name, e.g. "wgpu" or
// "null".
func WithDeviceName(name string) Option {
	return func(c *config) { c.deviceName = name }
}

// WithFenceTimeout bounds how long implicit fence waits (blocking
// writes, readback) may take before failing with a *TimeoutError.
// Zero means wait indefinitely. The default is 5 seconds.
func WithFenceTimeout(d time.Duration) Option {
	return func(c *config) { c.fenceTimeout = d }
}

package driver

import "sync"

var (
	registryMu sync.RWMutex
	devices    = make(map[string]Factory)
	// Priority order for device selection (first available wins).
	priority = []string{"wgpu", "null"}
)

// Register registers a device factory under name. Typically called
// from init functions in device packages. Re-registering a name
// replaces the previous factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices[name] = factory
}

// Unregister removes a device from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(devices, name)
}

// Available returns the registered device names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	return names
}

// Get returns a device instance by name, or nil if not registered.
func Get(name string) Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := devices[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available device based on priority, or nil
// if none is registered.
func Default() Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		if factory, ok := devices[name]; ok {
			if d := factory(); d != nil {
				return d
			}
		}
	}
	for _, factory := range devices {
		if d := factory(); d != nil {
			return d
		}
	}
	return nil
}

// InitDefault returns the default device, initialized.
func InitDefault() (Device, error) {
	d := Default()
	if d == nil {
		return nil, ErrDeviceNotAvailable
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

package postgres

import (
	"sync"
)

var (
	instance   *Factory   // Process-wide factory, set by the first successful GetInstance.
	instanceMu sync.Mutex // Guards instance.
)

// GetInstance returns the process-wide factory, building it from the properties
// file at path on first success. Later calls ignore path.
//
// Construction failures are not remembered: while the resource is missing every
// call fails with the same ErrConfiguration. Prefer NewFactory where the factory
// can be passed explicitly.
func GetInstance(path string, opts ...Option) (*Factory, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}

	f, err := NewFactoryFromFile(path, opts...)
	if err != nil {
		return nil, err
	}
	instance = f
	return instance, nil
}

// ResetInstance disconnects and forgets the process-wide factory.
// The next GetInstance builds a new one.
func ResetInstance() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return nil
	}
	f := instance
	instance = nil
	return f.Disconnect()
}

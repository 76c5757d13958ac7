// Package ble provides the BLE central that drives an ESP32 e-paper display.
// It scans for the display by advertised name, resolves its writable
// characteristic and writes text messages to it.
package ble

import "strings"

// ESP32 e-paper UUIDs and discovery filter
const (
	ServiceUUID        = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	CharacteristicUUID = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
	TargetName         = "ESP32 E-paper Service"
)

// Target identifies the peripheral and characteristic a Session writes to.
type Target struct {
	Name               string // exact advertised local name
	ServiceUUID        string
	CharacteristicUUID string
}

// DefaultTarget returns the ESP32 e-paper identity.
func DefaultTarget() Target {
	return Target{
		Name:               TargetName,
		ServiceUUID:        ServiceUUID,
		CharacteristicUUID: CharacteristicUUID,
	}
}

// Peripheral is an opaque handle to a discovered BLE peripheral.
type Peripheral interface {
	// Address returns the platform address (a MAC on Linux, a UUID on macOS).
	Address() string
}

// Service is an opaque handle to a resolved GATT service.
type Service interface {
	UUID() string
}

// Characteristic is an opaque handle to a resolved GATT characteristic.
type Characteristic interface {
	UUID() string
}

// EventSink receives events from a Central. Implementations must not block
// indefinitely.
type EventSink func(Event)

// Central abstracts the platform BLE stack acting in the central role.
// Every method issues a request and returns immediately; outcomes arrive
// later as events on the sink passed to Enable.
type Central interface {
	// Enable powers on the stack. Delivers PowerStateChanged.
	Enable(post EventSink) error
	// Scan starts discovery with no service filter. Delivers AdvertisementObserved.
	Scan() error
	// StopScan stops an active discovery.
	StopScan() error
	// Connect requests a connection. Delivers Connected or ConnectFailed.
	Connect(p Peripheral) error
	// DiscoverServices resolves services matching uuid. Delivers ServicesResolved.
	DiscoverServices(p Peripheral, uuid string) error
	// DiscoverCharacteristics resolves characteristics of s matching uuid.
	// Delivers CharacteristicsResolved.
	DiscoverCharacteristics(s Service, uuid string) error
	// Write issues a confirmed write. Delivers WriteAcknowledged.
	Write(c Characteristic, data []byte) error
}

// Ref is either unresolved or holds a resolved handle.
type Ref[T any] struct {
	handle   T
	resolved bool
}

// Resolved returns a Ref holding h.
func Resolved[T any](h T) Ref[T] {
	return Ref[T]{handle: h, resolved: true}
}

// Get returns the handle and whether it has been resolved.
func (r Ref[T]) Get() (T, bool) {
	return r.handle, r.resolved
}

// IsResolved reports whether the Ref holds a handle.
func (r Ref[T]) IsResolved() bool {
	return r.resolved
}

// sameUUID compares UUID strings ignoring case; CoreBluetooth renders them
// upper-case while BlueZ uses lower-case.
func sameUUID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

package ble

import (
	"errors"
	"fmt"
	"log/slog"

	"tinygo.org/x/bluetooth"
)

var (
	// ErrForeignHandle is returned when a handle was not produced by this central.
	ErrForeignHandle = errors.New("ble: handle not created by this central")
	// ErrNotConnected is returned when discovery is requested on an unconnected peripheral.
	ErrNotConnected = errors.New("ble: peripheral not connected")
)

// TinyGoCentral implements Central over tinygo-org/bluetooth. The library
// calls block, so each request runs in its own goroutine and reports back
// through the sink given to Enable. Writes share one goroutine so they reach
// the peripheral in the order they were issued.
type TinyGoCentral struct {
	adapter *bluetooth.Adapter
	post    EventSink
	writes  serialQueue

	confirmedWrites bool // false on backends without write requests (BlueZ)
}

// NewTinyGoCentral wraps adapter. A nil adapter selects bluetooth.DefaultAdapter.
func NewTinyGoCentral(adapter *bluetooth.Adapter) *TinyGoCentral {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	return &TinyGoCentral{adapter: adapter, confirmedWrites: supportsWriteRequests()}
}

// responseWriter is satisfied by backends that support write requests.
type responseWriter interface {
	Write(p []byte) (int, error)
}

// supportsWriteRequests reports whether this build's DeviceCharacteristic
// can issue confirmed writes.
func supportsWriteRequests() bool {
	_, ok := any(&bluetooth.DeviceCharacteristic{}).(responseWriter)
	return ok
}

// Compile-time check that TinyGoCentral implements Central.
var _ Central = (*TinyGoCentral)(nil)

func (c *TinyGoCentral) Enable(post EventSink) error {
	c.post = post
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	if !c.confirmedWrites {
		slog.Warn("[BLE] backend lacks write requests, writes are sent as unconfirmed write commands")
	}

	// Disconnects are reported but not acted upon; there is no reconnect path.
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		slog.Warn("[BLE] peripheral disconnected", "address", device.Address.String())
	})

	post(PowerStateChanged{State: PoweredOn})
	return nil
}

func (c *TinyGoCentral) Scan() error {
	go func() {
		err := c.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			c.post(AdvertisementObserved{
				Peripheral: &tinygoPeripheral{address: result.Address},
				LocalName:  result.LocalName(),
				RSSI:       int(result.RSSI),
			})
		})
		if err != nil {
			c.post(ScanFailed{Err: fmt.Errorf("ble: scan: %w", err)})
		}
	}()
	return nil
}

func (c *TinyGoCentral) StopScan() error {
	return c.adapter.StopScan()
}

func (c *TinyGoCentral) Connect(p Peripheral) error {
	tp, ok := p.(*tinygoPeripheral)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, p)
	}
	addr := tp.address

	go func() {
		device, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			c.post(ConnectFailed{Peripheral: tp, Err: fmt.Errorf("ble: connect to %s: %w", addr.String(), err)})
			return
		}
		c.post(Connected{Peripheral: &tinygoPeripheral{address: addr, device: &device}})
	}()
	return nil
}

func (c *TinyGoCentral) DiscoverServices(p Peripheral, uuid string) error {
	tp, ok := p.(*tinygoPeripheral)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, p)
	}
	if tp.device == nil {
		return ErrNotConnected
	}
	svcUUID, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}

	go func() {
		svcs, err := tp.device.DiscoverServices([]bluetooth.UUID{svcUUID})
		if err != nil {
			c.post(ServicesResolved{Peripheral: tp, Err: fmt.Errorf("ble: discover services: %w", err)})
			return
		}
		services := make([]Service, 0, len(svcs))
		for i := range svcs {
			services = append(services, &tinygoService{svc: &svcs[i]})
		}
		c.post(ServicesResolved{Peripheral: tp, Services: services})
	}()
	return nil
}

func (c *TinyGoCentral) DiscoverCharacteristics(s Service, uuid string) error {
	ts, ok := s.(*tinygoService)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, s)
	}
	charUUID, err := bluetooth.ParseUUID(uuid)
	if err != nil {
		return fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	go func() {
		chars, err := ts.svc.DiscoverCharacteristics([]bluetooth.UUID{charUUID})
		if err != nil {
			c.post(CharacteristicsResolved{Service: ts, Err: fmt.Errorf("ble: discover characteristics: %w", err)})
			return
		}
		out := make([]Characteristic, 0, len(chars))
		for i := range chars {
			out = append(out, &tinygoCharacteristic{char: &chars[i]})
		}
		c.post(CharacteristicsResolved{Service: ts, Characteristics: out})
	}()
	return nil
}

func (c *TinyGoCentral) Write(ch Characteristic, data []byte) error {
	tc, ok := ch.(*tinygoCharacteristic)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignHandle, ch)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	c.writes.Submit(func() {
		var err error
		if w, ok := any(tc.char).(responseWriter); ok {
			_, err = w.Write(buf)
		} else {
			_, err = tc.char.WriteWithoutResponse(buf)
		}
		c.post(WriteAcknowledged{Characteristic: tc, Err: err})
	})
	return nil
}

type tinygoPeripheral struct {
	address bluetooth.Address
	device  *bluetooth.Device // nil until connected
}

func (p *tinygoPeripheral) Address() string {
	return p.address.String()
}

type tinygoService struct {
	svc *bluetooth.DeviceService
}

func (s *tinygoService) UUID() string {
	return s.svc.UUID().String()
}

type tinygoCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string {
	return c.char.UUID().String()
}

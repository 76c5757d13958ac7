package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the position of a Session in its connect-and-write sequence.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateDiscoveringService
	StateDiscoveringCharacteristic
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateDiscoveringService:
		return "discovering-service"
	case StateDiscoveringCharacteristic:
		return "discovering-characteristic"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Target    Target
	Greeting  bool             // write the greeting on first entry to Ready
	Origin    string           // sender name in the greeting
	QueueSize int              // event queue capacity
	Now       func() time.Time // clock for the greeting timestamp
}

// DefaultSessionOptions returns options targeting the ESP32 e-paper display.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Target:    DefaultTarget(),
		Greeting:  true,
		Origin:    GreetingOrigin,
		QueueSize: 64,
		Now:       time.Now,
	}
}

// Session drives one central through scan, connect, discovery and writes
// against a single peripheral. Events are consumed serially by Run, so the
// fields below the queue are only touched from the dispatch loop.
type Session struct {
	central Central
	opts    SessionOptions

	events chan Event
	done   chan struct{}

	state          atomic.Int32
	peripheral     Ref[Peripheral]
	characteristic Ref[Characteristic]
}

// NewSession creates a Session bound to central. Zero-valued options fall
// back to DefaultSessionOptions.
func NewSession(central Central, opts SessionOptions) *Session {
	def := DefaultSessionOptions()
	if opts.Target == (Target{}) {
		opts.Target = def.Target
	}
	if opts.Origin == "" {
		opts.Origin = def.Origin
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Session{
		central: central,
		opts:    opts,
		events:  make(chan Event, opts.QueueSize),
		done:    make(chan struct{}),
	}
}

// Run enables the central and dispatches events until ctx is cancelled.
// It must be called at most once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	if err := s.central.Enable(s.Post); err != nil {
		return fmt.Errorf("ble: enable central: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

// Post queues ev for the dispatch loop. It is dropped once Run has returned.
func (s *Session) Post(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// StartScan asks the central to begin discovery.
func (s *Session) StartScan() {
	s.Post(ScanRequested{})
}

// SendMessage writes text to the resolved characteristic. Before the
// characteristic is resolved it does nothing.
func (s *Session) SendMessage(text string) {
	s.Post(SendRequested{Text: text})
}

// State returns the current state. Safe for concurrent use.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		slog.Debug("[BLE] state", "from", prev, "to", next)
	}
}

func (s *Session) dispatch(ev Event) {
	switch e := ev.(type) {
	case PowerStateChanged:
		s.onPowerState(e)
	case ScanRequested:
		s.startScan()
	case ScanFailed:
		s.onScanFailed(e)
	case AdvertisementObserved:
		s.onAdvertisement(e)
	case Connected:
		s.onConnected(e)
	case ConnectFailed:
		slog.Error("[BLE] failed to connect", "address", addressOf(e.Peripheral), "error", e.Err)
	case ServicesResolved:
		s.onServices(e)
	case CharacteristicsResolved:
		s.onCharacteristics(e)
	case SendRequested:
		s.onSend(e)
	case WriteAcknowledged:
		if e.Err != nil {
			slog.Error("[BLE] failed to write value", "error", e.Err)
			return
		}
		slog.Info("[BLE] write acknowledged")
	default:
		slog.Warn("[BLE] unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Session) onPowerState(e PowerStateChanged) {
	slog.Info("[BLE] central state", "state", e.State)
	if e.State != PoweredOn {
		return
	}
	s.startScan()
}

func (s *Session) startScan() {
	switch st := s.State(); st {
	case StateIdle:
	case StateScanning:
		slog.Debug("[BLE] already scanning")
		return
	default:
		slog.Debug("[BLE] scan ignored, peripheral already matched", "state", st)
		return
	}

	if err := s.central.Scan(); err != nil {
		slog.Error("[BLE] failed to start scan", "error", err)
		return
	}
	s.setState(StateScanning)
	slog.Info("[BLE] scanning", "name", s.opts.Target.Name)
}

// onScanFailed returns a failed scan to Idle so StartScan can reissue it.
func (s *Session) onScanFailed(e ScanFailed) {
	slog.Error("[BLE] scan failed", "error", e.Err)
	if s.State() != StateScanning {
		return
	}
	s.setState(StateIdle)
}

func (s *Session) onAdvertisement(e AdvertisementObserved) {
	if s.State() != StateScanning {
		return
	}
	if e.LocalName != s.opts.Target.Name {
		return
	}

	s.peripheral = Resolved(e.Peripheral)
	slog.Info("[BLE] peripheral matched", "address", addressOf(e.Peripheral), "rssi", e.RSSI)

	if err := s.central.StopScan(); err != nil {
		slog.Warn("[BLE] failed to stop scan", "error", err)
	}
	s.setState(StateConnecting)
	if err := s.central.Connect(e.Peripheral); err != nil {
		slog.Error("[BLE] failed to connect", "address", addressOf(e.Peripheral), "error", err)
		return
	}
	slog.Info("[BLE] link start")
}

func (s *Session) onConnected(e Connected) {
	if s.State() != StateConnecting {
		return
	}
	p, ok := s.peripheral.Get()
	if !ok || addressOf(p) != addressOf(e.Peripheral) {
		slog.Debug("[BLE] connection for untracked peripheral", "address", addressOf(e.Peripheral))
		return
	}

	// The connected handle replaces the advertised one; only it can run discovery.
	s.peripheral = Resolved(e.Peripheral)
	slog.Info("[BLE] connected", "address", addressOf(e.Peripheral))

	if err := s.central.DiscoverServices(e.Peripheral, s.opts.Target.ServiceUUID); err != nil {
		slog.Error("[BLE] failed to discover services", "error", err)
		return
	}
	s.setState(StateDiscoveringService)
}

func (s *Session) onServices(e ServicesResolved) {
	if s.State() != StateDiscoveringService {
		return
	}
	if e.Err != nil {
		slog.Error("[BLE] failed to discover services", "error", e.Err)
		return
	}
	if len(e.Services) == 0 {
		slog.Error("[BLE] no services for peripheral", "address", addressOf(e.Peripheral))
		return
	}

	svc := e.Services[0]
	slog.Debug("[BLE] discovering characteristics", "service", svc.UUID())
	if err := s.central.DiscoverCharacteristics(svc, s.opts.Target.CharacteristicUUID); err != nil {
		slog.Error("[BLE] failed to discover characteristics", "error", err)
		return
	}
	s.setState(StateDiscoveringCharacteristic)
}

func (s *Session) onCharacteristics(e CharacteristicsResolved) {
	if s.State() != StateDiscoveringCharacteristic {
		return
	}
	if e.Err != nil {
		slog.Error("[BLE] failed to discover characteristics", "error", e.Err)
		return
	}
	if len(e.Characteristics) == 0 {
		slog.Error("[BLE] no characteristics for service", "service", e.Service.UUID())
		return
	}

	for _, c := range e.Characteristics {
		if !sameUUID(c.UUID(), s.opts.Target.CharacteristicUUID) {
			continue
		}
		s.characteristic = Resolved(c)
		s.setState(StateReady)
		slog.Info("[BLE] characteristic resolved", "uuid", c.UUID())
		s.sendGreeting(c)
		return
	}
	slog.Error("[BLE] characteristic not found", "uuid", s.opts.Target.CharacteristicUUID)
}

func (s *Session) sendGreeting(c Characteristic) {
	if !s.opts.Greeting {
		return
	}
	data, err := EncodeASCII(Greeting(s.opts.Origin, s.opts.Now()))
	if err != nil {
		slog.Warn("[BLE] greeting not sent", "error", err)
		return
	}
	s.write(c, data)
}

func (s *Session) onSend(e SendRequested) {
	c, ok := s.characteristic.Get()
	if !ok || !s.peripheral.IsResolved() {
		slog.Debug("[BLE] send ignored, characteristic not resolved")
		return
	}
	data, err := EncodeUTF8(e.Text)
	if err != nil {
		slog.Warn("[BLE] message not sent", "error", err)
		return
	}
	s.write(c, data)
}

func (s *Session) write(c Characteristic, data []byte) {
	if err := s.central.Write(c, data); err != nil {
		slog.Error("[BLE] failed to write value", "error", err)
		return
	}
	slog.Info("[BLE] sent data", "bytes", len(data))
}

func addressOf(p Peripheral) string {
	if p == nil {
		return ""
	}
	return p.Address()
}

package ble

// Event is a single callback from the BLE stack or a user trigger. All events
// for a Session are consumed serially by its dispatch loop.
type Event interface {
	event()
}

// PowerState is the power state reported by the BLE stack.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PoweredOff
	PoweredOn
)

func (s PowerState) String() string {
	switch s {
	case PoweredOff:
		return "powered-off"
	case PoweredOn:
		return "powered-on"
	default:
		return "unknown"
	}
}

// PowerStateChanged is delivered once the stack is ready (or failed to be).
type PowerStateChanged struct {
	State PowerState
}

// AdvertisementObserved is delivered for every advertisement seen while scanning.
type AdvertisementObserved struct {
	Peripheral Peripheral
	LocalName  string // empty when the advertisement carries no name
	RSSI       int
}

// ScanFailed is delivered when a scan that Scan reported as started ends
// with an error.
type ScanFailed struct {
	Err error
}

// Connected is delivered when a connection to Peripheral is established.
type Connected struct {
	Peripheral Peripheral
}

// ConnectFailed is delivered when a connection attempt fails.
type ConnectFailed struct {
	Peripheral Peripheral
	Err        error
}

// ServicesResolved answers DiscoverServices.
type ServicesResolved struct {
	Peripheral Peripheral
	Services   []Service
	Err        error
}

// CharacteristicsResolved answers DiscoverCharacteristics.
type CharacteristicsResolved struct {
	Service         Service
	Characteristics []Characteristic
	Err             error
}

// WriteAcknowledged answers Write.
type WriteAcknowledged struct {
	Characteristic Characteristic
	Err            error
}

// ScanRequested is posted by StartScan.
type ScanRequested struct{}

// SendRequested is posted by SendMessage.
type SendRequested struct {
	Text string
}

func (PowerStateChanged) event()       {}
func (AdvertisementObserved) event()   {}
func (ScanFailed) event()              {}
func (Connected) event()               {}
func (ConnectFailed) event()           {}
func (ServicesResolved) event()        {}
func (CharacteristicsResolved) event() {}
func (WriteAcknowledged) event()       {}
func (ScanRequested) event()           {}
func (SendRequested) event()           {}

package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// RunEvents contains all run events that were published.
	RunEvents []RunEvent

	// RunPayloads contains the JSON payloads that were published.
	RunPayloads [][]byte

	// PublishError, if set, will be returned by PublishRun.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishRun records the run event.
func (f *FakePublisher) PublishRun(event RunEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.RunEvents = append(f.RunEvents, event)

	payload, err := FormatRunPayload(event)
	if err != nil {
		return err
	}
	f.RunPayloads = append(f.RunPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.RunEvents = nil
	f.RunPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}

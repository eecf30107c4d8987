package mqtt

import "sync"

// Message is one publish as the broker would see it.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records what a RealPublisher for the same sensor would send.
// Recorded fields are written under a mutex; read them once the publishing
// goroutine is done, or use Sent.
type FakePublisher struct {
	mu     sync.Mutex
	sensor string

	// Events and SystemEvents contain what was published, in order.
	Events       []Event
	SystemEvents []SystemEvent

	// Messages contains every publish with its topic, QoS and retain flag.
	Messages []Message

	// PublishError and PublishSystemError, if set, are returned by the
	// corresponding method and nothing is recorded.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for the named sensor.
func NewFakePublisher(sensor string) *FakePublisher {
	return &FakePublisher{sensor: sensor}
}

// Publish records a button event on the sensor's event topic.
func (f *FakePublisher) Publish(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: EventTopic(f.sensor), Payload: payload})
	return nil
}

// PublishSystem records a lifecycle event on the sensor's system topic.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: SystemTopic(f.sensor), QoS: 1, Retained: event.Retained, Payload: payload})
	return nil
}

// Sent returns a copy of the messages recorded so far.
func (f *FakePublisher) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Messages...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset forgets everything recorded and clears injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.SystemEvents = nil
	f.Messages = nil
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Closed = false
	f.Connected = false
}

package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient records publishes. Methods the publisher does not call are
// left to the embedded nil interface.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	publishErr   error
	sent         []sentMsg
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return doneToken{err: c.publishErr}
	}
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func newTestPublisher(limit int) (*RealPublisher, *fakeClient) {
	c := &fakeClient{}
	return &RealPublisher{
		client:      c,
		eventTopic:  EventTopic("doorbell"),
		systemTopic: SystemTopic("doorbell"),
		outbox:      newOutbox(limit),
	}, c
}

func pressEvent(v int) Event {
	return Event{
		Timestamp: time.Date(2026, 1, 1, 0, 0, v, 0, time.UTC),
		Sensor:    "doorbell",
		State:     StateOf(v != 0),
		Value:     v,
	}
}

func TestRealPublisherConnected(t *testing.T) {
	p, c := newTestPublisher(4)
	c.setOpen(true)

	if err := p.Publish(pressEvent(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("publish system: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.sent))
	}
	if c.sent[0].topic != "sensors/button/doorbell/events" || c.sent[0].qos != 0 || c.sent[0].retained {
		t.Errorf("unexpected event message: %+v", c.sent[0])
	}
	if c.sent[1].topic != "sensors/button/doorbell/system" || c.sent[1].qos != 1 || !c.sent[1].retained {
		t.Errorf("unexpected system message: %+v", c.sent[1])
	}
}

func TestRealPublisherQueuesWhileOffline(t *testing.T) {
	p, c := newTestPublisher(2)

	for v := 0; v < 3; v++ {
		if err := p.Publish(pressEvent(v % 2)); err != nil {
			t.Fatalf("publish while offline should queue, got %v", err)
		}
	}
	if len(c.sent) != 0 {
		t.Fatalf("nothing should be sent while offline, got %d", len(c.sent))
	}
	if p.outbox.len() != 2 {
		t.Fatalf("outbox: got %d, want 2", p.outbox.len())
	}

	c.setOpen(true)
	p.flush()

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 replayed messages, got %d", len(c.sent))
	}
	want, _ := FormatPayload(pressEvent(1))
	if c.sent[0].payload != string(want) {
		t.Errorf("oldest message should have been dropped, first replayed: %s", c.sent[0].payload)
	}
	if p.outbox.len() != 0 {
		t.Errorf("outbox not empty after flush: %d", p.outbox.len())
	}
}

// A message queued after the on-connect flush must go out with the next
// publish rather than wait for another reconnect.
func TestRealPublisherSendDrainsQueueWhenOpen(t *testing.T) {
	p, c := newTestPublisher(4)

	c.setOpen(true)
	p.flush() // on-connect ran with nothing queued

	c.setOpen(false)
	if err := p.Publish(pressEvent(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	c.setOpen(true)

	if err := p.Publish(pressEvent(0)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected queued and live message, got %d", len(c.sent))
	}
	first, _ := FormatPayload(pressEvent(1))
	second, _ := FormatPayload(pressEvent(0))
	if c.sent[0].payload != string(first) || c.sent[1].payload != string(second) {
		t.Errorf("messages out of order: %+v", c.sent)
	}
	if p.outbox.len() != 0 {
		t.Errorf("outbox not empty: %d", p.outbox.len())
	}
}

func TestRealPublisherPublishError(t *testing.T) {
	p, c := newTestPublisher(4)
	c.setOpen(true)
	c.publishErr = errors.New("not authorised")

	err := p.Publish(pressEvent(1))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, c.publishErr) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}

func TestRealPublisherClose(t *testing.T) {
	p, c := newTestPublisher(4)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !c.disconnected {
		t.Error("expected Disconnect")
	}
}

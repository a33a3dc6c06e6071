package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
	gate chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[msg.To] {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func fastOptions() DispatcherOptions {
	return DispatcherOptions{PerSecond: 1000, Burst: 100, Timeout: time.Second}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, fastOptions())
	defer d.Close()

	n := d.Enqueue(Message{To: "a@x"}, Message{To: "b@x"}, Message{To: "c@x"})
	assert.Equal(t, 3, n)
	require.NoError(t, d.Flush(context.Background()))

	sent := sender.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, "a@x", sent[0].To)
	assert.Equal(t, "c@x", sent[2].To)
	assert.Empty(t, d.Warnings())
}

func TestDispatcherFailuresBecomeWarnings(t *testing.T) {
	sender := &recordingSender{fail: map[string]bool{"bad@x": true}}
	d := NewDispatcher(sender, fastOptions())
	defer d.Close()

	d.Enqueue(Message{To: "bad@x", Subject: "s1"}, Message{To: "ok@x"}, Message{Subject: "no address"})
	require.NoError(t, d.Flush(context.Background()))

	assert.Len(t, sender.messages(), 1)
	warnings := d.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "no recipient address", warnings[0].Error)
	assert.Equal(t, "bad@x", warnings[1].To)
}

func TestDispatcherEnqueueDoesNotBlock(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	opts := fastOptions()
	opts.QueueSize = 1
	d := NewDispatcher(sender, opts)

	done := make(chan int)
	go func() {
		total := 0
		for i := 0; i < 5; i++ {
			total += d.Enqueue(Message{To: "a@x"})
		}
		done <- total
	}()

	select {
	case total := <-done:
		assert.Less(t, total, 5)
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a slow sender")
	}
	assert.NotEmpty(t, d.Warnings())

	close(sender.gate)
	d.Close()
}

func TestDispatcherClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, fastOptions())
	d.Enqueue(Message{To: "a@x"})
	d.Close()
	d.Close()

	assert.Len(t, sender.messages(), 1, "queued messages drain on close")
	assert.Equal(t, 0, d.Enqueue(Message{To: "b@x"}))
	assert.NoError(t, d.Flush(context.Background()))
}

func TestWarningsAreBounded(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, fastOptions())
	defer d.Close()
	for i := 0; i < maxWarnings+10; i++ {
		d.Enqueue(Message{})
	}
	assert.Len(t, d.Warnings(), maxWarnings)
}

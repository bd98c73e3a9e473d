// Package indicator shows the single persistent status message of the
// reporter. Every Show replaces the previous message.
package indicator

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Initial is shown when the reporter starts.
const Initial = "Status reporter is running"

const notifyTimeout = 5 * time.Second

// Indicator displays one message at a time.
type Indicator interface {
	Show(text string)
}

// Sender is implemented by the freedesktop notifier.
type Sender interface {
	Notify(ctx context.Context, body string) error
}

// Notifier shows the message as a desktop notification.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Show(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := n.sender.Notify(ctx, text); err != nil {
		log.Printf("Warning: %v", err)
	}
}

// Store persists the message for readers in other processes.
type Store interface {
	SaveIndicator(message string, pid int) error
}

// Recorder writes every message to the indicator row.
type Recorder struct {
	store Store
	pid   int
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, pid: os.Getpid()}
}

func (r *Recorder) Show(text string) {
	if err := r.store.SaveIndicator(text, r.pid); err != nil {
		log.Printf("Failed to record indicator: %v", err)
	}
}

// Log writes the message to the log.
type Log struct{}

func (Log) Show(text string) {
	log.Printf("Indicator: %s", text)
}

// Multi shows the message on every indicator in order.
type Multi []Indicator

func (m Multi) Show(text string) {
	for _, ind := range m {
		if ind != nil {
			ind.Show(text)
		}
	}
}

// Memory keeps the latest message.
type Memory struct {
	mu      sync.RWMutex
	text    string
	updated time.Time
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Show(text string) {
	m.mu.Lock()
	m.text = text
	m.updated = time.Now()
	m.mu.Unlock()
}

// Text returns the latest message and when it was shown.
func (m *Memory) Text() (string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text, m.updated
}

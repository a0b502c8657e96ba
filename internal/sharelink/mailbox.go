package sharelink

import (
	"net/url"
	"strings"
	"sync"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/logger"
)

// Listener is notified when a share payload lands while attached.
type Listener func(raw string)

// Mailbox is a single-slot buffer per owner for incoming share
// payloads. A payload that arrives before anyone is listening waits in
// the slot; a later payload overwrites it. Attach hands out the current
// slot and registers the listener in one step, so a payload can never
// slip between the snapshot and the subscription. Consume empties the
// slot, which is what makes delivery exactly-once.
type Mailbox struct {
	log logger.Logger

	mu        sync.Mutex
	pending   map[string]string
	listeners map[string]Listener
}

func NewMailbox(log logger.Logger) *Mailbox {
	return &Mailbox{
		log:       log,
		pending:   make(map[string]string),
		listeners: make(map[string]Listener),
	}
}

// Put stores a share payload for owner, replacing any unconsumed one,
// and notifies the attached listener if there is one.
func (m *Mailbox) Put(owner, raw string) {
	m.mu.Lock()
	if prev, ok := m.pending[owner]; ok {
		m.log.Debug("share slot overwritten",
			logger.String("owner", owner),
			logger.String("dropped", prev))
	}
	m.pending[owner] = raw
	fn := m.listeners[owner]
	m.mu.Unlock()

	if fn != nil {
		fn(raw)
	}
}

// Attach registers the listener and returns the payload already
// waiting, if any. Snapshot and subscription happen under one lock.
func (m *Mailbox) Attach(owner string, fn Listener) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[owner] = fn
	raw, ok := m.pending[owner]
	return raw, ok
}

// Detach drops the owner's listener. The slot is untouched.
func (m *Mailbox) Detach(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, owner)
}

// Snapshot peeks at the slot without clearing it.
func (m *Mailbox) Snapshot(owner string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.pending[owner]
	return raw, ok
}

// Consume returns the slot content and clears it. A second call
// without an intervening Put reports nothing pending.
func (m *Mailbox) Consume(owner string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.pending[owner]
	if ok {
		delete(m.pending, owner)
	}
	return raw, ok
}

// ParseShare extracts the shared URL from a raw share payload. It
// accepts the app's own deep-link form, linkstash://share?url=<target>,
// as well as free text that merely contains a URL somewhere.
func ParseShare(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &domain.ValidationError{Field: "payload", Message: "empty share payload"}
	}

	if u, err := url.Parse(trimmed); err == nil && u.Host == "share" && u.Scheme != "" &&
		u.Scheme != "http" && u.Scheme != "https" {
		target := u.Query().Get("url")
		if target == "" {
			return "", &domain.ValidationError{Field: "url", Message: "deep link carries no url parameter"}
		}
		return target, nil
	}

	target, ok := domain.ExtractURL(trimmed)
	if !ok {
		return "", &domain.ValidationError{Field: "payload", Message: "no URL found in share payload"}
	}
	return target, nil
}

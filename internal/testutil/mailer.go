package testutil

import (
	"context"
	"sync"
	"time"
)

// Mailer captures outgoing mail instead of sending it.
type Mailer struct {
	mu       sync.Mutex
	Codes    map[string]string
	Welcomed []string

	ResetErr   error
	WelcomeErr error
}

func NewMailer() *Mailer {
	return &Mailer{Codes: map[string]string{}}
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResetErr != nil {
		return m.ResetErr
	}
	m.Codes[to] = code
	return nil
}

func (m *Mailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WelcomeErr != nil {
		return m.WelcomeErr
	}
	m.Welcomed = append(m.Welcomed, to)
	return nil
}

// LastCode returns the most recent reset code mailed to the address.
func (m *Mailer) LastCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Codes[to]
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

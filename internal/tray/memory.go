package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/fusion-prompts/internal/model"
)

// Memory is an in-process Tray. It backs the simulated device in promptd and
// stands in for the OS in tests.
type Memory struct {
	mu         sync.Mutex
	granted    bool
	categories map[model.ResponseType]model.Category
	presented  []model.TrayNotification
	dismissed  []string

	// FailDismiss, when set, is consulted before every dismissal; a non-nil
	// result is returned and the notification stays presented.
	FailDismiss func(notificationID string) error

	// FailPresented, when set, makes Presented return its error.
	FailPresented error
}

var _ Tray = (*Memory)(nil)

// NewMemory returns an empty tray. granted controls the answer to
// RequestPermission.
func NewMemory(granted bool) *Memory {
	return &Memory{
		granted:    granted,
		categories: make(map[model.ResponseType]model.Category),
	}
}

// RequestPermission implements Tray.
func (m *Memory) RequestPermission(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.granted {
		return ErrPermissionDenied
	}
	return nil
}

// RegisterCategories implements Tray.
func (m *Memory) RegisterCategories(ctx context.Context, categories []model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range categories {
		m.categories[c.ID] = c
	}
	return nil
}

// Category returns a registered category.
func (m *Memory) Category(id model.ResponseType) (model.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	return c, ok
}

// Presented implements Tray. The result is a copy in presentation order.
func (m *Memory) Presented(ctx context.Context) ([]model.TrayNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPresented != nil {
		return nil, m.FailPresented
	}
	out := make([]model.TrayNotification, len(m.presented))
	copy(out, m.presented)
	return out, nil
}

// Present implements Tray. Presenting an id that is already shown replaces it.
func (m *Memory) Present(ctx context.Context, n model.TrayNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.granted {
		return ErrPermissionDenied
	}
	if n.ID == "" {
		return fmt.Errorf("notification id must not be empty")
	}
	m.removeLocked(n.ID)
	m.presented = append(m.presented, n)
	return nil
}

// Dismiss implements Tray.
func (m *Memory) Dismiss(ctx context.Context, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDismiss != nil {
		if err := m.FailDismiss(notificationID); err != nil {
			return err
		}
	}
	m.removeLocked(notificationID)
	m.dismissed = append(m.dismissed, notificationID)
	return nil
}

// Swipe removes a notification the way the user or the OS would, without
// going through the app.
func (m *Memory) Swipe(notificationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(notificationID)
}

// Dismissed returns the ids the app has dismissed, in call order.
func (m *Memory) Dismissed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.dismissed))
	copy(out, m.dismissed)
	return out
}

func (m *Memory) removeLocked(notificationID string) {
	kept := m.presented[:0]
	for _, n := range m.presented {
		if n.ID != notificationID {
			kept = append(kept, n)
		}
	}
	m.presented = kept
}

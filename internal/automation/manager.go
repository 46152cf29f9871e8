// Package automation implements the automated-trading enable/disable
// state manager: single-mutex thread safety, atomic
// temp-file-then-rename persistence with numbered backup rotation, and
// QUERY/ENABLE/DISABLE toggle semantics.
package automation

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/fsutil"
	"github.com/atlas-desktop/pulsecore/internal/service"
)

// Config tunes persistence for the automation manager.
type Config struct {
	StateFilePath  string
	DefaultEnabled bool
	BackupCount    int
}

// DefaultConfig enables automation with five rotating backups.
func DefaultConfig() Config {
	return Config{
		StateFilePath:  "config/automation_state.json",
		DefaultEnabled: true,
		BackupCount:    5,
	}
}

// persistedState is the on-disk JSON shape.
type persistedState struct {
	Enabled     bool   `json:"enabled"`
	LastChanged string `json:"last_changed"`
	Reason      string `json:"reason"`
	RequestedBy string `json:"requested_by"`
	SavedAt     string `json:"saved_at"`
}

// Manager owns the in-memory automation flag, persists it atomically,
// and answers ToggleAutomation requests.
type Manager struct {
	*service.Base
	cfg Config

	mu          sync.Mutex
	enabled     bool
	lastChanged time.Time
	reason      string
	requestedBy string
}

// NewManager constructs a Manager and loads any existing state file.
// A missing or corrupt file falls back to cfg.DefaultEnabled.
func NewManager(bus *events.Bus, logger *zap.Logger, cfg Config) *Manager {
	if cfg.BackupCount <= 0 {
		cfg.BackupCount = 5
	}
	m := &Manager{
		Base:        service.NewBase("automation_manager", bus, logger),
		cfg:         cfg,
		enabled:     cfg.DefaultEnabled,
		reason:      "system_initialization",
		requestedBy: "system",
	}
	m.loadState()
	return m
}

func (m *Manager) loadState() {
	data, err := os.ReadFile(m.cfg.StateFilePath)
	if err != nil {
		m.Logger().Info("automation state file not found, using default", zap.Bool("enabled", m.cfg.DefaultEnabled))
		return
	}
	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		m.Logger().Error("automation state file corrupt, using default", zap.Error(err))
		return
	}
	m.enabled = ps.Enabled
	m.reason = ps.Reason
	m.requestedBy = ps.RequestedBy
	if ps.LastChanged != "" {
		if t, err := time.Parse(time.RFC3339, ps.LastChanged); err == nil {
			m.lastChanged = t
		} else {
			m.lastChanged = time.Now()
		}
	} else {
		m.lastChanged = time.Now()
	}
}

// Start subscribes to ToggleAutomation and transitions to running.
func (m *Manager) Start() {
	m.SubscribeTo(events.KindToggleAutomation, m.handleToggle)
	m.SetStatus(service.StatusRunning)
}

// Stop unsubscribes.
func (m *Manager) Stop() {
	m.UnsubscribeAll()
	m.SetStatus(service.StatusStopped)
}

func (m *Manager) handleToggle(ev events.Event) error {
	toggle, ok := ev.(events.ToggleAutomation)
	if !ok {
		return nil
	}

	m.mu.Lock()

	if toggle.Action == events.AutomationQuery {
		current := m.enabled
		m.mu.Unlock()
		m.IncMetric("automation_queries")
		m.publishStateChange(&current)
		return nil
	}

	newEnabled := toggle.Action == events.AutomationEnable
	if newEnabled == m.enabled {
		m.mu.Unlock()
		return nil
	}

	previous := m.enabled
	m.enabled = newEnabled
	m.lastChanged = time.Now()
	m.reason = toggle.Reason
	m.requestedBy = toggle.RequestedBy
	snapshot := persistedState{
		Enabled:     m.enabled,
		LastChanged: m.lastChanged.Format(time.RFC3339),
		Reason:      m.reason,
		RequestedBy: m.requestedBy,
		SavedAt:     time.Now().Format(time.RFC3339),
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err == nil {
		if err := fsutil.AtomicWriteWithBackups(m.cfg.StateFilePath, data, m.cfg.BackupCount); err != nil {
			m.Logger().Error("failed to persist automation state, continuing in-memory", zap.Error(err))
		}
	}

	m.IncMetric("automation_changes")
	m.publishStateChange(&previous)
	return nil
}

func (m *Manager) publishStateChange(previous *bool) {
	m.mu.Lock()
	enabled := m.enabled
	reason := m.reason
	changedAt := m.lastChanged
	m.mu.Unlock()

	m.PublishEvent(events.AutomationStateChanged{
		BaseEvent:     events.NewBaseEvent(""),
		Enabled:       enabled,
		PreviousState: previous,
		Reason:        reason,
		ChangedAt:     changedAt,
	})
}

// IsEnabled returns the current automation flag under lock.
func (m *Manager) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// State is a point-in-time snapshot for external callers.
type State struct {
	Enabled     bool
	LastChanged time.Time
	Reason      string
	RequestedBy string
}

// GetState returns a consistent snapshot under the same lock as IsEnabled.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Enabled:     m.enabled,
		LastChanged: m.lastChanged,
		Reason:      m.reason,
		RequestedBy: m.requestedBy,
	}
}

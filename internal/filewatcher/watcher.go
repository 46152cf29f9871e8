// Package filewatcher implements a polling watcher over a plain text
// toggle file, translating its contents into ToggleAutomation events.
// Polling on a fixed cadence is intentional: the watcher must check
// every N seconds regardless of write activity, which an
// inotify/kqueue push model does not express.
package filewatcher

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/fsutil"
	"github.com/atlas-desktop/pulsecore/internal/service"
)

// Config tunes the watcher.
type Config struct {
	FilePath          string
	PollInterval      time.Duration
	ActionLogPath     string
	ActionLogMaxBytes int64
	ActionLogBackups  int
}

// DefaultConfig returns 5s polling and 10MB log rotation with 5
// backups.
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		ActionLogMaxBytes: 10 * 1024 * 1024,
		ActionLogBackups:  5,
	}
}

// Watcher polls the toggle file on a dedicated goroutine.
type Watcher struct {
	*service.Base
	cfg Config

	mu          sync.Mutex
	lastModTime time.Time
	haveModTime bool
	lastContent string
	haveContent bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher constructs a Watcher.
func NewWatcher(bus *events.Bus, logger *zap.Logger, cfg Config) *Watcher {
	return &Watcher{
		Base:   service.NewBase("file_toggle_watcher", bus, logger),
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background poll loop.
func (w *Watcher) Start() {
	w.SetStatus(service.StatusRunning)
	go w.run()
}

// Stop signals the poll loop to exit and waits for it, bounded by one
// poll interval plus a small epsilon.
func (w *Watcher) Stop() {
	close(w.stopCh)
	select {
	case <-w.doneCh:
	case <-time.After(w.cfg.PollInterval + 500*time.Millisecond):
		w.Logger().Warn("file watcher did not stop within poll_interval+epsilon")
	}
	w.SetStatus(service.StatusStopped)
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

func (w *Watcher) pollOnce() {
	info, err := os.Stat(w.cfg.FilePath)
	if err != nil {
		return
	}

	w.mu.Lock()
	unchanged := w.haveModTime && !info.ModTime().After(w.lastModTime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	data, err := os.ReadFile(w.cfg.FilePath)
	if err != nil {
		w.logAction("read_error: " + err.Error())
		return
	}

	w.mu.Lock()
	w.lastModTime = info.ModTime()
	w.haveModTime = true
	w.mu.Unlock()

	content := strings.ToUpper(strings.TrimSpace(string(data)))

	w.mu.Lock()
	duplicate := w.haveContent && content == w.lastContent
	w.mu.Unlock()
	if duplicate {
		w.logAction("duplicate_ignored: " + content)
		return
	}

	if content == "" {
		w.logAction("empty_ignored")
		return
	}

	var action events.AutomationAction
	switch content {
	case string(events.AutomationEnable):
		action = events.AutomationEnable
	case string(events.AutomationDisable):
		action = events.AutomationDisable
	case string(events.AutomationQuery):
		action = events.AutomationQuery
	default:
		w.logAction("invalid_ignored: " + content)
		return
	}

	w.mu.Lock()
	w.lastContent = content
	w.haveContent = true
	w.mu.Unlock()

	w.IncMetric("toggles_detected")
	w.PublishEvent(events.ToggleAutomation{
		BaseEvent:   events.NewBaseEvent(""),
		Action:      action,
		Reason:      "file_toggle",
		RequestedBy: "file_watcher",
	})
	w.logAction("applied: " + content)
}

func (w *Watcher) logAction(line string) {
	if w.cfg.ActionLogPath == "" {
		return
	}
	if fsutil.FileSize(w.cfg.ActionLogPath) >= w.cfg.ActionLogMaxBytes {
		w.rotateActionLog()
	}
	f, err := os.OpenFile(w.cfg.ActionLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.Logger().Error("failed to open action log", zap.Error(err))
		return
	}
	defer f.Close()
	f.WriteString(time.Now().Format(time.RFC3339) + " " + line + "\n")
}

func (w *Watcher) rotateActionLog() {
	backups := w.cfg.ActionLogBackups
	if backups <= 0 {
		backups = 5
	}
	oldest := w.cfg.ActionLogPath + fmtBak(backups)
	os.Remove(oldest)
	for i := backups - 1; i >= 1; i-- {
		cur := w.cfg.ActionLogPath + fmtBak(i)
		next := w.cfg.ActionLogPath + fmtBak(i+1)
		if _, err := os.Stat(cur); err == nil {
			os.Rename(cur, next)
		}
	}
	os.Rename(w.cfg.ActionLogPath, w.cfg.ActionLogPath+fmtBak(1))
}

func fmtBak(n int) string {
	return ".bak." + strconv.Itoa(n)
}

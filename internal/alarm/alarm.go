// Package alarm keeps persisted one-shot alarms and fires them from a
// background dispatcher loop.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
)

// ErrNoOwner is returned when an alarm is registered without a signed-in user.
var ErrNoOwner = errors.New("alarm requires an authenticated owner")

// Handler receives the payload of a fired alarm. The owner is available
// through auth.UserID(ctx).
type Handler func(ctx context.Context, payload []byte) error

type Config struct {
	ExactAllowed  bool
	TickInterval  time.Duration
	InexactWindow time.Duration
}

// Manager registers alarms and dispatches them when due.
type Manager struct {
	mu      sync.RWMutex
	alarms  *store.AlarmStore
	handler Handler
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(alarms *store.AlarmStore, handler Handler, cfg Config, logger *slog.Logger) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Second
	}
	return &Manager{
		alarms:  alarms,
		handler: handler,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// CanScheduleExactAlarms reports whether exact alarms are permitted.
func (m *Manager) CanScheduleExactAlarms() bool {
	return m.cfg.ExactAllowed
}

// SetExact registers an alarm that fires as soon as at has passed. An alarm
// with the same id is replaced.
func (m *Manager) SetExact(ctx context.Context, id int32, at time.Time, payload []byte) error {
	return m.register(ctx, id, at, true, payload)
}

// Set registers an inexact alarm. It may fire up to the inexact window
// after at, batched with other alarms.
func (m *Manager) Set(ctx context.Context, id int32, at time.Time, payload []byte) error {
	return m.register(ctx, id, at, false, payload)
}

func (m *Manager) register(ctx context.Context, id int32, at time.Time, exact bool, payload []byte) error {
	owner := auth.UserID(ctx)
	if owner == 0 {
		return ErrNoOwner
	}
	if err := m.alarms.Upsert(id, owner, at, exact, payload); err != nil {
		return err
	}
	m.logger.Debug("alarm set", "id", id, "owner", owner, "trigger_at", at, "exact", exact)
	return nil
}

// Cancel removes the caller's pending alarm with id. Alarms that do not
// exist or belong to another user are left alone.
func (m *Manager) Cancel(ctx context.Context, id int32) error {
	a, err := m.alarms.GetByID(id)
	if err != nil {
		return err
	}
	if a == nil || a.OwnerUserID != auth.UserID(ctx) {
		return nil
	}
	if _, err := m.alarms.Delete(id); err != nil {
		return err
	}
	m.logger.Debug("alarm cancelled", "id", id)
	return nil
}

// Pending lists the alarms waiting to fire for ownerID.
func (m *Manager) Pending(ownerID int64) ([]model.Alarm, error) {
	return m.alarms.ListByOwner(ownerID)
}

// PendingCount reports how many alarms are waiting across all owners.
func (m *Manager) PendingCount() (int, error) {
	return m.alarms.Count()
}

// Start fires overdue alarms, then begins the dispatcher loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.TickInterval)
		defer ticker.Stop()

		m.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the dispatcher.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) tick(ctx context.Context) {
	if _, err := m.RunDue(ctx); err != nil {
		m.logger.Error("dispatch alarms", "error", err)
	}
}

// RunDue fires every alarm that is due now, in trigger order, and returns
// how many handlers ran. Each alarm is removed before its handler runs so
// it fires at most once.
func (m *Manager) RunDue(ctx context.Context) (int, error) {
	due, err := m.alarms.ListDue(m.now(), m.cfg.InexactWindow)
	if err != nil {
		return 0, fmt.Errorf("list due alarms: %w", err)
	}

	fired := 0
	for _, a := range due {
		if ctx.Err() != nil {
			return fired, nil
		}

		removed, err := m.alarms.Delete(a.ID)
		if err != nil {
			m.logger.Error("remove fired alarm", "id", a.ID, "error", err)
			continue
		}
		if !removed {
			// cancelled since listing
			continue
		}

		fired++
		hctx := auth.ForUser(ctx, a.OwnerUserID)
		if err := m.handler(hctx, a.Payload); err != nil {
			m.logger.Error("alarm handler", "id", a.ID, "owner", a.OwnerUserID, "error", err)
			continue
		}
		m.logger.Info("alarm fired", "id", a.ID, "owner", a.OwnerUserID, "late", m.now().Sub(a.TriggerAt).Round(time.Second))
	}
	return fired, nil
}

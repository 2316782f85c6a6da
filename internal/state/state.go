// Package state maintains the ambient "current project" and "current
// session" per caller. Handlers consult it when a tool call omits an
// explicit project or session argument.
package state

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/storage"
	"github.com/haasonsaas/aidis/pkg/models"
)

// Manager tracks per-caller ambient state. Different callers have
// independent state; each caller's state is accessed under its own mutex.
type Manager struct {
	projects *storage.ProjectStore
	sessions *storage.SessionStore
	gw       *storage.Gateway
	logger   *observability.Logger

	mu      sync.Mutex
	callers map[string]*callerState
}

type callerState struct {
	mu        sync.Mutex
	sessionID string
	projectID string
}

// NewManager creates the ambient state manager.
func NewManager(gw *storage.Gateway, projects *storage.ProjectStore, sessions *storage.SessionStore, logger *observability.Logger) *Manager {
	return &Manager{
		projects: projects,
		sessions: sessions,
		gw:       gw,
		logger:   logger,
		callers:  make(map[string]*callerState),
	}
}

func (m *Manager) caller(callerID string) *callerState {
	if callerID == "" {
		callerID = "default"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.callers[callerID]
	if !ok {
		cs = &callerState{}
		m.callers[callerID] = cs
	}
	return cs
}

// EnsureSession returns the caller's active session, creating one when none
// exists. A new session is associated with the last-used project, falling
// back to any active project.
func (m *Manager) EnsureSession(ctx context.Context, callerID string) (*models.Session, error) {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return m.ensureSessionLocked(ctx, cs)
}

func (m *Manager) ensureSessionLocked(ctx context.Context, cs *callerState) (*models.Session, error) {
	if cs.sessionID != "" {
		session, err := m.sessions.Get(ctx, cs.sessionID)
		if err == nil && session.Active() {
			return session, nil
		}
		if err != nil && !errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
		cs.sessionID = ""
	}

	// Adopt a surviving active session before starting a new one.
	if session, err := m.sessions.Active(ctx); err == nil {
		cs.sessionID = session.ID
		if session.ProjectID != "" && cs.projectID == "" {
			cs.projectID = session.ProjectID
		}
		return session, nil
	} else if !errs.Is(err, errs.KindNotFound) {
		return nil, err
	}

	projectID := cs.projectID
	if projectID == "" {
		last, err := m.sessions.LastProjectID(ctx)
		if err != nil {
			return nil, err
		}
		projectID = last
	}
	if projectID == "" {
		if project, err := m.projects.AnyActive(ctx); err == nil {
			projectID = project.ID
		} else if !errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
	}

	session := &models.Session{ProjectID: projectID}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	cs.sessionID = session.ID
	cs.projectID = projectID
	m.logger.Info(ctx, "auto-started session", "new_session_id", session.ID, "session_project_id", projectID)
	return session, nil
}

// CurrentProject returns the caller's current project. When unset it
// selects any active project, records the selection and returns it.
func (m *Manager) CurrentProject(ctx context.Context, callerID string) (*models.Project, error) {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.projectID != "" {
		project, err := m.projects.Get(ctx, cs.projectID)
		if err == nil {
			return project, nil
		}
		if !errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
		cs.projectID = ""
	}

	project, err := m.projects.AnyActive(ctx)
	if err != nil {
		return nil, err
	}
	cs.projectID = project.ID
	if cs.sessionID != "" {
		if err := m.sessions.AssignProject(ctx, cs.sessionID, project.ID); err != nil {
			m.logger.Warn(ctx, "failed to record project selection", "error", err)
		}
	}
	return project, nil
}

// CurrentProjectID returns the recorded current project without touching
// the database. Empty when none has been selected yet.
func (m *Manager) CurrentProjectID(callerID string) string {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.projectID
}

// SwitchProject atomically replaces the caller's current project after a
// three-phase check: pre-switch validation, atomic pointer update,
// post-switch verification. Any failure rolls the pointer back to the
// pre-switch project and surfaces a typed error.
func (m *Manager) SwitchProject(ctx context.Context, callerID, ref string) (*models.Project, error) {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Phase (a): pre-switch validation.
	target, err := m.projects.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if target.Status == models.ProjectStatusArchived {
		return nil, errs.E(errs.KindPreSwitchValidationFailed,
			"project %q is archived and cannot become current", target.Name)
	}
	session, err := m.ensureSessionLocked(ctx, cs)
	if err != nil {
		return nil, errs.Wrap(errs.KindPreSwitchValidationFailed, err, "current session inconsistent")
	}

	previous := cs.projectID

	// Phase (b): atomic pointer update.
	err = m.gw.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sessions SET project_id = $1 WHERE id = $2`,
			target.ID, session.ID)
		if err != nil {
			return storage.MapError(err, "switch project pointer")
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return storage.MapError(err, "switch project rows affected")
		}
		if rows == 0 {
			return errs.E(errs.KindAtomicSwitchFailed, "session %q vanished during switch", session.ID)
		}
		return nil
	})
	if err != nil {
		m.rollbackPointer(ctx, session.ID, previous)
		if errs.KindOf(err) == errs.KindAtomicSwitchFailed {
			return nil, err
		}
		return nil, errs.Wrap(errs.KindAtomicSwitchFailed, err, "atomic project switch failed")
	}

	// Phase (c): post-switch verification.
	verify, err := m.sessions.Get(ctx, session.ID)
	if err != nil || verify.ProjectID != target.ID {
		m.rollbackPointer(ctx, session.ID, previous)
		if err != nil {
			return nil, errs.Wrap(errs.KindAtomicSwitchFailed, err, "post-switch verification failed")
		}
		return nil, errs.E(errs.KindAtomicSwitchFailed,
			"post-switch verification read %q, want %q", verify.ProjectID, target.ID)
	}

	cs.projectID = target.ID
	m.logger.Info(ctx, "switched project", "project", target.Name, "target_project_id", target.ID)
	return target, nil
}

func (m *Manager) rollbackPointer(ctx context.Context, sessionID, previous string) {
	if err := m.sessions.AssignProject(ctx, sessionID, previous); err != nil {
		m.logger.Warn(ctx, "project switch rollback failed", "error", err, "previous_project_id", previous)
	}
}

// SessionID returns the caller's current session id, if any.
func (m *Manager) SessionID(callerID string) string {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sessionID
}

// EndSession ends the caller's active session. The next tool call
// auto-creates a fresh one.
func (m *Manager) EndSession(ctx context.Context, callerID string) error {
	cs := m.caller(callerID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.sessionID == "" {
		if session, err := m.sessions.Active(ctx); err == nil {
			cs.sessionID = session.ID
		} else if errs.Is(err, errs.KindNotFound) {
			return nil
		} else {
			return err
		}
	}

	err := m.sessions.End(ctx, cs.sessionID, time.Now().UTC())
	cs.sessionID = ""
	return err
}

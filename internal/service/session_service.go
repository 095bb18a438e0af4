package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/records-console/internal/models"
	appErrors "github.com/noah-isme/records-console/pkg/errors"
)

type sessionGateway interface {
	Me(ctx context.Context) (models.Session, error)
	Login(ctx context.Context, creds models.Credentials) (models.Session, error)
	Register(ctx context.Context, creds models.Credentials) error
	Logout(ctx context.Context) error
}

// directory is the dependent-collection contract the session controller
// drives: a full reload on session transitions, a local wipe on logout.
type directory interface {
	Load(ctx context.Context) error
	Reset()
}

// SessionService gatekeeps every other component: the student and user
// directories are refreshed after each successful session transition and
// cleared when the session ends.
type SessionService struct {
	mu       sync.Mutex
	gw       sessionGateway
	students directory
	users    directory
	logger   *zap.Logger

	session      models.Session
	registerMode bool
}

// NewSessionService constructs the session controller.
func NewSessionService(gw sessionGateway, students, users directory, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{gw: gw, students: students, users: users, logger: logger}
}

// Session returns a copy of the current session state.
func (s *SessionService) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// RegisterMode reports whether the login form is in registration mode.
func (s *SessionService) RegisterMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerMode
}

// SetRegisterMode toggles between login and registration entry.
func (s *SessionService) SetRegisterMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerMode = on
}

// CheckSession queries the backend for an active session on startup. When one
// exists the dependent directories are loaded; otherwise local state stays
// logged out and the login form remains the entry point.
func (s *SessionService) CheckSession(ctx context.Context) error {
	session, err := s.gw.Me(ctx)
	if err != nil {
		s.setSession(models.Session{})
		return err
	}
	if !session.LoggedIn {
		s.setSession(models.Session{})
		return nil
	}
	s.setSession(session)
	s.loadDependents(ctx, session)
	return nil
}

// Login authenticates with the backend. On failure the session stays logged
// out and the server's message is surfaced verbatim; nothing is retried.
func (s *SessionService) Login(ctx context.Context, creds *models.Credentials) error {
	if err := requireCredentials(creds); err != nil {
		return err
	}
	session, err := s.gw.Login(ctx, *creds)
	if err != nil {
		return err
	}
	creds.Password = ""
	s.setSession(session)
	s.loadDependents(ctx, session)
	return nil
}

// Register creates an account. Success switches the entry form back to login
// mode without authenticating: registration and authentication are
// deliberately decoupled.
func (s *SessionService) Register(ctx context.Context, creds *models.Credentials) error {
	if err := requireCredentials(creds); err != nil {
		return err
	}
	if err := s.gw.Register(ctx, *creds); err != nil {
		return err
	}
	s.SetRegisterMode(false)
	return nil
}

// Logout asks the backend to terminate the session, then clears all local
// state regardless of the outcome. Depending on a server acknowledgment here
// would risk a stuck logged-in-with-no-data state.
func (s *SessionService) Logout(ctx context.Context) {
	if err := s.gw.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed, clearing local state anyway", zap.Error(err))
	}
	s.setSession(models.Session{})
	s.students.Reset()
	s.users.Reset()
}

func (s *SessionService) setSession(session models.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// loadDependents refreshes the directories after a successful session
// transition. A failed load is logged, not fatal: the session itself is valid
// and the user can retry from the console.
func (s *SessionService) loadDependents(ctx context.Context, session models.Session) {
	if err := s.students.Load(ctx); err != nil {
		s.logger.Warn("student directory load failed", zap.Error(err))
	}
	if session.Role == models.RoleTeacher {
		if err := s.users.Load(ctx); err != nil {
			s.logger.Warn("user directory load failed", zap.Error(err))
		}
	}
}

// SessionRoles adapts a late-bound session service into a RoleProvider. The
// session controller drives the directories and the directories consult the
// session for permissions; late binding breaks the construction cycle.
type SessionRoles func() *SessionService

// Session implements RoleProvider.
func (f SessionRoles) Session() models.Session {
	if svc := f(); svc != nil {
		return svc.Session()
	}
	return models.Session{}
}

func requireCredentials(creds *models.Credentials) error {
	if creds == nil || strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return appErrors.Clone(appErrors.ErrValidation, "username and password are required")
	}
	return nil
}

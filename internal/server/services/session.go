package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
)

// IssuePolicy decides what happens when the refresh store rejects the
// record written at signup or login.
type IssuePolicy int

const (
	// IssueFailOpen logs the failure and still hands out the token pair.
	// The refresh token then cannot be used until the next login.
	IssueFailOpen IssuePolicy = iota
	// IssueFailClosed rejects the request with common.ErrStoreUnavailable.
	IssueFailClosed
)

// ParseIssuePolicy accepts "fail-open" and "fail-closed".
func ParseIssuePolicy(s string) (IssuePolicy, error) {
	switch s {
	case "", "fail-open":
		return IssueFailOpen, nil
	case "fail-closed":
		return IssueFailClosed, nil
	default:
		return IssueFailOpen, fmt.Errorf("unknown issue policy %q", s)
	}
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is what signup and login hand back to the transport layer.
type Session struct {
	User   *models.User
	Tokens TokenPair
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

const (
	eventSignup  = "signup"
	eventLogin   = "login"
	eventLogout  = "logout"
	eventRefresh = "refresh"
)

// SessionManager drives signup, login, logout and refresh. It is stateless
// apart from its collaborators and safe for concurrent use.
type SessionManager struct {
	identities *IdentityService
	codec      *auth.Codec
	store      refreshtokens.Repository
	policy     IssuePolicy
	logger     logging.Logger
	metrics    *metrics.Metrics
}

type SessionOption func(*SessionManager)

func WithIssuePolicy(p IssuePolicy) SessionOption {
	return func(m *SessionManager) {
		m.policy = p
	}
}

func WithMetrics(mt *metrics.Metrics) SessionOption {
	return func(m *SessionManager) {
		m.metrics = mt
	}
}

func NewSessionManager(identities *IdentityService, codec *auth.Codec, store refreshtokens.Repository, logger logging.Logger, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		identities: identities,
		codec:      codec,
		store:      store,
		policy:     IssueFailOpen,
		logger:     logger.With("module", "sessions"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Signup registers a new identity and opens a session for it.
func (m *SessionManager) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	u, err := m.identities.Register(ctx, in.Email, in.Name, in.Password)
	if err != nil {
		m.record(ctx, eventSignup, err)
		return nil, err
	}

	s, err := m.issue(ctx, u)
	m.record(ctx, eventSignup, err, "user_id", u.ID)
	return s, err
}

// Login verifies credentials and opens a session, replacing any refresh
// record the user already had. A failed credential check never touches the
// refresh store.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := m.identities.Authenticate(ctx, email, password)
	if err != nil {
		m.record(ctx, eventLogin, err)
		return nil, err
	}

	s, err := m.issue(ctx, u)
	m.record(ctx, eventLogin, err, "user_id", u.ID)
	return s, err
}

// Logout forgets the refresh record holding refreshToken. An empty token or
// one with no record is not an error.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		m.record(ctx, eventLogout, nil)
		return nil
	}

	err := m.store.DeleteByToken(ctx, refreshToken)
	if err != nil {
		m.metrics.StoreFailure("delete")
		err = fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	m.record(ctx, eventLogout, err)
	return err
}

// Refresh mints a new access token from a refresh token. The refresh token
// itself is not rotated.
//
// The token must verify, be the record currently stored for its subject
// and, when subjectID is non-empty, belong to that subject. A stale or
// foreign token yields common.ErrRefreshNotCurrent.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken, subjectID string) (string, error) {
	access, err := m.refresh(ctx, refreshToken, subjectID)
	m.record(ctx, eventRefresh, err)
	return access, err
}

func (m *SessionManager) refresh(ctx context.Context, refreshToken, subjectID string) (string, error) {
	claims, err := m.codec.Verify(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return "", err
	}
	if subjectID != "" && claims.UserID != subjectID {
		return "", common.ErrRefreshNotCurrent
	}

	rec, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrRefreshNotCurrent
		}
		m.metrics.StoreFailure("find")
		return "", fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	if rec.UserID != claims.UserID {
		return "", common.ErrRefreshNotCurrent
	}

	u, err := m.identities.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}

	return m.codec.Mint(u.ID, u.Role, auth.PurposeAccess)
}

// Profile returns the identity behind a verified access token.
func (m *SessionManager) Profile(ctx context.Context, userID string) (*models.User, error) {
	return m.identities.FindByID(ctx, userID)
}

func (m *SessionManager) issue(ctx context.Context, u *models.User) (*Session, error) {
	access, err := m.codec.Mint(u.ID, u.Role, auth.PurposeAccess)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	refresh, err := m.codec.Mint(u.ID, u.Role, auth.PurposeRefresh)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	if err := m.store.Upsert(ctx, u.ID, refresh); err != nil {
		m.metrics.StoreFailure("upsert")
		if m.policy == IssueFailClosed {
			return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
		}
		m.logger.Warn(ctx, "refresh record not stored, issuing anyway",
			"user_id", u.ID, "error", err)
	}

	return &Session{
		User:   u,
		Tokens: TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

func (m *SessionManager) record(ctx context.Context, event string, err error, args ...any) {
	outcome := outcomeOf(err)
	m.metrics.SessionEvent(event, outcome)

	args = append(args, "event", event, "outcome", outcome)
	switch outcome {
	case metrics.OutcomeSuccess:
		m.logger.Info(ctx, "session "+event, args...)
	case metrics.OutcomeRejected:
		m.logger.Info(ctx, "session "+event+" rejected", append(args, "reason", err.Error())...)
	default:
		m.logger.Error(ctx, "session "+event+" failed", append(args, "error", err)...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrDuplicateIdentity),
		errors.Is(err, common.ErrCredentialMismatch),
		errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrTokenMissing),
		errors.Is(err, common.ErrTokenInvalidSignature),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshNotCurrent),
		errors.Is(err, common.ErrIdentityNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// Credentials are the raw values a caller presented. AgentKey wins when both
// are set.
type Credentials struct {
	BearerToken string
	AgentKey    string
}

// Empty reports whether no credential was presented.
func (c Credentials) Empty() bool {
	return c.BearerToken == "" && c.AgentKey == ""
}

// SeenRecorder receives agent activity. Implementations must not block.
type SeenRecorder interface {
	RecordSeen(agentID string, at time.Time)
}

// Resolver maps credentials to a Principal.
type Resolver struct {
	tokens *TokenManager
	humans repository.HumanRepository
	agents repository.AgentRepository
	seen   SeenRecorder
	logger *zap.Logger
	now    func() time.Time
}

// NewResolver constructs a Resolver. seen may be nil.
func NewResolver(tokens *TokenManager, humans repository.HumanRepository, agents repository.AgentRepository, seen SeenRecorder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		tokens: tokens,
		humans: humans,
		agents: agents,
		seen:   seen,
		logger: logger.Named("resolver"),
		now:    time.Now,
	}
}

// Resolve authenticates creds. Unknown or malformed credentials yield
// Unauthenticated, a deactivated agent yields Forbidden.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Principal, error) {
	switch {
	case creds.AgentKey != "":
		return r.resolveAgent(ctx, creds.AgentKey)
	case creds.BearerToken != "":
		return r.resolveHuman(ctx, creds.BearerToken)
	default:
		return nil, apperrors.NewUnauthenticated("missing credentials")
	}
}

func (r *Resolver) resolveAgent(ctx context.Context, key string) (*Principal, error) {
	agent, err := r.agents.GetByAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("invalid agent key")
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.IsActive {
		return nil, apperrors.NewForbidden("agent is deactivated")
	}
	if r.seen != nil {
		r.seen.RecordSeen(agent.ID, r.now())
	}
	return AgentPrincipal(agent), nil
}

func (r *Resolver) resolveHuman(ctx context.Context, token string) (*Principal, error) {
	humanID, err := r.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperrors.NewUnauthenticated("token expired")
		}
		return nil, apperrors.NewUnauthenticated("invalid token")
	}
	human, err := r.humans.GetByID(ctx, humanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("token subject not found", zap.String("human_id", humanID))
			return nil, apperrors.NewUnauthenticated("user not found")
		}
		return nil, apperrors.MapError(err)
	}
	return HumanPrincipal(human), nil
}

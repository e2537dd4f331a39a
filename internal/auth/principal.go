package auth

import "github.com/TESCHEL/agenthq/internal/domain"

// Principal represents the authenticated caller. Exactly one of Human or
// Agent is set, matching Kind.
type Principal struct {
	Kind  domain.PrincipalKind
	Human *domain.Human
	Agent *domain.Agent
}

// HumanPrincipal wraps a human.
func HumanPrincipal(h *domain.Human) *Principal {
	return &Principal{Kind: domain.PrincipalHuman, Human: h}
}

// AgentPrincipal wraps an agent.
func AgentPrincipal(a *domain.Agent) *Principal {
	return &Principal{Kind: domain.PrincipalAgent, Agent: a}
}

// ID returns the id of the underlying human or agent.
func (p *Principal) ID() string {
	switch {
	case p == nil:
		return ""
	case p.Kind == domain.PrincipalAgent && p.Agent != nil:
		return p.Agent.ID
	case p.Kind == domain.PrincipalHuman && p.Human != nil:
		return p.Human.ID
	}
	return ""
}

// IsHuman reports whether the caller is a human.
func (p *Principal) IsHuman() bool {
	return p != nil && p.Kind == domain.PrincipalHuman && p.Human != nil
}

// IsAgent reports whether the caller is an agent.
func (p *Principal) IsAgent() bool {
	return p != nil && p.Kind == domain.PrincipalAgent && p.Agent != nil
}

// Author returns the message author variant for this caller.
func (p *Principal) Author() domain.Author {
	if p.IsAgent() {
		return domain.AgentAuthor{AgentID: p.Agent.ID}
	}
	return domain.HumanAuthor{HumanID: p.Human.ID}
}

package onboarding

import (
	"context"
	"sync"

	"legalgate/pkg/platform/sentinel"
)

// InMemoryDecisionStore keeps verification decisions per session.
type InMemoryDecisionStore struct {
	mu        sync.RWMutex
	decisions map[string]VerificationDecision
}

func NewInMemoryDecisionStore() *InMemoryDecisionStore {
	return &InMemoryDecisionStore{decisions: make(map[string]VerificationDecision)}
}

func (s *InMemoryDecisionStore) Save(_ context.Context, decision VerificationDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decision.SessionID] = decision
	return nil
}

func (s *InMemoryDecisionStore) Get(_ context.Context, sessionID string) (*VerificationDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decision, ok := s.decisions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &decision, nil
}

func (s *InMemoryDecisionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decisions, sessionID)
	return nil
}

// InMemoryTierStore keeps tier choices per subject.
type InMemoryTierStore struct {
	mu      sync.RWMutex
	choices map[string]TierChoice
}

func NewInMemoryTierStore() *InMemoryTierStore {
	return &InMemoryTierStore{choices: make(map[string]TierChoice)}
}

func (s *InMemoryTierStore) Choose(_ context.Context, choice TierChoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.choices[choice.SubjectID] = choice
	return nil
}

func (s *InMemoryTierStore) Get(_ context.Context, subjectID string) (*TierChoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	choice, ok := s.choices[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &choice, nil
}

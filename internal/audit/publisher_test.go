package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalgate/pkg/requestcontext"
)

func TestEmitFillsDefaults(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	err := publisher.Emit(ctx, Event{
		SubjectID: "subj-1",
		Action:    ActionConsentGranted,
		Outcome:   "2026-01",
	})
	require.NoError(t, err)

	events, err := publisher.List(ctx, "subj-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, ActionConsentGranted, events[0].Action)
}

func TestListIsolatesSubjects(t *testing.T) {
	publisher := NewPublisher(NewInMemoryStore())
	ctx := context.Background()

	require.NoError(t, publisher.Emit(ctx, Event{SubjectID: "a", Action: ActionTierChosen}))
	require.NoError(t, publisher.Emit(ctx, Event{SubjectID: "b", Action: ActionConsentRevoked}))

	events, err := publisher.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionTierChosen, events[0].Action)
}

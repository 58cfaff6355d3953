package drill

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise-api/internal/db/dbtest"
)

func TestStoreIntegration(t *testing.T) {
	store := NewStore(dbtest.New(t))
	ctx := context.Background()

	in := ScenarioInput{
		Title:       "Store test " + uuid.NewString(),
		Description: "integration",
		RegionTags:  []string{"coastal"},
		Tree:        loadTree(t, earthquakeTree),
		Difficulty:  Intermediate,
	}
	in.Normalize()
	sc, err := store.CreateScenario(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, sc.TotalSteps)
	assert.Equal(t, in.Tree, sc.Tree)

	got, err := store.GetScenario(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.Title, got.Title)

	id, err := store.ScenarioIDByTitle(ctx, in.Title)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, id)

	t.Run("same day submissions share one row", func(t *testing.T) {
		owner := uuid.New()
		day := time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC)

		first, err := store.UpsertAttempt(ctx, AttemptWrite{
			OwnerID: owner, ScenarioID: sc.ID, Date: day,
			Responses: Responses{Path: []string{"s1"}, ChoicesMade: map[string]string{"s1": "c1"}},
			Score:     10,
			Completed: false,
		})
		require.NoError(t, err)
		assert.False(t, first.Completed)
		assert.Nil(t, first.EndedAt)

		second, err := store.UpsertAttempt(ctx, AttemptWrite{
			OwnerID: owner, ScenarioID: sc.ID, Date: day.Add(10 * time.Hour),
			Responses: Responses{Path: []string{"s1", "s2"}, ChoicesMade: map[string]string{"s1": "c1", "s2": "c3"}},
			Score:     20,
			Completed: false,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.Completed)
		require.NotNil(t, second.EndedAt)

		third, err := store.UpsertAttempt(ctx, AttemptWrite{
			OwnerID: owner, ScenarioID: sc.ID, Date: day,
			Responses: Responses{Path: []string{"s1"}, ChoicesMade: map[string]string{"s1": "c2"}},
			Score:     -5,
			Completed: true,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, third.ID)
		assert.True(t, second.EndedAt.Equal(*third.EndedAt), "end time is set once")

		stored, err := store.GetAttempt(ctx, owner, first.ID)
		require.NoError(t, err)
		assert.Equal(t, -5, stored.Score)
		assert.Equal(t, []string{"s1"}, stored.Responses.Path)
		assert.Equal(t, sc.Title, stored.ScenarioTitle)

		_, err = store.GetAttempt(ctx, uuid.New(), first.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		next, err := store.UpsertAttempt(ctx, AttemptWrite{
			OwnerID: owner, ScenarioID: sc.ID, Date: day.AddDate(0, 0, 1),
			Responses: Responses{Path: []string{"s1"}, ChoicesMade: map[string]string{}},
			Completed: true,
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, next.ID)

		completed := true
		list, err := store.ListAttempts(ctx, owner, AttemptFilter{ScenarioID: &sc.ID, Completed: &completed})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("list filters", func(t *testing.T) {
		list, err := store.ListScenarios(ctx, ScenarioFilter{Region: "coastal", Difficulty: Intermediate})
		require.NoError(t, err)
		var found *ScenarioSummary
		for i := range list {
			if list[i].ID == sc.ID {
				found = &list[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, 5, found.TotalSteps)
		assert.GreaterOrEqual(t, found.AttemptsCount, 2)

		none, err := store.ListScenarios(ctx, ScenarioFilter{Region: "nowhere-" + uuid.NewString()})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("deactivated scenario hidden", func(t *testing.T) {
		inactive := false
		in.IsActive = &inactive
		_, err := store.ReplaceScenario(ctx, sc.ID, in)
		require.NoError(t, err)

		_, err = store.GetScenario(ctx, sc.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.ReplaceScenario(ctx, uuid.New(), in)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

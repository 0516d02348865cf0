package persistence

import (
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) BotRepository {
	t.Helper()
	repo, err := NewInMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleBot(id string, status models.BotStatus) *models.BotRecord {
	cfg := models.StrategyConfig{}
	cfg.Normalize()
	return &models.BotRecord{
		ID:        id,
		UserID:    "user-1",
		Strategy:  models.StrategyDCA,
		Symbol:    "BTCUSDT",
		Status:    status,
		Config:    cfg,
		State:     models.NewStrategyState(models.StrategyDCA),
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndLoadBotRoundTrip(t *testing.T) {
	repo := testRepo(t)

	bot := sampleBot("bot-1", models.BotActive)
	bot.State.DCA.RoundsDone = 7
	require.NoError(t, repo.SaveBot(bot))

	loaded, err := repo.LoadBot("bot-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, bot.ID, loaded.ID)
	assert.Equal(t, models.StrategyDCA, loaded.Strategy)
	// The tagged state union survives persistence intact.
	assert.Equal(t, models.StrategyDCA, loaded.State.Type)
	require.NotNil(t, loaded.State.DCA)
	assert.Equal(t, 7, loaded.State.DCA.RoundsDone)
}

func TestLoadMissingBotReturnsNil(t *testing.T) {
	repo := testRepo(t)
	loaded, err := repo.LoadBot("nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveBotRequiresID(t *testing.T) {
	repo := testRepo(t)
	assert.Error(t, repo.SaveBot(&models.BotRecord{}))
}

func TestListActiveBotsFiltersPaused(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.SaveBot(sampleBot("bot-1", models.BotActive)))
	require.NoError(t, repo.SaveBot(sampleBot("bot-2", models.BotPaused)))
	require.NoError(t, repo.SaveBot(sampleBot("bot-3", models.BotActive)))

	bots, err := repo.ListActiveBots()
	require.NoError(t, err)
	require.Len(t, bots, 2)
	for _, b := range bots {
		assert.Equal(t, models.BotActive, b.Status)
	}
}

func TestSaveBotOverwritesExisting(t *testing.T) {
	repo := testRepo(t)
	bot := sampleBot("bot-1", models.BotActive)
	require.NoError(t, repo.SaveBot(bot))

	bot.Status = models.BotPaused
	require.NoError(t, repo.SaveBot(bot))

	bots, err := repo.ListActiveBots()
	require.NoError(t, err)
	assert.Empty(t, bots)
}

package implementation

import (
	"context"
	"os"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/repository/specification"
	"helmet-orchestrator-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepositoriesAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	ctx := context.Background()

	t.Run("command log round trip", func(t *testing.T) {
		repo := NewCommandLogRepository(db)
		commandID := "it-" + uuid.NewString()
		log := &entity.CommandLog{
			CommandID:  commandID,
			Kind:       string(entity.CommandSetMode),
			Source:     string(entity.SourceOperator),
			Status:     string(entity.StatusAccepted),
			Message:    "night_vision mode activated",
			Parameters: map[string]string{"mode": "night_vision"},
			Mode:       string(entity.ModeNightVision),
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, log))
		assert.NotEqual(t, uuid.Nil, log.Id)

		found, err := repo.FindAll(ctx, specification.ByCommandID{CommandID: commandID})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "night_vision", found[0].Parameters["mode"])
	})

	t.Run("telemetry log round trip", func(t *testing.T) {
		repo := NewTelemetryLogRepository(db)
		since := time.Now().UTC().Add(-time.Second)
		require.NoError(t, repo.Create(ctx, &entity.TelemetryLog{CPUPercent: 42, RecordedAt: time.Now().UTC()}))

		found, err := repo.FindAll(ctx,
			specification.RecordedSince{Since: since},
			specification.OrderBy{Field: "recorded_at", Desc: true},
			specification.Pagination{Limit: 1},
		)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, 42.0, found[0].CPUPercent)
	})
}

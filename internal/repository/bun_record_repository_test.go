package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaogaogoo/sport-log/internal/db/models"
)

func TestBunRecordRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRecordRepository[models.Diary](db)
	ctx := context.Background()

	user := makeUser(t, db, "ada")
	other := makeUser(t, db, "bert")

	diary := &models.Diary{
		ID:     models.DiaryID(models.RandomID()),
		UserID: user.ID,
		Date:   "2024-02-01",
	}
	require.NoError(t, repo.Create(ctx, diary))
	assert.False(t, diary.LastChange.IsZero(), "create stamps last_change")

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, int64(diary.ID))
		require.NoError(t, err)
		assert.Equal(t, diary.ID, got.ID)
		assert.Equal(t, models.Date("2024-02-01"), got.Date)
	})

	t.Run("get missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, models.RandomID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		dup := &models.Diary{ID: diary.ID, UserID: user.ID, Date: "2024-02-02"}
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)
	})

	t.Run("list is scoped to the owner", func(t *testing.T) {
		mine, err := repo.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		theirs, err := repo.ListByUser(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, theirs)
	})

	t.Run("update refreshes last_change", func(t *testing.T) {
		before := diary.LastChange
		comments := "rest day"
		diary.Comments = &comments
		require.NoError(t, repo.Update(ctx, diary))
		assert.True(t, diary.LastChange.After(before) || diary.LastChange.Equal(before))

		got, err := repo.GetByID(ctx, int64(diary.ID))
		require.NoError(t, err)
		require.NotNil(t, got.Comments)
		assert.Equal(t, "rest day", *got.Comments)
	})

	t.Run("soft delete leaves a tombstone", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, int64(diary.ID)))

		live, err := repo.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, live)

		got, err := repo.GetByID(ctx, int64(diary.ID))
		require.NoError(t, err)
		assert.True(t, got.Deleted)
	})

	t.Run("sync includes tombstones", func(t *testing.T) {
		rows, err := repo.SyncByUser(ctx, user.ID, time.Time{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.True(t, rows[0].Deleted)

		epoch, err := repo.MaxLastChange(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, epoch.IsZero())

		later, err := repo.SyncByUser(ctx, user.ID, epoch.Add(time.Second))
		require.NoError(t, err)
		assert.Empty(t, later)
	})
}

func TestBunRecordRepositorySharedRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRecordRepository[models.Movement](db).WithSharedRows()
	ctx := context.Background()

	user := makeUser(t, db, "carl")
	other := makeUser(t, db, "dora")

	shared := &models.Movement{
		ID:       models.MovementID(models.RandomID()),
		Name:     "running",
		Category: models.MovementCategoryCardio,
	}
	owned := &models.Movement{
		ID:       models.MovementID(models.RandomID()),
		UserID:   &user.ID,
		Name:     "backsquat",
		Category: models.MovementCategoryStrength,
	}
	require.NoError(t, repo.Create(ctx, shared))
	require.NoError(t, repo.Create(ctx, owned))

	mine, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2, "own rows plus shared rows")

	theirs, err := repo.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1, "only the shared row")
	assert.Equal(t, shared.ID, theirs[0].ID)
}

func TestBunRecordRepositoryTimespan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRecordRepository[models.Wod](db).WithTimeColumn("date")
	ctx := context.Background()

	user := makeUser(t, db, "else")

	for _, date := range []models.Date{"2024-03-01", "2024-03-05", "2024-03-09"} {
		wod := &models.Wod{ID: models.WodID(models.RandomID()), UserID: user.ID, Date: date}
		require.NoError(t, repo.Create(ctx, wod))
	}

	rows, err := repo.ListByUserBetween(ctx, user.ID, "2024-03-02", "2024-03-09")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Date("2024-03-05"), rows[0].Date, "ordered by date")
	assert.Equal(t, models.Date("2024-03-09"), rows[1].Date)
}

func TestHardDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRecordRepository[models.Diary](db)
	ctx := context.Background()

	user := makeUser(t, db, "fria")

	old := &models.Diary{ID: models.DiaryID(models.RandomID()), UserID: user.ID, Date: "2024-01-01"}
	fresh := &models.Diary{ID: models.DiaryID(models.RandomID()), UserID: user.ID, Date: "2024-01-02"}
	live := &models.Diary{ID: models.DiaryID(models.RandomID()), UserID: user.ID, Date: "2024-01-03"}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, live))

	require.NoError(t, repo.SoftDelete(ctx, int64(old.ID)))
	require.NoError(t, repo.SoftDelete(ctx, int64(fresh.ID)))

	// Age the first tombstone past the cutoff.
	_, err := db.NewUpdate().Model((*models.Diary)(nil)).
		Set("last_change = ?", time.Now().UTC().AddDate(0, 0, -30)).
		Where("id = ?", int64(old.ID)).
		Exec(ctx)
	require.NoError(t, err)

	deleted, err := HardDeleteOlderThan(ctx, db, time.Now().UTC().AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.GetByID(ctx, int64(old.ID))
	assert.ErrorIs(t, err, ErrNotFound, "aged tombstone is gone")

	got, err := repo.GetByID(ctx, int64(fresh.ID))
	require.NoError(t, err)
	assert.True(t, got.Deleted, "recent tombstone is retained")

	_, err = repo.GetByID(ctx, int64(live.ID))
	assert.NoError(t, err, "live rows are untouched")
}

package board

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-workspace")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-workspace", client.Workspace())

		_, err := uuid.Parse(client.Origin())
		assert.NoError(t, err, "origin should be a session UUID")
	})

	t.Run("rejects empty workspace", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "workspace cannot be empty")
	})

	t.Run("each client gets its own origin", func(t *testing.T) {
		mr := miniredis.RunT(t)
		a, err := NewClient(&redis.Options{Addr: mr.Addr()}, "ws")
		require.NoError(t, err)
		defer a.Close()
		b, err := NewClient(&redis.Options{Addr: mr.Addr()}, "ws")
		require.NoError(t, err)
		defer b.Close()

		assert.NotEqual(t, a.Origin(), b.Origin())
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestMergeCell(t *testing.T) {
	ctx := context.Background()
	key := CellKey{Item: "CABEZAL", Platform: "NJORD", Stage: StageActual}

	t.Run("writes a new document", func(t *testing.T) {
		client, mr := setupTestClient(t)
		mr.SetTime(time.UnixMilli(1_700_000_000_000))

		err := client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform,
			Item:     key.Item,
			Stage:    key.Stage,
			Status:   StringPtr("green"),
		})
		require.NoError(t, err)

		doc, err := client.GetCell(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "NJORD", doc.Platform)
		assert.Equal(t, "CABEZAL", doc.Item)
		assert.Equal(t, StageActual, doc.Stage)
		require.NotNil(t, doc.Status)
		assert.Equal(t, "green", *doc.Status)
		assert.Nil(t, doc.Comment)
		assert.Equal(t, int64(1_700_000_000_000), doc.UpdatedAtMs)
		assert.Equal(t, client.Origin(), doc.Origin)
	})

	t.Run("merge does not clear absent fields", func(t *testing.T) {
		client, _ := setupTestClient(t)

		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item, Stage: key.Stage,
			Status: StringPtr("red"),
		}))
		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item, Stage: key.Stage,
			Comment: StringPtr("waiting on vendor"),
		}))

		doc, err := client.GetCell(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, doc.Status)
		require.NotNil(t, doc.Comment)
		assert.Equal(t, "red", *doc.Status)
		assert.Equal(t, "waiting on vendor", *doc.Comment)
	})

	t.Run("empty stage is stored as actual", func(t *testing.T) {
		client, _ := setupTestClient(t)

		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item,
			Status: StringPtr("blue"),
		}))

		doc, err := client.GetCell(ctx, CellKey{Item: key.Item, Platform: key.Platform})
		require.NoError(t, err)
		assert.Equal(t, StageActual, doc.Stage)
	})

	t.Run("stages are separate documents", func(t *testing.T) {
		client, _ := setupTestClient(t)

		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item, Stage: StageActual, Status: StringPtr("green"),
		}))
		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item, Stage: StageSiguiente, Status: StringPtr("red"),
		}))

		actual, err := client.GetCell(ctx, CellKey{Item: key.Item, Platform: key.Platform, Stage: StageActual})
		require.NoError(t, err)
		next, err := client.GetCell(ctx, CellKey{Item: key.Item, Platform: key.Platform, Stage: StageSiguiente})
		require.NoError(t, err)

		assert.Equal(t, "green", *actual.Status)
		assert.Equal(t, "red", *next.Status)
	})

	t.Run("rejects document without identity", func(t *testing.T) {
		client, _ := setupTestClient(t)

		err := client.MergeCell(ctx, &CellDocument{Item: "CABEZAL", Status: StringPtr("green")})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cell document")
	})

	t.Run("rejects unknown stage", func(t *testing.T) {
		client, _ := setupTestClient(t)

		err := client.MergeCell(ctx, &CellDocument{
			Platform: "NJORD", Item: "CABEZAL", Stage: "later", Status: StringPtr("green"),
		})
		assert.Error(t, err)
	})

	t.Run("publishes event after write", func(t *testing.T) {
		client, _ := setupTestClient(t)

		sub, err := client.SubscribeCellEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: key.Platform, Item: key.Item, Stage: key.Stage,
			Comment: StringPtr("ok"),
		}))

		select {
		case ev := <-sub.Events():
			require.NotNil(t, ev)
			assert.Equal(t, key, ev.Key())
			assert.Nil(t, ev.Status, "event carries only the written fields")
			require.NotNil(t, ev.Comment)
			assert.Equal(t, "ok", *ev.Comment)
			assert.Equal(t, client.Origin(), ev.Origin)
			assert.NotZero(t, ev.UpdatedAtMs)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for cell event")
		}
	})
}

func TestMergeMeta(t *testing.T) {
	ctx := context.Background()

	t.Run("fields written separately are merged", func(t *testing.T) {
		client, _ := setupTestClient(t)

		first := &MetaDocument{Platform: "GRID"}
		first.SetField(MetaActual, "BACAB 308")
		require.NoError(t, client.MergeMeta(ctx, first))

		second := &MetaDocument{Platform: "GRID"}
		second.SetField(MetaEtapaSiguiente, `12 1/4"`)
		require.NoError(t, client.MergeMeta(ctx, second))

		doc, err := client.GetMeta(ctx, "GRID")
		require.NoError(t, err)

		v, ok := doc.Field(MetaActual)
		assert.True(t, ok)
		assert.Equal(t, "BACAB 308", v)

		v, ok = doc.Field(MetaEtapaSiguiente)
		assert.True(t, ok)
		assert.Equal(t, `12 1/4"`, v)

		_, ok = doc.Field(MetaFuturo)
		assert.False(t, ok)
	})

	t.Run("stores stage fields under snake_case names", func(t *testing.T) {
		client, mr := setupTestClient(t)

		doc := &MetaDocument{Platform: "PAE"}
		doc.SetField(MetaEtapaActual, `20"`)
		require.NoError(t, client.MergeMeta(ctx, doc))

		assert.Equal(t, `20"`, mr.HGet(MetaKeyName("test-workspace", "PAE"), "etapa_actual"))
	})

	t.Run("rejects document without platform", func(t *testing.T) {
		client, _ := setupTestClient(t)
		err := client.MergeMeta(ctx, &MetaDocument{Actual: StringPtr("x")})
		assert.Error(t, err)
	})

	t.Run("publishes event after write", func(t *testing.T) {
		client, _ := setupTestClient(t)

		sub, err := client.SubscribeMetaEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		doc := &MetaDocument{Platform: "GALAR"}
		doc.SetField(MetaFuturo, "BACAB 309")
		require.NoError(t, client.MergeMeta(ctx, doc))

		select {
		case ev := <-sub.Events():
			assert.Equal(t, "GALAR", ev.Platform)
			v, ok := ev.Field(MetaFuturo)
			assert.True(t, ok)
			assert.Equal(t, "BACAB 309", v)
			_, ok = ev.Field(MetaActual)
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for meta event")
		}
	})
}

func TestGetCell_NotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	doc, err := client.GetCell(context.Background(), CellKey{Item: "MPD", Platform: "PAE"})
	assert.Nil(t, doc)
	assert.True(t, IsNotFound(err))
}

func TestGetMeta_NotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	doc, err := client.GetMeta(context.Background(), "PAE")
	assert.Nil(t, doc)
	assert.True(t, IsNotFound(err))
}

func TestListAndClearWorkspace(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestClient(t)

	for _, item := range []string{"CABEZAL", "FLUIDOS", "MPD"} {
		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: "NJORD", Item: item, Status: StringPtr("yellow"),
		}))
	}
	for _, platform := range []string{"NJORD", "GRID"} {
		doc := &MetaDocument{Platform: platform}
		doc.SetField(MetaActual, "well-"+platform)
		require.NoError(t, client.MergeMeta(ctx, doc))
	}

	// Another workspace on the same server must be untouched
	other, err := NewClient(&redis.Options{Addr: mr.Addr()}, "other-workspace")
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.MergeCell(ctx, &CellDocument{
		Platform: "NJORD", Item: "CABEZAL", Status: StringPtr("red"),
	}))

	cells, err := client.ListCells(ctx)
	require.NoError(t, err)
	assert.Len(t, cells, 3)

	metas, err := client.ListMetas(ctx)
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	removed, err := client.ClearWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	cells, err = client.ListCells(ctx)
	require.NoError(t, err)
	assert.Empty(t, cells)

	otherCells, err := other.ListCells(ctx)
	require.NoError(t, err)
	assert.Len(t, otherCells, 1)
}

func TestListCells_SkipsVanishedDocuments(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestClient(t)

	require.NoError(t, client.MergeCell(ctx, &CellDocument{
		Platform: "PAE", Item: "MPD", Status: StringPtr("green"),
	}))
	mr.SAdd(CellIndexKey("test-workspace"), "ghost")

	cells, err := client.ListCells(ctx)
	require.NoError(t, err)
	assert.Len(t, cells, 1)
}

func TestSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed payload is reported and skipped", func(t *testing.T) {
		client, mr := setupTestClient(t)

		sub, err := client.SubscribeCellEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		mr.Publish(CellEventsChannel("test-workspace"), "{not json")

		select {
		case err := <-sub.Errors():
			assert.Contains(t, err.Error(), "failed to unmarshal cell event")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for subscription error")
		}

		require.NoError(t, client.MergeCell(ctx, &CellDocument{
			Platform: "PAE", Item: "MPD", Status: StringPtr("green"),
		}))

		select {
		case ev := <-sub.Events():
			assert.Equal(t, "MPD", ev.Item)
		case <-time.After(2 * time.Second):
			t.Fatal("subscription should keep delivering after a bad message")
		}
	})

	t.Run("close is idempotent and closes channels", func(t *testing.T) {
		client, _ := setupTestClient(t)

		sub, err := client.SubscribeMetaEvents(ctx)
		require.NoError(t, err)

		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("events channel was not closed")
		}
	})

	t.Run("workspaces do not see each other's events", func(t *testing.T) {
		client, mr := setupTestClient(t)

		other, err := NewClient(&redis.Options{Addr: mr.Addr()}, "other-workspace")
		require.NoError(t, err)
		defer other.Close()

		sub, err := client.SubscribeCellEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, other.MergeCell(ctx, &CellDocument{
			Platform: "PAE", Item: "MPD", Status: StringPtr("green"),
		}))

		select {
		case ev := <-sub.Events():
			t.Fatalf("unexpected event from another workspace: %+v", ev)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

package leaderboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(client, zerolog.Nop(), ServiceOptions{})
}

func TestRecordResultOrdersByRating(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: alice, Username: "alice", Rating: 1216, Won: true}))
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: bob, Username: "bob", Rating: 1184, Won: false}))

	entries, err := svc.Top(ctx, WindowAllTime, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, alice, entries[0].PlayerID)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, 1216, entries[0].Rating)
	assert.Equal(t, 1, entries[0].Wins)
	assert.Equal(t, 1, entries[0].Games)

	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, bob, entries[1].PlayerID)
	assert.Equal(t, 0, entries[1].Wins)
	assert.Equal(t, 1, entries[1].Games)
}

func TestRecordResultUpdatesExistingRating(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	player := uuid.New()
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: player, Username: "carol", Rating: 1000, Won: false}))
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: player, Username: "carol", Rating: 1032, Won: true}))

	entries, err := svc.Top(ctx, WindowAllTime, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1032, entries[0].Rating)
	assert.Equal(t, 1, entries[0].Wins)
	assert.Equal(t, 2, entries[0].Games)
}

func TestRecordResultPopulatesMonthlyWindow(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	player := uuid.New()
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: player, Username: "dave", Rating: 1100, Won: true}))

	entries, err := svc.Top(ctx, WindowMonthly, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, player, entries[0].PlayerID)
}

func TestTopRejectsUnknownWindow(t *testing.T) {
	svc := testService(t)

	_, err := svc.Top(context.Background(), "weekly", 10)
	assert.Error(t, err)
}

func TestMarshalTopShape(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	player := uuid.New()
	require.NoError(t, svc.RecordResult(ctx, RecordRequest{PlayerID: player, Username: "erin", Rating: 1050, Won: false}))

	body, err := svc.MarshalTop(ctx, WindowAllTime, 10)
	require.NoError(t, err)

	var doc struct {
		Window  string  `json:"window"`
		Entries []Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, WindowAllTime, doc.Window)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "erin", doc.Entries[0].Username)
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmohaa/matchmaker/internal/models"
)

type published struct {
	channel string
	event   models.Event
}

type recordingNotifier struct {
	events []published
	err    error
}

func (r *recordingNotifier) Publish(ctx context.Context, channel string, event models.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, published{channel: channel, event: event})
	return nil
}

func testEvent() models.Event {
	return models.Event{
		Type:      models.EventMatchFound,
		Timestamp: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		Data: models.MatchFoundData{
			MatchID:    "m1",
			TicketID:   "t1",
			TitleID:    "mohaa",
			QueueName:  "ranked",
			TeamID:     "allies",
			ServerInfo: models.ServerInfo{Host: "10.0.0.1", Port: 12203, Region: "eu"},
		},
	}
}

func TestMulti_PublishesToAll(t *testing.T) {
	a := &recordingNotifier{}
	broken := &recordingNotifier{err: errors.New("down")}
	b := &recordingNotifier{}

	err := Multi{a, broken, b}.Publish(context.Background(), "player:p1", testEvent())
	require.Error(t, err)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1, "later backends still receive the event")

	assert.NoError(t, Multi{a}.Publish(context.Background(), "player:p1", testEvent()))
	assert.NoError(t, Nop{}.Publish(context.Background(), "player:p1", testEvent()))
}

func TestSubject(t *testing.T) {
	tests := []struct {
		channel string
		want    string
	}{
		{channel: "title:mohaa:matches", want: "matchmaker.title.mohaa.matches"},
		{channel: "player:p1", want: "matchmaker.player.p1"},
		{channel: "player:user.name", want: "matchmaker.player.user_name"},
		{channel: "player:*", want: "matchmaker.player._"},
		{channel: "player:", want: "matchmaker.player._"},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.channel))
		})
	}
}

type mockRedisPublisher struct {
	channel string
	message interface{}
	err     error
}

func (m *mockRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.channel = channel
	m.message = message
	cmd.SetVal(1)
	return cmd
}

func TestRedisNotifier_Publish(t *testing.T) {
	pub := &mockRedisPublisher{}
	n := NewRedisNotifier(pub)

	require.NoError(t, n.Publish(context.Background(), "player:p1", testEvent()))
	assert.Equal(t, "player:p1", pub.channel)

	payload, ok := pub.message.([]byte)
	require.True(t, ok)
	var decoded struct {
		Type string                `json:"type"`
		Data models.MatchFoundData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "match_found", decoded.Type)
	assert.Equal(t, "allies", decoded.Data.TeamID)
	assert.Equal(t, 12203, decoded.Data.ServerInfo.Port)

	pub.err = errors.New("connection reset")
	assert.Error(t, n.Publish(context.Background(), "player:p1", testEvent()))
}

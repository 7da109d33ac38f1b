package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{err: boom}, &recorder{}
	f := Fanout{a, nil, b}

	err := f.Publish(context.Background(), New(BetPlaced, uuid.New(), nil))
	require.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1, "second sink still receives the event")
}

func TestEncode_KeyedByLeague(t *testing.T) {
	leagueID := uuid.New()
	e := New(TicketResolved, leagueID, map[string]string{"winning_option": "Team A"})

	msg, err := encode(e)
	require.NoError(t, err)
	assert.Equal(t, leagueID.String(), string(msg.Key))
	assert.Equal(t, "ticket_resolved", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ticket_resolved", decoded["type"])
	assert.Equal(t, leagueID.String(), decoded["league_id"])
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "betleague.league-events", Topic("betleague"))
}

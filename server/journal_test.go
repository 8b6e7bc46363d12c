package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qkd-demo/common"
	"qkd-demo/configs"
)

func newRedisJournal(t *testing.T) (*RedisJournal, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	journal, err := NewRedisJournal(context.Background(), "redis://"+mr.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal, mr
}

func TestRedisJournalKeepsLastFrames(t *testing.T) {
	ctx := context.Background()
	journal, mr := newRedisJournal(t)

	total := int(configs.JournalLimit) + 5
	for i := 0; i < total; i++ {
		require.NoError(t, journal.Append(ctx, []byte(fmt.Sprintf("frame %d", i))))
	}

	frames, err := journal.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, frames, int(configs.JournalLimit))
	assert.Equal(t, "frame 5", string(frames[0]))
	for i, frame := range frames {
		assert.Equal(t, fmt.Sprintf("frame %d", i+5), string(frame))
	}

	stored, err := mr.List(fmt.Sprintf(configs.ServerJournalKey, "test"))
	require.NoError(t, err)
	assert.Len(t, stored, int(configs.JournalLimit))
}

func TestRedisJournalReset(t *testing.T) {
	ctx := context.Background()
	journal, mr := newRedisJournal(t)

	require.NoError(t, journal.Append(ctx, []byte("frame")))
	require.NoError(t, journal.Reset(ctx))

	frames, err := journal.Replay(ctx)
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.False(t, mr.Exists(fmt.Sprintf(configs.ServerJournalKey, "test")))

	// Reset of an empty journal is fine
	require.NoError(t, journal.Reset(ctx))
}

func TestRedisJournalUnreachable(t *testing.T) {
	type testCase struct {
		name string
		url  string
	}

	testCases := []testCase{
		{name: "bad url", url: "not a url"},
		{name: "bad scheme", url: "http://localhost:6379"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRedisJournal(context.Background(), tc.url, "test")
			assert.Error(t, err)
		})
	}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisJournal(context.Background(), "redis://"+addr, "test")
	assert.ErrorContains(t, err, "failed to reach redis")
}

func TestRelayWithRedisJournal(t *testing.T) {
	journal, _ := newRedisJournal(t)
	s, serv := newTestServer(t, journal)
	first := dial(t, serv)
	waitForClients(t, s, 1)

	send(t, first, common.EventAliceKey, common.KeyRequest{Encryption: configs.ModelNone})
	expect(t, first, common.EventKeySent, `{"encryption":"No Protocol","eavesdropping":false}`)
	send(t, first, common.EventAliceMessage, common.AliceMessage{Message: "hi", Encryption: configs.ModelNone})
	expect(t, first, common.EventEveReceiveEncrypted, `{"message":"NONE:aGk=","encryption":"No Protocol","sender":"Alice"}`)
	expect(t, first, common.EventBobReceiveEncrypted, `{"message":"NONE:aGk=","encryption":"No Protocol"}`)

	late := dial(t, serv)
	expect(t, late, common.EventKeySent, `{"encryption":"No Protocol","eavesdropping":false}`)
	expect(t, late, common.EventBobReceiveEncrypted, `{"message":"NONE:aGk=","encryption":"No Protocol"}`)
}

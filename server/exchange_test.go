package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qkd-demo/client"
	"qkd-demo/common"
	"qkd-demo/configs"
)

type inbound struct {
	name    string
	payload json.RawMessage
}

// TestRouterAgainstRelay drives the client router through a full exchange
// against a live relay. Inbound events are funneled to the test goroutine so
// the page is only touched from one goroutine, as on the gocui main loop.
func TestRouterAgainstRelay(t *testing.T) {
	s, serv := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(serv.URL, "http") + configs.WebSocketPath
	conn, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, s, 1)

	page := client.NewTUI([]string{configs.ModelBB84})
	router := client.NewRouter(page, conn)

	events := make(chan inbound, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Listen(ctx, func(name string, payload json.RawMessage) {
		events <- inbound{name, payload}
	}, nil)

	next := func(name string) {
		t.Helper()
		select {
		case ev := <-events:
			require.Equal(t, name, ev.name)
			router.Dispatch(ev.name, ev.payload)
		case <-time.After(2 * time.Second):
			t.Fatalf("did not receive %s", name)
		}
	}

	page.ToggleEavesdropping()
	router.SendAliceKey()
	next(common.EventKeySent)

	router.ReconcileKey()
	next(common.EventKeyReconciled)

	page.SetValue(client.AliceInput, "hello")
	router.SendAliceMessage()
	next(common.EventEveReceiveEncrypted)
	next(common.EventBobReceiveEncrypted)
	assert.Equal(t, "ENC[BB84]hello", page.Value(client.BobReceivedEncrypted))
	assert.Equal(t, "ENC[BB84]hello", page.Value(client.EveEavesdrop))

	router.DecodeBobMessage()
	next(common.EventBobReceive)
	assert.Equal(t, "hello", page.Value(client.BobDecoded))

	router.DecodeEveMessage()
	next(common.EventEveReceive)
	assert.Equal(t, "hello", page.Value(client.EveDecoded))

	assert.Equal(t, []string{
		"Alice: send Key: BB84 Protocol - eavesdropping: true",
		"Alice + Bob: Key reconciliation: BB84 Protocol - eavesdropping: true",
		"Alice: sent key: BB84 Protocol - eavesdropping: true",
		"Alice: reconciled key: true",
		"Alice: send Message: hello - model: BB84 Protocol - eavesdropping: true",
		"Eve: received encrypted: ENC[BB84]hello",
		"Bob: received encrypted: ENC[BB84]hello",
		"Bob: decode: ENC[BB84]hello",
		"Bob: received decoded: hello",
		"Eve: decode: ENC[BB84]hello",
		"Eve: received decoded: hello",
	}, page.LogLines())

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.EventsReceived.WithLabelValues(common.EventEveReceivedEncrypted)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

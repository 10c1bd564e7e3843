// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	applog "synthscope/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type summarised int

func (s summarised) Summary() string { return fmt.Sprintf("payload %d", int(s)) }

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	prev := applog.Writer()
	applog.SetOutput(&buf)
	defer applog.SetOutput(prev)

	lt := NewLoggingTransport(2)
	for i := 1; i <= 4; i++ {
		require.NoError(t, lt.Send(summarised(i)))
	}
	require.NoError(t, lt.Send([]float32{1}))
	require.NoError(t, lt.Close())

	out := buf.String()
	assert.Contains(t, out, "Transport: payload 1")
	assert.NotContains(t, out, "payload 2")
	assert.Contains(t, out, "Transport: payload 3")
	assert.NotContains(t, out, "payload 4")
	assert.Contains(t, out, "received []float32")
}

type wsMessage struct {
	Seq   int       `json:"seq"`
	Scope []float32 `json:"scope"`
}

func TestWebSocketTransportBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)

	url := "ws://" + wst.Addr().String() + "/ws"
	clients := make([]*websocket.Conn, 2)
	for i := range clients {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		clients[i] = conn
	}
	require.Eventually(t, func() bool { return wst.Clients() == 2 }, time.Second, 5*time.Millisecond)

	want := wsMessage{Seq: 3, Scope: []float32{0, 0.5, 1}}
	require.NoError(t, wst.Send(want))

	for _, conn := range clients {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got wsMessage
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got)
	}

	// A client leaving is noticed.
	require.NoError(t, clients[0].Close())
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	clients[1].Close()
}

func TestWebSocketTransportListenError(t *testing.T) {
	_, err := NewWebSocketTransport("127.0.0.1:-1")
	assert.Error(t, err)
}

func TestWebSocketTransportRejectsPlainHTTP(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/other", nil)
	require.Error(t, err)
	if resp != nil {
		assert.True(t, strings.HasPrefix(resp.Status, "404"), resp.Status)
	}
}

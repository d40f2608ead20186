// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		param   string
		number  float64
		text    string
		wantErr string
	}{
		{"Number", `{"param":"speed","value":45}`, "speed", 45, "", ""},
		{"Numeric string", `{"param":" Frequency ","value":"523.5"}`, "frequency", 523.5, "523.5", ""},
		{"Text", `{"param":"shape","value":"square"}`, "shape", 0, "square", ""},
		{"Malformed", `{"param":`, "", 0, "", "invalid control message"},
		{"Missing param", `{"value":1}`, "", 0, "", "missing param"},
		{"Missing value", `{"param":"speed"}`, "", 0, "", "missing value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseControl([]byte(tt.input))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.param, c.Param)

			if tt.number != 0 {
				f, err := c.Float()
				require.NoError(t, err)
				assert.Equal(t, tt.number, f)
			}
			if tt.text != "" {
				s, err := c.Text()
				require.NoError(t, err)
				assert.Equal(t, tt.text, s)
			}
		})
	}

	c, _ := ParseControl([]byte(`{"param":"shape","value":"square"}`))
	_, err := c.Float()
	assert.ErrorContains(t, err, "not a number")
	c, _ = ParseControl([]byte(`{"param":"speed","value":3}`))
	_, err = c.Text()
	assert.ErrorContains(t, err, "not a string")
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	require.NoError(t, lt.Send("a"))
	require.NoError(t, lt.Send(struct{}{}))
	assert.Equal(t, uint64(2), lt.Sent())
	assert.NoError(t, lt.Close())
}

func dialTestServer(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return wst.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := newWebSocketTransport("")
	defer wst.Close()
	conn := dialTestServer(t, wst)

	type frame struct {
		Seq int    `json:"seq"`
		Tag string `json:"tag"`
	}
	require.NoError(t, wst.Send(frame{Seq: 1, Tag: "spectrum"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got frame
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, frame{Seq: 1, Tag: "spectrum"}, got)
}

func TestWebSocketControls(t *testing.T) {
	wst := newWebSocketTransport("")
	defer wst.Close()

	var mu sync.Mutex
	var got []Control
	wst.OnControl(func(c Control) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	conn := dialTestServer(t, wst)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"param":"speed","value":60}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"param":"observer","value":25}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond, "invalid messages are skipped, the connection survives")

	mu.Lock()
	assert.Equal(t, "speed", got[0].Param)
	assert.Equal(t, "observer", got[1].Param)
	mu.Unlock()
}

func TestWebSocketDisconnectAndClose(t *testing.T) {
	wst := newWebSocketTransport("")
	conn := dialTestServer(t, wst)

	conn.Close()
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close(), "Close is idempotent")
	assert.Error(t, wst.Send("late"))
}

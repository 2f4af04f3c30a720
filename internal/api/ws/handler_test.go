package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/commands/builtin"
	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/tracing"
)

type reply map[string]interface{}

type countingRecorder struct {
	mu       sync.Mutex
	messages map[string]int
}

func (r *countingRecorder) RecordWSMessage(direction, msgType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = make(map[string]int)
	}
	r.messages[direction+"/"+msgType]++
}

func (r *countingRecorder) IncWSConnections() {}
func (r *countingRecorder) DecWSConnections() {}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[key]
}

func (r *countingRecorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.messages {
		out = append(out, k)
	}
	return out
}

func newServer(t *testing.T, origins []string) string {
	t.Helper()
	return newServerWith(t, origins, nil)
}

func newServerWith(t *testing.T, origins []string, metrics Recorder) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := commands.NewRegistry(nil)
	require.NoError(t, builtin.Register(reg))
	sessions := session.NewManager(session.ManagerOptions{
		Registry: reg,
		Shell:    config.Default().Shell,
	})
	tracer := tracing.New("test", nil)

	router := gin.New()
	router.GET("/stream", NewHandler(sessions, metrics, tracer, nil, origins).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		sessions.Close(context.Background())
		tracer.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	hello := read(t, c)
	require.Equal(t, "system", hello["type"])
	return c
}

func read(t *testing.T, c *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var r reply
	require.NoError(t, c.ReadJSON(&r))
	return r
}

// readUntil reads messages until one of type kind arrives, returning the
// output texts seen on the way.
func readUntil(t *testing.T, c *websocket.Conn, kind string) (reply, []string) {
	t.Helper()
	var texts []string
	for {
		r := read(t, c)
		if r["type"] == kind {
			return r, texts
		}
		if r["type"] == "output" {
			texts = append(texts, r["text"].(string))
		}
	}
}

func TestExecStreamsOutputAndResult(t *testing.T) {
	c := dial(t, newServer(t, []string{"*"})+"/stream?user=alice")

	require.NoError(t, c.WriteJSON(Message{Type: "exec", Line: "echo hi"}))
	res, texts := readUntil(t, c, "result")
	assert.Equal(t, []string{"hi"}, texts)
	assert.Equal(t, true, res["result"].(map[string]interface{})["success"])
	assert.Equal(t, false, res["pending"])
}

func TestConfirmationOverStream(t *testing.T) {
	c := dial(t, newServer(t, []string{"*"})+"/stream?user=alice")

	require.NoError(t, c.WriteJSON(Message{Type: "exec", Line: "touch /f"}))
	readUntil(t, c, "result")

	require.NoError(t, c.WriteJSON(Message{Type: "exec", Line: "rm /f"}))
	res, texts := readUntil(t, c, "result")
	assert.Equal(t, true, res["pending"])
	assert.Contains(t, texts, "Remove file '/f'?")

	require.NoError(t, c.WriteJSON(Message{Type: "exec", Line: "YES"}))
	res, _ = readUntil(t, c, "result")
	assert.Equal(t, false, res["pending"])

	require.NoError(t, c.WriteJSON(Message{Type: "exec", Line: "ls /"}))
	_, texts = readUntil(t, c, "result")
	assert.Empty(t, texts)
}

func TestPingAndUnknownType(t *testing.T) {
	c := dial(t, newServer(t, []string{"*"})+"/stream?user=alice")

	require.NoError(t, c.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, c)["type"])

	require.NoError(t, c.WriteJSON(Message{Type: "shout"}))
	r := read(t, c)
	assert.Equal(t, "error", r["type"])
	assert.Equal(t, "unknown message type", r["message"])
}

func TestMessageTypeLabelsAreBounded(t *testing.T) {
	metrics := &countingRecorder{}
	c := dial(t, newServerWith(t, []string{"*"}, metrics)+"/stream?user=alice")

	for _, kind := range []string{"ping", "shout", "whisper-1", "whisper-2"} {
		require.NoError(t, c.WriteJSON(Message{Type: kind}))
		read(t, c)
	}

	assert.Equal(t, 1, metrics.count("in/ping"))
	assert.Equal(t, 3, metrics.count("in/unknown"))
	for _, key := range metrics.keys() {
		assert.NotContains(t, key, "whisper")
	}
}

func TestSecondConnectionSeesSameSession(t *testing.T) {
	url := newServer(t, []string{"*"}) + "/stream?user=alice"
	a := dial(t, url)
	b := dial(t, url)

	require.NoError(t, a.WriteJSON(Message{Type: "exec", Line: "echo shared"}))
	readUntil(t, a, "result")

	r := read(t, b)
	assert.Equal(t, "output", r["type"])
	assert.Equal(t, "shared", r["text"])
}

func TestRejectsBadUserAndOrigin(t *testing.T) {
	base := newServer(t, []string{"https://oopis.example"})

	_, resp, err := websocket.DefaultDialer.Dial(base+"/stream?user=Not%20Valid", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial(base+"/stream?user=alice", header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://oopis.example"}}
	c, _, err := websocket.DefaultDialer.Dial(base+"/stream?user=alice", header)
	require.NoError(t, err)
	c.Close()
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPair dials a loopback server and returns both ends of one live
// websocket connection.
func socketPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientSide, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientSide.Close(websocket.StatusNormalClosure, "") })

	select {
	case serverSide = <-accepted:
	case <-ctx.Done():
		t.Fatal("server never accepted the connection")
	}
	t.Cleanup(func() { serverSide.Close(websocket.StatusNormalClosure, "") })
	return serverSide, clientSide
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var frame Frame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func TestSendDeliversFrameToConnection(t *testing.T) {
	hub := NewHub()
	server, client := socketPair(t)
	hub.Register("c1", server)

	require.NoError(t, hub.Send("c1", "notification", map[string]string{"action": "add"}))

	frame := readFrame(t, client)
	assert.Equal(t, "notification", frame.Event)
	data, ok := frame.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "add", data["action"])
}

func TestSendToUnknownConnectionFails(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.Send("ghost", "notification", nil))
}

func TestBroadcastReachesEveryGroupMember(t *testing.T) {
	hub := NewHub()
	serverA, clientA := socketPair(t)
	serverB, clientB := socketPair(t)
	serverC, clientC := socketPair(t)
	hub.Register("a", serverA)
	hub.Register("b", serverB)
	hub.Register("c", serverC)

	require.NoError(t, hub.JoinGroup("a", ChatGroup(7)))
	require.NoError(t, hub.JoinGroup("b", ChatGroup(7)))

	require.NoError(t, hub.Broadcast(ChatGroup(7), "message", "hi"))

	assert.Equal(t, "message", readFrame(t, clientA).Event)
	assert.Equal(t, "message", readFrame(t, clientB).Event)

	// The non-member gets nothing; a follow-up direct send arrives first.
	require.NoError(t, hub.Send("c", "ping", nil))
	assert.Equal(t, "ping", readFrame(t, clientC).Event)
}

func TestJoinGroupRequiresRegisteredConnection(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.JoinGroup("ghost", ChatGroup(1)))
}

func TestUnregisterLeavesAllGroups(t *testing.T) {
	hub := NewHub()
	server, _ := socketPair(t)
	hub.Register("a", server)
	require.NoError(t, hub.JoinGroup("a", UserGroup(1)))
	require.NoError(t, hub.JoinGroup("a", ChatGroup(2)))

	hub.Unregister("a")

	assert.Error(t, hub.Send("a", "notification", nil))
	// Broadcasting to the emptied groups is a no-op, not an error.
	assert.NoError(t, hub.Broadcast(UserGroup(1), "notification", nil))
	assert.NoError(t, hub.Broadcast(ChatGroup(2), "message", nil))
}

package editfeed

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeApplier struct {
	mu    sync.Mutex
	store records.Store
}

func (a *storeApplier) ApplyEdit(e records.Edit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Apply(e)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+Path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) Reply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	var r Reply
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

func TestEditsAreApplied(t *testing.T) {
	a := &storeApplier{store: records.NewStore()}
	srv := httptest.NewServer(NewServer("", a).Handler())
	defer srv.Close()
	conn := dial(t, srv.URL)

	assert.Equal(t, Reply{OK: true}, roundTrip(t, conn, `{"op":"set","kind":"area","index":0,"seed":77,"density":0.5}`))
	assert.Equal(t, Reply{OK: true}, roundTrip(t, conn, `{"op":"add","kind":"branch","index":0}`))

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, uint32(77), a.store.Areas()[0].Seed)
	assert.Equal(t, float32(0.5), a.store.Areas()[0].Density)
	assert.Equal(t, 3, a.store.BranchCount())
}

func TestAppliedEditsReachOtherEditors(t *testing.T) {
	a := &storeApplier{store: records.NewStore()}
	srv := httptest.NewServer(NewServer("", a).Handler())
	defer srv.Close()
	watcher := dial(t, srv.URL)
	// a completed round trip means the watcher is registered
	require.True(t, roundTrip(t, watcher, `{"op":"select","kind":"branch","index":0}`).OK)
	sender := dial(t, srv.URL)

	assert.False(t, roundTrip(t, sender, `{"op":"set","kind":"branch","index":9,"seed":1}`).OK)
	assert.True(t, roundTrip(t, sender, `{"op":"set","kind":"branch","index":1,"seed":42}`).OK)

	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(2*time.Second)))
	var u Update
	require.NoError(t, watcher.ReadJSON(&u))
	assert.Equal(t, records.EditOp("set"), u.Applied.Op)
	assert.Equal(t, 1, u.Applied.Index)
	require.NotNil(t, u.Applied.Seed)
	assert.Equal(t, uint32(42), *u.Applied.Seed)
}

func TestRejectedEditsReplyWithError(t *testing.T) {
	a := &storeApplier{store: records.NewStore()}
	srv := httptest.NewServer(NewServer("", a).Handler())
	defer srv.Close()
	conn := dial(t, srv.URL)

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"malformed", `{"op":`, "decoding edit"},
		{"out of range", `{"op":"set","kind":"branch","index":9,"seed":1}`, records.ErrIndexOutOfRange.Error()},
		{"seed too large", `{"op":"set","kind":"branch","index":0,"seed":20000}`, records.ErrValueOutOfRange.Error()},
		{"unknown op", `{"op":"grow","kind":"branch","index":0}`, records.ErrUnknownOp.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := roundTrip(t, conn, tt.msg)
			assert.False(t, r.OK)
			assert.Contains(t, r.Error, tt.want)
		})
	}
	// the connection survives rejected edits
	assert.True(t, roundTrip(t, conn, `{"op":"select","kind":"area","index":0}`).OK)
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := NewServer(ln.Addr().String(), &storeApplier{store: records.NewStore()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	conn := dial(t, "http://"+ln.Addr().String())
	assert.True(t, roundTrip(t, conn, `{"op":"select","kind":"branch","index":1}`).OK)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

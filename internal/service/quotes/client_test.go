package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tradeAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func feed(t *testing.T, subscribed *atomic.Int32, frames ...string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub["type"] == "subscribe" {
			subscribed.Add(1)
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientReportsIndexChange(t *testing.T) {
	var subs atomic.Int32
	ms := tradeAt.UnixMilli()
	srv := feed(t, &subs,
		`{"type":"ping"}`,
		`not json`,
		`{"type":"trade","data":[{"s":"NIFTY","p":101,"t":`+itoa(ms-1000)+`},{"s":"NIFTY","p":102,"t":`+itoa(ms)+`}]}`,
	)

	c := New(wsURL(srv), "key", []string{"NIFTY"}, withClock(func() time.Time { return tradeAt.Add(time.Minute) }))
	c.SetPreviousClose("NIFTY", 100)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Eventually(t, func() bool {
		_, ok := c.IndexChangePct("NIFTY")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	pct, ok := c.IndexChangePct("NIFTY")
	require.True(t, ok)
	assert.InDelta(t, 2.0, pct, 1e-9)
	assert.Equal(t, int32(1), subs.Load())

	_, ok = c.IndexChangePct("BANKNIFTY")
	assert.False(t, ok)
}

func TestClientDropsStaleQuotes(t *testing.T) {
	var subs atomic.Int32
	srv := feed(t, &subs, `{"type":"trade","data":[{"s":"NIFTY","p":99,"t":`+itoa(tradeAt.UnixMilli())+`}]}`)

	now := tradeAt
	c := New(wsURL(srv), "", []string{"NIFTY"}, WithMaxAge(2*time.Minute), withClock(func() time.Time { return now }))
	c.SetPreviousClose("NIFTY", 100)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool {
		_, ok := c.IndexChangePct("NIFTY")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	c.mu.Lock()
	now = tradeAt.Add(3 * time.Minute)
	c.mu.Unlock()
	_, ok := c.IndexChangePct("NIFTY")
	assert.False(t, ok)
}

func TestClientNeedsPreviousClose(t *testing.T) {
	c := New("ws://unused", "", nil)
	c.last["NIFTY"] = quote{price: 100, at: time.Now()}
	_, ok := c.IndexChangePct("NIFTY")
	assert.False(t, ok)
}

func TestStartFailsWhenFeedIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(wsURL(srv), "", []string{"NIFTY"})
	assert.Error(t, c.Start(context.Background()))
	assert.NoError(t, c.Close())
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

package infra

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/logger"
)

func TestFeedBroadcastsResults(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	feed := NewFeedServer(log, 0)

	srv := httptest.NewServer(feed.server.Handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Registration happens in the accept handler; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		feed.mu.Lock()
		n := len(feed.clients)
		feed.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	route := domain.NewCrossVenueRoute(asset.DAI, "beta", "alpha")
	res := domain.Settle(route,
		asset.NewAmountFromInt64(asset.DAI, 10000),
		asset.NewAmountFromInt64(asset.DAI, 9),
		asset.NewAmountFromInt64(asset.DAI, 10227),
		100, time.Now())
	feed.Report(&res)

	var ev feedEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if ev.Type != "result" {
		t.Errorf("type = %q, want result", ev.Type)
	}
	if ev.Outcome != "profit" {
		t.Errorf("outcome = %q, want profit", ev.Outcome)
	}
	if ev.Profit != "0.000000000000000218" {
		t.Errorf("profit = %q", ev.Profit)
	}
}

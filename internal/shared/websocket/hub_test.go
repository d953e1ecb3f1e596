package websocket

import (
	"context"
	"testing"
	"time"

	userdomain "github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		assert.True(t, ok)
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHub_BroadcastToAuctionRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	a1 := NewClient(hub, nil, "c1", "auction-1", userdomain.Identity{})
	a2 := NewClient(hub, nil, "c2", "auction-1", userdomain.Identity{})
	other := NewClient(hub, nil, "c3", "auction-2", userdomain.Identity{})
	for _, c := range []*Client{a1, a2, other} {
		hub.RegisterClient(c)
	}

	check.True(t, hub.BroadcastMessageToAuction("auction-1", []byte(`{"type":"bid_placed"}`)))
	check.Equal(t, `{"type":"bid_placed"}`, string(receive(t, a1)))
	check.Equal(t, `{"type":"bid_placed"}`, string(receive(t, a2)))

	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected message for other room: %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_PreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient(hub, nil, "c1", "auction-1", userdomain.Identity{})
	hub.RegisterClient(c)

	for _, m := range []string{"1", "2", "3"} {
		hub.BroadcastMessageToAuction("auction-1", []byte(m))
	}
	for _, want := range []string{"1", "2", "3"} {
		check.Equal(t, want, string(receive(t, c)))
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient(hub, nil, "c1", "auction-1", userdomain.Identity{})
	hub.RegisterClient(c)
	hub.UnregisterClient(c)
	// second unregister is ignored
	hub.UnregisterClient(c)

	select {
	case _, ok := <-c.Send:
		check.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := NewClient(hub, nil, "c1", "auction-1", userdomain.Identity{})
	hub.RegisterClient(c)
	// the broadcast is handled after the registration
	hub.BroadcastMessageToAuction("auction-1", []byte("hello"))
	check.Equal(t, "hello", string(receive(t, c)))

	cancel()
	<-done
	_, ok := <-c.Send
	check.False(t, ok)
}

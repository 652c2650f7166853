// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := Frame{Sequence: 7, Channel: 1, Bins: []float64{0.5, 0.25}}
	if err := wst.Send(want); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Sequence != want.Sequence || got.Channel != want.Channel || len(got.Bins) != 2 || got.Bins[1] != 0.25 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := wst.Close(); err != nil {
		t.Fatal(err)
	}
	if err := wst.Send(Frame{}); err == nil {
		t.Error("Send after Close should fail")
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestWebSocketBadAddress(t *testing.T) {
	if _, err := NewWebSocketTransport("127.0.0.1:-1"); err == nil {
		t.Error("expected listen error")
	}
}

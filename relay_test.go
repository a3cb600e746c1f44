package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func signedEvent(t *testing.T, content string) nostr.Event {
	t.Helper()
	evt := nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      1,
		Tags:      nostr.Tags{},
		Content:   content,
	}
	if err := evt.Sign(nostr.GeneratePrivateKey()); err != nil {
		t.Fatal(err)
	}
	return evt
}

func dialRelay(t *testing.T, rl *relay) (*websocket.Conn, context.Context) {
	t.Helper()

	srv := httptest.NewServer(rl)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c, ctx
}

func TestRelayAcceptsSignedEvent(t *testing.T) {
	store := newMemoryStore()
	c, ctx := dialRelay(t, newRelay(store, nil))

	evt := signedEvent(t, "hello from the demo")
	if err := wsjson.Write(ctx, c, []any{EventMsg, evt}); err != nil {
		t.Fatal(err)
	}

	var reply []json.RawMessage
	if err := wsjson.Read(ctx, c, &reply); err != nil {
		t.Fatal(err)
	}
	if len(reply) != 4 {
		t.Fatalf("reply has %d elements, want 4: %v", len(reply), reply)
	}

	var msgType string
	var accepted bool
	json.Unmarshal(reply[0], &msgType)
	json.Unmarshal(reply[2], &accepted)
	if msgType != OKMsg || !accepted {
		t.Fatalf("reply = %s, want accepting OK", reply)
	}

	exists, err := store.EventExists(ctx, evt.ID)
	if err != nil || !exists {
		t.Errorf("event %s not stored after OK", evt.ID)
	}
}

func TestRelayRejectsBadSignature(t *testing.T) {
	c, ctx := dialRelay(t, newRelay(newMemoryStore(), nil))

	evt := signedEvent(t, "tampered")
	evt.Content = "changed after signing"
	evt.ID = evt.GetID()

	if err := wsjson.Write(ctx, c, []any{EventMsg, evt}); err != nil {
		t.Fatal(err)
	}

	var reply []json.RawMessage
	if err := wsjson.Read(ctx, c, &reply); err != nil {
		t.Fatal(err)
	}

	var accepted bool
	json.Unmarshal(reply[2], &accepted)
	if accepted {
		t.Fatalf("tampered event was accepted: %s", reply)
	}
}

func TestRelayReplaysStoredEvents(t *testing.T) {
	store := newMemoryStore()
	evt := signedEvent(t, "stored earlier")
	if err := store.SaveEvent(context.Background(), evt); err != nil {
		t.Fatal(err)
	}

	c, ctx := dialRelay(t, newRelay(store, nil))

	if err := wsjson.Write(ctx, c, []any{ReqMsg, "sub1", nostr.Filter{Kinds: []int{1}}}); err != nil {
		t.Fatal(err)
	}

	var evtMsg []json.RawMessage
	if err := wsjson.Read(ctx, c, &evtMsg); err != nil {
		t.Fatal(err)
	}

	var msgType, subID string
	json.Unmarshal(evtMsg[0], &msgType)
	json.Unmarshal(evtMsg[1], &subID)
	if msgType != EventMsg || subID != "sub1" {
		t.Fatalf("first reply = %s, want EVENT for sub1", evtMsg)
	}

	var got nostr.Event
	if err := json.Unmarshal(evtMsg[2], &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != evt.ID || got.Content != evt.Content {
		t.Errorf("replayed event = %+v, want %+v", got, evt)
	}

	var eose []json.RawMessage
	if err := wsjson.Read(ctx, c, &eose); err != nil {
		t.Fatal(err)
	}
	json.Unmarshal(eose[0], &msgType)
	if msgType != EoseMsg {
		t.Fatalf("second reply = %s, want EOSE", eose)
	}
}

func TestRelayNoticesOnGarbage(t *testing.T) {
	c, ctx := dialRelay(t, newRelay(newMemoryStore(), nil))

	if err := c.Write(ctx, websocket.MessageText, []byte("not json at all")); err != nil {
		t.Fatal(err)
	}

	var notice []json.RawMessage
	if err := wsjson.Read(ctx, c, &notice); err != nil {
		t.Fatal(err)
	}

	var msgType string
	json.Unmarshal(notice[0], &msgType)
	if msgType != NoticeMsg {
		t.Fatalf("reply = %s, want NOTICE", notice)
	}
}

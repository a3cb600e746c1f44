package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"nhooyr.io/websocket"
)

// map subscription ids to list of filters
type subscriptions map[string]nostr.Filters

// relay is a small embedded relay so the hosted PWA has something local
// to publish to. Mounted on /relay only when enabled in config.
type relay struct {
	store eventStore
	mets  *metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]subscriptions
}

func newRelay(store eventStore, mets *metrics) *relay {
	return &relay{
		store: store,
		mets:  mets,
		conns: make(map[*websocket.Conn]subscriptions),
	}
}

func (rl *relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "error with connection")

	connID := uuid.NewString()[:8]
	log.Printf("relay: new connection %s", connID)

	rl.mu.Lock()
	rl.conns[c] = make(subscriptions)
	rl.mu.Unlock()
	defer func() {
		rl.mu.Lock()
		delete(rl.conns, c)
		rl.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		_, message, err := c.Read(ctx)
		if err != nil {
			break
		}

		if !json.Valid(message) {
			var notice nostr.NoticeEnvelope = "Invalid json"
			WriteMessage(ctx, c, &notice)
			continue
		}

		var rawjson []json.RawMessage
		err = json.Unmarshal(message, &rawjson)
		if err != nil {
			notice := nostr.NoticeEnvelope(fmt.Sprintf("ERROR: %s", err.Error()))
			WriteMessage(ctx, c, &notice)
			continue
		}

		err = rl.handleMessage(ctx, c, rawjson)
		if err != nil {
			break
		}
	}
	log.Printf("relay: connection %s closed", connID)
	c.Close(websocket.StatusNormalClosure, "")
}

func (rl *relay) handleMessage(ctx context.Context, c *websocket.Conn, msg []json.RawMessage) error {
	if len(msg) < 2 {
		var notice nostr.NoticeEnvelope = "ERROR: message too short"
		return WriteMessage(ctx, c, &notice)
	}

	var msgType string
	json.Unmarshal(msg[0], &msgType)

	switch msgType {
	case EventMsg:
		var evt nostr.Event
		if err := evt.UnmarshalJSON(msg[1]); err != nil {
			var notice nostr.NoticeEnvelope = "Invalid message"
			return WriteMessage(ctx, c, &notice)
		}

		valid, err := validEvent(ctx, rl.store, evt)
		if err != nil {
			return WriteMessage(ctx, c, buildOKMessage(evt.ID, "invalid: "+err.Error(), false))
		}
		if !valid {
			return WriteMessage(ctx, c, buildOKMessage(evt.ID, "invalid: bad signature", false))
		}

		if err := rl.store.SaveEvent(ctx, evt); err != nil {
			return WriteMessage(ctx, c, buildOKMessage(evt.ID, "error: "+err.Error(), false))
		}
		if rl.mets != nil {
			rl.mets.relayEvents.Inc()
		}

		go rl.publishEvent(ctx, evt)

		return WriteMessage(ctx, c, buildOKMessage(evt.ID, "Event received", true))
	case ReqMsg:
		if len(msg) < 3 {
			var notice nostr.NoticeEnvelope = "ERROR: message too short"
			return WriteMessage(ctx, c, &notice)
		}

		var subID string
		json.Unmarshal(msg[1], &subID)

		for i := 2; i < len(msg); i++ {
			var filter nostr.Filter
			json.Unmarshal(msg[i], &filter)

			rl.mu.Lock()
			rl.conns[c][subID] = append(rl.conns[c][subID], filter)
			rl.mu.Unlock()

			storedEvents, err := rl.store.QueryEvents(ctx, filter)
			if err != nil {
				notice := nostr.NoticeEnvelope(fmt.Sprintf("ERROR: %s", err.Error()))
				return WriteMessage(ctx, c, &notice)
			}

			for _, event := range storedEvents {
				evtEnvelope := nostr.EventEnvelope{
					SubscriptionID: &subID,
					Event:          event,
				}
				WriteMessage(ctx, c, &evtEnvelope)
			}
		}

		var eose nostr.EOSEEnvelope = nostr.EOSEEnvelope(subID)
		return WriteMessage(ctx, c, &eose)
	case CloseMsg:
		var subID string
		json.Unmarshal(msg[1], &subID)

		rl.mu.Lock()
		subs, ok := rl.conns[c]
		if ok {
			_, ok = subs[subID]
			delete(subs, subID)
		}
		rl.mu.Unlock()

		if ok {
			notice := nostr.NoticeEnvelope(fmt.Sprintf("subscription '%v' closed", subID))
			return WriteMessage(ctx, c, &notice)
		}
	default:
		var notice nostr.NoticeEnvelope = "Invalid message"
		return WriteMessage(ctx, c, &notice)
	}
	return nil
}

// publish event to all open connections - connections will check if newly
// received event matches any of their filters and send it to the client
func (rl *relay) publishEvent(ctx context.Context, evt nostr.Event) {
	rl.mu.Lock()
	targets := make(map[*websocket.Conn]subscriptions, len(rl.conns))
	for conn, subs := range rl.conns {
		copied := make(subscriptions, len(subs))
		for subID, filters := range subs {
			copied[subID] = filters
		}
		targets[conn] = copied
	}
	rl.mu.Unlock()

	for conn, subs := range targets {
		// one goroutine for each connection
		go func(conn *websocket.Conn, subs subscriptions) {
			// each connection can have many subscriptions
			for subID, filters := range subs {
				// each subscription can have multiple filters
				for _, filter := range filters {
					if filter.Matches(&evt) {
						evtEnvelope := nostr.EventEnvelope{
							SubscriptionID: &subID,
							Event:          evt,
						}
						WriteMessage(ctx, conn, &evtEnvelope)
						break
					}
				}
			}
		}(conn, subs)
	}
}

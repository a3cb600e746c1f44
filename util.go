package main

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

func validEvent(ctx context.Context, store eventStore, evt nostr.Event) (bool, error) {
	eventID := evt.GetID()
	if eventID != evt.ID {
		return false, fmt.Errorf("event id")
	}

	exists, err := store.EventExists(ctx, evt.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, fmt.Errorf("duplicate event")
	}

	validSig, err := evt.CheckSignature()
	if err != nil {
		return false, err
	}
	return validSig, nil
}

package main

import (
	"context"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	EventMsg  = "EVENT"
	ReqMsg    = "REQ"
	CloseMsg  = "CLOSE"
	EoseMsg   = "EOSE"
	NoticeMsg = "NOTICE"
	OKMsg     = "OK"
)

func WriteMessage(ctx context.Context, c *websocket.Conn, msg any) error {
	return wsjson.Write(ctx, c, msg)
}

func buildOKMessage(id, message string, success bool) []any {
	return []any{OKMsg, id, success, message}
}

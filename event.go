package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// EventPreview is the shape of the event blob the PWA embeds in share URLs.
// All fields are optional; an absent field renders as "unknown". The format
// is owned by the PWA, not by this server.
type EventPreview struct {
	Kind      *int    `json:"kind"`
	Pubkey    *string `json:"pubkey"`
	Content   *string `json:"content"`
	CreatedAt *int64  `json:"created_at"`
}

const unknownField = "unknown"

// padBase64URL right-pads s with '=' to the next multiple of 4. A length
// of 1 mod 4 is never valid base64; padding it anyway lets the decoder
// report the real error.
func padBase64URL(s string) string {
	return s + strings.Repeat("=", (4-len(s)%4)%4)
}

// decodeEventParam decodes the base64url `event` query parameter into an
// EventPreview. Failures (bad base64, non-UTF-8 payload, bad JSON) come
// back as an error for the caller to log; they never reach the response.
func decodeEventParam(data string) (EventPreview, error) {
	var ev EventPreview

	raw, err := base64.URLEncoding.DecodeString(padBase64URL(data))
	if err != nil {
		return ev, fmt.Errorf("invalid base64url: %w", err)
	}
	if !utf8.Valid(raw) {
		return ev, errors.New("payload is not valid UTF-8")
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("invalid event json: %w", err)
	}
	return ev, nil
}

func (e EventPreview) KindLabel() string {
	if e.Kind == nil {
		return unknownField
	}
	return strconv.Itoa(*e.Kind)
}

// AuthorPreview shows the first 16 characters of the pubkey. The trailing
// ellipsis is always present, matching how the PWA abbreviates authors.
func (e EventPreview) AuthorPreview() string {
	if e.Pubkey == nil {
		return unknownField
	}
	return prefix(*e.Pubkey, 16) + "..."
}

func (e EventPreview) ContentPreview() string {
	if e.Content == nil {
		return ""
	}
	return truncate(*e.Content, 100)
}

func (e EventPreview) CreatedLabel() string {
	if e.CreatedAt == nil {
		return unknownField
	}
	return strconv.FormatInt(*e.CreatedAt, 10)
}

// truncate cuts s to at most n characters, appending "..." only when
// something was cut. Truncation is presentation-only.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

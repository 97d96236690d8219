package connectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"tripvoucher/internal"
)

// Headers are the envelope fields kept on an email row.
type Headers struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
}

// ReadHeaders parses the header block of a raw message. Encoded words in the
// subject are decoded; missing or malformed fields stay empty.
func ReadHeaders(raw []byte) Headers {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Headers{}
	}
	h := Headers{
		MessageID: strings.TrimSpace(env.GetHeader("Message-ID")),
		Subject:   env.GetHeader("Subject"),
		From:      env.GetHeader("From"),
	}
	if t, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		h.Date = t
	}
	return h
}

// NewMessage turns provider output into a fetched message. A message without
// an id gets one derived from its content, and received falls back to now.
func NewMessage(provider string, raw []byte, h Headers, now time.Time) internal.FetchedMailMessage {
	received := h.Date
	if received.IsZero() {
		received = now
	}
	id := h.MessageID
	if id == "" {
		sum := sha256.Sum256(raw)
		id = provider + "-" + hex.EncodeToString(sum[:8])
	}
	return internal.FetchedMailMessage{
		Provider:   provider,
		MessageID:  id,
		Subject:    h.Subject,
		From:       h.From,
		ReceivedAt: received.UTC().Format(time.RFC3339),
		Raw:        raw,
	}
}

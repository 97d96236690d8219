package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/connectors"
)

const (
	provider    = "gmail"
	maxPageSize = 500
)

var errListFull = errors.New("message list full")

type Connector struct {
	service *gmail.Service
	query   string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for _, required := range []struct{ name, value string }{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
	} {
		if err := cfg.Require(required.name, required.value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	ctx := context.Background()
	tokens := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokens))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Connector{service: svc, query: strings.TrimSpace(cfg.GmailQuery)}, nil
}

// FetchInbox lists up to max messages under label that match GMAIL_QUERY and
// downloads each one in raw form. Header fields come from the raw message.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	ids, err := c.listIDs(ctx, label, max)
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := c.service.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail message %s: %w", id, err)
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, toMessage(id, raw, msg.InternalDate, time.Now()))
	}
	return out, nil
}

func (c *Connector) listIDs(ctx context.Context, label string, max int) ([]string, error) {
	call := c.service.Users.Messages.List("me").LabelIds(label)
	if max > 0 {
		call = call.MaxResults(int64(min(max, maxPageSize)))
	}
	if c.query != "" {
		call = call.Q(c.query)
	}

	ids := []string{}
	err := call.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, m := range page.Messages {
			if m.Id != "" {
				ids = append(ids, m.Id)
			}
			if max > 0 && len(ids) >= max {
				return errListFull
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errListFull) {
		return nil, fmt.Errorf("gmail list %q: %w", label, err)
	}
	return ids, nil
}

// toMessage falls back to the Gmail id when the message has no Message-ID
// header, and to Gmail's internal date (ms since epoch) when it has no Date.
func toMessage(id string, raw []byte, internalDateMs int64, now time.Time) internal.FetchedMailMessage {
	h := connectors.ReadHeaders(raw)
	if h.MessageID == "" {
		h.MessageID = id
	}
	if h.Date.IsZero() && internalDateMs > 0 {
		h.Date = time.UnixMilli(internalDateMs)
	}
	return connectors.NewMessage(provider, raw, h, now)
}

func decodeBase64URL(input string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(input); err == nil {
		return decoded, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("decode gmail raw payload: %w", err)
	}
	return decoded, nil
}

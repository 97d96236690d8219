package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/connectors"
	"tripvoucher/internal/util"
)

const provider = "imap"

type Connector struct {
	host     string
	addr     string
	secure   bool
	user     string
	password string
	markSeen bool
	subject  string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for _, required := range []struct{ name, value string }{
		{"IMAP_HOST", cfg.IMAPHost},
		{"IMAP_USER", cfg.IMAPUser},
		{"IMAP_PASSWORD", cfg.IMAPPassword},
	} {
		if err := cfg.Require(required.name, required.value); err != nil {
			return nil, err
		}
	}

	return &Connector{
		host:     cfg.IMAPHost,
		addr:     fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort),
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
		subject:  strings.TrimSpace(cfg.IMAPSubjectFilter),
	}, nil
}

// FetchInbox returns up to max unseen messages of the mailbox, newest last.
// Bodies are fetched with PEEK; messages are flagged seen only when
// IMAP_MARK_SEEN is set, after every body has been read.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", c.addr, err)
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", label, err)
	}

	ids, err := client.Search(searchCriteria(c.subject))
	if err != nil {
		return nil, err
	}
	ids = newest(ids, max)
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	out, err := fetchMessages(ctx, client, seqset, len(ids))
	if err != nil {
		return nil, err
	}

	if c.markSeen {
		flags := []interface{}{imap.SeenFlag}
		if err := client.Store(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
			return nil, fmt.Errorf("imap mark seen: %w", err)
		}
	}
	return out, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	if c.secure {
		return imapclient.DialTLS(c.addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(c.addr)
}

// fetchMessages drains the fetch channel even after a failure; the client
// does not accept another command until the fetch has finished.
func fetchMessages(ctx context.Context, client *imapclient.Client, seqset *imap.SeqSet, n int) ([]internal.FetchedMailMessage, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}
	messages := make(chan *imap.Message, n)
	done := make(chan error, 1)
	go func() { done <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, n)
	var readErr error
	for msg := range messages {
		if readErr != nil || msg == nil {
			continue
		}
		if readErr = ctx.Err(); readErr != nil {
			continue
		}
		fetched, ok, err := toMessage(msg, section, time.Now())
		if err != nil {
			readErr = err
			continue
		}
		if ok {
			out = append(out, fetched)
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

// toMessage reads one fetched message. The envelope wins over the raw
// headers; ok is false when the server sent no body.
func toMessage(msg *imap.Message, section *imap.BodySectionName, now time.Time) (internal.FetchedMailMessage, bool, error) {
	body := msg.GetBody(section)
	if body == nil {
		return internal.FetchedMailMessage{}, false, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	h := connectors.ReadHeaders(raw)
	if env := msg.Envelope; env != nil {
		h.MessageID = util.FirstNonEmpty(env.MessageId, h.MessageID)
		h.Subject = util.FirstNonEmpty(env.Subject, h.Subject)
		h.From = util.FirstNonEmpty(formatAddresses(env.From), h.From)
	}
	if !msg.InternalDate.IsZero() {
		h.Date = msg.InternalDate
	}
	return connectors.NewMessage(provider, raw, h, now), true, nil
}

func searchCriteria(subject string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if subject != "" {
		criteria.Header.Add("Subject", subject)
	}
	return criteria
}

// newest keeps the last max ids; search results come in ascending order.
func newest(ids []uint32, max int) []uint32 {
	if max > 0 && len(ids) > max {
		return ids[len(ids)-max:]
	}
	return ids
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName == "" {
			parts = append(parts, email)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
	}
	return strings.Join(parts, ", ")
}

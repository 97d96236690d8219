// Package dropdir reads .eml files that another tool saved into a directory.
package dropdir

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/connectors"
)

type Connector struct {
	dir string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("MAIL_DROP_DIR", cfg.MailDropDir); err != nil {
		return nil, err
	}
	return &Connector{dir: cfg.MailDropDir}, nil
}

// FetchInbox lists the .eml files under dir/label (label "" or "INBOX" means
// dir itself) in name order. Files are left in place.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	root := c.dir
	if label != "" && !strings.EqualFold(label, "INBOX") {
		root = filepath.Join(c.dir, label)
	}
	paths, err := filepath.Glob(filepath.Join(root, "*.eml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if max > 0 && len(paths) > max {
		paths = paths[:max]
	}

	out := make([]internal.FetchedMailMessage, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, toMessage(raw, path))
	}
	return out, nil
}

func toMessage(raw []byte, path string) internal.FetchedMailMessage {
	fallback := time.Now()
	if info, err := os.Stat(path); err == nil {
		fallback = info.ModTime()
	}
	return connectors.NewMessage("dir", raw, connectors.ReadHeaders(raw), fallback)
}

package connectors

import (
	"context"

	"tripvoucher/internal"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

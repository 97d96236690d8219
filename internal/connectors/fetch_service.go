package connectors

import (
	"context"
	"log/slog"

	"tripvoucher/internal"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	raw       *RawStore
	log       *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *slog.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		raw:       NewRawStore(rawMailDir),
		log:       logging.OrDiscard(log),
	}
}

// FetchAndStore pulls up to max messages from label. Messages already on
// record are left alone so their processing state survives a refetch.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Known++
			continue
		}
		hash, path, err := s.raw.Save(msg.Raw)
		if err != nil {
			return res, err
		}
		row, err := s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, path, internal.EmailFetched)
		if err != nil {
			return res, err
		}
		s.log.Debug("mail stored", slog.Int("email_id", row.ID), slog.String("message_id", msg.MessageID))
		res.Stored++
	}

	s.log.Info("mail fetched", slog.String("label", label), slog.Int("fetched", res.Fetched), slog.Int("stored", res.Stored), slog.Int("known", res.Known))
	return res, nil
}

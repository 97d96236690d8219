package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/connectors"
	dropdirconnector "tripvoucher/internal/connectors/dropdir"
	gmailconnector "tripvoucher/internal/connectors/gmail"
	imapconnector "tripvoucher/internal/connectors/imap"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/pipeline"
	"tripvoucher/internal/storage"
)

const (
	lastCycleKey = "listener.last_cycle"
	maxNamePart  = 80
)

type Service struct {
	db  *storage.DB
	cfg config.Config
	log *slog.Logger
}

type CycleResult struct {
	Provider  string
	Fetched   int
	Stored    int
	Processed int
	Vouchers  int
	Exported  int
}

func NewService(db *storage.DB, cfg config.Config, log *slog.Logger) *Service {
	return &Service{db: db, cfg: cfg, log: logging.OrDiscard(log)}
}

// Run repeats RunCycle every MAIL_LISTENER_INTERVAL_SEC until ctx ends. A
// failed cycle is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.Error("listener cycle failed", slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	res := CycleResult{Provider: provider}

	mailConnector, err := Connector(s.cfg, provider)
	if err != nil {
		return res, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.log)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.Stored = fetchResult.Fetched, fetchResult.Stored

	processor := pipeline.NewProcessingService(s.db, s.log)
	res.Processed, res.Vouchers, err = processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport {
		if res.Exported, err = s.exportProcessed(provider); err != nil {
			return res, err
		}
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("listener metadata not saved", slog.Any("err", err))
	}
	s.log.Info("listener cycle done",
		slog.String("provider", provider),
		slog.Int("fetched", res.Fetched),
		slog.Int("stored", res.Stored),
		slog.Int("processed", res.Processed),
		slog.Int("vouchers", res.Vouchers),
		slog.Int("exported", res.Exported),
	)
	return res, nil
}

func (s *Service) exportProcessed(provider string) (int, error) {
	emails, err := s.db.ListEmailsByStatus(internal.EmailProcessed, 200)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		voucher, err := s.db.GetVoucherByEmail(email.ID)
		if err != nil {
			return exported, err
		}
		if voucher == nil {
			continue
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", ExportFileName(email, *voucher))
		if err := pipeline.ExportItineraryToXLSX(voucher.Itinerary, outputPath); err != nil {
			return exported, err
		}
		if err := s.db.UpdateEmailStatus(email.ID, internal.EmailExported); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

// Connector builds the mail connector named by provider: gmail, imap or dir.
func Connector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	case "dir":
		return dropdirconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func ExportFileName(email internal.EmailRow, voucher internal.VoucherRow) string {
	return fmt.Sprintf("%d_%s_%s.xlsx", email.ID, sanitize(voucher.TripRef), sanitize(email.MessageID))
}

// sanitize makes input safe as part of a file name and caps it at
// maxNamePart bytes without splitting a UTF-8 sequence.
func sanitize(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "@", "_")
	out := repl.Replace(input)
	if len(out) <= maxNamePart {
		return out
	}
	cut := maxNamePart
	for cut > 0 && !utf8.RuneStart(out[cut]) {
		cut--
	}
	return out[:cut]
}

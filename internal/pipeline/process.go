package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"tripvoucher/internal"
	"tripvoucher/internal/decision"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/storage"
	"tripvoucher/internal/util"
)

// ProcessingService turns stored itinerary emails into vouchers without a
// human at hand: excursions nobody has answered yet become pending decisions
// and the email waits until they are resolved.
type ProcessingService struct {
	db  *storage.DB
	log *slog.Logger
}

func NewProcessingService(db *storage.DB, log *slog.Logger) *ProcessingService {
	return &ProcessingService{db: db, log: logging.OrDiscard(log)}
}

type ProcessResult struct {
	EmailID    int
	Status     string
	VoucherID  int64
	Pending    int
	Activities int
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending works through fetched emails and returns how many were
// handled and how many of those produced a voucher.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus(internal.EmailFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	vouchers := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			return processedEmails, vouchers, err
		}
		processedEmails++
		if res.VoucherID > 0 {
			vouchers++
		}
	}
	return processedEmails, vouchers, nil
}

func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	log := s.log.With(slog.Int("email_id", email.ID), slog.String("provider", email.Provider))

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	mail, err := ReadEmailGrid(raw)
	if err != nil && !errors.Is(err, ErrNoItinerary) {
		return ProcessResult{}, err
	}
	detect := DetectItinerary(util.FirstNonEmpty(mail.Subject, email.Subject), mail.Text, mail.HTML, mail.Attachments)
	if err := s.db.ClearEmailProcessing(email.ID); err != nil {
		return ProcessResult{}, err
	}

	var table Table
	if detect.IsItinerary && mail.Grid != nil {
		table, err = Tabularize(mail.Grid)
	}
	if !detect.IsItinerary || mail.Grid == nil || errors.Is(err, ErrEmptyInput) {
		log.Info("email skipped", slog.Float64("score", detect.Score), slog.Bool("has_table", mail.Grid != nil))
		return s.finish(email.ID, internal.EmailSkipped, start, ProcessResult{EmailID: email.ID})
	}
	if err != nil {
		return ProcessResult{}, err
	}

	unresolved := UnresolvedExcursions(table, decision.Known(s.db))
	if len(unresolved) > 0 {
		for _, excursion := range unresolved {
			if _, err := s.db.InsertPendingDecision(&email.ID, excursion); err != nil {
				return ProcessResult{}, err
			}
		}
		log.Info("email awaits classification", slog.Int("pending", len(unresolved)))
		return s.finish(email.ID, internal.EmailAwaitingClassification, start, ProcessResult{EmailID: email.ID, Pending: len(unresolved)})
	}

	classifier := NewClassifier(decision.NewMemo(s.db, decision.NewDeferred(s.db, &email.ID), "mail", log), log)
	it, err := BuildFromTable(ctx, table, classifier)
	if errors.Is(err, decision.ErrDecisionPending) {
		n, err := s.db.CountPendingForEmail(email.ID)
		if err != nil {
			return ProcessResult{}, err
		}
		return s.finish(email.ID, internal.EmailAwaitingClassification, start, ProcessResult{EmailID: email.ID, Pending: n})
	}
	if err != nil {
		return ProcessResult{}, err
	}

	voucherID, err := s.db.InsertVoucher(&email.ID, mail.Source, mail.Origin, it)
	if err != nil {
		return ProcessResult{}, err
	}
	log.Info("voucher built", slog.Int64("voucher_id", voucherID), slog.String("trip_ref", it.TripRef), slog.Int("days", len(it.Days)))
	return s.finish(email.ID, internal.EmailProcessed, start, ProcessResult{EmailID: email.ID, VoucherID: voucherID, Activities: it.ActivityCount()})
}

func (s *ProcessingService) finish(emailID int, status string, start time.Time, res ProcessResult) (ProcessResult, error) {
	if err := s.db.UpdateEmailStatus(emailID, status); err != nil {
		return ProcessResult{}, err
	}
	res.Status = status
	counts := map[string]int{"activities": res.Activities, "pending": res.Pending}
	if err := s.db.InsertRun(uuid.NewString(), &emailID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, counts); err != nil {
		s.log.Warn("run not recorded", slog.Int("email_id", emailID), slog.Any("err", err))
	}
	return res, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
	"tripvoucher/internal/connectors"
	"tripvoucher/internal/decision"
	"tripvoucher/internal/listener"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/pipeline"
	"tripvoucher/internal/server"
	"tripvoucher/internal/storage"
	"tripvoucher/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFile)
	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "", "xlsx|csv|html|eml (default: from extension)")
		output := fs.String("output", "", "output path, .xlsx or .json")
		decider := fs.String("decider", "terminal", "terminal|remote")
		save := fs.Bool("save", false, "store the voucher in the database")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}
		if *inType == "" {
			*inType = pipeline.InputTypeFromName(*input)
		}

		grid, err := pipeline.ReadGridFromInput(*inType, *input)
		must(err)
		fallback, err := makeDecider(cfg, *decider, log)
		must(err)
		classifier := pipeline.NewClassifier(decision.NewMemo(db, fallback, *decider, log), log)
		it, err := pipeline.BuildItinerary(ctx, grid, classifier)
		must(err)

		if strings.EqualFold(filepath.Ext(*output), ".json") {
			must(writeJSON(it, *output))
		} else {
			must(pipeline.ExportItineraryToXLSX(it, *output))
		}
		if *save {
			id, err := db.InsertVoucher(nil, pipeline.SourceForType(*inType), filepath.Base(*input), it)
			must(err)
			fmt.Printf("voucher saved id=%d\n", id)
		}
		fmt.Printf("run done trip=%s days=%d activities=%d output=%s\n", it.TripRef, len(it.Days), it.ActivityCount(), *output)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap|dir")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.Connector(cfg, strings.ToLower(strings.TrimSpace(*provider)))
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "only emails of this provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, log)
		if strings.TrimSpace(*messageID) != "" {
			p := util.FirstNonEmpty(*provider, cfg.MailListenerProvider)
			res, err := processor.ProcessByProviderMessageID(ctx, p, *messageID)
			must(err)
			fmt.Printf("processed email id=%d status=%s voucher=%d pending=%d\n", res.EmailID, res.Status, res.VoucherID, res.Pending)
			return
		}
		processedEmails, vouchers, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d vouchers=%d\n", processedEmails, vouchers)
	case "mail:listen":
		s := listener.NewService(db, cfg, log)
		must(s.Run(ctx))
	case "classify:pending":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 50, "max rows")
		_ = fs.Parse(os.Args[2:])
		pending, err := db.ListPendingDecisions(*limit)
		must(err)
		for _, p := range pending {
			email := "-"
			if p.EmailID != nil {
				email = fmt.Sprint(*p.EmailID)
			}
			fmt.Printf("%s\temail=%s\t%s\n", p.ID, email, p.Excursion)
		}
		fmt.Printf("%d pending; tags: %s\n", len(pending), joinCategories())
	case "classify:resolve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "pending request id")
		tag := fs.String("tag", "", joinCategories())
		_ = fs.Parse(os.Args[2:])
		if *id == "" || *tag == "" {
			must(fmt.Errorf("--id and --tag are required"))
		}
		category, err := internal.ParseCategory(*tag)
		must(err)
		p, requeued, err := db.ResolvePending(*id, category, "cli")
		must(err)
		fmt.Printf("resolved %q as %s, requeued emails=%v\n", p.Excursion, category, requeued)
	case "classify:decisions":
		decisions, err := db.ListDecisions()
		must(err)
		for _, d := range decisions {
			fmt.Printf("%s\t%s\t%s\t%s\n", d.Category, d.Origin, d.UpdatedAt, d.Excursion)
		}
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		voucherID := fs.Int("voucherId", 0, "voucher id")
		emailID := fs.Int("emailId", 0, "internal email id (latest voucher of the email)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if (*voucherID == 0 && *emailID == 0) || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--voucherId or --emailId, and --out are required"))
		}
		var v internal.VoucherRow
		if *voucherID != 0 {
			v, err = db.MustVoucher(*voucherID)
			must(err)
		} else {
			row, err := db.GetVoucherByEmail(*emailID)
			must(err)
			if row == nil {
				must(fmt.Errorf("no voucher for emailId=%d", *emailID))
			}
			v = *row
		}
		must(pipeline.ExportItineraryToXLSX(v.Itinerary, *out))
		fmt.Printf("exported voucher %d (%d days) to %s\n", v.ID, v.DayCount, *out)
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.HTTPAddr, "listen address")
		_ = fs.Parse(os.Args[2:])
		must(serve(ctx, db, cfg, *addr, log))
	default:
		usage()
		os.Exit(1)
	}
}

func makeDecider(cfg config.Config, name string, log *slog.Logger) (decision.Decider, error) {
	switch name {
	case "terminal":
		return decision.NewTerminal(os.Stdin, os.Stdout), nil
	case "remote":
		if err := cfg.Require("DECISION_URL", cfg.DecisionURL); err != nil {
			return nil, err
		}
		return decision.NewRemote(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported decider: %s", name)
	}
}

func serve(ctx context.Context, db *storage.DB, cfg config.Config, addr string, log *slog.Logger) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	app := server.New(db, cfg, log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		app.Close()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	app.Close()
	return err
}

func writeJSON(it internal.Itinerary, path string) error {
	blob, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

func joinCategories() string {
	names := make([]string, 0, len(internal.Categories()))
	for _, c := range internal.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, "|")
}

func usage() {
	fmt.Println("usage: tripvoucher <command>")
	fmt.Println("commands:")
	fmt.Println("  run --input=trip.xlsx [--type=xlsx|csv|html|eml] --output=voucher.xlsx|.json [--decider=terminal|remote] [--save]")
	fmt.Println("  mail:fetch --provider=gmail|imap|dir --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=...] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  classify:pending [--limit=50]")
	fmt.Println("  classify:resolve --id=... --tag=" + joinCategories())
	fmt.Println("  classify:decisions")
	fmt.Println("  export:xlsx --voucherId=1|--emailId=1 --out=./out/voucher.xlsx")
	fmt.Println("  serve [--addr=:8080]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tripvoucher/internal"
	"tripvoucher/internal/decision"
	"tripvoucher/internal/pipeline"
	"tripvoucher/internal/storage"
)

const maxUploadBytes = 16 << 20

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "pending": len(s.queue.Pending())})
}

// POST /api/vouchers (multipart: file, optional type)
func (s *Server) createVoucher(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	inputType := strings.ToLower(strings.TrimSpace(c.PostForm("type")))
	if inputType == "" {
		inputType = pipeline.InputTypeFromName(header.Filename)
	}
	if inputType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, use xlsx, csv, html or eml"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	blob, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := s.jobs.start(header.Filename)
	s.wg.Add(1)
	go s.build(job.ID, header.Filename, inputType, blob)

	c.Header("Location", "/api/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) build(jobID, filename, inputType string, blob []byte) {
	defer s.wg.Done()
	log := s.log.With(slog.String("job_id", jobID), slog.String("filename", filename))

	voucherID, err := func() (int64, error) {
		grid, err := pipeline.ReadGrid(inputType, blob)
		if err != nil {
			return 0, err
		}
		classifier := pipeline.NewClassifier(decision.NewMemo(s.db, s.queue, "http", log), log)
		it, err := pipeline.BuildItinerary(s.ctx, grid, classifier)
		if err != nil {
			return 0, err
		}
		return s.db.InsertVoucher(nil, pipeline.SourceForType(inputType), filename, it)
	}()
	if err != nil {
		log.Warn("voucher build failed", slog.Any("err", err))
	} else {
		log.Info("voucher built", slog.Int64("voucher_id", voucherID))
	}
	s.jobs.finish(jobID, voucherID, err)
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) listVouchers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	rows, err := s.db.ListVouchers(limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, v := range rows {
		out = append(out, gin.H{
			"id":            v.ID,
			"emailId":       v.EmailID,
			"source":        v.Source,
			"sourceRef":     v.SourceRef,
			"tripRef":       v.TripRef,
			"participants":  v.Participants,
			"dayCount":      v.DayCount,
			"activityCount": v.ActivityCount,
			"createdAt":     v.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getVoucher(c *gin.Context) {
	v, ok := s.voucherParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Itinerary)
}

func (s *Server) exportVoucher(c *gin.Context) {
	v, ok := s.voucherParam(c)
	if !ok {
		return
	}
	f, err := pipeline.ItineraryWorkbook(v.Itinerary)
	if err != nil {
		s.internalError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("voucher_%d.xlsx", v.ID)))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		s.log.Warn("xlsx write failed", slog.Int("voucher_id", v.ID), slog.Any("err", err))
	}
}

func (s *Server) voucherParam(c *gin.Context) (internal.VoucherRow, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid voucher id"})
		return internal.VoucherRow{}, false
	}
	v, err := s.db.MustVoucher(id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "voucher not found"})
		return internal.VoucherRow{}, false
	}
	if err != nil {
		s.internalError(c, err)
		return internal.VoucherRow{}, false
	}
	return v, true
}

// GET /api/classifications: questions of running builds in FIFO order, plus
// the ones recorded by unattended mail processing.
func (s *Server) listClassifications(c *gin.Context) {
	deferred, err := s.db.ListPendingDecisions(200)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if deferred == nil {
		deferred = []internal.PendingDecision{}
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": internal.Categories(),
		"live":       s.queue.Pending(),
		"deferred":   deferred,
	})
}

type resolveRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// POST /api/classifications/:id {"tag": "..."}
func (s *Server) resolveClassification(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"tag\": \"...\"}"})
		return
	}
	category, err := internal.ParseCategory(req.Tag)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "categories": internal.Categories()})
		return
	}

	id := c.Param("id")
	resolved, err := s.queue.Resolve(id, string(category))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": resolved.ID, "excursion": resolved.Excursion, "category": category})
		return
	case errors.Is(err, decision.ErrNotHead):
		head, _ := s.queue.Head()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "head": head})
		return
	case !errors.Is(err, decision.ErrUnknownRequest):
		s.internalError(c, err)
		return
	}

	pending, requeued, err := s.db.ResolvePending(id, category, "http")
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "classification request not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	if requeued == nil {
		requeued = []int{}
	}
	c.JSON(http.StatusOK, gin.H{"id": pending.ID, "excursion": pending.Excursion, "category": category, "requeuedEmails": requeued})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Error("request failed", slog.String("request_id", GetRequestID(c)), slog.Any("err", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "request_id": GetRequestID(c)})
}

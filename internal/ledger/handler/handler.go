// Package handler exposes the ledger over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wikichain/wikichain/internal/audit"
	"github.com/wikichain/wikichain/internal/idempotency"
	"github.com/wikichain/wikichain/internal/ledger"
	"github.com/wikichain/wikichain/pkg/logger"
	"github.com/wikichain/wikichain/pkg/middleware"
)

// IdempotencyHeader carries a client-chosen key that makes a retried submission safe.
const IdempotencyHeader = "Idempotency-Key"

// Recording a receipt is retried: a committed tx whose key stays pending
// would answer in_progress until the key expires.
const completeAttempts = 3

var completeBackoff = 50 * time.Millisecond

// ReportReader exposes persisted audit reports.
type ReportReader interface {
	Load(ctx context.Context, runID string) (*audit.Report, error)
	Latest(ctx context.Context) (*audit.Report, error)
}

type Handler struct {
	ledger  *ledger.Ledger
	idem    idempotency.Store
	// guards run in front of every mutating route; the first must authenticate.
	guards  []gin.HandlerFunc
	reports ReportReader
	log     *logger.Logger
}

// NewHandler builds the ledger HTTP surface. idem and reports may be nil.
func NewHandler(l *ledger.Ledger, idem idempotency.Store, reports ReportReader, guards ...gin.HandlerFunc) *Handler {
	return &Handler{ledger: l, idem: idem, guards: guards, reports: reports, log: logger.Named("http")}
}

func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api/v1")

	// reads
	api.GET("/accounts", h.registeredUsers)
	api.GET("/accounts/:address", h.getAccount)
	api.GET("/articles/query", h.query)
	api.GET("/articles/document", h.document)
	api.GET("/articles/cids", h.listContentIDs)
	api.GET("/articles/by-cid/:cid", h.byContentID)
	api.GET("/articles/count", h.articleCount)
	api.GET("/consortium", h.consortium)
	if h.reports != nil {
		api.GET("/audit/reports/latest", h.latestReport)
		api.GET("/audit/reports/:runId", h.getReport)
	}

	// transactions
	tx := api.Group("", h.guards...)
	tx.POST("/accounts", h.register)
	tx.POST("/articles", h.publish)
	tx.POST("/articles/update", h.update)
	tx.POST("/articles/vote", h.vote)
	tx.POST("/articles/verify", h.verify)
	tx.POST("/consortium/designate", h.designate)
	tx.POST("/audit/purge", h.purge)
}

// statusOf maps an error to its HTTP status. Non-ledger errors are internal.
func statusOf(err error) int {
	switch ledger.KindOf(err) {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindDuplicate, ledger.KindStateConflict:
		return http.StatusConflict
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindPermission:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	code := ledger.CodeOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		code, msg = "internal", "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": ledger.ErrInvalidInput.Code})
}

// submit runs fn at most once per (caller, Idempotency-Key) and replays the
// stored receipt for a repeated key.
func (h *Handler) submit(c *gin.Context, okStatus int, fn func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error)) {
	caller := ledger.Address(middleware.CallerAddress(c))
	ctx := c.Request.Context()
	key := c.GetHeader(IdempotencyHeader)
	if h.idem == nil || key == "" {
		r, err := fn(ctx, caller)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(okStatus, r)
		return
	}

	scoped := string(caller) + ":" + key
	prev, err := h.idem.Begin(ctx, scoped)
	if errors.Is(err, idempotency.ErrInProgress) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "in_progress"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	if prev != nil {
		c.Header("Idempotent-Replay", "true")
		c.JSON(okStatus, prev)
		return
	}
	r, err := fn(ctx, caller)
	if err != nil {
		if aerr := h.idem.Abort(ctx, scoped); aerr != nil {
			h.log.Warnf("release idempotency key: %v", aerr)
		}
		h.writeError(c, err)
		return
	}
	h.complete(ctx, scoped, r)
	c.JSON(okStatus, r)
}

func (h *Handler) complete(ctx context.Context, key string, r ledger.Receipt) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < completeAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(completeBackoff << (attempt - 1))
		}
		if err = h.idem.Complete(ctx, key, r); err == nil {
			return
		}
		h.log.Warnf("record idempotency key (attempt %d): %v", attempt+1, err)
	}
	h.log.Errorf("idempotency key %q left pending for committed seq %d: %v", key, r.Seq, err)
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusCreated, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Register(ctx, caller, req.Username)
	})
}

type articleRequest struct {
	Title     string `json:"title"`
	ContentID string `json:"contentId"`
}

func (h *Handler) publish(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusCreated, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Publish(ctx, caller, req.Title, req.ContentID)
	})
}

func (h *Handler) update(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusOK, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Update(ctx, caller, req.Title, req.ContentID)
	})
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *Handler) vote(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusOK, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Vote(ctx, caller, req.Title)
	})
}

func (h *Handler) verify(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusOK, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Verify(ctx, caller, req.Title)
	})
}

func (h *Handler) designate(c *gin.Context) {
	h.submit(c, http.StatusOK, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Designate(ctx, caller)
	})
}

func (h *Handler) purge(c *gin.Context) {
	var req struct {
		ContentIDs []string `json:"contentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.submit(c, http.StatusOK, func(ctx context.Context, caller ledger.Address) (ledger.Receipt, error) {
		return h.ledger.Purge(ctx, caller, req.ContentIDs)
	})
}

func (h *Handler) getAccount(c *gin.Context) {
	acc, err := h.ledger.Account(ledger.Address(c.Param("address")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) registeredUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.ledger.RegisteredUsers()})
}

// query serves getArticle. version is 1-based and defaults to the latest.
func (h *Handler) query(c *gin.Context) {
	version := ledger.LatestVersion
	if v := c.Query("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "version must be an integer")
			return
		}
		version = n
	}
	view, err := h.ledger.Query(c.Query("title"), version)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) document(c *gin.Context) {
	d, err := h.ledger.Document(c.Query("title"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) listContentIDs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contentIds": h.ledger.ListAllContentIDs()})
}

func (h *Handler) byContentID(c *gin.Context) {
	titles := h.ledger.ArticlesByContentID(c.Param("cid"))
	if titles == nil {
		titles = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"titles": titles})
}

func (h *Handler) articleCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.ledger.ArticleCount()})
}

func (h *Handler) consortium(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Consortium())
}

func (h *Handler) latestReport(c *gin.Context) {
	r, err := h.reports.Latest(c.Request.Context())
	h.writeReport(c, r, err)
}

func (h *Handler) getReport(c *gin.Context) {
	r, err := h.reports.Load(c.Request.Context(), c.Param("runId"))
	h.writeReport(c, r, err)
}

func (h *Handler) writeReport(c *gin.Context, r *audit.Report, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if r == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "audit report not found", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

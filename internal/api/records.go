package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

type handler struct {
	Deps
}

func newHandler(d Deps) *handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &handler{Deps: d}
}

// health answers 200 when every required sink is reachable, 503 otherwise.
func (h *handler) health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if h.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	report, ok := h.Health.Report(h.RedisRequired)
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *handler) symbols(c *gin.Context) {
	syms, err := h.Records.Symbols(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if syms == nil {
		syms = []string{}
	}
	c.JSON(http.StatusOK, syms)
}

// stocks serves GET /api/stocks?symbol=&resolution=&limit=&from=
func (h *handler) stocks(c *gin.Context) {
	w := model.Window{Symbol: c.DefaultQuery("symbol", model.DefaultSymbol)}

	if s := c.Query("from"); s != "" {
		from, err := strconv.ParseInt(s, 10, 64)
		if err != nil || from < 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("from must be unix milliseconds, got %q", s))
			return
		}
		w.From = from
	}
	if s := c.Query("resolution"); s != "" {
		res, err := model.ParseResolution(s)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		w.Resolution = res
	}
	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			fail(c, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer, got %q", s))
			return
		}
		w.Limit = limit
	}

	records, err := h.Records.Stocks(c.Request.Context(), w)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

type searchRequest struct {
	Criteria []model.Criterion `json:"criteria"`
	Limit    int               `json:"limit"`
}

// search serves POST /api/search. Results are newest first.
func (h *handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if len(req.Criteria) == 0 {
		fail(c, http.StatusBadRequest, errors.New("invalid criteria"))
		return
	}

	records, err := h.Records.Search(c.Request.Context(), req.Criteria, req.Limit)
	if err != nil {
		var ve *query.ValidationError
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, err)
			return
		}
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

func nonNil(records []model.EnrichedRecord) []model.EnrichedRecord {
	if records == nil {
		return []model.EnrichedRecord{}
	}
	return records
}

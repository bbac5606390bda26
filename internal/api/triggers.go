package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

type triggerRequest struct {
	Username  string            `json:"username"`
	Criteria  []model.Criterion `json:"criteria"`
	Lifetime  *model.Lifetime   `json:"lifetime"`
	Frequency *int              `json:"frequency"`
	Status    string            `json:"status"`
}

// validate checks criteria when present. A trigger without criteria is
// allowed and matches nothing until edited.
func (h *handler) validate(criteria []model.Criterion) error {
	if len(criteria) == 0 {
		return nil
	}
	_, err := query.Build(criteria, h.Fields)
	return err
}

func validStatus(s string) bool {
	return s == "" || s == model.TriggerActive || s == model.TriggerInactive
}

func (h *handler) listTriggers(c *gin.Context) {
	ts, err := h.Triggers.ListTriggers(c.Request.Context(), c.Query("username"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if ts == nil {
		ts = []model.Trigger{}
	}
	c.JSON(http.StatusOK, ts)
}

func (h *handler) createTrigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := h.validate(req.Criteria); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if !validStatus(req.Status) {
		fail(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", req.Status))
		return
	}

	t := &model.Trigger{
		TriggerID: h.NewID(),
		Username:  req.Username,
		CreatedAt: h.Now().UTC(),
		Criteria:  req.Criteria,
		Status:    req.Status,
	}
	if t.Username == "" {
		t.Username = "anonymous"
	}
	if t.Criteria == nil {
		t.Criteria = []model.Criterion{}
	}
	if req.Lifetime != nil {
		t.Lifetime = *req.Lifetime
	}
	if req.Frequency != nil {
		t.Frequency = *req.Frequency
	}
	t.ApplyDefaults()

	if err := h.Triggers.CreateTrigger(c.Request.Context(), t); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// updateTrigger applies the fields present in the body to an existing trigger.
func (h *handler) updateTrigger(c *gin.Context) {
	ctx := c.Request.Context()
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	t, err := h.Triggers.GetTrigger(ctx, c.Param("id"))
	if err != nil {
		failLookup(c, err)
		return
	}
	if req.Criteria != nil {
		if err := h.validate(req.Criteria); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		t.Criteria = req.Criteria
	}
	if !validStatus(req.Status) {
		fail(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", req.Status))
		return
	}
	if req.Status != "" {
		t.Status = req.Status
	}
	if req.Lifetime != nil {
		t.Lifetime = *req.Lifetime
	}
	if req.Frequency != nil {
		t.Frequency = *req.Frequency
	}
	t.ApplyDefaults()

	if err := h.Triggers.UpdateTrigger(ctx, t); err != nil {
		failLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteTrigger accepts the id as a path segment or an id query parameter.
func (h *handler) deleteTrigger(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("id")
	}
	if id == "" {
		fail(c, http.StatusBadRequest, errors.New("missing trigger id"))
		return
	}
	if err := h.Triggers.DeleteTrigger(c.Request.Context(), id); err != nil {
		failLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func failLookup(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) {
		fail(c, http.StatusNotFound, err)
		return
	}
	fail(c, http.StatusInternalServerError, err)
}

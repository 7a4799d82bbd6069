package handlers

import (
	"net/http"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTasks answers the filtered view plus counts over the whole collection.
func (h *Handler) ListTasks(c *gin.Context) {
	spec := domain.ParseFilterSpec(c.Query("search"), c.Query("category"), c.Query("priority"), c.Query("status"))

	col, err := h.Tasks.Collection(c.Request.Context(), session(c))
	if err != nil {
		writeError(c, err)
		return
	}

	view := domain.BuildView(col.Tasks, spec)
	c.JSON(http.StatusOK, gin.H{
		"tasks":  view.Tasks,
		"counts": view.Counts,
		"filter": view.Filter,
		"state":  col.State,
	})
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req domain.Draft
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	writeOutcome(c, http.StatusCreated, h.Tasks.Add(c.Request.Context(), session(c), req))
}

func (h *Handler) UpdateTask(c *gin.Context) {
	var req domain.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	writeOutcome(c, http.StatusOK, h.Tasks.Update(c.Request.Context(), session(c), c.Param("id"), req))
}

func (h *Handler) DeleteTask(c *gin.Context) {
	writeOutcome(c, http.StatusOK, h.Tasks.Delete(c.Request.Context(), session(c), c.Param("id")))
}

func (h *Handler) ToggleTask(c *gin.Context) {
	writeOutcome(c, http.StatusOK, h.Tasks.Toggle(c.Request.Context(), session(c), c.Param("id")))
}

// PendingTasks reports which mutation kinds are in flight for the caller.
func (h *Handler) PendingTasks(c *gin.Context) {
	pending := h.Tasks.PendingAll(session(c))
	out := make(map[string]bool, len(pending))
	for op, busy := range pending {
		out[string(op)] = busy
	}
	c.JSON(http.StatusOK, gin.H{"pending": out})
}

func writeOutcome(c *gin.Context, okStatus int, out service.Outcome) {
	if out.OK() {
		c.JSON(okStatus, out)
		return
	}

	kind := domain.KindOf(out.Err)
	c.JSON(statusFor(kind), gin.H{
		"op":           out.Op,
		"state":        out.State,
		"error":        out.Err.Error(),
		"kind":         kind.String(),
		"notification": out.Notification,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"divisionone/internal/eventlog"

	"github.com/gin-gonic/gin"
)

// ListEvents returns stored program events, newest first.
// Query: name, program_id, signature, limit, offset.
func (h *Handler) ListEvents(c *gin.Context) {
	if h.Events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event log not configured"})
		return
	}

	filter := eventlog.Filter{
		Name:      c.Query("name"),
		ProgramID: c.Query("program_id"),
		Signature: c.Query("signature"),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		filter.Offset = offset
	}

	events, err := h.Events.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]ProgramEventResp, 0, len(events))
	for _, e := range events {
		payload := json.RawMessage(e.Payload)
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		resp = append(resp, ProgramEventResp{
			ID:        e.ID,
			Signature: e.Signature,
			Ordinal:   e.Ordinal,
			Slot:      e.Slot,
			ProgramID: e.ProgramID,
			Name:      e.Name,
			Payload:   payload,
			BlockTime: unixOrZero(e.BlockTime),
			CreatedAt: unixOrZero(e.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// StreamEvents upgrades to a websocket that receives events as they are
// committed. An optional name query limits the stream to one event name.
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not configured"})
		return
	}
	h.Hub.ServeWS(c.Writer, c.Request, c.Query("name"))
}

package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"fitts-go/internal/export"
	"fitts-go/internal/models"
	"fitts-go/internal/plan"
	"fitts-go/internal/services"
	"fitts-go/internal/session"
	"fitts-go/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionKeyContextKey is where the router middleware stores the
// browser's experiment key.
const SessionKeyContextKey = "experiment_key"

// maxPointerBatch bounds the samples accepted in one pointer request.
const maxPointerBatch = 1000

type ExperimentHandler struct {
	log    *zap.Logger
	runner *services.Runner
}

func NewExperimentHandler(log *zap.Logger, runner *services.Runner) *ExperimentHandler {
	return &ExperimentHandler{log: log, runner: runner}
}

type startRequest struct {
	ParticipantID string `json:"participant_id"`
	Design        string `json:"design"`
}

type pointerRequest struct {
	Positions []models.Position `json:"positions" binding:"required"`
}

type clickRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	OnTarget bool    `json:"on_target"`
}

func sessionKey(c *gin.Context) string {
	return c.GetString(SessionKeyContextKey)
}

// Start begins a session for the caller's browser session.
func (h *ExperimentHandler) Start(c *gin.Context) {
	// The body is optional; an empty one starts the default design.
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	design, err := h.runner.ResolveDesign(req.Design)
	if err != nil {
		h.fail(c, err)
		return
	}

	snap, err := h.runner.Start(sessionKey(c), req.ParticipantID, design)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// State returns the current snapshot.
func (h *ExperimentHandler) State(c *gin.Context) {
	snap, err := h.runner.Snapshot(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Arm starts the current trial. The body carries the cursor position,
// normally the center of the start button.
func (h *ExperimentHandler) Arm(c *gin.Context) {
	var origin models.Position
	if err := c.ShouldBindJSON(&origin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid position"})
		return
	}
	snap, err := h.runner.Arm(sessionKey(c), origin)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Pointer takes a batch of pointer samples in the order they were observed.
func (h *ExperimentHandler) Pointer(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pointer batch"})
		return
	}
	if len(req.Positions) > maxPointerBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many pointer samples"})
		return
	}
	if err := h.runner.PointerMoved(sessionKey(c), req.Positions...); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Click resolves a click; the client reports whether it hit the target.
func (h *ExperimentHandler) Click(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid click"})
		return
	}
	snap, err := h.runner.Clicked(sessionKey(c), models.Position{X: req.X, Y: req.Y}, req.OnTarget)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *ExperimentHandler) Advance(c *gin.Context) {
	snap, err := h.runner.Advance(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *ExperimentHandler) Abort(c *gin.Context) {
	snap, err := h.runner.Abort(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Results returns the records of a completed session as JSON.
func (h *ExperimentHandler) Results(c *gin.Context) {
	records, err := h.runner.Results(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

// ResultsCSV serves the export of a completed session as a download.
func (h *ExperimentHandler) ResultsCSV(c *gin.Context) {
	var buf bytes.Buffer
	participantID, err := h.runner.Export(sessionKey(c), &buf)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(participantID)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Designs lists the designs a session can be started with.
func (h *ExperimentHandler) Designs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"designs": h.runner.Designs()})
}

// fail maps domain errors onto status codes.
func (h *ExperimentHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrEmptyResultSet):
		c.Status(http.StatusNoContent)
	case errors.Is(err, plan.ErrInvalidConfiguration),
		errors.Is(err, services.ErrUnknownDesign),
		errors.Is(err, utils.ErrInvalidParticipantID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("Experiment request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

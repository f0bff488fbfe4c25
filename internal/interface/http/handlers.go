package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hampton/progress-tracker/internal/application/query"
	"github.com/hampton/progress-tracker/internal/application/tracker"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/digest"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"name":    "Hampton Progress Tracker API",
		"version": s.config.Version,
		"endpoints": gin.H{
			"health":     "/healthz",
			"progress":   "/api/progress",
			"challenges": "/api/challenges",
			"code":       "/api/code",
			"events":     "/api/events",
		},
	})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.Health.Check(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/progress. The body is the progress
// document itself, in the same shape the browser client stores.
func (s *Server) handleGetProgress(c *gin.Context) {
	state, revision := s.deps.Tracker.View()

	var (
		body []byte
		etag string
	)
	if s.deps.Snapshots != nil && revision > 0 {
		snap, err := s.deps.Snapshots.Fetch(c.Request.Context(), state, revision)
		if err != nil {
			s.logger.Warn("snapshot cache unavailable", "error", err)
		} else {
			body, etag = snap.Body, snap.ETag
		}
	}
	if body == nil {
		var err error
		if body, err = json.Marshal(state); err != nil {
			s.writeError(c, err)
			return
		}
		etag = digest.ETag(body)
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("ETag", etag)
	c.Header("X-Progress-Revision", strconv.FormatInt(revision, 10))
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// handleGetHistory handles GET /api/progress/history?limit=N.
func (s *Server) handleGetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		writeJSONError(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}
	history, err := s.deps.Tracker.History(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, history)
}

type selectProjectRequest struct {
	Project string `json:"project" binding:"required"`
}

// handleSelectProject handles POST /api/project.
func (s *Server) handleSelectProject(c *gin.Context) {
	var req selectProjectRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.SelectProject(c.Request.Context(), progress.Project(strings.ToLower(req.Project)))
	s.writeOutcome(c, out, err)
}

type completeLessonRequest struct {
	Day    int `json:"day" binding:"required,min=1"`
	Lesson int `json:"lesson" binding:"min=0"`
}

// handleCompleteLesson handles POST /api/lessons. Lessons are numbered from 0.
func (s *Server) handleCompleteLesson(c *gin.Context) {
	var req completeLessonRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.CompleteLesson(c.Request.Context(), req.Day, req.Lesson)
	s.writeOutcome(c, out, err)
}

type completeModuleRequest struct {
	Week   int `json:"week" binding:"required,min=1"`
	Module int `json:"module" binding:"required,min=1"`
}

// handleCompleteModule handles POST /api/modules.
func (s *Server) handleCompleteModule(c *gin.Context) {
	var req completeModuleRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.CompleteModule(c.Request.Context(), req.Week, req.Module)
	s.writeOutcome(c, out, err)
}

type updateSkillRequest struct {
	Skill string `json:"skill" binding:"required"`
	Delta int    `json:"delta" binding:"required"`
}

// handleUpdateSkill handles POST /api/skills.
func (s *Server) handleUpdateSkill(c *gin.Context) {
	var req updateSkillRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.UpdateSkill(c.Request.Context(), progress.Skill(req.Skill), req.Delta)
	s.writeOutcome(c, out, err)
}

type addXPRequest struct {
	Amount int    `json:"amount" binding:"min=0"`
	Source string `json:"source"`
}

// handleAddXP handles POST /api/xp.
func (s *Server) handleAddXP(c *gin.Context) {
	var req addXPRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}
	out, err := s.deps.Tracker.AddXP(c.Request.Context(), req.Amount, req.Source)
	s.writeOutcome(c, out, err)
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// handleReset handles POST /api/reset. The body must carry {"confirm": true}.
func (s *Server) handleReset(c *gin.Context) {
	var req resetRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.Reset(c.Request.Context(), req.Confirm)
	s.writeOutcome(c, out, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetChallenges handles GET /api/challenges.
func (s *Server) handleGetChallenges(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.deps.Tracker.TodayChallenges())
}

// handleCompleteChallenge handles POST /api/challenges/:id/complete.
func (s *Server) handleCompleteChallenge(c *gin.Context) {
	out, err := s.deps.Tracker.CompleteChallenge(c.Request.Context(), c.Param("id"))
	s.writeOutcome(c, out, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS CODE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleExportCode handles GET /api/code.
func (s *Server) handleExportCode(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"code": s.deps.Tracker.ExportCode()})
}

type importCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// handleImportCode handles POST /api/code.
func (s *Server) handleImportCode(c *gin.Context) {
	var req importCodeRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.deps.Tracker.ImportCode(c.Request.Context(), req.Code)
	s.writeOutcome(c, out, err)
}

// handleCodeReport handles GET /api/code/report?code=X.
// Without a code the current progress is reported.
func (s *Server) handleCodeReport(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		code = s.deps.Tracker.ExportCode()
	}
	report, err := s.deps.Reports.Handle(c.Request.Context(), query.ProgressReportQuery{Code: code})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

type codeAnalyticsRequest struct {
	Codes []string `json:"codes" binding:"required,min=1"`
}

// handleCodeAnalytics handles POST /api/code/analytics.
func (s *Server) handleCodeAnalytics(c *gin.Context) {
	var req codeAnalyticsRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.deps.Analytics.Handle(c.Request.Context(), query.CodeAnalyticsQuery{Codes: req.Codes})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDay handles GET /api/content/days/:day.
func (s *Server) handleGetDay(c *gin.Context) {
	day, ok := pathInt(c, "day")
	if !ok {
		return
	}
	d, err := s.deps.Tracker.DayContent(c.Request.Context(), day)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

// handleGetWeek handles GET /api/content/weeks/:week.
func (s *Server) handleGetWeek(c *gin.Context) {
	week, ok := pathInt(c, "week")
	if !ok {
		return
	}
	w, err := s.deps.Tracker.WeekContent(c.Request.Context(), week)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, w)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT STREAM
// ══════════════════════════════════════════════════════════════════════════════

// keepAliveInterval spaces comment frames on an idle event stream.
const keepAliveInterval = 15 * time.Second

// handleEvents handles GET /api/events as a server-sent event stream.
// Each frame is named after the event type and carries the event envelope.
func (s *Server) handleEvents(c *gin.Context) {
	events, cancel := s.deps.Events.Listen()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case env, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(env.Type), env)
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// outcomeResponse is the body returned by every command.
type outcomeResponse struct {
	Completion progress.Completion `json:"completion"`
	Saved      bool                `json:"saved"`
	SaveError  string              `json:"save_error,omitempty"`
	Events     []shared.EventType  `json:"events"`
	Progress   *progress.State     `json:"progress"`
}

func (s *Server) writeOutcome(c *gin.Context, out tracker.Outcome, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := outcomeResponse{
		Completion: out.Completion,
		Saved:      out.SaveErr == nil,
		Events:     make([]shared.EventType, 0, len(out.Events)),
		Progress:   out.State,
	}
	if out.SaveErr != nil {
		resp.SaveError = out.SaveErr.Error()
	}
	for _, e := range out.Events {
		resp.Events = append(resp.Events, e.EventType())
	}
	writeJSON(c, http.StatusOK, resp)
}

// bind decodes the JSON body and writes a 400 on failure.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_"+name, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	writeJSONError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrChecksumMismatch):
		return http.StatusUnprocessableEntity, "checksum_mismatch"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, shared.ErrConcurrentModification):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrInvalidState), errors.Is(err, shared.ErrAlreadyProcessed):
		return http.StatusConflict, "invalid_state"
	case shared.IsExternalService(err):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

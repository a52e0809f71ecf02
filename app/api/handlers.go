package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nyczoning/notifier/app/database"
	"github.com/nyczoning/notifier/app/mail"
	"github.com/nyczoning/notifier/app/tasks"
)

//go:embed templates/index.html
var templateFS embed.FS

func NewHandler(repo database.MeetingRepository, event mail.Event, scheduler tasks.TaskSchedulerInterface, ingest, notify TaskBuilder, version string) (*Handler, error) {
	index, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	return &Handler{
		repo:      repo,
		event:     event,
		scheduler: scheduler,
		ingest:    ingest,
		notify:    notify,
		index:     index,
		version:   version,
	}, nil
}

func (h *Handler) meetings(ctx context.Context) ([]MeetingResponse, error) {
	meetings, err := h.repo.ListMeetings(ctx, database.MeetingFilter{})
	if err != nil {
		return nil, err
	}

	// Newest first
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].When.After(meetings[j].When)
	})

	out := make([]MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, h.toResponse(m))
	}
	return out, nil
}

func (h *Handler) toResponse(m database.Meeting) MeetingResponse {
	resp := MeetingResponse{
		ID:        m.ID,
		When:      m.When.Format(time.RFC3339),
		Label:     mail.FormatWhen(m.When),
		Notified:  m.Notified,
		PDFPath:   "/static/" + tasks.ArchiveName(m.When),
		SourceURL: m.SourceURL,
		GCalLink:  h.event.GoogleCalendarLink(m.When, m.SourceURL),
		Projects:  make([]ProjectResponse, 0, len(m.Projects)),
	}

	for _, p := range m.Projects {
		resp.Projects = append(resp.Projects, ProjectResponse{
			CaseID:          p.CaseID,
			Description:     strings.ReplaceAll(p.Description, "\r", " "),
			IsPublicHearing: p.IsPublicHearing,
			Location:        p.Location.String(),
			Councilmember:   p.Location.CouncilmemberLabel(),
		})
	}
	return resp
}

func (h *Handler) GetIndex(c *gin.Context) {
	meetings, err := h.meetings(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_meetings", "error", err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.index.Execute(c.Writer, meetings); err != nil {
		slog.Error("Failed to render index", "error", err)
	}
}

func (h *Handler) GetMeetings(c *gin.Context) {
	meetings, err := h.meetings(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_meetings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meetings": meetings,
		"count":    len(meetings),
	})
}

func (h *Handler) GetMeeting(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting id"})
		return
	}

	meetings, err := h.repo.ListMeetings(c.Request.Context(), database.MeetingFilter{ID: &id})
	if err != nil {
		slog.Error("Database error", "operation", "get_meeting", "meeting_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(meetings) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(meetings[0]))
}

func (h *Handler) GetHealth(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "Database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"version":           h.version,
		"meetings":          stats.Total,
		"notified_meetings": stats.Notified,
		"projects":          stats.Projects,
	})
}

func (h *Handler) APIIngest(c *gin.Context) {
	h.enqueue(c, h.ingest)
}

func (h *Handler) APINotify(c *gin.Context) {
	h.enqueue(c, h.notify)
}

func (h *Handler) enqueue(c *gin.Context, build TaskBuilder) {
	if build == nil || h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task scheduling is not available"})
		return
	}

	task := build("api")
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue task", "type", task.GetType(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue task",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":   task.GetID(),
		"task_type": task.GetType(),
	})
}

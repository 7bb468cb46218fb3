package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db       *gorm.DB
	store    *MailStore
	mail     MailClient
	analyzer MessageAnalyzer
	creds    CredentialStore
	metrics  *Metrics
	sync     SyncConfig
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, store *MailStore, mail MailClient, analyzer MessageAnalyzer, creds CredentialStore, metrics *Metrics, sync SyncConfig) *Handlers {
	return &Handlers{
		db:       db,
		store:    store,
		mail:     mail,
		analyzer: analyzer,
		creds:    creds,
		metrics:  metrics,
		sync:     sync,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Health check
	router.GET("/healthz", h.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Gmail pipeline routes
	gmail := router.Group("/gmail")
	{
		gmail.GET("/authorize", h.Authorize)
		gmail.GET("/callback", h.OAuthCallback)
		gmail.GET("/messages", h.ListMessages)
		gmail.GET("/ai_analysis", h.RunAIAnalysis)
		gmail.GET("/todos", h.GetTodos)
		gmail.GET("/reply_drafts", h.GetReplyDrafts)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
	}

	// Raw is lazy; Scan forces the probe query to execute
	var probe int
	if err := h.db.Raw("SELECT 1").Scan(&probe).Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// Authorize redirects the caller to the provider consent page
func (h *Handlers) Authorize(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, h.mail.AuthCodeURL())
}

// OAuthCallback exchanges the one-time authorization code for a long-lived
// credential and stores it for the placeholder identity
func (h *Handlers) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_code",
			Message: "No code found in request",
			Code:    http.StatusBadRequest,
		})
		return
	}

	cred, err := h.mail.Exchange(c.Request.Context(), code)
	if err != nil {
		logrus.Errorf("Authorization code exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "exchange_failed",
			Message: "Failed to exchange authorization code",
			Code:    http.StatusBadGateway,
		})
		return
	}

	h.creds.Put(DefaultUser, cred)

	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"scopes":  cred.Scopes,
	})
}

// ListMessages ingests the most recent provider messages and persists them.
// Storage failures are tolerated per message: the batch continues and the
// failed message is still reported in the response.
func (h *Handlers) ListMessages(c *gin.Context) {
	cred, ok := h.creds.Get(DefaultUser)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "not_authenticated",
			Message: "User not authenticated",
			Code:    http.StatusUnauthorized,
		})
		return
	}

	inbound, err := h.mail.FetchRecent(c.Request.Context(), cred, h.sync.FetchLimit)
	if err != nil {
		logrus.Errorf("Failed to fetch messages: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "provider_error",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}

	summaries := make([]MessageSummary, 0, len(inbound))
	for _, msg := range inbound {
		summaries = append(summaries, MessageSummary{
			ID:       msg.MessageID,
			ThreadID: msg.ThreadID,
			Snippet:  msg.Snippet,
		})

		if err := h.store.SaveInbound(msg); err != nil {
			if errors.Is(err, ErrMessageExists) {
				logrus.Debugf("Message %s already ingested, skipping", msg.MessageID)
				continue
			}
			logrus.Errorf("Error storing message %s: %v", msg.MessageID, err)
			h.metrics.IngestFailures.Inc()
			continue
		}
		h.metrics.MessagesIngested.Inc()
	}

	c.JSON(http.StatusOK, gin.H{"messages": summaries})
}

// RunAIAnalysis runs the classifier and drafter over the most recent stored
// messages and upserts an analysis row per message. A persistence failure
// drops that message from the processed list but does not abort the batch.
func (h *Handlers) RunAIAnalysis(c *gin.Context) {
	messages, err := h.store.TopMessages(h.sync.AnalysisLimit)
	if err != nil {
		logrus.Errorf("Failed to load messages for analysis: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to load messages for analysis",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	start := time.Now()
	ctx := c.Request.Context()

	processed := make([]AnalysisResult, 0, len(messages))
	for _, msg := range messages {
		payload := MessagePayload{
			Sender:  msg.Sender,
			Subject: msg.Subject,
			Body:    msg.Body,
		}

		needsReply := h.analyzer.NeedsReply(ctx, payload)

		var replyDraft *string
		if needsReply {
			draft := h.analyzer.DraftReply(ctx, payload)
			replyDraft = &draft
		}

		todos := h.analyzer.ExtractTodos(ctx, payload)

		if err := h.store.UpsertAnalysis(msg.MessageID, needsReply, replyDraft, todos); err != nil {
			logrus.Errorf("Failed to save AI analysis for %s: %v", msg.MessageID, err)
			h.metrics.AnalysisFailures.Inc()
			continue
		}
		h.metrics.AnalysesProcessed.Inc()

		processed = append(processed, AnalysisResult{
			MessageID:  msg.MessageID,
			NeedsReply: needsReply,
			ReplyDraft: replyDraft,
			Todos:      todos,
		})
	}

	h.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, gin.H{"processed_messages": processed})
}

// GetTodos returns all extracted todos
func (h *Handlers) GetTodos(c *gin.Context) {
	todos, err := h.store.ListTodos()
	if err != nil {
		logrus.Errorf("Failed to fetch todos: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch todos",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"todos": todos})
}

// GetReplyDrafts returns all non-empty drafts joined with message metadata
func (h *Handlers) GetReplyDrafts(c *gin.Context) {
	drafts, err := h.store.ListReplyDrafts()
	if err != nil {
		logrus.Errorf("Failed to fetch reply drafts: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch reply drafts",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply_drafts": drafts})
}

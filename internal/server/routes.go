package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	"ari/internal/diff"
	"ari/internal/parse"
)

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/cancel", s.handleCancel)
		api.GET("/events", s.handleSSE)
		api.GET("/ws", s.handleWS)
		api.POST("/transform", s.handleTransform)

		api.POST("/conversations", s.handleCreateConversation)
		api.GET("/conversations", s.handleListConversations)
		api.GET("/conversations/:id", s.handleGetConversation)
		api.DELETE("/conversations/:id", s.handleDeleteConversation)
		api.POST("/conversations/:id/messages", s.handleSendMessage)
		api.GET("/conversations/:id/mood", s.handleMood)
		api.POST("/conversations/:id/artifacts", s.handleSaveArtifact)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"generating":   s.coordinator.Engine().IsGenerating(),
		"transforming": s.coordinator.Engine().IsTransforming(),
	})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.coordinator.Engine().State())
}

func (s *Server) handleCancel(c *gin.Context) {
	s.coordinator.Cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	conv, err := s.store.Create(c.Request.Context(), req.Title)
	if err != nil {
		s.logger.Error("create conversation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) handleListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ids, err := s.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list conversations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": ids})
}

func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result, err := s.coordinator.Send(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "a generation is already in flight"})
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		default:
			s.logger.Error("send message: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "message could not be processed"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMood(c *gin.Context) {
	update, err := s.coordinator.Mood(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	mood := update.Mood
	c.JSON(http.StatusOK, gin.H{
		"mood":     mood,
		"label":    mood.Label(),
		"icon":     mood.Icon(),
		"color":    mood.Color(),
		"guidance": update.Guidance,
		"actions":  update.Actions,
	})
}

func (s *Server) handleSaveArtifact(c *gin.Context) {
	var suggestion ports.ArtifactSuggestion
	if err := c.ShouldBindJSON(&suggestion); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact payload"})
		return
	}
	suggestion.Kind = ports.ParseArtifactKind(string(suggestion.Kind))

	artifact, update, err := s.coordinator.SaveArtifact(c.Request.Context(), c.Param("id"), suggestion)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"artifact": artifact, "mood": update})
}

type transformRequest struct {
	Content        string `json:"content" binding:"required"`
	Kind           string `json:"kind" binding:"required"`
	ConversationID string `json:"conversation_id"`
	IncludeDiff    bool   `json:"include_diff"`
}

// transformResponse carries the rewritten text plus, when the kind
// produces structured output, the parsed records so clients can render
// them without re-parsing. Parsers are total: empty parse results mean
// the client falls back to Text.
type transformResponse struct {
	Text       string                `json:"text"`
	Kind       ports.TransformKind   `json:"kind"`
	Quiz       []parse.QuizQuestion  `json:"quiz,omitempty"`
	Flashcards []parse.Flashcard     `json:"flashcards,omitempty"`
	Bullets    []parse.BulletSection `json:"bullets,omitempty"`
	Diff       string                `json:"diff,omitempty"`
}

func (s *Server) handleTransform(c *gin.Context) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content and kind are required"})
		return
	}
	kind, err := ports.ParseTransformKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := s.coordinator.Transform(c.Request.Context(), req.ConversationID, req.Content, kind)
	if err != nil {
		if errors.Is(err, assistant.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a transform is already in flight"})
			return
		}
		s.logger.Error("transform: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transform could not be processed"})
		return
	}

	resp := transformResponse{Text: text, Kind: kind}
	switch kind {
	case ports.TransformQuiz:
		resp.Quiz = parse.Quiz(text)
	case ports.TransformFlashcards:
		resp.Flashcards = parse.Flashcards(text)
	case ports.TransformBullets:
		resp.Bullets = parse.Bullets(text)
	}
	if req.IncludeDiff {
		resp.Diff = diff.NewRenderer(false).Compare(req.Content, text).Unified
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	s.logger.Error("store: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
}

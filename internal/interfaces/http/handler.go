package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	appagents "main/internal/application/service/agents"
	apptrades "main/internal/application/service/trades"
	domainagent "main/internal/domain/entity/agent"
	domainmarket "main/internal/domain/entity/market"
	domaintrade "main/internal/domain/entity/trade"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	agentsBasePath = "/api/v1/agents"
	tradesBasePath = "/api/v1/trades"

	defaultListLimit = 100
)

var (
	errMissingTradeID = errors.New("missing trade id")
	errMissingUserID  = errors.New("user_id is required")
	errMissingFilter  = errors.New("status or store_id query param required")
)

// Handler is the operator API: agent lifecycle control and trade review.
type Handler struct {
	router   *gin.Engine
	agents   *appagents.Service
	trades   *apptrades.Service
	cache    *redis.Client
	cacheTTL time.Duration
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(agents *appagents.Service, trades *apptrades.Service, cache *redis.Client, cacheTTL time.Duration) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:   router,
		agents:   agents,
		trades:   trades,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	ag := h.router.Group(agentsBasePath)
	{
		ag.GET("/", h.listAgents)
		ag.GET("/:id", h.getAgent)
		ag.POST("/:id/start", h.startAgent)
		ag.POST("/:id/stop", h.stopAgent)
		ag.POST("/:id/pause", h.pauseAgent)
		ag.POST("/:id/resume", h.resumeAgent)
		ag.POST("/:id/cycle", h.triggerCycle)
		ag.POST("/:id/negotiations", h.startNegotiation)
		ag.POST("/:id/negotiations/:negotiation_id/respond", h.respondToNegotiation)
	}

	tr := h.router.Group(tradesBasePath)
	if h.cache != nil {
		tr.Use(h.cacheMiddleware())
	}
	{
		tr.GET("/", h.listTrades)
		tr.GET("/pending", h.listPendingTrades)
		tr.GET("/stats", h.tradeStats)
		tr.GET("/:id", h.getTrade)
		tr.POST("/:id/approve", h.approveTrade)
		tr.POST("/:id/reject", h.rejectTrade)
	}
}

// Agent handlers

// listAgents returns the current state of every known agent.
func (h *Handler) listAgents(c *gin.Context) {
	agents, err := h.agents.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h *Handler) getAgent(c *gin.Context) {
	a, err := h.agents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) startAgent(c *gin.Context) {
	if err := h.agents.Start(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) stopAgent(c *gin.Context) {
	if err := h.agents.Stop(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) pauseAgent(c *gin.Context) {
	if err := h.agents.Pause(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resumeAgent(c *gin.Context) {
	if err := h.agents.Resume(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// triggerCycle runs one decision cycle immediately. A 204 means the cycle
// ran but produced no decision.
func (h *Handler) triggerCycle(c *gin.Context) {
	decision, err := h.agents.TriggerCycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	if decision == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, decision)
}

type negotiationPayload struct {
	TargetAgentID string  `json:"target_agent_id"`
	Quantity      int64   `json:"quantity"`
	FromStoreID   string  `json:"from_store_id"`
	ToStoreID     string  `json:"to_store_id"`
	InitialOffer  float64 `json:"initial_offer"`
}

func (h *Handler) startNegotiation(c *gin.Context) {
	var payload negotiationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	negotiationID, err := h.agents.NegotiateTransfer(c.Request.Context(), c.Param("id"), payload.TargetAgentID, domainmarket.NegotiationRequest{
		Quantity:     payload.Quantity,
		FromStoreID:  payload.FromStoreID,
		ToStoreID:    payload.ToStoreID,
		InitialOffer: payload.InitialOffer,
	})
	if err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"negotiation_id": negotiationID})
}

type negotiationResponsePayload struct {
	Response   string         `json:"response"`
	PriceOffer float64        `json:"price_offer,omitempty"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

func (h *Handler) respondToNegotiation(c *gin.Context) {
	var payload negotiationResponsePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var counter *domainmarket.CounterOffer
	if payload.PriceOffer != 0 || payload.Conditions != nil {
		counter = &domainmarket.CounterOffer{
			PriceOffer: payload.PriceOffer,
			Conditions: payload.Conditions,
		}
	}
	accepted, err := h.agents.RespondToNegotiation(c.Request.Context(), c.Param("id"), c.Param("negotiation_id"), payload.Response, counter)
	if err != nil {
		writeError(c, agentErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// Trade handlers

// listTrades filters by status or by participating store.
func (h *Handler) listTrades(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if status := c.Query("status"); status != "" {
		trades, err := h.trades.ListByStatus(c.Request.Context(), domaintrade.Status(status), limit)
		if err != nil {
			writeError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, trades)
		return
	}
	if storeID := c.Query("store_id"); storeID != "" {
		trades, err := h.trades.ListByStore(c.Request.Context(), storeID, limit)
		if err != nil {
			writeError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, trades)
		return
	}
	writeError(c, http.StatusBadRequest, errMissingFilter)
}

func (h *Handler) listPendingTrades(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	trades, err := h.trades.ListPending(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (h *Handler) tradeStats(c *gin.Context) {
	stats, err := h.trades.Stats(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getTrade(c *gin.Context) {
	id, err := parseTradeID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	t, err := h.trades.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, tradeErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type decisionPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) approveTrade(c *gin.Context) {
	id, err := parseTradeID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var payload decisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if payload.UserID == "" {
		writeError(c, http.StatusBadRequest, errMissingUserID)
		return
	}
	t, err := h.trades.Approve(c.Request.Context(), id, payload.UserID)
	if err != nil {
		writeError(c, tradeErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) rejectTrade(c *gin.Context) {
	id, err := parseTradeID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var payload decisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if payload.UserID == "" {
		writeError(c, http.StatusBadRequest, errMissingUserID)
		return
	}
	t, err := h.trades.Reject(c.Request.Context(), id, payload.UserID, payload.Reason)
	if err != nil {
		writeError(c, tradeErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Helpers

func parseTradeID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errMissingTradeID
	}
	return id, nil
}

func parseLimit(c *gin.Context) (int, error) {
	value := c.Query("limit")
	if value == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return limit, nil
}

func agentErrorStatus(err error) int {
	switch {
	case errors.Is(err, domainagent.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appagents.ErrCycleInProgress),
		errors.Is(err, appagents.ErrAlreadyRunning),
		errors.Is(err, appagents.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, appagents.ErrMissingProduct):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func tradeErrorStatus(err error) int {
	switch {
	case errors.Is(err, domaintrade.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apptrades.ErrExpired):
		return http.StatusConflict
	case errors.Is(err, apptrades.ErrMissingActor),
		errors.Is(err, apptrades.ErrInvalidLimit),
		errors.Is(err, domaintrade.ErrMissingStore):
		return http.StatusBadRequest
	case errors.Is(err, domaintrade.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// cacheMiddleware caches GET responses in Redis.
func (h *Handler) cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := h.cacheKey(c)
		ctx := c.Request.Context()

		if cached, err := h.cache.Get(ctx, key).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			c.Abort()
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			status:         http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		if recorder.status >= 200 && recorder.status < 300 && recorder.body.Len() > 0 {
			_ = h.cache.Set(ctx, key, recorder.body.Bytes(), h.cacheTTL).Err()
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if len(data) > 0 {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (h *Handler) cacheKey(c *gin.Context) string {
	return fmt.Sprintf("cache:%s:%s?%s", c.Request.Method, c.FullPath(), c.Request.URL.RawQuery)
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"bead-inventory-service/internal/idemcache"
	"bead-inventory-service/internal/service"
	"bead-inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	inventory  *service.InventoryService
	records    *service.RecordService
	todos      *service.TodoService
	categories *service.CategoryService
	settings   *service.SettingsService
	cache      idemcache.Cache
}

// NewHandler creates a new HTTP handler
func NewHandler(
	inventory *service.InventoryService,
	records *service.RecordService,
	todos *service.TodoService,
	categories *service.CategoryService,
	settings *service.SettingsService,
	cache idemcache.Cache,
) *Handler {
	return &Handler{
		inventory:  inventory,
		records:    records,
		todos:      todos,
		categories: categories,
		settings:   settings,
		cache:      cache,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(authMiddleware())
	{
		api.GET("/all", h.listInventory)
		api.GET("/history", h.history)
		api.GET("/consumeStats", h.consumeStats)

		idem := api.Group("")
		idem.Use(idempotencyMiddleware(h.cache))
		{
			idem.POST("/adjust", h.adjust)
			idem.POST("/adjustBatch", h.adjustBatch)
			idem.POST("/recordGroupUpdate", h.updateGroup)
			idem.POST("/recordGroupDelete", h.deleteGroup)
		}

		api.POST("/resetAll", h.resetAll)

		api.GET("/recordGroups", h.listGroups)
		api.GET("/recordGroupDetail", h.groupDetail)

		api.POST("/addColor", h.addColor)
		api.POST("/removeColor", h.removeColor)
		api.POST("/addSeries", h.addSeries)
		api.POST("/removeSeries", h.removeSeries)

		api.GET("/patternCategories", h.listCategories)
		api.POST("/patternCategories", h.createCategory)
		api.PUT("/patternCategories/:id", h.renameCategory)
		api.DELETE("/patternCategories/:id", h.deleteCategory)

		api.GET("/todoPatterns", h.listTodos)
		api.POST("/todoPatterns", h.createTodo)
		api.GET("/todoPatterns/:id", h.getTodo)
		api.PUT("/todoPatterns/:id", h.updateTodo)
		api.DELETE("/todoPatterns/:id", h.deleteTodo)
		api.POST("/todoPatterns/:id/complete", h.completeTodo)

		api.GET("/settings", h.getSettings)
		api.POST("/settings", h.updateSettings)
	}
}

// respondError maps service errors onto HTTP statuses. Validation errors
// carry their reason to the client; everything else stays generic.
func respondError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *service.ValidationError:
		util.ValidationFailuresTotal.WithLabelValues(e.Reason).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Reason})
	case *service.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Reason})
	default:
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listInventory(c *gin.Context) {
	items, err := h.inventory.ListInventory(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Handler) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	view, err := h.inventory.History(c.Request.Context(), currentUserID(c), c.Query("code"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) consumeStats(c *gin.Context) {
	stats, err := h.inventory.ConsumeStats(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) adjust(c *gin.Context) {
	var req service.AdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.inventory.Adjust(c.Request.Context(), currentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) adjustBatch(c *gin.Context) {
	var req service.AdjustBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	batchID, err := h.inventory.AdjustBatch(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "batchId": batchID})
}

func (h *Handler) resetAll(c *gin.Context) {
	if err := h.inventory.ResetAll(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseListGroupsParams reads the listing query. A supplied limit is
// passed through as-is, zero included, so the service can reject it; only
// an absent limit falls back to the default page size.
func parseListGroupsParams(c *gin.Context) (service.ListGroupsParams, error) {
	params := service.ListGroupsParams{
		Type:            c.Query("type"),
		Cursor:          c.Query("cursor"),
		OnlyWithPattern: c.Query("onlyWithPattern") == "1" || c.Query("onlyWithPattern") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, service.ErrInvalidLimit
		}
		params.Limit = &n
	}
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, service.ErrInvalidCategory
		}
		params.CategoryID = &id
	}
	return params, nil
}

func (h *Handler) listGroups(c *gin.Context) {
	params, err := parseListGroupsParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.records.ListGroups(c.Request.Context(), currentUserID(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) groupDetail(c *gin.Context) {
	detail, err := h.records.GroupDetail(c.Request.Context(), currentUserID(c),
		c.Query("gid"), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) updateGroup(c *gin.Context) {
	var req service.UpdateGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.records.UpdateGroup(c.Request.Context(), currentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteGroup(c *gin.Context) {
	var req struct {
		GID  string `json:"gid"`
		Type string `json:"type,omitempty"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.records.DeleteGroup(c.Request.Context(), currentUserID(c), req.GID, req.Type); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) addColor(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.inventory.AddColor(c.Request.Context(), currentUserID(c), req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) removeColor(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.inventory.RemoveColor(c.Request.Context(), currentUserID(c), req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) addSeries(c *gin.Context) {
	var req struct {
		Series string `json:"series"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.inventory.AddSeries(c.Request.Context(), currentUserID(c), req.Series); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) removeSeries(c *gin.Context) {
	var req struct {
		Series string `json:"series"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.inventory.RemoveSeries(c.Request.Context(), currentUserID(c), req.Series); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listCategories(c *gin.Context) {
	cats, err := h.categories.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cats})
}

func (h *Handler) createCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.categories.Create(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

func (h *Handler) renameCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.categories.Rename(c.Request.Context(), currentUserID(c), id, req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listTodos(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, service.ErrInvalidCategory)
			return
		}
		categoryID = &id
	}
	todos, err := h.todos.List(c.Request.Context(), currentUserID(c), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": todos})
}

func (h *Handler) createTodo(c *gin.Context) {
	var req service.TodoRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.todos.Add(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

func (h *Handler) getTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	todo, err := h.todos.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *Handler) updateTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.TodoRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.todos.Update(c.Request.Context(), currentUserID(c), id, &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.todos.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) completeTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	batchID, err := h.todos.Complete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "batchId": batchID})
}

func (h *Handler) getSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req service.Settings
	if !bindJSON(c, &req) {
		return
	}
	if err := h.settings.Update(c.Request.Context(), currentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

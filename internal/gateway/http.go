package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
	"github.com/routex/routex/internal/rules"
)

// NewHTTPServer builds the gin engine exposing both the proxy surface
// (client-facing chat completion endpoints) and the admin control plane
// (channel CRUD, rule listing and whole-set replacement, transformer listing,
// tee queue stats, metrics). There is no per-rule create/update/delete, no
// rule or transformer test endpoint, and no tee-destination management.
func NewHTTPServer(e *Engine, promReg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(requestIDMiddleware())

	r.POST("/v1/messages", proxyHandler(e))
	r.POST("/v1/chat/completions", proxyHandler(e))

	if promReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	admin := r.Group("/admin")
	{
		admin.GET("/channels", listChannelsHandler(e))
		admin.POST("/channels", createChannelHandler(e))
		admin.GET("/channels/:id", getChannelHandler(e))
		admin.PATCH("/channels/:id", patchChannelHandler(e))
		admin.DELETE("/channels/:id", deleteChannelHandler(e))

		admin.GET("/rules", listRulesHandler(e))
		admin.PUT("/rules", replaceRulesHandler(e))

		admin.GET("/transformers", listTransformersHandler(e))

		admin.GET("/tee/stats", teeStatsHandler(e))
	}

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func proxyHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			writeError(c, errs.Validation("failed to read request body"))
			return
		}
		v, err := jsonvalue.Decode(raw)
		if err != nil {
			writeError(c, errs.Validation("invalid JSON body"))
			return
		}
		body, ok := v.(*jsonvalue.Object)
		if !ok {
			writeError(c, errs.Validation("request body must be a JSON object"))
			return
		}

		req := buildIncomingRequest(c, body)
		outcome, err := e.Handle(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}

		for k, vs := range outcome.Headers {
			for _, v := range vs {
				c.Writer.Header().Add(k, v)
			}
		}
		payload, err := jsonvalue.Marshal(outcome.Body)
		if err != nil {
			writeError(c, errs.Wrap(errs.KindUpstream, err, "failed to marshal response"))
			return
		}
		c.Data(http.StatusOK, "application/json", payload)
	}
}

func buildIncomingRequest(c *gin.Context, body *jsonvalue.Object) IncomingRequest {
	model := body.GetString("model")
	sessionID := c.GetHeader("X-Session-ID")
	requestID, _ := c.Get("request_id")
	rid, _ := requestID.(string)

	return IncomingRequest{
		Model:     model,
		Body:      body,
		Messages:  extractMessages(body),
		Tools:     extractTools(body),
		SessionID: sessionID,
		Metadata:  map[string]string{},
		RequestID: rid,
	}
}

func writeError(c *gin.Context, err error) {
	status, envelope := errs.ToEnvelope(err)
	c.JSON(status, envelope)
}

func listChannelsHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, e.Channels.Snapshots())
	}
}

func createChannelHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID         int64                   `json:"id"`
			Name       string                  `json:"name" binding:"required"`
			Provider   channelset.ProviderKind `json:"provider" binding:"required"`
			BaseURL    string                  `json:"baseUrl"`
			Credential string                  `json:"credential"`
			Models     []string                `json:"models"`
			Priority   int                     `json:"priority"`
			Weight     float64                 `json:"weight"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errs.Validation(err.Error()))
			return
		}
		ch := channelset.New(req.ID, req.Name, req.Provider)
		ch.BaseURL = req.BaseURL
		ch.Credential = req.Credential
		ch.SupportedModels = req.Models
		if req.Priority != 0 {
			ch.Priority = req.Priority
		}
		if req.Weight != 0 {
			ch.Weight = req.Weight
		}
		e.Channels.Add(ch)
		c.JSON(http.StatusCreated, ch.Snapshot())
	}
}

func getChannelHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			writeError(c, errs.Validation("invalid channel id"))
			return
		}
		ch, ok := e.Channels.ByID(id)
		if !ok {
			writeError(c, errs.NotFound("channel not found"))
			return
		}
		c.JSON(http.StatusOK, ch.Snapshot())
	}
}

func patchChannelHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			writeError(c, errs.Validation("invalid channel id"))
			return
		}
		ch, ok := e.Channels.ByID(id)
		if !ok {
			writeError(c, errs.NotFound("channel not found"))
			return
		}
		var req struct {
			Status *channelset.Status `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errs.Validation(err.Error()))
			return
		}
		if req.Status != nil {
			ch.SetStatus(*req.Status)
		}
		c.JSON(http.StatusOK, ch.Snapshot())
	}
}

func deleteChannelHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			writeError(c, errs.Validation("invalid channel id"))
			return
		}
		e.Channels.Remove(id)
		c.Status(http.StatusNoContent)
	}
}

func listRulesHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, *e.RuleSet.Load())
	}
}

func replaceRulesHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rs []rules.Rule
		if err := c.ShouldBindJSON(&rs); err != nil {
			writeError(c, errs.Validation(err.Error()))
			return
		}
		e.SetRules(rs)
		c.JSON(http.StatusOK, rs)
	}
}

func listTransformersHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, e.Pipeline.Registry.Names())
	}
}

func teeStatsHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e.Tee == nil {
			c.JSON(http.StatusOK, gin.H{"queueSize": 0})
			return
		}
		c.JSON(http.StatusOK, e.Tee.Stats())
	}
}

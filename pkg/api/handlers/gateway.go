package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
)

// GatewayHandler reads from deCONZ gateways without building a configuration
type GatewayHandler struct {
	deps Deps
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(deps Deps) *GatewayHandler {
	return &GatewayHandler{deps: deps.WithDefaults()}
}

// Devices handles POST /gateway/devices
// @Summary      List gateway devices
// @Description  Connects to the gateway (or database) and returns its sensors and lights
// @Tags         gateway
// @Accept       json
// @Produce      json
// @Param        request  body      types.GatewayRequest  false  "Gateway to read; empty fields take the server defaults"
// @Success      200      {object}  types.DevicesResponse
// @Failure      401      {object}  types.ErrorResponse  "API key rejected"
// @Failure      404      {object}  types.ErrorResponse  "deCONZ database not found"
// @Failure      502      {object}  types.ErrorResponse  "Gateway unreachable or failed"
// @Router       /gateway/devices [post]
func (h *GatewayHandler) Devices(c *gin.Context) {
	var req types.GatewayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
	}

	target, apiKey := h.target(req)
	ctx := c.Request.Context()

	src := h.deps.Sources(target)
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close gateway source")
		}
	}()

	if err := src.Connect(ctx); err != nil {
		writeError(c, err)
		return
	}
	if err := src.Authenticate(ctx, apiKey); err != nil {
		writeError(c, err)
		return
	}
	devices, err := src.FetchDevices(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DevicesResponse{
		Gateway: src.Key(),
		Devices: devices,
		Count:   len(devices),
	})
}

func (h *GatewayHandler) target(req types.GatewayRequest) (migrate.Target, string) {
	s := h.deps.Settings
	t := migrate.Target{
		Source:       s.Source,
		Host:         s.Host,
		Port:         s.Port,
		DatabasePath: s.DatabasePath,
	}
	apiKey := s.APIKey

	if req.Source != "" {
		t.Source = req.Source
	} else if req.DatabasePath != "" {
		t.Source = config.SourceDatabase
	}
	if req.Host != "" {
		t.Host = req.Host
	}
	if req.Port != 0 {
		t.Port = req.Port
	}
	if req.DatabasePath != "" {
		t.DatabasePath = req.DatabasePath
	}
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	return t, apiKey
}

// Pair handles POST /gateway/pair
// @Summary      Request an API key
// @Description  Asks the gateway for a new API key. The gateway must be unlocked in Phoscon first.
// @Tags         gateway
// @Accept       json
// @Produce      json
// @Param        request  body      types.PairRequest  true  "Gateway address"
// @Success      201      {object}  types.PairResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid address"
// @Failure      401      {object}  types.ErrorResponse  "Gateway is locked"
// @Failure      502      {object}  types.ErrorResponse  "Gateway unreachable"
// @Router       /gateway/pair [post]
func (h *GatewayHandler) Pair(c *gin.Context) {
	var req types.PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if !config.ValidHost(req.Host) || !config.ValidPort(req.Port) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "host must be an IPv4 address or hostname and port 1-65535",
		})
		return
	}

	key, err := h.deps.Pair(c.Request.Context(), req.Host, req.Port)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.PairResponse{APIKey: key})
}

// Gateways handles GET /gateways
// @Summary      List remembered gateways
// @Description  Returns gateways used by earlier migrations, most recent first
// @Tags         gateway
// @Produce      json
// @Success      200  {object}  types.GatewaysResponse
// @Failure      500  {object}  types.ErrorResponse  "State database error"
// @Router       /gateways [get]
func (h *GatewayHandler) Gateways(c *gin.Context) {
	resp := types.GatewaysResponse{Gateways: []types.GatewaySummary{}}
	if h.deps.Store == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	gateways, err := h.deps.Store.Gateways().List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	for _, g := range gateways {
		resp.Gateways = append(resp.Gateways, types.GatewaySummary{
			Key:        g.Key,
			Source:     g.Source,
			Name:       g.Name,
			Version:    g.Version,
			HasAPIKey:  g.APIKey != "",
			LastUsedAt: g.LastUsedAt,
		})
	}
	resp.Count = len(resp.Gateways)
	c.JSON(http.StatusOK, resp)
}

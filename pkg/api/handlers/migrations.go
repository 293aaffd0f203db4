package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
)

// MigrationsHandler runs migrations on behalf of API clients
type MigrationsHandler struct {
	deps Deps
}

// NewMigrationsHandler creates a new migrations handler
func NewMigrationsHandler(deps Deps) *MigrationsHandler {
	return &MigrationsHandler{deps: deps.WithDefaults()}
}

// Preview handles POST /migrations/preview
// @Summary      Preview a migration
// @Description  Reads the gateway and returns the Zigbee2MQTT configuration without writing it
// @Tags         migrations
// @Accept       json
// @Produce      json
// @Param        request  body      types.MigrationRequest  false  "Overrides for the server defaults"
// @Success      200      {object}  types.MigrationResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid parameter"
// @Failure      401      {object}  types.ErrorResponse  "API key rejected"
// @Failure      404      {object}  types.ErrorResponse  "deCONZ database not found"
// @Failure      502      {object}  types.ErrorResponse  "Gateway unreachable or failed"
// @Failure      504      {object}  types.ErrorResponse  "Request timed out"
// @Router       /migrations/preview [post]
func (h *MigrationsHandler) Preview(c *gin.Context) {
	h.run(c, true)
}

// Create handles POST /migrations
// @Summary      Run a migration
// @Description  Reads the gateway and writes configuration.yaml to the server's output path
// @Tags         migrations
// @Accept       json
// @Produce      json
// @Param        request  body      types.MigrationRequest  false  "Overrides for the server defaults"
// @Success      201      {object}  types.MigrationResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid parameter"
// @Failure      401      {object}  types.ErrorResponse  "API key rejected"
// @Failure      404      {object}  types.ErrorResponse  "deCONZ database not found"
// @Failure      500      {object}  types.ErrorResponse  "Configuration could not be written"
// @Failure      502      {object}  types.ErrorResponse  "Gateway unreachable or failed"
// @Failure      504      {object}  types.ErrorResponse  "Request timed out"
// @Router       /migrations [post]
func (h *MigrationsHandler) Create(c *gin.Context) {
	h.run(c, false)
}

func (h *MigrationsHandler) run(c *gin.Context, dryRun bool) {
	var req types.MigrationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
	}

	answers := Answers(req)
	answers[migrate.KeyDryRun] = "n"
	if dryRun {
		answers[migrate.KeyDryRun] = "y"
	}

	opts := []migrate.Option{
		migrate.WithSourceFactory(h.deps.Sources),
		migrate.WithPairFunc(h.deps.Pair),
		migrate.WithPortLister(h.deps.ListPorts),
		migrate.WithGenerator(h.deps.Generator),
	}
	if h.deps.Store != nil {
		opts = append(opts, migrate.WithStore(h.deps.Store))
	}

	res, err := migrate.New(h.deps.Settings, migrate.StaticPrompter{Answers: answers}, opts...).
		Run(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if res.State == migrate.StateCancelled {
		c.JSON(http.StatusRequestTimeout, types.ErrorResponse{
			Error:   "cancelled",
			Message: "Request was cancelled before the migration finished",
		})
		return
	}

	counts := device.Count(res.Devices)
	status := http.StatusCreated
	if dryRun {
		status = http.StatusOK
	}
	c.JSON(status, types.MigrationResponse{
		State:         string(res.State),
		DryRun:        res.DryRun,
		Path:          res.Path,
		Generated:     res.Generated,
		Sensors:       counts[device.KindSensor],
		Lights:        counts[device.KindLight],
		Configuration: res.Config,
		YAML:          res.Output,
	})
}

// Answers maps a request onto workflow answers. Unset fields fall back to
// the workflow defaults.
func Answers(req types.MigrationRequest) map[string]string {
	a := map[string]string{
		migrate.KeySource:       req.Source,
		migrate.KeyHost:         req.Host,
		migrate.KeyAPIKey:       req.APIKey,
		migrate.KeyDatabasePath: req.DatabasePath,
		migrate.KeyPanID:        req.PanID,
		migrate.KeyExtPanID:     req.ExtPanID,
		migrate.KeyNetworkKey:   req.NetworkKey,
		migrate.KeyMQTTServer:   req.MQTTServer,
		migrate.KeyMQTTTopic:    req.MQTTTopic,
		migrate.KeySerialPort:   req.SerialPort,
	}
	if req.Source == "" && req.DatabasePath != "" {
		a[migrate.KeySource] = config.SourceDatabase
	}
	if req.Port != 0 {
		a[migrate.KeyPort] = strconv.Itoa(req.Port)
	}
	if req.Channel != 0 {
		a[migrate.KeyChannel] = strconv.Itoa(req.Channel)
	}
	return a
}

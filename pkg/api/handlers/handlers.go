package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

// Deps are the services shared by all handlers.
type Deps struct {
	Settings  config.Settings
	Store     *db.DB // optional
	Sources   migrate.SourceFactory
	Pair      migrate.PairFunc
	ListPorts func() ([]serialport.Port, error)
	Generator network.Generator
}

// WithDefaults fills unset services from Settings.
func (d Deps) WithDefaults() Deps {
	if d.Sources == nil {
		d.Sources = migrate.DefaultSourceFactory(d.Settings)
	}
	if d.Pair == nil {
		d.Pair = migrate.DefaultPairFunc(d.Settings)
	}
	if d.ListPorts == nil {
		d.ListPorts = serialport.List
	}
	if d.Generator == nil {
		d.Generator = network.NewInsecureGenerator()
	}
	return d
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var ve *migrate.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
			Field:   ve.Field,
		})
	case errors.Is(err, device.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out waiting for the gateway",
		})
	case errors.Is(err, device.ErrAuth):
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{
			Error:   "unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrDatabaseNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "database_not_found",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrConnection), errors.Is(err, device.ErrFetch):
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "gateway_error",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrWrite):
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "write_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/deconz2z2m/pkg/api/types"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

// SerialHandler lists serial ports for the coordinator
type SerialHandler struct {
	deps Deps
}

// NewSerialHandler creates a new serial port handler
func NewSerialHandler(deps Deps) *SerialHandler {
	return &SerialHandler{deps: deps.WithDefaults()}
}

// ListPorts handles GET /serial-ports
// @Summary      List serial ports
// @Description  Returns serial ports on the API host, recognized Zigbee coordinators first
// @Tags         serial
// @Produce      json
// @Success      200  {object}  types.SerialPortsResponse
// @Failure      500  {object}  types.ErrorResponse  "Enumeration failed"
// @Router       /serial-ports [get]
func (h *SerialHandler) ListPorts(c *gin.Context) {
	ports, err := h.deps.ListPorts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "serial_error",
			Message: err.Error(),
		})
		return
	}
	if ports == nil {
		ports = []serialport.Port{}
	}

	c.JSON(http.StatusOK, types.SerialPortsResponse{
		Ports:     ports,
		Suggested: serialport.Suggest(ports, h.deps.Settings.SerialPort),
	})
}

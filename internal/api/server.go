package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/transducer/internal/version"
)

type Server struct {
	service *LossService
	clock   func() time.Time
}

func NewServer(service *LossService) *Server {
	if service == nil {
		service = NewLossService()
	}
	return &Server{
		service: service,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/loss", s.handleComputeLoss)
	e.GET("/v1/healthz", s.handleHealthz)
}

func (s *Server) handleComputeLoss(c *echo.Context) error {
	req, err := decodeJSON[LossRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	result, err := s.service.Compute(&req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	return c.JSON(http.StatusOK, LossResponse{
		ID:        "loss_" + uuid.NewString(),
		Object:    "loss",
		CreatedAt: s.clock().Unix(),
		Costs:     result.Costs,
		Gradients: result.Gradients,
	})
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}

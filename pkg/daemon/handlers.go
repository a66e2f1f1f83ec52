package daemon

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/jamesainslie/memtrim/pkg/api/v1"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

const defaultHistoryLimit = 50

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "Status retrieved",
		Results: s.ctrl.Status(),
	})
}

func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	var req config.ThresholdsConfig
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(apiv1.Response{
			Status:  fiber.StatusBadRequest,
			Code:    apiv1.CodeInvalidRequest,
			Message: err.Error(),
		})
	}

	if err := s.ctrl.UpdateConfig(req); err != nil {
		if errors.Is(err, config.ErrInvalidThresholds) {
			return c.Status(fiber.StatusBadRequest).JSON(apiv1.Response{
				Status:  fiber.StatusBadRequest,
				Code:    apiv1.CodeInvalidThresholds,
				Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(apiv1.Response{
			Status:  fiber.StatusInternalServerError,
			Code:    apiv1.CodeInternal,
			Message: err.Error(),
		})
	}

	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "Thresholds updated",
		Results: s.ctrl.Status().Thresholds,
	})
}

func (s *Server) handleClean(c *fiber.Ctx) error {
	result, err := s.ctrl.TriggerManualClean(c.UserContext())
	if err != nil {
		if errors.Is(err, monitor.ErrAlreadyCleaning) {
			return c.Status(fiber.StatusConflict).JSON(apiv1.Response{
				Status:  fiber.StatusConflict,
				Code:    apiv1.CodeAlreadyCleaning,
				Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(apiv1.Response{
			Status:  fiber.StatusInternalServerError,
			Code:    apiv1.CodeInternal,
			Message: err.Error(),
		})
	}

	// A completed clean is reported with its outcome inside the result,
	// success or not.
	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "Clean completed",
		Results: result,
	})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.journal == nil {
		return c.JSON(apiv1.Response{
			Status:  fiber.StatusOK,
			Code:    apiv1.CodeSuccess,
			Message: "History disabled",
		})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	results, err := s.journal.Recent(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(apiv1.Response{
			Status:  fiber.StatusInternalServerError,
			Code:    apiv1.CodeInternal,
			Message: err.Error(),
		})
	}

	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "History retrieved",
		Results: results,
	})
}

func (s *Server) handleShutdown(c *fiber.Ctx) error {
	s.logger.Info("shutdown requested via API")

	// Close tears the server down via app.Shutdown, which drains
	// in-flight requests, so the reply still being written survives.
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })

	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "Shutting down",
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(apiv1.Response{
		Status:  fiber.StatusOK,
		Code:    apiv1.CodeSuccess,
		Message: "memtrimd is running",
	})
}

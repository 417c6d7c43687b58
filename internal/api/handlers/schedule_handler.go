package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) Next(c *fiber.Ctx) error {
	var req transfer.ScheduleNext
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	schedule, err := h.s.Next(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to schedule post")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Post scheduled",
		"schedule": schedule,
	})
}

func (h *ScheduleHandler) Bulk(c *fiber.Ctx) error {
	var req transfer.BulkSchedule
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	schedules, err := h.s.Bulk(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to schedule posts")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Posts scheduled",
		"schedules": schedules,
	})
}

func (h *ScheduleHandler) CreateRecurring(c *fiber.Ctx) error {
	var req transfer.RecurringSchedule
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	schedules, err := h.s.CreateRecurring(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to create schedule")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Schedule created",
		"schedules": schedules,
	})
}

func (h *ScheduleHandler) List(c *fiber.Ctx) error {
	schedules, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to list schedules")
	}

	return c.JSON(fiber.Map{
		"schedules": schedules,
	})
}

func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid schedule id")
	}

	schedule, err := h.s.Get(c.Context(), GetUserID(c), id)
	if err != nil {
		return writeError(c, err, "Unable to get schedule")
	}

	return c.JSON(fiber.Map{
		"schedule": schedule,
	})
}

func (h *ScheduleHandler) Update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid schedule id")
	}

	var req transfer.ScheduleUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	schedule, err := h.s.Update(c.Context(), GetUserID(c), id, &req)
	if err != nil {
		return writeError(c, err, "Unable to update schedule")
	}

	return c.JSON(fiber.Map{
		"schedule": schedule,
	})
}

func (h *ScheduleHandler) Delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid schedule id")
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), id); err != nil {
		return writeError(c, err, "Unable to delete schedule")
	}

	return c.JSON(fiber.Map{
		"message": "Schedule deleted",
	})
}

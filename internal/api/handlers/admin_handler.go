package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
)

type AdminHandler struct {
	s service.AdminService
}

func NewAdminHandler(service service.AdminService) *AdminHandler {
	return &AdminHandler{s: service}
}

func (h *AdminHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.AdminPostCreation
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	created, err := h.s.CreatePost(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to create post")
	}

	body := fiber.Map{"post": created.Post}
	if created.Schedule.ID != 0 {
		body["schedule"] = created.Schedule
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *AdminHandler) CreateBulk(c *fiber.Ctx) error {
	var req transfer.AdminBulkCreation
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	group, err := h.s.CreateBulk(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to create posts")
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *AdminHandler) SetApproval(c *fiber.Ctx) error {
	postID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	var req transfer.ApprovalUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	if err := h.s.SetApproval(c.Context(), postID, &req); err != nil {
		return writeError(c, err, "Unable to update approval")
	}

	return c.SendStatus(fiber.StatusOK)
}

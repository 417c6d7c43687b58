package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostCreation
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	post, err := h.s.CreateDraft(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err, "Unable to save post")
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to list posts")
	}

	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	post, err := h.s.PostInfo(c.Context(), postID, GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to get post")
	}

	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	if err := h.s.Remove(c.Context(), GetUserID(c), postID); err != nil {
		return writeError(c, err, "Unable to remove post")
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) UploadImage(c *fiber.Ctx) error {
	postID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file selected")
	}

	post, err := h.s.UploadImage(c.Context(), GetUserID(c), postID, file)
	if err != nil {
		return writeError(c, err, "Unable to upload image")
	}

	return c.JSON(post)
}

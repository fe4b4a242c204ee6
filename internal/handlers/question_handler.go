package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"placement-service/internal/importer"
	"placement-service/internal/middleware"
	"placement-service/internal/models"
	"placement-service/internal/placement"
	"placement-service/internal/service"
)

type QuestionHandler struct {
	questionService *service.QuestionService
	timeout         time.Duration
}

func NewQuestionHandler(questionService *service.QuestionService, timeout time.Duration) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		timeout:         timeout,
	}
}

func (h *QuestionHandler) RegisterRoutes(app *fiber.App) {
	questionGroup := app.Group("/protected/placement/questions", middleware.RequireUser())

	questionGroup.Get("/", h.ListQuestions, middleware.PermissionRequired(middleware.ReadQuestionPermission))
	questionGroup.Post("/", h.CreateQuestion, middleware.PermissionRequired(middleware.WriteQuestionPermission))
	questionGroup.Post("/import", h.ImportQuestions, middleware.PermissionRequired(middleware.WriteQuestionPermission))
	questionGroup.Get("/:id", h.GetQuestion, middleware.PermissionRequired(middleware.ReadQuestionPermission))
	questionGroup.Put("/:id", h.UpdateQuestion, middleware.PermissionRequired(middleware.WriteQuestionPermission))
	questionGroup.Delete("/:id", h.DeleteQuestion, middleware.PermissionRequired(middleware.DeleteQuestionPermission))
	questionGroup.Get("/:id/usage", h.GetUsage, middleware.PermissionRequired(middleware.ReadQuestionPermission))
}

func (h *QuestionHandler) ListQuestions(c fiber.Ctx) error {
	query := &models.QuestionSearchQuery{
		Subject:    c.Query("subject"),
		ActiveOnly: c.Query("active") == "true",
		Page:       1,
		PageSize:   20,
	}
	if page, err := strconv.Atoi(c.Query("page", "1")); err == nil && page > 0 {
		query.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("pageSize", "20")); err == nil && pageSize > 0 {
		query.PageSize = pageSize
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	questions, total, err := h.questionService.ListQuestions(ctx, query)
	if err != nil {
		return respondError(c, "list questions", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"questions":   questions,
			"totalCount":  total,
			"currentPage": query.Page,
			"pageSize":    query.PageSize,
		},
	})
}

func (h *QuestionHandler) CreateQuestion(c fiber.Ctx) error {
	var req QuestionRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, "create question", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	question, err := h.questionService.CreateQuestion(ctx, req.toModel())
	if err != nil {
		return respondError(c, "create question", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": question,
	})
}

func (h *QuestionHandler) GetQuestion(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	question, err := h.questionService.GetQuestion(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, "get question", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": question,
	})
}

func (h *QuestionHandler) UpdateQuestion(c fiber.Ctx) error {
	var req QuestionRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, "update question", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	question, err := h.questionService.UpdateQuestion(ctx, c.Params("id"), req.toModel())
	if err != nil {
		return respondError(c, "update question", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": question,
	})
}

func (h *QuestionHandler) DeleteQuestion(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.questionService.DeleteQuestion(ctx, c.Params("id")); err != nil {
		return respondError(c, "delete question", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Question deactivated",
	})
}

func (h *QuestionHandler) GetUsage(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	usage, err := h.questionService.Usage(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, "get question usage", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": usage,
	})
}

// ImportQuestions accepts an .xlsx or .csv upload in the "file" form field.
func (h *QuestionHandler) ImportQuestions(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, "import questions", fmt.Errorf("%w: file is required", placement.ErrInvalidArgument))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".xlsx" && ext != ".csv" {
		return respondError(c, "import questions", fmt.Errorf("%w: unsupported file type %q", placement.ErrInvalidArgument, ext))
	}

	dir, err := os.MkdirTemp("", "placement-import-*")
	if err != nil {
		return respondError(c, "import questions", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload"+ext)
	if err := c.SaveFile(file, path); err != nil {
		return respondError(c, "import questions", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*h.timeout)
	defer cancel()

	result, err := importer.Import(ctx, importer.ImportConfig{FilePath: path, SheetName: c.FormValue("sheet")}, h.questionService)
	if err != nil {
		return respondError(c, "import questions", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": result,
	})
}

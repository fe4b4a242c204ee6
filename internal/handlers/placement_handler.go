package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"placement-service/internal/middleware"
	"placement-service/internal/placement"
	"placement-service/internal/service"
)

type PlacementHandler struct {
	placementService *service.PlacementService
	questionService  *service.QuestionService
	timeout          time.Duration
}

func NewPlacementHandler(placementService *service.PlacementService, questionService *service.QuestionService, timeout time.Duration) *PlacementHandler {
	return &PlacementHandler{
		placementService: placementService,
		questionService:  questionService,
		timeout:          timeout,
	}
}

func (h *PlacementHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/public/placement/subjects", h.ListSubjects)

	protectedGroup := app.Group("/protected/placement", middleware.RequireUser())
	protectedGroup.Post("/sessions", h.StartSession)
	protectedGroup.Get("/sessions/:id", h.GetSession)
	protectedGroup.Post("/sessions/:id/answer", h.SubmitAnswer)
	protectedGroup.Get("/users/:userId/profile", h.GetProfile, middleware.OwnerOrPermission(middleware.ReadAllPlacementPermission))
	protectedGroup.Get("/users/:userId/sessions", h.ListSessions, middleware.OwnerOrPermission(middleware.ReadAllPlacementPermission))
}

func (h *PlacementHandler) StartSession(c fiber.Ctx) error {
	var req StartPlacementRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, "start placement", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := h.placementService.StartPlacement(ctx, middleware.UserID(c), req.Subject, req.options())
	if err != nil {
		return respondError(c, "start placement", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": result,
	})
}

func (h *PlacementHandler) SubmitAnswer(c fiber.Ctx) error {
	var req SubmitAnswerRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, "submit answer", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := h.placementService.SubmitAnswer(ctx, c.Params("id"), middleware.UserID(c), *req.AnswerIndex, *req.TimeSpentSeconds)
	if err != nil {
		if errors.Is(err, placement.ErrPartialFailure) && result != nil {
			// the test is complete; only the profile update is outstanding
			return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
				"data":  result,
				"error": err.Error(),
				"code":  placement.ErrorClass(err),
			})
		}
		return respondError(c, "submit answer", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": result,
	})
}

func (h *PlacementHandler) GetSession(c fiber.Ctx) error {
	requester := middleware.UserID(c)
	if middleware.HasPermission(c, middleware.ReadAllPlacementPermission) {
		requester = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	test, err := h.placementService.GetSession(ctx, c.Params("id"), requester)
	if err != nil {
		return respondError(c, "get session", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": test,
	})
}

func (h *PlacementHandler) GetProfile(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	profile, err := h.placementService.GetProfile(ctx, c.Params("userId"))
	if err != nil {
		return respondError(c, "get placement profile", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": profile,
	})
}

func (h *PlacementHandler) ListSessions(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil {
		return respondError(c, "list sessions", fmt.Errorf("%w: limit must be an integer", placement.ErrInvalidArgument))
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	tests, err := h.placementService.ListSessions(ctx, c.Params("userId"), limit)
	if err != nil {
		return respondError(c, "list sessions", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": tests,
	})
}

func (h *PlacementHandler) ListSubjects(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	subjects, err := h.questionService.Subjects(ctx)
	if err != nil {
		return respondError(c, "list subjects", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": subjects,
	})
}

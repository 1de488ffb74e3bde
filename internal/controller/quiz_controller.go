package controller

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

// QuizController walks a parent through the quiz attached to an adab log.
// Routes are /students/:id/logs/:logId/quiz/...
type QuizController struct {
	Quiz *service.QuizAttemptService
}

func NewQuizController(quiz *service.QuizAttemptService) *QuizController {
	return &QuizController{Quiz: quiz}
}

type attemptStep func(ctx *gin.Context) (service.AttemptView, error)

func (c *QuizController) run(ctx *gin.Context, step attemptStep) {
	view, err := step(ctx)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

func (c *QuizController) Start(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Start(p, ctx.Param("id"), ctx.Param("logId"))
	})
}

func (c *QuizController) Current(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Current(p, ctx.Param("id"), ctx.Param("logId"))
	})
}

type SelectRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (c *QuizController) Select(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req SelectRequest
	if !bind(ctx, &req) {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Select(p, ctx.Param("id"), ctx.Param("logId"), req.Answer)
	})
}

func (c *QuizController) Cancel(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Cancel(p, ctx.Param("id"), ctx.Param("logId"))
	})
}

func (c *QuizController) Confirm(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Confirm(p, ctx.Param("id"), ctx.Param("logId"))
	})
}

// Next moves past the revealed answer. After the last question the score
// is recorded on the log.
func (c *QuizController) Next(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Next(ctx.Request.Context(), p, ctx.Param("id"), ctx.Param("logId"))
	})
}

type SubmitRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// Submit godoc
// @Summary Answer a whole quiz at once
// @Description Answers are matched to questions by position
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param logId path string true "log id"
// @Param body body SubmitRequest true "answers"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Router /api/students/{id}/logs/{logId}/quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req SubmitRequest
	if !bind(ctx, &req) {
		return
	}
	c.run(ctx, func(ctx *gin.Context) (service.AttemptView, error) {
		return c.Quiz.Submit(ctx.Request.Context(), p, ctx.Param("id"), ctx.Param("logId"), req.Answers)
	})
}

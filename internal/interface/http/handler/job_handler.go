package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/job"
)

type JobHandler struct {
	createJobUC   *job.CreateJobUseCase
	getJobUC      *job.GetJobUseCase
	listMyJobsUC  *job.ListMyJobsUseCase
	acceptQuoteUC *job.AcceptQuoteUseCase
	cancelJobUC   *job.CancelJobUseCase
	startWorkUC   *job.StartWorkUseCase
	completeJobUC *job.CompleteJobUseCase
}

func NewJobHandler(
	createJobUC *job.CreateJobUseCase,
	getJobUC *job.GetJobUseCase,
	listMyJobsUC *job.ListMyJobsUseCase,
	acceptQuoteUC *job.AcceptQuoteUseCase,
	cancelJobUC *job.CancelJobUseCase,
	startWorkUC *job.StartWorkUseCase,
	completeJobUC *job.CompleteJobUseCase,
) *JobHandler {
	return &JobHandler{
		createJobUC:   createJobUC,
		getJobUC:      getJobUC,
		listMyJobsUC:  listMyJobsUC,
		acceptQuoteUC: acceptQuoteUC,
		cancelJobUC:   cancelJobUC,
		startWorkUC:   startWorkUC,
		completeJobUC: completeJobUC,
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	scheduledAt, err := dto.ParseOptionalTime(req.ScheduledAt)
	if err != nil {
		response.BadRequest(c, "некорректный формат даты")
		return
	}

	created, err := h.createJobUC.Execute(c.Request.Context(), job.CreateJobInput{
		CustomerID:  userID,
		Title:       req.Title,
		Description: req.Description,
		Urgency:     req.Urgency,
		Location:    req.Location,
		Budget:      req.Budget,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToJobResponse(created))
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	found, err := h.getJobUC.Execute(c.Request.Context(), jobID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponse(found))
}

func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobs, err := h.listMyJobsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobListResponse(jobs))
}

func (h *JobHandler) AcceptQuote(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}
	quoteID, ok := parseUUIDParam(c, "quoteId")
	if !ok {
		response.BadRequest(c, "некорректный ID предложения")
		return
	}

	assigned, err := h.acceptQuoteUC.Execute(c.Request.Context(), jobID, quoteID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponse(assigned))
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	h.transition(c, h.cancelJobUC.Execute)
}

func (h *JobHandler) StartWork(c *gin.Context) {
	h.transition(c, h.startWorkUC.Execute)
}

func (h *JobHandler) CompleteJob(c *gin.Context) {
	h.transition(c, h.completeJobUC.Execute)
}

type jobTransition = func(ctx context.Context, jobID uuid.UUID, actor valueobject.Actor) (*entity.Job, error)

func (h *JobHandler) transition(c *gin.Context, execute jobTransition) {
	actor, err := getActor(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	updated, err := execute(c.Request.Context(), jobID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponse(updated))
}

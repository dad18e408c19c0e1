// Package web provides HTTP handlers and REST API endpoints for flows, executions,
// campaigns, contacts and leads.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	flowService      *services.Flow
	executionService *services.Execution
	campaignService  *services.Campaign
	contactsService  *services.Contacts
	leadService      *services.Lead
	validator        *validator.Validate
}

func NewAPIHandlers(
	flowService *services.Flow,
	executionService *services.Execution,
	campaignService *services.Campaign,
	contactsService *services.Contacts,
	leadService *services.Lead,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		flowService:      flowService,
		executionService: executionService,
		campaignService:  campaignService,
		contactsService:  contactsService,
		leadService:      leadService,
		validator:        validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Leadflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Leadflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":       nonNil(flows),
		"total_count": len(flows),
	})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.flowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Save(c.Context(), &models.Flow{
		Name:  req.Name,
		Nodes: req.Nodes,
		Edges: req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")

	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.flowService.FetchByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	updated, err := h.flowService.Save(c.Context(), &models.Flow{
		ID:    id,
		Name:  req.Name,
		Nodes: req.Nodes,
		Edges: req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	if err := h.flowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TriggerFlow(c fiber.Ctx) error {
	flowID := c.Params("id")

	var req TriggerFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.flowService.FetchByID(c.Context(), flowID); err != nil {
		return handleServiceError(c, err)
	}

	if req.Async {
		if err := h.executionService.Enqueue(c.Context(), flowID, req.LeadID); err != nil {
			return handleServiceError(c, err)
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"flow_id": flowID,
			"lead_id": req.LeadID,
			"status":  "queued",
		})
	}

	execution, err := h.executionService.Trigger(c.Context(), flowID, req.LeadID)
	if err != nil && execution == nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetFlowExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByFlow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  nonNil(executions),
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.executionService.Cancel(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetCampaigns(c fiber.Ctx) error {
	campaigns, err := h.campaignService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"campaigns":   nonNil(campaigns),
		"total_count": len(campaigns),
	})
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	campaign, err := h.campaignService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.campaignService.Create(c.Context(), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateCampaign(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// Get existing campaign and merge changes
	existing, err := h.campaignService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	updated, err := h.campaignService.Update(c.Context(), id, req.apply(existing))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) AddCampaignRecipients(c fiber.Ctx) error {
	var req ContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.contactsService.AddRecipients(c.Context(), c.Params("id"), req.Contacts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NewValidationResponse(report))
}

func (h *APIHandlers) ValidateContacts(c fiber.Ctx) error {
	var req ContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.contactsService.Validate(c.Context(), req.Contacts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(NewValidationResponse(report))
}

func (h *APIHandlers) CreateLead(c fiber.Ctx) error {
	var req CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	lead, err := h.leadService.Create(c.Context(), &models.Lead{
		Name:    req.Name,
		Phone:   req.Phone,
		StageID: req.StageID,
		Fields:  req.Fields,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

func (h *APIHandlers) GetLead(c fiber.Ctx) error {
	lead, err := h.leadService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

func (h *APIHandlers) GetLeadActivity(c fiber.Ctx) error {
	activity, err := h.leadService.Activity(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activity)
}

// Register mounts every endpoint on the router.
func (h *APIHandlers) Register(router fiber.Router) {
	f := router.Group("/flows")
	f.Get("/", h.GetFlows)
	f.Post("/", h.CreateFlow)
	f.Get("/:id", h.GetFlow)
	f.Put("/:id", h.UpdateFlow)
	f.Delete("/:id", h.DeleteFlow)
	f.Post("/:id/trigger", h.TriggerFlow)
	f.Get("/:id/executions", h.GetFlowExecutions)

	e := router.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/cancel", h.CancelExecution)

	cp := router.Group("/campaigns")
	cp.Get("/", h.GetCampaigns)
	cp.Post("/", h.CreateCampaign)
	cp.Get("/:id", h.GetCampaign)
	cp.Patch("/:id", h.UpdateCampaign)
	cp.Post("/:id/recipients", h.AddCampaignRecipients)

	router.Post("/contacts/validate", h.ValidateContacts)

	l := router.Group("/leads")
	l.Post("/", h.CreateLead)
	l.Get("/:id", h.GetLead)
	l.Get("/:id/activity", h.GetLeadActivity)

	router.Get("/health", h.HealthCheck)
}

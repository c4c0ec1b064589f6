package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/service"
)

// PlanHandler serves the marketing plan operations of a client.
type PlanHandler struct {
	clientService service.ClientService
	logger        *zap.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(clientService service.ClientService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{clientService: clientService, logger: logger}
}

// --- Request Structs ---

type BuildPlanRequest struct {
	PracticeType string `json:"practiceType" binding:"required,oneof=general specialty startup"`
}

type ExternalFocusRequest struct {
	Focus string `json:"focus" binding:"required,oneof=digital traditional digitalTraditionalMix"`
}

type ExternalBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- Handler Methods ---

// BuildPlan expands the plan template for the given practice type and
// attaches it to the client, replacing any existing plan.
func (h *PlanHandler) BuildPlan(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req BuildPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.BuildMarketingPlan(c.Request.Context(), consultantID, clientID, domain.PracticeType(req.PracticeType))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to build marketing plan.")
		return
	}
	c.JSON(http.StatusCreated, mapPlanToResponse(client.MarketingPlan))
}

// GetPlan returns the client's plan. With ?category= it returns only the
// options in that category; adding &activeOnly=true filters to active ones.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), consultantID, clientID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to load client.")
		return
	}
	if client.MarketingPlan == nil {
		abortWithError(c, http.StatusNotFound, service.ErrNoMarketingPlan.Error())
		return
	}

	if category := c.Query("category"); category != "" {
		activeOnly := c.Query("activeOnly") == "true"
		options := client.MarketingPlan.OptionsForCategory(domain.OptionCategory(category), activeOnly)
		responses := make([]OptionResponse, 0, len(options))
		for _, opt := range options {
			responses = append(responses, mapOptionToResponse(opt))
		}
		c.JSON(http.StatusOK, responses)
		return
	}

	c.JSON(http.StatusOK, mapPlanToResponse(client.MarketingPlan))
}

// ToggleOption flips one member option's active flag.
func (h *PlanHandler) ToggleOption(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	optionID, err := primitive.ObjectIDFromHex(c.Param("optionId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid option ID format.")
		return
	}

	client, err := h.clientService.ToggleOption(c.Request.Context(), consultantID, clientID, optionID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to toggle option.")
		return
	}
	c.JSON(http.StatusOK, mapPlanToResponse(client.MarketingPlan))
}

// SetExternalFocus renames the designated external option to the chosen
// focus.
func (h *PlanHandler) SetExternalFocus(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req ExternalFocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.SetExternalFocus(c.Request.Context(), consultantID, clientID, domain.ExternalFocus(req.Focus))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to set external focus.")
		return
	}
	c.JSON(http.StatusOK, mapPlanToResponse(client.MarketingPlan))
}

// SetExternalBudget reprices the designated external option.
func (h *PlanHandler) SetExternalBudget(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req ExternalBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.SetExternalBudget(c.Request.Context(), consultantID, clientID, req.Amount)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to set external budget.")
		return
	}
	c.JSON(http.StatusOK, mapPlanToResponse(client.MarketingPlan))
}

// ActivateExternal marks the designated external option active.
func (h *PlanHandler) ActivateExternal(c *gin.Context) {
	h.setExternalActive(c, true)
}

// DeactivateExternal marks the designated external option inactive.
func (h *PlanHandler) DeactivateExternal(c *gin.Context) {
	h.setExternalActive(c, false)
}

func (h *PlanHandler) setExternalActive(c *gin.Context, active bool) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	client, err := h.clientService.SetExternalActive(c.Request.Context(), consultantID, clientID, active)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update external option.")
		return
	}
	c.JSON(http.StatusOK, mapPlanToResponse(client.MarketingPlan))
}

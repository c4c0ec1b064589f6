package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/service"
)

// ClientHandler holds the client registry service dependency.
type ClientHandler struct {
	clientService service.ClientService
	logger        *zap.Logger
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientService service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, logger: logger}
}

// --- Request/Response Structs ---

type ClientRequest struct {
	FirstName      string     `json:"firstName" binding:"required"`
	LastName       string     `json:"lastName" binding:"required"`
	PracticeName   string     `json:"practiceName" binding:"required"`
	Phone          string     `json:"phone" binding:"required"`
	Email          string     `json:"email" binding:"required,email"`
	StreetAddress  string     `json:"streetAddress" binding:"required"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Zip            string     `json:"zip" binding:"required"`
	Notes          string     `json:"notes"`
	PracticeType   string     `json:"practiceType" binding:"omitempty,oneof=general specialty startup"`
	InitialContact *time.Time `json:"initialContact"`
}

type OptionResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Category         string          `json:"category"`
	Active           bool            `json:"active"`
	Description      string          `json:"description,omitempty"`
	DescriptionIndex *int            `json:"descriptionIndex,omitempty"`
}

type PlanResponse struct {
	RecordName       string           `json:"recordName"`
	Options          []OptionResponse `json:"options"`
	ExternalOptionID *string          `json:"externalOptionId,omitempty"`
	TotalActiveCost  decimal.Decimal  `json:"totalActiveCost"`
}

type ClientResponse struct {
	ID                string          `json:"id"`
	RecordName        string          `json:"recordName"`
	FirstName         string          `json:"firstName"`
	LastName          string          `json:"lastName"`
	PracticeName      string          `json:"practiceName"`
	PracticeType      string          `json:"practiceType,omitempty"`
	Phone             string          `json:"phone"`
	Email             string          `json:"email"`
	StreetAddress     string          `json:"streetAddress"`
	City              string          `json:"city,omitempty"`
	State             string          `json:"state,omitempty"`
	Zip               string          `json:"zip"`
	Notes             string          `json:"notes,omitempty"`
	MonthlyBudget     decimal.Decimal `json:"monthlyBudget"`
	CurrentProduction decimal.Decimal `json:"currentProduction"`
	ProductionGoal    decimal.Decimal `json:"productionGoal"`
	InitialContact    time.Time       `json:"initialContact"`
	LastModified      int64           `json:"lastModified"`
	HasPhoto          bool            `json:"hasPhoto"`
	MarketingPlan     *PlanResponse   `json:"marketingPlan,omitempty"`
}

// AmountRequest carries a currency amount. Zero is a valid value, so no
// required binding here; negatives are rejected by the service.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func mapOptionToResponse(opt domain.MarketingOption) OptionResponse {
	return OptionResponse{
		ID:               opt.ID.Hex(),
		Name:             opt.Name,
		Price:            opt.Price,
		Category:         string(opt.Category),
		Active:           opt.Active,
		Description:      opt.Description,
		DescriptionIndex: opt.DescriptionIndex,
	}
}

func mapPlanToResponse(plan *domain.MarketingPlan) *PlanResponse {
	if plan == nil {
		return nil
	}
	resp := &PlanResponse{
		RecordName:      plan.RecordName,
		Options:         make([]OptionResponse, 0, len(plan.Options)),
		TotalActiveCost: plan.Cost(),
	}
	for _, opt := range plan.Options {
		resp.Options = append(resp.Options, mapOptionToResponse(opt))
	}
	if plan.ExternalID != nil {
		hex := plan.ExternalID.Hex()
		resp.ExternalOptionID = &hex
	}
	return resp
}

func mapClientToResponse(client *domain.Client) ClientResponse {
	return ClientResponse{
		ID:                client.ID.Hex(),
		RecordName:        client.RecordName,
		FirstName:         client.FirstName,
		LastName:          client.LastName,
		PracticeName:      client.PracticeName,
		PracticeType:      string(client.PracticeType),
		Phone:             client.Phone,
		Email:             client.Email,
		StreetAddress:     client.StreetAddress,
		City:              client.City,
		State:             client.State,
		Zip:               client.Zip,
		Notes:             client.Notes,
		MonthlyBudget:     client.MonthlyBudget,
		CurrentProduction: client.CurrentProduction,
		ProductionGoal:    client.ProductionGoal,
		InitialContact:    client.InitialContact,
		LastModified:      client.LastModified,
		HasPhoto:          client.PhotoObjectKey != nil,
		MarketingPlan:     mapPlanToResponse(client.MarketingPlan),
	}
}

func mapClientsToResponse(clients []domain.Client) []ClientResponse {
	responses := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, mapClientToResponse(&clients[i]))
	}
	return responses
}

func (req ClientRequest) toFields() service.ClientFields {
	fields := service.ClientFields{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PracticeName:  req.PracticeName,
		Phone:         req.Phone,
		Email:         req.Email,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		Zip:           req.Zip,
		Notes:         req.Notes,
		PracticeType:  domain.PracticeType(req.PracticeType),
	}
	if req.InitialContact != nil {
		fields.InitialContact = *req.InitialContact
	}
	return fields
}

// --- Shared helpers ---

// consultantAndClientIDs extracts the authenticated consultant ID and the
// :clientId path parameter. Aborts the request on failure.
func consultantAndClientIDs(c *gin.Context) (consultantID, clientID primitive.ObjectID, ok bool) {
	consultantID, ok = consultantIDFrom(c)
	if !ok {
		return
	}
	clientID, err := primitive.ObjectIDFromHex(c.Param("clientId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return consultantID, clientID, false
	}
	return consultantID, clientID, true
}

func consultantIDFrom(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify consultant.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid consultant ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondServiceError maps registry errors onto HTTP statuses. Validation
// failures are 400, absent clients 404, "not applicable" conditions (no
// plan, no external option, detached option) 409, everything else 500.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrClientNotFound), errors.Is(err, service.ErrNoPhoto):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoMarketingPlan),
		errors.Is(err, service.ErrNoExternalOption),
		errors.Is(err, service.ErrOptionNotInPlan):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// --- Handler Methods ---

// CreateClient adds a new client record for the authenticated consultant.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	consultantID, ok := consultantIDFrom(c)
	if !ok {
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), consultantID, req.toFields())
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to create client.")
		return
	}
	c.JSON(http.StatusCreated, mapClientToResponse(client))
}

// ListClients returns the consultant's clients sorted by last name.
func (h *ClientHandler) ListClients(c *gin.Context) {
	consultantID, ok := consultantIDFrom(c)
	if !ok {
		return
	}

	clients, err := h.clientService.ListClients(c.Request.Context(), consultantID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to list clients.")
		return
	}
	c.JSON(http.StatusOK, mapClientsToResponse(clients))
}

// GetClient returns one client record.
func (h *ClientHandler) GetClient(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), consultantID, clientID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to load client.")
		return
	}
	c.JSON(http.StatusOK, mapClientToResponse(client))
}

// UpdateClient overwrites a client's editable fields.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), consultantID, clientID, req.toFields())
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update client.")
		return
	}
	c.JSON(http.StatusOK, mapClientToResponse(client))
}

// DeleteClient removes a client and its marketing plan.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	if err := h.clientService.RemoveClient(c.Request.Context(), consultantID, clientID); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete client.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Finances ---

func (h *ClientHandler) SetMonthlyBudget(c *gin.Context) {
	h.setAmount(c, h.clientService.SetMonthlyBudget)
}

func (h *ClientHandler) SetCurrentProduction(c *gin.Context) {
	h.setAmount(c, h.clientService.SetCurrentProduction)
}

func (h *ClientHandler) SetProductionGoal(c *gin.Context) {
	h.setAmount(c, h.clientService.SetProductionGoal)
}

type amountSetter func(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error)

func (h *ClientHandler) setAmount(c *gin.Context, set amountSetter) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := set(c.Request.Context(), consultantID, clientID, req.Amount)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update amount.")
		return
	}
	c.JSON(http.StatusOK, mapClientToResponse(client))
}

// --- Photo ---

type PhotoUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type PhotoConfirmRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// RequestPhotoUploadURL returns a presigned PUT URL for the client photo.
func (h *ClientHandler) RequestPhotoUploadURL(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req PhotoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	resp, err := h.clientService.RequestPhotoUploadURL(c.Request.Context(), consultantID, clientID, req.ContentType)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to generate upload URL.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmPhotoUpload records the uploaded photo's object key.
func (h *ClientHandler) ConfirmPhotoUpload(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	var req PhotoConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.ConfirmPhotoUpload(c.Request.Context(), consultantID, clientID, req.ObjectKey)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to confirm photo upload.")
		return
	}
	c.JSON(http.StatusOK, mapClientToResponse(client))
}

// GetPhotoDownloadURL returns a presigned GET URL for the client photo.
func (h *ClientHandler) GetPhotoDownloadURL(c *gin.Context) {
	consultantID, clientID, ok := consultantAndClientIDs(c)
	if !ok {
		return
	}

	url, err := h.clientService.GetPhotoDownloadURL(c.Request.Context(), consultantID, clientID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to generate download URL.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

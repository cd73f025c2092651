// internal/handlers/registration.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/framelock/capture-backend/internal/models"
	"github.com/framelock/capture-backend/internal/services"
	"github.com/framelock/capture-backend/internal/utils"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// POST /v1/registrations
func (h *RegistrationHandler) RegisterCapture(c *gin.Context) {
	var req models.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.registrationService.Register(c.Request.Context(), &req)
	if err != nil {
		var validationErr *services.RequestValidationError
		if errors.As(err, &validationErr) {
			utils.BadRequestResponse(c, validationErr.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /v1/registrations
func (h *RegistrationHandler) GetRegistrations(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	rows, total, err := h.registrationService.Recent(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(rows, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /v1/registrations/:imageCid
func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	imageCID := c.Param("imageCid")
	if imageCID == "" {
		utils.BadRequestResponse(c, "Missing image content identifier", nil)
		return
	}

	row, err := h.registrationService.ByImageCID(imageCID)
	if err != nil {
		utils.NotFoundResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"registration": row,
	})
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/classroom-service/internal/services"
	"github.com/campuskit/classroom-service/internal/utils"
	"github.com/campuskit/classroom-service/internal/validator"
)

type MaterialHandler struct {
	BaseHandler
	materialService services.MaterialService
	validator       *validator.Validator
}

func NewMaterialHandler(materialService services.MaterialService, validator *validator.Validator, logger utils.Logger) *MaterialHandler {
	return &MaterialHandler{
		BaseHandler:     NewBaseHandler(logger),
		materialService: materialService,
		validator:       validator,
	}
}

// UploadMaterial stores a reading material file in a classroom
// @Summary Upload material
// @Tags materials
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Classroom ID"
// @Param name formData string true "Display name"
// @Param file formData file true "Material file"
// @Success 201 {object} services.MaterialResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /classrooms/{id}/materials [post]
func (h *MaterialHandler) UploadMaterial(c *gin.Context) {
	classroomID := h.parseIDParam(c, "id")
	if classroomID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.MaterialUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Uploading material", "classroom_id", classroomID, "file", file.Filename)

	material, err := h.materialService.Upload(c.Request.Context(), classroomID, userID, &req, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, material)
}

// DeleteMaterial removes a material's file and record
// @Summary Delete material
// @Tags materials
// @Produce json
// @Param id path uint true "Material ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Deleting material", "material_id", id)

	if err := h.materialService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCreatedMaterials lists the materials the caller uploaded to a classroom
// @Summary List created materials
// @Tags materials
// @Produce json
// @Param id path uint true "Classroom ID"
// @Success 200 {array} services.MaterialResponse
// @Router /classrooms/{id}/materials/created [get]
func (h *MaterialHandler) ListCreatedMaterials(c *gin.Context) {
	classroomID := h.parseIDParam(c, "id")
	if classroomID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	materials, err := h.materialService.ListCreated(c.Request.Context(), classroomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, materials)
}

// ListJoinedMaterials lists a classroom's materials for a member student
// @Summary List joined materials
// @Tags materials
// @Produce json
// @Param id path uint true "Classroom ID"
// @Success 200 {array} services.MaterialResponse
// @Failure 404 {object} ErrorResponse
// @Router /classrooms/{id}/materials/joined [get]
func (h *MaterialHandler) ListJoinedMaterials(c *gin.Context) {
	classroomID := h.parseIDParam(c, "id")
	if classroomID == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	materials, err := h.materialService.ListJoined(c.Request.Context(), classroomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, materials)
}

// GetMaterialFile serves the stored file for inline viewing
// @Summary Get material file
// @Tags materials
// @Produce application/pdf
// @Param id path uint true "Material ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /materials/{id}/file [get]
func (h *MaterialHandler) GetMaterialFile(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	file, err := h.materialService.GetFile(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, file.OriginalName))
	c.File(file.Path)
}

// RecordReadingTime accumulates the caller's reading time on a material
// @Summary Record reading time
// @Tags materials
// @Accept json
// @Produce json
// @Param id path uint true "Material ID"
// @Param reading body services.ReadingTimeRequest true "Seconds spent"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /materials/{id}/reading-time [post]
func (h *MaterialHandler) RecordReadingTime(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.ReadingTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.materialService.RecordReadingTime(c.Request.Context(), id, userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Reading time recorded"})
}

// GetReadingInfo returns per-student accumulated reading time for a material
// @Summary Get reading info
// @Tags materials
// @Produce json
// @Param id path uint true "Material ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /materials/{id}/reading-info [get]
func (h *MaterialHandler) GetReadingInfo(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	info, err := h.materialService.GetReadingInfo(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

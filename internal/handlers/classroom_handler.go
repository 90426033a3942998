package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/classroom-service/internal/services"
	"github.com/campuskit/classroom-service/internal/utils"
	"github.com/campuskit/classroom-service/internal/validator"
)

type ClassroomHandler struct {
	BaseHandler
	classroomService services.ClassroomService
	validator        *validator.Validator
}

func NewClassroomHandler(classroomService services.ClassroomService, validator *validator.Validator, logger utils.Logger) *ClassroomHandler {
	return &ClassroomHandler{
		BaseHandler:      NewBaseHandler(logger),
		classroomService: classroomService,
		validator:        validator,
	}
}

// CreateClassroom creates a new classroom with a generated join code
// @Summary Create classroom
// @Tags classrooms
// @Accept json
// @Produce json
// @Param classroom body services.CreateClassroomRequest true "Classroom data"
// @Success 201 {object} services.ClassroomResponse
// @Failure 400 {object} ErrorResponse
// @Router /classrooms [post]
func (h *ClassroomHandler) CreateClassroom(c *gin.Context) {
	var req services.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	classroom, err := h.classroomService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, classroom)
}

// JoinClassroom adds the caller to a classroom by its join code
// @Summary Join classroom
// @Tags classrooms
// @Accept json
// @Produce json
// @Param join body services.JoinClassroomRequest true "Join code"
// @Success 200 {object} services.ClassroomResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /classrooms/join [post]
func (h *ClassroomHandler) JoinClassroom(c *gin.Context) {
	var req services.JoinClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	classroom, err := h.classroomService.Join(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classroom)
}

// GetCreatedClassroom retrieves a classroom the caller teaches
// @Summary Get created classroom
// @Tags classrooms
// @Produce json
// @Param id path uint true "Classroom ID"
// @Success 200 {object} services.ClassroomResponse
// @Failure 404 {object} ErrorResponse
// @Router /classrooms/{id}/created [get]
func (h *ClassroomHandler) GetCreatedClassroom(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Getting created classroom", "classroom_id", id)

	classroom, err := h.classroomService.GetCreated(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classroom)
}

// GetJoinedClassroom retrieves a classroom the caller has joined
// @Summary Get joined classroom
// @Tags classrooms
// @Produce json
// @Param id path uint true "Classroom ID"
// @Success 200 {object} services.ClassroomResponse
// @Failure 404 {object} ErrorResponse
// @Router /classrooms/{id}/joined [get]
func (h *ClassroomHandler) GetJoinedClassroom(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Getting joined classroom", "classroom_id", id)

	classroom, err := h.classroomService.GetJoined(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classroom)
}

// Home lists the classrooms the caller teaches and the ones they joined
// @Summary Home listing
// @Tags classrooms
// @Produce json
// @Success 200 {object} services.HomeResponse
// @Router /classrooms/home [get]
func (h *ClassroomHandler) Home(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	home, err := h.classroomService.Home(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, home)
}

// ExportRoster downloads the classroom's student roster as an xlsx workbook
// @Summary Export roster
// @Tags classrooms
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Classroom ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /classrooms/{id}/roster/export [get]
func (h *ClassroomHandler) ExportRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Exporting roster", "classroom_id", id)

	export, err := h.classroomService.ExportRoster(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.Content)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/campuskit/classroom-service/internal/services"
	"github.com/campuskit/classroom-service/internal/utils"
	"github.com/campuskit/classroom-service/internal/validator"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	classroomHandler *ClassroomHandler
	materialHandler  *MaterialHandler
	authMiddleware   *JWTAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), validator, logger),
		classroomHandler: NewClassroomHandler(serviceManager.Classroom(), validator, logger),
		materialHandler:  NewMaterialHandler(serviceManager.Material(), validator, logger),
		authMiddleware:   NewJWTAuthMiddleware(serviceManager.Auth()),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Auth routes; signup and login are open, logout needs a valid token
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", hm.authHandler.SignUp)
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/logout", hm.authMiddleware.AuthMiddleware(), hm.authHandler.Logout)
	}

	authenticated := v1.Group("")
	authenticated.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Classroom routes
		classrooms := authenticated.Group("/classrooms")
		{
			classrooms.POST("", hm.classroomHandler.CreateClassroom)
			classrooms.POST("/join", hm.classroomHandler.JoinClassroom)
			classrooms.GET("/home", hm.classroomHandler.Home)
			classrooms.GET("/:id/created", hm.classroomHandler.GetCreatedClassroom)
			classrooms.GET("/:id/joined", hm.classroomHandler.GetJoinedClassroom)
			classrooms.GET("/:id/roster/export", hm.classroomHandler.ExportRoster)

			// Material routes scoped to a classroom
			classrooms.POST("/:id/materials", hm.materialHandler.UploadMaterial)
			classrooms.GET("/:id/materials/created", hm.materialHandler.ListCreatedMaterials)
			classrooms.GET("/:id/materials/joined", hm.materialHandler.ListJoinedMaterials)
		}

		// Material routes
		materials := authenticated.Group("/materials")
		{
			materials.DELETE("/:id", hm.materialHandler.DeleteMaterial)
			materials.GET("/:id/file", hm.materialHandler.GetMaterialFile)
			materials.POST("/:id/reading-time", hm.materialHandler.RecordReadingTime)
			materials.GET("/:id/reading-info", hm.materialHandler.GetReadingInfo)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "classroom-service",
		})
	})
}

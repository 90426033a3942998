package services

import (
	"context"
	"mime/multipart"

	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type SignUpRequest = validator.SignUpRequest
type LoginRequest = validator.LoginRequest
type CreateClassroomRequest = validator.ClassroomCreateRequest
type JoinClassroomRequest = validator.ClassroomJoinRequest
type MaterialUploadRequest = validator.MaterialUploadRequest
type ReadingTimeRequest = validator.ReadingTimeRequest

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type ClassroomResponse struct {
	*models.ClassRoom
	IsTeacher bool `json:"is_teacher"`
}

// HomeResponse lists the rooms a user teaches and the rooms they joined.
type HomeResponse struct {
	Created []*models.ClassRoom `json:"created"`
	Joined  []*models.ClassRoom `json:"joined"`
}

type MaterialResponse struct {
	*models.ReadingMaterial
	CanDelete bool `json:"can_delete"`
}

// RosterExport is a rendered xlsx workbook of a classroom's student set.
type RosterExport struct {
	FileName string
	Content  []byte
}

// MaterialFile locates a stored file for the embedded viewer.
type MaterialFile struct {
	Path         string
	OriginalName string
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	Logout(ctx context.Context, token string) error

	// VerifyToken validates a bearer token and returns the account ID.
	// Blacklisted (logged-out) tokens are rejected.
	VerifyToken(ctx context.Context, token string) (uint, error)
}

type ClassroomService interface {
	Create(ctx context.Context, req *CreateClassroomRequest, teacherID uint) (*ClassroomResponse, error)
	Join(ctx context.Context, req *JoinClassroomRequest, userID uint) (*ClassroomResponse, error)
	GetCreated(ctx context.Context, id, teacherID uint) (*ClassroomResponse, error)
	GetJoined(ctx context.Context, id, studentID uint) (*ClassroomResponse, error)
	Home(ctx context.Context, userID uint) (*HomeResponse, error)
	ExportRoster(ctx context.Context, id, teacherID uint) (*RosterExport, error)
}

type MaterialService interface {
	Upload(ctx context.Context, classroomID, teacherID uint, req *MaterialUploadRequest, file *multipart.FileHeader) (*MaterialResponse, error)
	Delete(ctx context.Context, materialID, userID uint) error
	ListCreated(ctx context.Context, classroomID, teacherID uint) ([]*MaterialResponse, error)
	ListJoined(ctx context.Context, classroomID, studentID uint) ([]*MaterialResponse, error)
	GetFile(ctx context.Context, materialID, userID uint) (*MaterialFile, error)
	RecordReadingTime(ctx context.Context, materialID, studentID uint, req *ReadingTimeRequest) error
	GetReadingInfo(ctx context.Context, materialID, userID uint) (map[string]interface{}, error)
}

// ServiceManager wires and owns all services.
type ServiceManager interface {
	Auth() AuthService
	Classroom() ClassroomService
	Material() MaterialService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

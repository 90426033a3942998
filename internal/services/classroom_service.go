package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/events"
	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
	"github.com/campuskit/classroom-service/internal/validator"
)

// maxCodeAttempts bounds code regeneration on uniqueness conflicts. Two
// concurrent creations can draw the same code; the database constraint turns
// that into a duplicate-key error and we simply draw again.
const maxCodeAttempts = 5

type classroomService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewClassroomService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) ClassroomService {
	return &classroomService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// generateClassCode derives a 6-character uppercase code from a random
// 128-bit token, the same shape the uuid hex slice gives.
func generateClassCode() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:]))[:models.ClassCodeLength]
}

// Create builds a classroom for the requesting teacher with a generated join
// code, regenerating on a code collision.
func (s *classroomService) Create(ctx context.Context, req *CreateClassroomRequest, teacherID uint) (*ClassroomResponse, error) {
	s.logger.Info("Creating classroom", "teacher_id", teacherID, "name", req.Name)

	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	var classroom *models.ClassRoom
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := generateClassCode()
		candidate := &models.ClassRoom{
			Name:      req.Name,
			Section:   req.Section,
			ClassCode: &code,
			TeacherID: teacherID,
		}

		err := s.repo.Classroom().Create(ctx, s.db, candidate)
		if err == nil {
			classroom = candidate
			break
		}
		if !repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to create classroom: %w", err)
		}
		s.logger.Warn("Class code collision, regenerating", "code", code, "attempt", attempt+1)
	}

	if classroom == nil {
		return nil, ErrCodeGeneration
	}

	s.logger.Info("Classroom created", "classroom_id", classroom.ID, "class_code", *classroom.ClassCode)

	s.publishEvent(ctx, events.NewEvent(events.EventClassroomCreated, events.ClassroomCreatedEvent{
		ClassroomID: classroom.ID,
		Name:        classroom.Name,
		Section:     classroom.Section,
		ClassCode:   *classroom.ClassCode,
		TeacherID:   classroom.TeacherID,
	}))

	return &ClassroomResponse{ClassRoom: classroom, IsTeacher: true}, nil
}

// Join enrolls the requesting user in the classroom matching the code. The
// room's own teacher is rejected; joining twice is a no-op.
func (s *classroomService) Join(ctx context.Context, req *JoinClassroomRequest, userID uint) (*ClassroomResponse, error) {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))

	classroom, err := s.repo.Classroom().GetByCode(ctx, s.db, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassCodeNotFound
		}
		return nil, fmt.Errorf("failed to look up class code: %w", err)
	}

	if classroom.TeacherID == userID {
		return nil, ErrOwnTeacherJoin
	}

	// A re-join is a no-op and must not notify consumers again.
	already, err := s.repo.Classroom().IsStudent(ctx, s.db, classroom.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check classroom membership: %w", err)
	}
	if already {
		return &ClassroomResponse{ClassRoom: classroom}, nil
	}

	student, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load joining user: %w", err)
	}

	if err := s.repo.Classroom().AddStudent(ctx, s.db, classroom.ID, student); err != nil {
		return nil, fmt.Errorf("failed to join classroom: %w", err)
	}

	s.logger.Info("Student joined classroom",
		"classroom_id", classroom.ID, "student_id", userID)

	s.publishEvent(ctx, events.NewEvent(events.EventClassroomJoined, events.ClassroomJoinedEvent{
		ClassroomID: classroom.ID,
		StudentID:   student.ID,
		Username:    student.Username,
	}))

	return &ClassroomResponse{ClassRoom: classroom}, nil
}

// GetCreated fetches one classroom scoped by (teacher, id). Ownership is the
// sole authorization check.
func (s *classroomService) GetCreated(ctx context.Context, id, teacherID uint) (*ClassroomResponse, error) {
	classroom, err := s.repo.Classroom().GetByTeacher(ctx, s.db, id, teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassroomNotFound
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return &ClassroomResponse{ClassRoom: classroom, IsTeacher: true}, nil
}

// GetJoined fetches one classroom scoped by (member, id).
func (s *classroomService) GetJoined(ctx context.Context, id, studentID uint) (*ClassroomResponse, error) {
	classroom, err := s.repo.Classroom().GetByStudent(ctx, s.db, id, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassroomNotFound
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return &ClassroomResponse{ClassRoom: classroom}, nil
}

// Home lists the classrooms the user teaches and the ones they joined.
func (s *classroomService) Home(ctx context.Context, userID uint) (*HomeResponse, error) {
	created, err := s.repo.Classroom().ListByTeacher(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list created classrooms: %w", err)
	}

	joined, err := s.repo.Classroom().ListByStudent(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined classrooms: %w", err)
	}

	return &HomeResponse{Created: created, Joined: joined}, nil
}

func (s *classroomService) publishEvent(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Best-effort: the write already committed
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

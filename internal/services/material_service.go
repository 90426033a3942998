package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"

	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/events"
	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
	"github.com/campuskit/classroom-service/internal/validator"
	"github.com/campuskit/classroom-service/pkg/storage"
)

type materialService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	store     *storage.Storage
	publisher events.EventPublisher
}

func NewMaterialService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, store *storage.Storage, publisher events.EventPublisher) MaterialService {
	return &materialService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		store:     store,
		publisher: publisher,
	}
}

// Upload stores a reading material for a classroom. Only the classroom's
// teacher may upload, and the file must pass the extension allow-list before
// anything is written to disk. If persisting the record fails, the stored
// file is removed so no orphan is left behind.
func (s *materialService) Upload(ctx context.Context, classroomID, teacherID uint, req *MaterialUploadRequest, file *multipart.FileHeader) (*MaterialResponse, error) {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.repo.Classroom().GetByTeacher(ctx, s.db, classroomID, teacherID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPermissionError(teacherID, classroomID, "classroom", "upload",
				"you don't have upload permissions to this classroom")
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}

	if err := s.store.ValidateExtension(file.Filename); err != nil {
		return nil, ValidationErrors{{
			Field:   "file",
			Message: "file type is not allowed; upload a PDF",
			Rule:    "file_extension",
		}}
	}

	fileName, err := s.store.SaveFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	material := &models.ReadingMaterial{
		Name:         req.Name,
		ClassRoomID:  classroomID,
		FileName:     fileName,
		OriginalName: file.Filename,
		SizeBytes:    file.Size,
		UploaderID:   teacherID,
	}

	if err := s.repo.Material().Create(ctx, s.db, material); err != nil {
		if cleanupErr := s.store.DeleteFile(fileName); cleanupErr != nil {
			s.logger.Error("Failed to clean up stored file after create failure",
				"file", fileName, "error", cleanupErr)
		}
		return nil, fmt.Errorf("failed to create reading material: %w", err)
	}

	s.logger.Info("Reading material uploaded",
		"material_id", material.ID, "classroom_id", classroomID, "uploader_id", teacherID)

	s.publishEvent(ctx, events.NewEvent(events.EventMaterialUploaded, events.MaterialUploadedEvent{
		MaterialID:  material.ID,
		ClassroomID: classroomID,
		UploaderID:  teacherID,
		Name:        material.Name,
	}))

	return &MaterialResponse{ReadingMaterial: material, CanDelete: true}, nil
}

// Delete removes a material: stored file first, record second, so a crash in
// between leaves an orphaned record pointing at a missing file rather than an
// orphaned file on disk. Only the uploader or the classroom's teacher may
// delete.
func (s *materialService) Delete(ctx context.Context, materialID, userID uint) error {
	material, err := s.repo.Material().GetByID(ctx, s.db, materialID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("failed to get reading material: %w", err)
	}

	if !s.canDelete(material, userID) {
		return NewPermissionError(userID, materialID, "material", "delete",
			"not the uploader or the classroom's teacher")
	}

	if err := s.store.DeleteFile(material.FileName); err != nil {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}

	if err := s.repo.Material().Delete(ctx, s.db, materialID); err != nil {
		return fmt.Errorf("failed to delete reading material: %w", err)
	}

	s.logger.Info("Reading material deleted",
		"material_id", materialID, "deleted_by", userID)

	s.publishEvent(ctx, events.NewEvent(events.EventMaterialDeleted, events.MaterialDeletedEvent{
		MaterialID:  materialID,
		ClassroomID: material.ClassRoomID,
		DeletedBy:   userID,
	}))

	return nil
}

func (s *materialService) canDelete(material *models.ReadingMaterial, userID uint) bool {
	return material.UploaderID == userID || material.ClassRoom.TeacherID == userID
}

// ListCreated returns the materials of a classroom uploaded by the requesting
// teacher. Other teachers' uploads to the same classroom are excluded.
func (s *materialService) ListCreated(ctx context.Context, classroomID, teacherID uint) ([]*MaterialResponse, error) {
	materials, err := s.repo.Material().ListByUploader(ctx, s.db, classroomID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list created materials: %w", err)
	}

	responses := make([]*MaterialResponse, 0, len(materials))
	for _, m := range materials {
		responses = append(responses, &MaterialResponse{ReadingMaterial: m, CanDelete: true})
	}
	return responses, nil
}

// ListJoined returns a classroom's materials for an enrolled student.
// Non-members get a not-found, the same signal as a missing classroom.
func (s *materialService) ListJoined(ctx context.Context, classroomID, studentID uint) ([]*MaterialResponse, error) {
	isMember, err := s.repo.Classroom().IsStudent(ctx, s.db, classroomID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return nil, ErrClassroomNotFound
	}

	materials, err := s.repo.Material().ListByClassroom(ctx, s.db, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classroom materials: %w", err)
	}

	responses := make([]*MaterialResponse, 0, len(materials))
	for _, m := range materials {
		responses = append(responses, &MaterialResponse{ReadingMaterial: m})
	}
	return responses, nil
}

// GetFile resolves the stored path of a material for the embedded viewer.
// Authentication is the only gate here.
func (s *materialService) GetFile(ctx context.Context, materialID, userID uint) (*MaterialFile, error) {
	material, err := s.repo.Material().GetByID(ctx, s.db, materialID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get reading material: %w", err)
	}

	return &MaterialFile{
		Path:         s.store.Path(material.FileName),
		OriginalName: material.OriginalName,
	}, nil
}

// RecordReadingTime accumulates the seconds a student spent on a material in
// its engagement map.
func (s *materialService) RecordReadingTime(ctx context.Context, materialID, studentID uint, req *ReadingTimeRequest) error {
	if errs := s.validator.GetBusinessValidator().Validate(req); len(errs) > 0 {
		return errs
	}

	material, err := s.repo.Material().GetByID(ctx, s.db, materialID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("failed to get reading material: %w", err)
	}

	student, err := s.repo.User().GetByID(ctx, s.db, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student: %w", err)
	}

	accumulate := func(txRepo repositories.Repository) error {
		// FOR UPDATE lock: concurrent recordings for the same material
		// serialize here instead of overwriting each other's map.
		info, err := txRepo.ReadingInfo().GetByMaterialForUpdate(ctx, nil, material.ID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to get reading info: %w", err)
			}
			info = &models.ReadingInfo{
				MaterialID:   material.ID,
				MaterialInfo: map[string]interface{}{},
			}
		}
		if info.MaterialInfo == nil {
			info.MaterialInfo = map[string]interface{}{}
		}

		var elapsed float64
		if prev, ok := info.MaterialInfo[student.Username].(float64); ok {
			elapsed = prev
		}
		info.MaterialInfo[student.Username] = elapsed + float64(req.Seconds)

		return txRepo.ReadingInfo().Upsert(ctx, nil, info)
	}

	err = s.repo.WithTransaction(ctx, accumulate)
	if repositories.IsDuplicateKeyError(err) {
		// Two first-ever recordings raced on the insert; the loser re-reads
		// the now-existing record and merges into it.
		err = s.repo.WithTransaction(ctx, accumulate)
	}
	return err
}

// GetReadingInfo returns the engagement map of a material for its uploader or
// the classroom's teacher.
func (s *materialService) GetReadingInfo(ctx context.Context, materialID, userID uint) (map[string]interface{}, error) {
	material, err := s.repo.Material().GetByID(ctx, s.db, materialID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get reading material: %w", err)
	}

	if !s.canDelete(material, userID) {
		return nil, NewPermissionError(userID, materialID, "material", "view_reading_info",
			"not the uploader or the classroom's teacher")
	}

	info, err := s.repo.ReadingInfo().GetByMaterial(ctx, s.db, materialID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReadingInfoEmpty
		}
		return nil, fmt.Errorf("failed to get reading info: %w", err)
	}

	return info.MaterialInfo, nil
}

func (s *materialService) publishEvent(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

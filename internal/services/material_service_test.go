package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/campuskit/classroom-service/internal/events"
	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/validator"
	"github.com/campuskit/classroom-service/pkg/storage"
)

func newMaterialTestService(t *testing.T, repo *mockRepository) (MaterialService, *storage.Storage, *events.MockEventPublisher) {
	t.Helper()
	store, err := storage.NewStorage(t.TempDir(), 10*1024*1024, nil)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	return NewMaterialService(repo, nil, logger, validator.New(), store, publisher), store, publisher
}

// makeFileHeader builds a real multipart.FileHeader the way gin would hand it
// to the handler.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing multipart content: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(int64(len(content)) + 4096)
	if err != nil {
		t.Fatalf("ReadForm failed: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

var seedClassroomCounter atomic.Uint64

func seedClassroom(t *testing.T, repo *mockRepository, teacherID uint) *models.ClassRoom {
	t.Helper()
	// The mock repository enforces class-code uniqueness, so each seeded
	// classroom needs a distinct code.
	code := fmt.Sprintf("ABC%03d", seedClassroomCounter.Add(1))
	classroom := &models.ClassRoom{Name: "Reading", Section: 1, ClassCode: &code, TeacherID: teacherID}
	if err := repo.classrooms.Create(context.Background(), nil, classroom); err != nil {
		t.Fatalf("seed classroom: %v", err)
	}
	return classroom
}

func TestMaterialService_Upload(t *testing.T) {
	repo := newMockRepository()
	service, store, publisher := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	file := makeFileHeader(t, "chapter-one.pdf", []byte("%PDF-1.4 test"))

	resp, err := service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Chapter One"}, file)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if resp.OriginalName != "chapter-one.pdf" {
		t.Errorf("expected original name to be kept, got %q", resp.OriginalName)
	}
	if !resp.CanDelete {
		t.Error("uploader should be allowed to delete")
	}
	if !store.Exists(resp.FileName) {
		t.Error("uploaded file should exist in storage")
	}
	if len(repo.materials.byID) != 1 {
		t.Errorf("expected 1 material record, got %d", len(repo.materials.byID))
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventMaterialUploaded {
		t.Errorf("expected one %s event, got %v", events.EventMaterialUploaded, published)
	}
}

func TestMaterialService_Upload_DisallowedExtension(t *testing.T) {
	repo := newMockRepository()
	teacher := seedUser(t, repo, "teacher1")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	storageDir := t.TempDir()
	store, err := storage.NewStorage(storageDir, 10*1024*1024, nil)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	service := NewMaterialService(repo, nil, logger, validator.New(), store, events.NewMockEventPublisher(logger))

	file := makeFileHeader(t, "malware.exe", []byte("MZ"))

	_, err = service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Nope"}, file)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if verrs[0].Field != "file" {
		t.Errorf("expected the failure on the file field, got %q", verrs[0].Field)
	}

	if len(repo.materials.byID) != 0 {
		t.Error("rejected upload must not create a record")
	}
	entries, err := os.ReadDir(storageDir)
	if err != nil {
		t.Fatalf("reading storage dir: %v", err)
	}
	if len(entries) != 0 {
		t.Error("rejected upload must not leave a stored file")
	}
}

func TestMaterialService_Upload_NotTeacher(t *testing.T) {
	repo := newMockRepository()
	service, _, _ := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	stranger := seedUser(t, repo, "teacher2")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	file := makeFileHeader(t, "doc.pdf", []byte("%PDF-1.4"))

	var permErr *PermissionError
	_, err := service.Upload(ctx, classroom.ID, stranger.ID, &MaterialUploadRequest{Name: "Doc"}, file)
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
	if len(repo.materials.byID) != 0 {
		t.Error("rejected upload must not create a record")
	}
}

func TestMaterialService_Delete(t *testing.T) {
	repo := newMockRepository()
	service, store, publisher := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	stranger := seedUser(t, repo, "intruder")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	file := makeFileHeader(t, "to-delete.pdf", []byte("%PDF-1.4"))
	uploaded, err := service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Doomed"}, file)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	publisher.ClearEvents()

	t.Run("stranger is rejected", func(t *testing.T) {
		var permErr *PermissionError
		if err := service.Delete(ctx, uploaded.ID, stranger.ID); !errors.As(err, &permErr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
		if !store.Exists(uploaded.FileName) {
			t.Error("rejected delete must not touch the stored file")
		}
	})

	t.Run("uploader deletes file and record", func(t *testing.T) {
		if err := service.Delete(ctx, uploaded.ID, teacher.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if store.Exists(uploaded.FileName) {
			t.Error("stored file should be removed")
		}
		if len(repo.materials.byID) != 0 {
			t.Error("material record should be removed")
		}

		listed, err := service.ListCreated(ctx, classroom.ID, teacher.ID)
		if err != nil {
			t.Fatalf("ListCreated failed: %v", err)
		}
		if len(listed) != 0 {
			t.Error("deleted material must not appear in listings")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventMaterialDeleted {
			t.Errorf("expected one %s event, got %v", events.EventMaterialDeleted, published)
		}
	})

	t.Run("missing material", func(t *testing.T) {
		if err := service.Delete(ctx, 9999, teacher.ID); !errors.Is(err, ErrMaterialNotFound) {
			t.Fatalf("expected ErrMaterialNotFound, got %v", err)
		}
	})
}

func TestMaterialService_Listings(t *testing.T) {
	repo := newMockRepository()
	service, _, _ := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	otherTeacher := seedUser(t, repo, "teacher2")
	student := seedUser(t, repo, "student1")
	outsider := seedUser(t, repo, "student2")
	classroom := seedClassroom(t, repo, teacher.ID)
	otherRoom := seedClassroom(t, repo, otherTeacher.ID)
	ctx := context.Background()

	if _, err := service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Mine"},
		makeFileHeader(t, "mine.pdf", []byte("%PDF"))); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, err := service.Upload(ctx, otherRoom.ID, otherTeacher.ID, &MaterialUploadRequest{Name: "Theirs"},
		makeFileHeader(t, "theirs.pdf", []byte("%PDF"))); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := repo.classrooms.AddStudent(ctx, nil, classroom.ID, student); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}

	t.Run("created list is scoped to uploader and classroom", func(t *testing.T) {
		listed, err := service.ListCreated(ctx, classroom.ID, teacher.ID)
		if err != nil {
			t.Fatalf("ListCreated failed: %v", err)
		}
		if len(listed) != 1 || listed[0].Name != "Mine" {
			t.Errorf("expected only the teacher's own upload, got %v", listed)
		}

		empty, err := service.ListCreated(ctx, classroom.ID, otherTeacher.ID)
		if err != nil {
			t.Fatalf("ListCreated failed: %v", err)
		}
		if len(empty) != 0 {
			t.Error("another teacher's view of this classroom should be empty")
		}
	})

	t.Run("joined list requires membership", func(t *testing.T) {
		listed, err := service.ListJoined(ctx, classroom.ID, student.ID)
		if err != nil {
			t.Fatalf("ListJoined failed: %v", err)
		}
		if len(listed) != 1 {
			t.Errorf("expected 1 material for a member, got %d", len(listed))
		}
		if listed[0].CanDelete {
			t.Error("students must not see a delete affordance")
		}

		if _, err := service.ListJoined(ctx, classroom.ID, outsider.ID); !errors.Is(err, ErrClassroomNotFound) {
			t.Fatalf("expected ErrClassroomNotFound for non-member, got %v", err)
		}
	})
}

func TestMaterialService_GetFile(t *testing.T) {
	repo := newMockRepository()
	service, store, _ := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	uploaded, err := service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Viewer"},
		makeFileHeader(t, "viewer.pdf", []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	file, err := service.GetFile(ctx, uploaded.ID, teacher.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if file.OriginalName != "viewer.pdf" {
		t.Errorf("expected original name, got %q", file.OriginalName)
	}
	if file.Path != store.Path(uploaded.FileName) {
		t.Errorf("expected stored path %q, got %q", store.Path(uploaded.FileName), file.Path)
	}

	if _, err := service.GetFile(ctx, 404, teacher.ID); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("expected ErrMaterialNotFound, got %v", err)
	}
}

func TestMaterialService_ReadingTime(t *testing.T) {
	repo := newMockRepository()
	service, _, _ := newMaterialTestService(t, repo)
	teacher := seedUser(t, repo, "teacher1")
	student := seedUser(t, repo, "reader")
	stranger := seedUser(t, repo, "stranger")
	classroom := seedClassroom(t, repo, teacher.ID)
	ctx := context.Background()

	uploaded, err := service.Upload(ctx, classroom.ID, teacher.ID, &MaterialUploadRequest{Name: "Tracked"},
		makeFileHeader(t, "tracked.pdf", []byte("%PDF")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	t.Run("empty before any recording", func(t *testing.T) {
		if _, err := service.GetReadingInfo(ctx, uploaded.ID, teacher.ID); !errors.Is(err, ErrReadingInfoEmpty) {
			t.Fatalf("expected ErrReadingInfoEmpty, got %v", err)
		}
	})

	t.Run("accumulates per student", func(t *testing.T) {
		if err := service.RecordReadingTime(ctx, uploaded.ID, student.ID, &ReadingTimeRequest{Seconds: 90}); err != nil {
			t.Fatalf("RecordReadingTime failed: %v", err)
		}
		if err := service.RecordReadingTime(ctx, uploaded.ID, student.ID, &ReadingTimeRequest{Seconds: 30}); err != nil {
			t.Fatalf("RecordReadingTime failed: %v", err)
		}

		info, err := service.GetReadingInfo(ctx, uploaded.ID, teacher.ID)
		if err != nil {
			t.Fatalf("GetReadingInfo failed: %v", err)
		}
		total, ok := info[student.Username].(float64)
		if !ok || total != 120 {
			t.Errorf("expected 120 accumulated seconds for %s, got %v", student.Username, info[student.Username])
		}
	})

	t.Run("concurrent recordings all land", func(t *testing.T) {
		fast := seedUser(t, repo, "speedreader")
		const workers = 8
		const perCall = 15

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- service.RecordReadingTime(ctx, uploaded.ID, fast.ID, &ReadingTimeRequest{Seconds: perCall})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("RecordReadingTime failed: %v", err)
			}
		}

		info, err := service.GetReadingInfo(ctx, uploaded.ID, teacher.ID)
		if err != nil {
			t.Fatalf("GetReadingInfo failed: %v", err)
		}
		total, _ := info[fast.Username].(float64)
		if total != workers*perCall {
			t.Errorf("expected %d accumulated seconds, got %v", workers*perCall, total)
		}
	})

	t.Run("invalid seconds rejected", func(t *testing.T) {
		err := service.RecordReadingTime(ctx, uploaded.ID, student.ID, &ReadingTimeRequest{Seconds: 0})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validation errors, got %v", err)
		}
	})

	t.Run("reading info gated to uploader or teacher", func(t *testing.T) {
		var permErr *PermissionError
		if _, err := service.GetReadingInfo(ctx, uploaded.ID, stranger.ID); !errors.As(err, &permErr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})
}

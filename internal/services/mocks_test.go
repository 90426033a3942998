package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
)

// mockRepository is an in-memory repositories.Repository for service tests.
type mockRepository struct {
	users       *mockUserRepo
	classrooms  *mockClassroomRepo
	materials   *mockMaterialRepo
	readingInfo *mockReadingInfoRepo
}

func newMockRepository() *mockRepository {
	users := &mockUserRepo{byID: map[uint]*models.User{}}
	classrooms := &mockClassroomRepo{
		byID:    map[uint]*models.ClassRoom{},
		members: map[uint]map[uint]*models.User{},
	}
	materials := &mockMaterialRepo{
		byID:       map[uint]*models.ReadingMaterial{},
		classrooms: classrooms,
	}
	readingInfo := &mockReadingInfoRepo{byMaterial: map[uint]*models.ReadingInfo{}}

	return &mockRepository{
		users:       users,
		classrooms:  classrooms,
		materials:   materials,
		readingInfo: readingInfo,
	}
}

func (m *mockRepository) User() repositories.UserRepository               { return m.users }
func (m *mockRepository) Classroom() repositories.ClassroomRepository    { return m.classrooms }
func (m *mockRepository) Material() repositories.MaterialRepository      { return m.materials }
func (m *mockRepository) ReadingInfo() repositories.ReadingInfoRepository { return m.readingInfo }

// WithTransaction hands fn a transaction-scoped view; row locks taken during
// fn are released when it returns, mirroring commit/rollback.
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	tx := &mockTxRepo{mockRepository: m}
	defer tx.releaseLocks()
	return fn(tx)
}

// mockTxRepo tracks the row locks a transaction holds.
type mockTxRepo struct {
	*mockRepository
	held []*sync.Mutex
}

func (t *mockTxRepo) ReadingInfo() repositories.ReadingInfoRepository {
	return &txReadingInfoRepo{repo: t.mockRepository.readingInfo, tx: t}
}

func (t *mockTxRepo) releaseLocks() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== USERS =====

type mockUserRepo struct {
	byID   map[uint]*models.User
	nextID uint
}

func (r *mockUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	for _, u := range r.byID {
		if u.Username == user.Username {
			return fmt.Errorf("users_username_key: %w", repositories.ErrDuplicateKey)
		}
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (r *mockUserRepo) GetByUsername(_ context.Context, _ *gorm.DB, username string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockUserRepo) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, tx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ===== CLASSROOMS =====

type mockClassroomRepo struct {
	byID    map[uint]*models.ClassRoom
	members map[uint]map[uint]*models.User
	nextID  uint

	// forceCollisions makes the next N creates fail with a duplicate-key
	// error, simulating code collisions
	forceCollisions int
}

func (r *mockClassroomRepo) Create(_ context.Context, _ *gorm.DB, classroom *models.ClassRoom) error {
	if r.forceCollisions > 0 {
		r.forceCollisions--
		return fmt.Errorf("classrooms_class_code_key: %w", repositories.ErrDuplicateKey)
	}
	if classroom.ClassCode != nil {
		for _, c := range r.byID {
			if c.ClassCode != nil && *c.ClassCode == *classroom.ClassCode {
				return fmt.Errorf("classrooms_class_code_key: %w", repositories.ErrDuplicateKey)
			}
		}
	}
	r.nextID++
	classroom.ID = r.nextID
	r.byID[classroom.ID] = classroom
	r.members[classroom.ID] = map[uint]*models.User{}
	return nil
}

func (r *mockClassroomRepo) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.ClassRoom, error) {
	classroom, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return classroom, nil
}

func (r *mockClassroomRepo) GetByCode(_ context.Context, _ *gorm.DB, code string) (*models.ClassRoom, error) {
	for _, c := range r.byID {
		if c.ClassCode != nil && *c.ClassCode == code {
			return c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockClassroomRepo) GetByTeacher(_ context.Context, _ *gorm.DB, id, teacherID uint) (*models.ClassRoom, error) {
	classroom, ok := r.byID[id]
	if !ok || classroom.TeacherID != teacherID {
		return nil, repositories.ErrNotFound
	}
	return classroom, nil
}

func (r *mockClassroomRepo) GetByStudent(_ context.Context, _ *gorm.DB, id, studentID uint) (*models.ClassRoom, error) {
	classroom, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if _, member := r.members[id][studentID]; !member {
		return nil, repositories.ErrNotFound
	}
	return classroom, nil
}

func (r *mockClassroomRepo) ListByTeacher(_ context.Context, _ *gorm.DB, teacherID uint) ([]*models.ClassRoom, error) {
	var out []*models.ClassRoom
	for _, c := range r.byID {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	sortClassrooms(out)
	return out, nil
}

func (r *mockClassroomRepo) ListByStudent(_ context.Context, _ *gorm.DB, studentID uint) ([]*models.ClassRoom, error) {
	var out []*models.ClassRoom
	for id, c := range r.byID {
		if _, member := r.members[id][studentID]; member {
			out = append(out, c)
		}
	}
	sortClassrooms(out)
	return out, nil
}

func (r *mockClassroomRepo) AddStudent(_ context.Context, _ *gorm.DB, classroomID uint, student *models.User) error {
	if _, ok := r.byID[classroomID]; !ok {
		return repositories.ErrNotFound
	}
	r.members[classroomID][student.ID] = student
	return nil
}

func (r *mockClassroomRepo) IsStudent(_ context.Context, _ *gorm.DB, classroomID, studentID uint) (bool, error) {
	_, member := r.members[classroomID][studentID]
	return member, nil
}

func (r *mockClassroomRepo) ListStudents(_ context.Context, _ *gorm.DB, classroomID uint) ([]*models.User, error) {
	var out []*models.User
	for _, s := range r.members[classroomID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortClassrooms(rooms []*models.ClassRoom) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
}

// ===== MATERIALS =====

type mockMaterialRepo struct {
	byID       map[uint]*models.ReadingMaterial
	classrooms *mockClassroomRepo
	nextID     uint
}

func (r *mockMaterialRepo) Create(_ context.Context, _ *gorm.DB, material *models.ReadingMaterial) error {
	r.nextID++
	material.ID = r.nextID
	r.byID[material.ID] = material
	return nil
}

func (r *mockMaterialRepo) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.ReadingMaterial, error) {
	material, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	// Mirror the Preload the real repository does
	if classroom, ok := r.classrooms.byID[material.ClassRoomID]; ok {
		material.ClassRoom = *classroom
	}
	return material, nil
}

func (r *mockMaterialRepo) Delete(_ context.Context, _ *gorm.DB, id uint) error {
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *mockMaterialRepo) ListByUploader(_ context.Context, _ *gorm.DB, classroomID, uploaderID uint) ([]*models.ReadingMaterial, error) {
	var out []*models.ReadingMaterial
	for _, m := range r.byID {
		if m.ClassRoomID == classroomID && m.UploaderID == uploaderID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockMaterialRepo) ListByClassroom(_ context.Context, _ *gorm.DB, classroomID uint) ([]*models.ReadingMaterial, error) {
	var out []*models.ReadingMaterial
	for _, m := range r.byID {
		if m.ClassRoomID == classroomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== READING INFO =====

// mockReadingInfoRepo returns snapshots on reads and keeps a per-material
// lock table so transactions can serialize the way FOR UPDATE does.
type mockReadingInfoRepo struct {
	mu         sync.Mutex
	byMaterial map[uint]*models.ReadingInfo
	nextID     uint
	rowLocks   map[uint]*sync.Mutex
}

func cloneReadingInfo(info *models.ReadingInfo) *models.ReadingInfo {
	clone := *info
	clone.MaterialInfo = map[string]interface{}{}
	for k, v := range info.MaterialInfo {
		clone.MaterialInfo[k] = v
	}
	return &clone
}

// lockRow blocks until the per-material lock is free and returns it locked.
func (r *mockReadingInfoRepo) lockRow(materialID uint) *sync.Mutex {
	r.mu.Lock()
	if r.rowLocks == nil {
		r.rowLocks = map[uint]*sync.Mutex{}
	}
	l, ok := r.rowLocks[materialID]
	if !ok {
		l = &sync.Mutex{}
		r.rowLocks[materialID] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l
}

func (r *mockReadingInfoRepo) GetByMaterial(_ context.Context, _ *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byMaterial[materialID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneReadingInfo(info), nil
}

// GetByMaterialForUpdate without a transaction degrades to a plain read.
func (r *mockReadingInfoRepo) GetByMaterialForUpdate(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	return r.GetByMaterial(ctx, tx, materialID)
}

func (r *mockReadingInfoRepo) Upsert(_ context.Context, _ *gorm.DB, info *models.ReadingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.ID == 0 {
		if _, exists := r.byMaterial[info.MaterialID]; exists {
			return fmt.Errorf("reading_infos_material_id_key: %w", repositories.ErrDuplicateKey)
		}
		r.nextID++
		info.ID = r.nextID
	}
	r.byMaterial[info.MaterialID] = cloneReadingInfo(info)
	return nil
}

// txReadingInfoRepo is the transaction-scoped view: reads for update take the
// row lock and park it on the transaction until it ends.
type txReadingInfoRepo struct {
	repo *mockReadingInfoRepo
	tx   *mockTxRepo
}

func (t *txReadingInfoRepo) GetByMaterial(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	return t.repo.GetByMaterial(ctx, tx, materialID)
}

func (t *txReadingInfoRepo) GetByMaterialForUpdate(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	t.tx.held = append(t.tx.held, t.repo.lockRow(materialID))
	return t.repo.GetByMaterial(ctx, tx, materialID)
}

func (t *txReadingInfoRepo) Upsert(ctx context.Context, tx *gorm.DB, info *models.ReadingInfo) error {
	return t.repo.Upsert(ctx, tx, info)
}

package validator

// SignUpRequest creates a new account. Password mismatch and duplicate
// username are reported distinctly.
type SignUpRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150,alphanum"`
	FullName        string `json:"full_name" validate:"omitempty,max=100"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ClassroomCreateRequest carries the class-creation form (name + section);
// the join code is generated server-side.
type ClassroomCreateRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Section int    `json:"section" validate:"required,min=1"`
}

// ClassroomJoinRequest carries the join code typed by a student.
type ClassroomJoinRequest struct {
	Code string `json:"code" validate:"required,class_code"`
}

// MaterialUploadRequest carries the metadata of a multipart upload; the file
// itself is validated against the extension allow-list by the storage layer.
type MaterialUploadRequest struct {
	Name string `form:"name" validate:"required,min=1,max=100"`
}

// ReadingTimeRequest records the seconds a student spent on a material.
type ReadingTimeRequest struct {
	Seconds int `json:"seconds" validate:"required,min=1,max=86400"`
}

package services

import (
	"errors"
	"fmt"

	"github.com/campuskit/classroom-service/internal/validator"
)

// ValidationErrors is re-exported so handlers can match it with errors.As.
type ValidationErrors = validator.ValidationErrors

var (
	// Classroom errors
	ErrClassroomNotFound = errors.New("classroom not found")
	ErrClassCodeNotFound = errors.New("no class found with that code")
	ErrOwnTeacherJoin    = errors.New("you are the teacher of this class")
	ErrCodeGeneration    = errors.New("could not generate a unique class code")

	// Material errors
	ErrMaterialNotFound = errors.New("reading material not found")
	ErrReadingInfoEmpty = errors.New("no reading info recorded for this material")

	// Account errors
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// PermissionError is returned when a user acts on a resource they do not own.
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError carries a domain rule violation with context.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/campuskit/classroom-service/internal/repositories"
)

// ExportRoster renders the classroom's student set as an xlsx workbook.
// Only the owning teacher can export.
func (s *classroomService) ExportRoster(ctx context.Context, id, teacherID uint) (*RosterExport, error) {
	classroom, err := s.repo.Classroom().GetByTeacher(ctx, s.db, id, teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPermissionError(teacherID, id, "classroom", "export_roster", "not the teacher of this classroom")
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}

	students, err := s.repo.Classroom().ListStudents(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Roster"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"#", "Username", "Full Name", "Joined"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write roster header: %w", err)
		}
	}

	for row, student := range students {
		values := []interface{}{
			row + 1,
			student.Username,
			student.FullName,
			student.CreatedAt.Format("2006-01-02"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write roster row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render roster workbook: %w", err)
	}

	s.logger.Info("Roster exported",
		"classroom_id", id, "teacher_id", teacherID, "students", len(students))

	return &RosterExport{
		FileName: fmt.Sprintf("%s-%d-roster.xlsx", classroom.Name, classroom.Section),
		Content:  buf.Bytes(),
	}, nil
}

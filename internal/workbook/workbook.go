// Package workbook appends fixture rows to Excel sheets.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/opencart-qa/internal/model"
)

// TimeLayout formats timestamps written to sheets.
const TimeLayout = "2006-01-02 15:04:05"

// Header rows of the fixture sheets.
var (
	RegisteredUserHeaders = []string{"First Name", "Last Name", "Email", "Telephone", "Password", "Confirm Password", "Created At"}
	UserDataHeaders       = []string{"Business Name", "Username", "Password"}
)

// Sheet is the active sheet of the workbook at Path.
type Sheet struct {
	Path    string
	Headers []string
}

// Append writes values as a new row after the last used row. A missing
// workbook is created with the header row first; existing rows are never
// overwritten.
func (s Sheet) Append(values ...any) error {
	if s.Path == "" {
		return errors.New("workbook path is required")
	}

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.Path, err)
	}
	next := len(rows) + 1

	if created && len(s.Headers) > 0 {
		header := make([]any, len(s.Headers))
		for i, h := range s.Headers {
			header[i] = h
		}
		if err := setRow(f, sheet, next, header); err != nil {
			return err
		}
		next++
	}

	if err := setRow(f, sheet, next, values); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating workbook directory: %w", err)
	}
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("saving %s: %w", s.Path, err)
	}
	return nil
}

// Rows returns every row of the active sheet, header included.
func (s Sheet) Rows() ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return rows, nil
}

func (s Sheet) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.Path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	return excelize.NewFile(), true, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

// AppendRegisteredUser appends u to the registered users sheet at path.
// A zero CreatedAt is written as the current time.
func AppendRegisteredUser(path string, u model.RegisteredUser) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Sheet{Path: path, Headers: RegisteredUserHeaders}.Append(
		u.FirstName,
		u.LastName,
		u.Email,
		u.Telephone,
		u.Password,
		u.ConfirmPassword,
		created.Format(TimeLayout),
	)
}

// AppendUserData appends u to the user data sheet at path.
func AppendUserData(path string, u model.UserData) error {
	return Sheet{Path: path, Headers: UserDataHeaders}.Append(
		u.BusinessName,
		u.Username,
		u.Password,
	)
}

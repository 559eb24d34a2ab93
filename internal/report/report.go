// Package report exports a host's booking history to an Excel
// workbook, one sheet per booking status.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"slotwise/internal/models"
	"slotwise/internal/store"
	"slotwise/internal/timeutil"
)

// Store is the repository surface the exporter reads.
type Store interface {
	GetHost(ctx context.Context, id int64) (*models.Host, error)
	ListBookings(ctx context.Context, hostID int64, f store.BookingFilter) ([]models.Booking, error)
}

// Exporter writes booking reports.
type Exporter struct {
	store Store
}

// NewExporter creates an exporter.
func NewExporter(st Store) *Exporter {
	return &Exporter{store: st}
}

var reportColumns = []string{
	"ID", "Client", "Email", "Phone", "Start (local)", "End (local)", "Status", "Notes", "Created",
}

var sheetOrder = []string{models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled}

// WriteXLSX writes the host's bookings in [from, to) as an xlsx
// workbook to w. Times are rendered in the host's zone.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer, hostID int64, from, to time.Time) error {
	host, err := e.store.GetHost(ctx, hostID)
	if err != nil {
		return err
	}
	loc, _ := timeutil.LoadZone(host.Timezone)

	bookings, err := e.store.ListBookings(ctx, hostID, store.BookingFilter{From: from, To: to})
	if err != nil {
		return fmt.Errorf("export bookings: %w", err)
	}

	byStatus := map[string][]models.Booking{}
	for _, b := range bookings {
		byStatus[b.Status] = append(byStatus[b.Status], b)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, status := range sheetOrder {
		sheet := sheetName(status)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, headerStyle, byStatus[status], loc); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, bookings []models.Booking, loc *time.Location) error {
	for col, name := range reportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(reportColumns), 1)
	_ = f.SetCellStyle(sheet, "A1", endCell, headerStyle)

	for row, b := range bookings {
		values := []any{
			b.ID,
			b.ClientName,
			b.ClientEmail,
			b.ClientPhone,
			b.StartUTC.In(loc).Format("2006-01-02 15:04"),
			b.EndUTC.In(loc).Format("2006-01-02 15:04"),
			b.Status,
			b.Notes,
			b.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func sheetName(status string) string {
	switch status {
	case models.StatusConfirmed:
		return "Confirmed"
	case models.StatusCompleted:
		return "Completed"
	case models.StatusCancelled:
		return "Cancelled"
	}
	return status
}

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

const waitlistSheet = "Waitlist"

var waitlistHeaders = []string{
	"Rank",
	"Application ID",
	"Beneficiary ID",
	"Score",
	"Sectors",
	"Dependents",
	"Residency",
	"Income",
	"Submitted At",
	"Weight Version",
}

// WaitlistExporter writes a program ranking as an xlsx workbook
type WaitlistExporter struct {
	logger *zap.Logger
}

// NewWaitlistExporter creates a new exporter
func NewWaitlistExporter(logger *zap.Logger) *WaitlistExporter {
	return &WaitlistExporter{logger: logger}
}

// Write renders entries in the order given, one row per entry
func (e *WaitlistExporter) Write(w io.Writer, programID string, entries []entity.RankedEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", waitlistSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range waitlistHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(waitlistSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(waitlistHeaders), 1)
	if err := f.SetCellStyle(waitlistSheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, entry := range entries {
		row := []interface{}{
			entry.Rank,
			entry.ApplicationID,
			entry.BeneficiaryID,
			entry.Score,
			entry.Breakdown.Sectors,
			entry.Breakdown.Dependents,
			entry.Breakdown.Residency,
			entry.Breakdown.Income,
			entry.SubmittedAt.Format(time.RFC3339),
			entry.WeightVersion,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(waitlistSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(waitlistSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Waitlist exported",
		zap.String("program_id", programID),
		zap.Int("entries", len(entries)))
	return nil
}

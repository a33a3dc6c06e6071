// Package export renders movements as a spreadsheet for offline archiving.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/cautela/internal/model"
)

// SheetName is the worksheet holding the movement rows.
const SheetName = "Cautelas"

// Columns are the header cells, in the order the remote sheet uses.
var Columns = []string{
	"ID", "BM", "Nome", "Nome Guerra", "Posto", "Material", "Categoria", "Origem",
	"Data Saída", "Previsão", "Motivo", "Status", "Data Retorno", "Obs",
	"Recebedor BM", "Recebedor Nome", "Recebedor Guerra", "Recebedor Posto",
	"Plantonista BM", "Plantonista Nome", "Plantonista do Dia",
}

const timeLayout = "02/01/2006 15:04"

// Row returns the cell values for one movement.
func Row(m model.Movement) []any {
	returned := ""
	if m.ReturnedAt != nil {
		returned = m.ReturnedAt.Format(timeLayout)
	}
	duty := ""
	if m.DutyOfficerName != "" {
		duty = fmt.Sprintf("%s (%s)", m.DutyOfficerName, m.DutyOfficerBM)
	}
	return []any{
		m.ID, m.BM, m.Name, m.WarName, m.Rank, m.Material, string(m.Type), m.EffectiveOrigin(),
		m.CheckedOutAt.Format(timeLayout), m.EstimatedReturn.String(), m.Reason, string(m.Status),
		returned, m.Observations,
		m.ReceiverBM, m.ReceiverName, m.ReceiverWarName, m.ReceiverRank,
		m.DutyOfficerBM, m.DutyOfficerName, duty,
	}
}

// WriteXLSX writes records to w as an xlsx workbook with a bold header row.
func WriteXLSX(w io.Writer, records []model.Movement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, m := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := Row(m)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing movement %s: %w", m.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

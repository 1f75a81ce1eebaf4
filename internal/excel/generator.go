// Package excel renders a contract's receivable schedule as a workbook
// for the professional's bookkeeping.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/priceus/contracts-service/internal/model"
	"github.com/priceus/contracts-service/internal/template"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(contract *model.Contract, receivables []model.Receivable) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Recebíveis"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Cliente")
	set("B1", contract.LeadData.ClientName)
	set("A2", "Contrato")
	set("B2", contract.ID.String())
	set("A3", "Status")
	set("B3", string(contract.Status))
	set("A4", "Valor total")
	set("B4", template.FormatCurrency(contract.LeadData.TotalValue))
	if contract.SignedAt != nil {
		set("A5", "Assinado em")
		set("B5", template.FormatTime(*contract.SignedAt))
	}

	tableRow := 7
	headers := []string{"Parcela", "Descrição", "Vencimento", "Valor", "Forma de pagamento", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	total := 0.0
	for i, receivable := range receivables {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), fmt.Sprintf("%d/%d", receivable.SequenceNumber, receivable.TotalCount))
		set(fmt.Sprintf("B%d", row), receivable.Description)
		set(fmt.Sprintf("C%d", row), template.FormatTime(receivable.DueDate))
		set(fmt.Sprintf("D%d", row), template.FormatCurrency(receivable.Amount))
		set(fmt.Sprintf("E%d", row), receivable.PaymentMethod)
		set(fmt.Sprintf("F%d", row), string(receivable.Status))
		total += receivable.Amount
	}

	totalRow := tableRow + len(receivables) + 2
	set(fmt.Sprintf("A%d", totalRow), "Total agendado")
	set(fmt.Sprintf("D%d", totalRow), template.FormatCurrency(total))

	_ = file.SetColWidth(sheet, "A", "A", 10)
	_ = file.SetColWidth(sheet, "B", "B", 45)
	_ = file.SetColWidth(sheet, "C", "F", 20)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

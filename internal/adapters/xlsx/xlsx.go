// Package xlsx exporta el listado de variantes a Excel y lee planillas del
// sistema anterior para importarlas.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/usecase"
)

const VariantsSheet = "Variantes"

var exportHeader = []any{"Producto", "Código", "Variante", "SKU", "Código de barras", "Atributos", "Precio", "Stock"}

// ExportVariants escribe una hoja con una fila por variante.
func ExportVariants(w io.Writer, p *domain.Product, variants []domain.Variant) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", VariantsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(VariantsSheet, "A1", &exportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(VariantsSheet, 1, 1, bold); err != nil {
		return err
	}
	code := ""
	if p.Code != nil {
		code = *p.Code
	}
	for i, v := range variants {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			p.Name,
			code,
			v.Name,
			v.SKU,
			v.BarcodeString(),
			formatAttributes(v.AttributeValues),
			v.UnitPrice.InexactFloat64(),
			v.Stock,
		}
		if err := f.SetSheetRow(VariantsSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(VariantsSheet, "A", "F", 22); err != nil {
		return err
	}
	return f.Write(w)
}

func formatAttributes(set domain.AttributeSet) string {
	parts := make([]string, 0, set.Len())
	for _, p := range set.Pairs() {
		parts = append(parts, p.Attribute+"="+p.Value)
	}
	return strings.Join(parts, "; ")
}

// ReadLegacyRows lee la primera hoja con columnas A nombre de variante,
// B precio, C stock y D código de barras. Una fila de encabezado se ignora.
func ReadLegacyRows(r io.Reader) ([]usecase.LegacyRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("abrir xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.Invalid("planilla sin hojas")
	}
	// valores crudos: una celda numérica con formato "#,##0.00" llega como 1500
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	out := make([]usecase.LegacyRow, 0, len(rows))
	for i, row := range rows {
		name := cellAt(row, 0)
		if name == "" {
			continue
		}
		if i == 0 && isHeader(name) {
			continue
		}
		price, err := readPrice(f, sheets[0], i+1, cellAt(row, 1))
		if err != nil {
			return nil, domain.Invalid("fila %d: precio %q", i+1, cellAt(row, 1))
		}
		stock := mapStock(cellAt(row, 2))
		out = append(out, usecase.LegacyRow{Name: name, Price: price, Stock: stock, Barcode: cellAt(row, 3)})
	}
	log.Debug().Int("filas", len(out)).Str("hoja", sheets[0]).Msg("planilla heredada leída")
	return out, nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isHeader(s string) bool {
	switch strings.ToLower(s) {
	case "variante", "nombre", "name", "variant":
		return true
	}
	return false
}

// readPrice toma el número tal cual cuando la celda es numérica y sólo aplica
// la heurística de separadores a celdas de texto.
func readPrice(f *excelize.File, sheet string, rowNum int, raw string) (decimal.Decimal, error) {
	cell, err := excelize.CoordinatesToCellName(2, rowNum)
	if err != nil {
		return decimal.Zero, err
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return decimal.Zero, err
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if d, err := decimal.NewFromString(raw); err == nil {
			return d, nil
		}
	}
	return parsePrice(raw)
}

// parsePrice acepta "1500", "1500.50", "$ 1.500", "$ 1.500,50" y "1,500.00".
// Con un solo tipo de separador, si aparece una vez seguido de exactamente
// tres dígitos es de miles; si no, es el decimal.
func parsePrice(s string) (decimal.Decimal, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "$")
	t = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, t)
	if t == "" {
		return decimal.Zero, nil
	}
	dots, commas := strings.Count(t, "."), strings.Count(t, ",")
	switch {
	case dots > 0 && commas > 0:
		// el último separador es el decimal
		if strings.LastIndex(t, ",") > strings.LastIndex(t, ".") {
			t = strings.ReplaceAll(t, ".", "")
			t = strings.ReplaceAll(t, ",", ".")
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	case dots+commas > 1:
		t = strings.NewReplacer(".", "", ",", "").Replace(t)
	case dots+commas == 1:
		i := strings.IndexAny(t, ".,")
		if isThousands(t[:i], t[i+1:]) {
			t = t[:i] + t[i+1:]
		} else {
			t = t[:i] + "." + t[i+1:]
		}
	}
	return decimal.NewFromString(t)
}

func isThousands(before, after string) bool {
	if len(after) != 3 || !allDigits(after) {
		return false
	}
	before = strings.TrimPrefix(before, "-")
	return before != "" && before != "0" && allDigits(before)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// mapStock tolera celdas vacías o con texto; lo que no es número cuenta 0.
func mapStock(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

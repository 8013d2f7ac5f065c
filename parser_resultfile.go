package covidpipe

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// InstrumentDialect selects the vendor layout of a result file. Dispatch is
// on the step's "Instrument Used" field.
type InstrumentDialect string

const (
	Dialect7500 InstrumentDialect = "7500"
	DialectQS7  InstrumentDialect = "quantstudio7"
)

// DialectForInstrument maps the step's instrument name to a parser dialect.
func DialectForInstrument(instrumentUsed string) (InstrumentDialect, error) {
	normalized := strings.ToLower(strings.TrimSpace(instrumentUsed))
	switch {
	case strings.HasPrefix(normalized, "7500"):
		// covers both "7500" and "7500-FAST"
		return Dialect7500, nil
	case strings.Contains(normalized, "quantstudio"):
		return DialectQS7, nil
	default:
		return "", fmt.Errorf("no result file dialect for instrument %q", instrumentUsed)
	}
}

// WellReading is one parsed sample well: the FAM Ct for the viral target and,
// where the instrument reports it, the VIC Ct of the internal control.
type WellReading struct {
	WellAlphaNum string
	SampleName   string
	FamCt        decimal.Decimal
	VicCt        decimal.Decimal
	HasVic       bool
}

// ParseError names the well (or file location) a result file could not be
// interpreted at.
type ParseError struct {
	Well   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Well == "" {
		return fmt.Sprintf("result file parse error: %s", e.Reason)
	}
	return fmt.Sprintf("result file parse error at well %s: %s", e.Well, e.Reason)
}

// ParseResultFile parses an instrument result workbook into per well
// readings.
func ParseResultFile(dialect InstrumentDialect, content []byte) ([]WellReading, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("can not open workbook: %v", err)}
	}
	defer workbook.Close()

	switch dialect {
	case Dialect7500:
		return parse7500(workbook)
	case DialectQS7:
		return parseQuantStudio(workbook)
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unknown dialect %q", dialect)}
	}
}

// parseCt turns an instrument Ct cell into a decimal. "Undetermined" and
// blank both mean no amplification and are mapped to 0.
func parseCt(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "undetermined") {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(trimmed)
}

// wellFromNumeric converts a 1-based running well number on a 96 well plate
// to the alphanumeric form.
func wellFromNumeric(number int) string {
	row := (number - 1) / 12
	column := (number-1)%12 + 1
	return fmt.Sprintf("%c%d", 'A'+row, column)
}

const dialect7500SkipRows = 7

// parse7500 reads the 7500 / 7500-FAST layout: sheet "Results", data table
// after a fixed preamble, one row per well. The Ct column is addressed by
// position because its header contains a non-ASCII character.
func parse7500(workbook *excelize.File) ([]WellReading, error) {
	rows, err := workbook.GetRows("Results")
	if err != nil {
		return nil, &ParseError{Reason: "sheet Results is missing"}
	}
	if len(rows) <= dialect7500SkipRows+1 {
		return nil, &ParseError{Reason: "data table is missing"}
	}

	header := rows[dialect7500SkipRows]
	columnIndex := func(name string) int {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), name) {
				return i
			}
		}
		return -1
	}
	wellIdx := columnIndex("Well")
	sampleIdx := columnIndex("Sample Name")
	targetIdx := columnIndex("Target Name")
	const ctIdx = 5
	if wellIdx < 0 || sampleIdx < 0 || targetIdx < 0 {
		return nil, &ParseError{Reason: "header row is missing Well, Sample Name or Target Name"}
	}

	var readings []WellReading
	for _, row := range rows[dialect7500SkipRows+1:] {
		if wellIdx >= len(row) || strings.TrimSpace(row[wellIdx]) == "" {
			continue
		}
		wellCell := strings.TrimSpace(row[wellIdx])
		well := wellCell
		if number, err := strconv.Atoi(wellCell); err == nil {
			well = wellFromNumeric(number)
		}

		sampleName := cellAt(row, sampleIdx)
		targetName := cellAt(row, targetIdx)
		if sampleName == "" {
			return nil, &ParseError{Well: well, Reason: "sample name is empty"}
		}
		if targetName != sampleName {
			return nil, &ParseError{Well: well, Reason: fmt.Sprintf("target name %q does not match sample name %q", targetName, sampleName)}
		}

		famCt, err := parseCt(cellAt(row, ctIdx))
		if err != nil {
			return nil, &ParseError{Well: well, Reason: fmt.Sprintf("can not parse Ct: %v", err)}
		}
		readings = append(readings, WellReading{
			WellAlphaNum: well,
			SampleName:   sampleName,
			FamCt:        famCt,
		})
	}
	if len(readings) == 0 {
		return nil, &ParseError{Reason: "no sample rows found"}
	}
	return readings, nil
}

// parseQuantStudio reads the QuantStudio 7 layout: variable preamble, header
// located by scanning for the Well / Well Position pair, and one FAM plus one
// VIC row per sample that are joined into a single reading.
func parseQuantStudio(workbook *excelize.File) ([]WellReading, error) {
	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "workbook has no sheets"}
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("can not read sheet %s", sheets[0])}
	}

	headerRow := -1
	for i, row := range rows {
		if len(row) >= 2 &&
			strings.TrimSpace(row[0]) == "Well" &&
			strings.TrimSpace(row[1]) == "Well Position" {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, &ParseError{Reason: "header row with Well / Well Position not found"}
	}

	header := rows[headerRow]
	columnIndex := func(name string) int {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), name) {
				return i
			}
		}
		return -1
	}
	positionIdx := columnIndex("Well Position")
	sampleIdx := columnIndex("Sample Name")
	reporterIdx := columnIndex("Reporter")
	ctIdx := columnIndex("CT")
	if sampleIdx < 0 || reporterIdx < 0 || ctIdx < 0 {
		return nil, &ParseError{Reason: "header row is missing Sample Name, Reporter or CT"}
	}

	type sampleRows struct {
		well     string
		famCt    decimal.Decimal
		vicCt    decimal.Decimal
		famCount int
		vicCount int
	}
	samples := map[string]*sampleRows{}
	var order []string

	for _, row := range rows[headerRow+1:] {
		sampleName := cellAt(row, sampleIdx)
		if sampleName == "" {
			continue
		}
		well := cellAt(row, positionIdx)
		ct, err := parseCt(cellAt(row, ctIdx))
		if err != nil {
			return nil, &ParseError{Well: well, Reason: fmt.Sprintf("can not parse Ct: %v", err)}
		}
		entry, ok := samples[sampleName]
		if !ok {
			entry = &sampleRows{well: well}
			samples[sampleName] = entry
			order = append(order, sampleName)
		}
		switch reporter := cellAt(row, reporterIdx); reporter {
		case "FAM":
			entry.famCt = ct
			entry.famCount++
		case "VIC":
			entry.vicCt = ct
			entry.vicCount++
		default:
			return nil, &ParseError{Well: well, Reason: fmt.Sprintf("unexpected reporter %q", reporter)}
		}
	}
	if len(samples) == 0 {
		return nil, &ParseError{Reason: "no sample rows found"}
	}

	readings := make([]WellReading, 0, len(samples))
	for _, sampleName := range order {
		entry := samples[sampleName]
		if entry.famCount != 1 || entry.vicCount != 1 {
			return nil, &ParseError{
				Well:   entry.well,
				Reason: fmt.Sprintf("sample %q has %d FAM and %d VIC rows, expected exactly one each", sampleName, entry.famCount, entry.vicCount),
			}
		}
		readings = append(readings, WellReading{
			WellAlphaNum: entry.well,
			SampleName:   sampleName,
			FamCt:        entry.famCt,
			VicCt:        entry.vicCt,
			HasVic:       true,
		})
	}
	return readings, nil
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

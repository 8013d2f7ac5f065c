package covidpipe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/snpseq/covidpipe/utils"
)

// Biobank barcode list: maps plate wells to biobank tube barcodes.
type BiobankBarcodeRow struct {
	Well           string
	BiobankBarcode string
	PlateBarcode   string
}

func ParseBiobankBarcodeList(content []byte) ([]BiobankBarcodeRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("can not parse biobank barcode list: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("biobank barcode list has no rows")
	}
	header := records[0]
	wellIdx := headerIndex(header, "well")
	barcodeIdx := headerIndex(header, "biobank_barcode")
	plateIdx := headerIndex(header, "plate_barcode")
	if wellIdx < 0 || barcodeIdx < 0 || plateIdx < 0 {
		return nil, fmt.Errorf("biobank barcode list header is incomplete")
	}
	rows := make([]BiobankBarcodeRow, 0, len(records)-1)
	for _, record := range records[1:] {
		well := csvCell(record, wellIdx)
		if well == "" {
			continue
		}
		rows = append(rows, BiobankBarcodeRow{
			Well:           well,
			BiobankBarcode: csvCell(record, barcodeIdx),
			PlateBarcode:   csvCell(record, plateIdx),
		})
	}
	return rows, nil
}

// Closed vocabularies of the sequencing samplesheet. The sequencing hub
// rejects sheets with values outside these sets.
var (
	samplesheetRegionCodes = []string{
		"01", "03", "04", "05", "06", "07", "08", "09", "10", "12", "13",
		"14", "17", "18", "19", "20", "21", "22", "23", "24", "25",
	}
	samplesheetLabCodes          = []string{"SE110", "SE120", "SE240", "SE320", "SE450", "SE600"}
	samplesheetSelectionCriteria = []string{
		"allmän övervakning öppenvård",
		"allmän övervakning slutenvård",
		"riktad insamling",
		"utbrottsutredning",
		"vaccinationsgenombrott",
		"reinfektion",
		"information saknas",
	}
)

// SamplesheetRow is one sequencing candidate with up to five Ct values.
type SamplesheetRow struct {
	Well                    string
	SampleID                string
	RegionCode              string
	LabCode                 string
	SelectionCriteria       string
	SelectionCriteriaDetail string
	BiobankPlateID          string
	BiobankTubeID           string
	Ct                      [5]string
}

func (r *SamplesheetRow) validate() error {
	if !utils.SliceContains(r.RegionCode, samplesheetRegionCodes) {
		return &ValidationError{Field: "region_code", Reason: fmt.Sprintf("%q is not a region code", r.RegionCode)}
	}
	if !utils.SliceContains(r.LabCode, samplesheetLabCodes) {
		return &ValidationError{Field: "lab_code", Reason: fmt.Sprintf("%q is not a lab code", r.LabCode)}
	}
	if !utils.SliceContains(strings.ToLower(r.SelectionCriteria), samplesheetSelectionCriteria) {
		return &ValidationError{Field: "selection_criteria", Reason: fmt.Sprintf("%q is not a selection criterion", r.SelectionCriteria)}
	}
	return nil
}

var samplesheetHeader = []string{
	"well", "sample_id", "region_code", "lab_code", "selection_criteria",
	"selection_criteria_detail", "biobank_plate_id", "biobank_tube_id",
	"Ct_1", "Ct_2", "Ct_3", "Ct_4", "Ct_5",
}

// RenderSamplesheet writes the sequencing samplesheet, validating every row
// against the closed vocabularies first.
func RenderSamplesheet(rows []SamplesheetRow) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.Write(samplesheetHeader); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := rows[i].validate(); err != nil {
			return nil, fmt.Errorf("samplesheet row %d (%s): %w", i+1, rows[i].SampleID, err)
		}
		record := []string{
			rows[i].Well,
			rows[i].SampleID,
			rows[i].RegionCode,
			rows[i].LabCode,
			rows[i].SelectionCriteria,
			rows[i].SelectionCriteriaDetail,
			rows[i].BiobankPlateID,
			rows[i].BiobankTubeID,
		}
		record = append(record, rows[i].Ct[:]...)
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buffer.Bytes(), writer.Error()
}

package covidpipe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// RowStatus is the per row outcome of sample list validation.
type RowStatus string

const (
	RowStatusOK           RowStatus = "ok"
	RowStatusError        RowStatus = "error"
	RowStatusUnregistered RowStatus = "unregistered"
)

// rawListSentinel ends the data section of an exported tracking report.
const rawListSentinel = "Sample Tracking Report Name"

// RawSampleRow is one row of the raw sample list as exported by the picking
// robot. Columns other than the ones below are ignored.
type RawSampleRow struct {
	RackID     string
	Position   string
	SampleID   string
	FakeStatus string
}

// ValidatedSampleRow extends a raw row with the validation outcome.
type ValidatedSampleRow struct {
	SampleID         string
	Position         string
	Status           RowStatus
	ServiceRequestID string
	OrgURI           string
	Comment          string
}

func headerIndex(header []string, name string) int {
	for i, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cell), name) {
			return i
		}
	}
	return -1
}

func csvCell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// ParseRawSampleList reads the raw sample list. Parsing stops at the
// sentinel row the export tooling appends after the data section.
func ParseRawSampleList(content []byte) ([]RawSampleRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("can not parse raw sample list: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("raw sample list is empty")
	}

	header := records[0]
	rackIdx := headerIndex(header, "Rack Id")
	positionIdx := headerIndex(header, "Position")
	sampleIdx := headerIndex(header, "Sample Id")
	fakeStatusIdx := headerIndex(header, "fake_status")
	if rackIdx < 0 || positionIdx < 0 || sampleIdx < 0 {
		return nil, fmt.Errorf("raw sample list header is missing Rack Id, Position or Sample Id")
	}

	var rows []RawSampleRow
	for _, record := range records[1:] {
		if len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), rawListSentinel) {
			break
		}
		sampleID := csvCell(record, sampleIdx)
		if sampleID == "" {
			continue
		}
		rows = append(rows, RawSampleRow{
			RackID:     csvCell(record, rackIdx),
			Position:   csvCell(record, positionIdx),
			SampleID:   sampleID,
			FakeStatus: csvCell(record, fakeStatusIdx),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("raw sample list has no sample rows")
	}
	return rows, nil
}

var validatedListHeader = []string{"Sample Id", "Position", "status", "service_request_id", "org_uri", "comment"}

// ParseValidatedSampleList reads a validated sample list and enforces the
// row invariant: status ok if and only if a service request id is present.
func ParseValidatedSampleList(content []byte) ([]ValidatedSampleRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("can not parse validated sample list: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("validated sample list has no rows")
	}

	header := records[0]
	sampleIdx := headerIndex(header, "Sample Id")
	positionIdx := headerIndex(header, "Position")
	statusIdx := headerIndex(header, "status")
	requestIdx := headerIndex(header, "service_request_id")
	orgIdx := headerIndex(header, "org_uri")
	commentIdx := headerIndex(header, "comment")
	if sampleIdx < 0 || positionIdx < 0 || statusIdx < 0 || requestIdx < 0 || orgIdx < 0 {
		return nil, fmt.Errorf("validated sample list header is incomplete")
	}

	rows := make([]ValidatedSampleRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row := ValidatedSampleRow{
			SampleID:         csvCell(record, sampleIdx),
			Position:         csvCell(record, positionIdx),
			Status:           RowStatus(csvCell(record, statusIdx)),
			ServiceRequestID: csvCell(record, requestIdx),
			OrgURI:           csvCell(record, orgIdx),
			Comment:          csvCell(record, commentIdx),
		}
		switch row.Status {
		case RowStatusOK, RowStatusError, RowStatusUnregistered:
		default:
			return nil, fmt.Errorf("row %d: unknown status %q", i+1, row.Status)
		}
		if (row.Status == RowStatusOK) != (row.ServiceRequestID != "") {
			return nil, fmt.Errorf("row %d (%s): status %q does not agree with service_request_id %q",
				i+1, row.SampleID, row.Status, row.ServiceRequestID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RenderValidatedSampleList writes a validated sample list in the boundary
// CSV format.
func RenderValidatedSampleList(rows []ValidatedSampleRow) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.Write(validatedListHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.SampleID,
			row.Position,
			string(row.Status),
			row.ServiceRequestID,
			row.OrgURI,
			row.Comment,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buffer.Bytes(), writer.Error()
}

package covidpipe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDialectForInstrument(t *testing.T) {
	dialect, err := DialectForInstrument("7500")
	assert.Nil(t, err)
	assert.Equal(t, Dialect7500, dialect)

	dialect, err = DialectForInstrument("7500-FAST")
	assert.Nil(t, err)
	assert.Equal(t, Dialect7500, dialect)

	dialect, err = DialectForInstrument("QuantStudio 7")
	assert.Nil(t, err)
	assert.Equal(t, DialectQS7, dialect)

	_, err = DialectForInstrument("LightCycler 480")
	assert.NotNil(t, err)
}

func build7500Workbook(t *testing.T, dataRows [][]interface{}) []byte {
	t.Helper()
	workbook := excelize.NewFile()
	require.Nil(t, workbook.SetSheetName("Sheet1", "Results"))

	require.Nil(t, workbook.SetSheetRow("Results", "A1", &[]interface{}{"Block Type", "96-Well Block"}))
	require.Nil(t, workbook.SetSheetRow("Results", "A2", &[]interface{}{"Chemistry", "TAQMAN"}))
	require.Nil(t, workbook.SetSheetRow("Results", "A8",
		&[]interface{}{"Well", "Sample Name", "Target Name", "Task", "Reporter", "Cт"}))
	for i, row := range dataRows {
		cell := fmt.Sprintf("A%d", 9+i)
		require.Nil(t, workbook.SetSheetRow("Results", cell, &row))
	}

	buffer, err := workbook.WriteToBuffer()
	require.Nil(t, err)
	return buffer.Bytes()
}

func buildQuantStudioWorkbook(t *testing.T, dataRows [][]interface{}) []byte {
	t.Helper()
	workbook := excelize.NewFile()

	require.Nil(t, workbook.SetSheetRow("Sheet1", "A1", &[]interface{}{"Experiment Name", "covid-run"}))
	require.Nil(t, workbook.SetSheetRow("Sheet1", "A5",
		&[]interface{}{"Well", "Well Position", "Sample Name", "Reporter", "CT"}))
	for i, row := range dataRows {
		cell := fmt.Sprintf("A%d", 6+i)
		require.Nil(t, workbook.SetSheetRow("Sheet1", cell, &row))
	}

	buffer, err := workbook.WriteToBuffer()
	require.Nil(t, err)
	return buffer.Bytes()
}

func TestParse7500ResultFile(t *testing.T) {
	content := build7500Workbook(t, [][]interface{}{
		{1, "sample-a", "sample-a", "UNKNOWN", "FAM", "25"},
		{2, "sample-b", "sample-b", "UNKNOWN", "FAM", "Undetermined"},
		{13, "sample-c", "sample-c", "UNKNOWN", "FAM", "41.3"},
	})

	readings, err := ParseResultFile(Dialect7500, content)
	assert.Nil(t, err)
	require.Len(t, readings, 3)

	assert.Equal(t, "A1", readings[0].WellAlphaNum)
	assert.Equal(t, "sample-a", readings[0].SampleName)
	assert.Equal(t, "25", readings[0].FamCt.String())
	assert.False(t, readings[0].HasVic)

	assert.Equal(t, "A2", readings[1].WellAlphaNum)
	assert.True(t, readings[1].FamCt.IsZero(), "Undetermined maps to zero")

	assert.Equal(t, "B1", readings[2].WellAlphaNum)
	assert.Equal(t, "41.3", readings[2].FamCt.String())
}

func TestParse7500RejectsTargetSampleMismatch(t *testing.T) {
	content := build7500Workbook(t, [][]interface{}{
		{1, "sample-a", "sample-b", "UNKNOWN", "FAM", "25"},
	})

	_, err := ParseResultFile(Dialect7500, content)
	assert.NotNil(t, err)
	assert.IsType(t, &ParseError{}, err)
}

func TestParseQuantStudioResultFile(t *testing.T) {
	content := buildQuantStudioWorkbook(t, [][]interface{}{
		{1, "A1", "sample-a", "FAM", "20"},
		{1, "A1", "sample-a", "VIC", "27.5"},
		{2, "A2", "sample-b", "FAM", "Undetermined"},
		{2, "A2", "sample-b", "VIC", "26"},
	})

	readings, err := ParseResultFile(DialectQS7, content)
	assert.Nil(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "A1", readings[0].WellAlphaNum)
	assert.Equal(t, "sample-a", readings[0].SampleName)
	assert.Equal(t, "20", readings[0].FamCt.String())
	assert.Equal(t, "27.5", readings[0].VicCt.String())
	assert.True(t, readings[0].HasVic)

	assert.Equal(t, "sample-b", readings[1].SampleName)
	assert.True(t, readings[1].FamCt.IsZero())
	assert.Equal(t, "26", readings[1].VicCt.String())
}

func TestParseQuantStudioPreservesFileOrder(t *testing.T) {
	content := buildQuantStudioWorkbook(t, [][]interface{}{
		{1, "H12", "zulu", "FAM", "20"},
		{1, "H12", "zulu", "VIC", "27"},
		{2, "A1", "alpha", "FAM", "21"},
		{2, "A1", "alpha", "VIC", "28"},
	})

	readings, err := ParseResultFile(DialectQS7, content)
	assert.Nil(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "zulu", readings[0].SampleName)
	assert.Equal(t, "alpha", readings[1].SampleName)
}

func TestParseQuantStudioRejectsIncompleteReporterPair(t *testing.T) {
	content := buildQuantStudioWorkbook(t, [][]interface{}{
		{1, "A1", "sample-a", "FAM", "20"},
	})

	_, err := ParseResultFile(DialectQS7, content)
	assert.NotNil(t, err)

	content = buildQuantStudioWorkbook(t, [][]interface{}{
		{1, "A1", "sample-a", "FAM", "20"},
		{1, "A1", "sample-a", "FAM", "21"},
		{1, "A1", "sample-a", "VIC", "27"},
	})

	_, err = ParseResultFile(DialectQS7, content)
	assert.NotNil(t, err, "duplicate FAM row for one sample")
}

func TestParseResultFileRejectsGarbage(t *testing.T) {
	_, err := ParseResultFile(Dialect7500, []byte("not a workbook"))
	assert.NotNil(t, err)
	assert.IsType(t, &ParseError{}, err)
}

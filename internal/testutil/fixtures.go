// Package testutil 提供测试辅助工具
package testutil

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/unidoc/unioffice/spreadsheet"
)

// BuildCSV 由表头和数据行构建 CSV 文件内容
func BuildCSV(t *testing.T, header []string, rows ...[]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("failed to write csv header: %v", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			t.Fatalf("failed to write csv row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("failed to flush csv: %v", err)
	}
	return buf.Bytes()
}

// BuildXLSX 由表头和数据行构建单工作表的 xlsx 文件内容
func BuildXLSX(t *testing.T, header []string, rows ...[]string) []byte {
	t.Helper()

	wb := spreadsheet.New()
	defer wb.Close()

	sheet := wb.AddSheet()
	writeRow := func(values []string) {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	writeRow(header)
	for _, r := range rows {
		writeRow(r)
	}

	var buf bytes.Buffer
	if err := wb.Save(&buf); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return buf.Bytes()
}

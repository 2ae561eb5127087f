// Package ingest 提供问答表格文件的摄取管线
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/askbase/askbase/internal/service/types"
	"github.com/unidoc/unioffice/spreadsheet"
)

// ParsedAnswer 一行中的一个非空答案（保留原始列号用于确定性 ID）
type ParsedAnswer struct {
	ColumnIndex int
	Text        string
}

// ParsedRow 一行问答数据
type ParsedRow struct {
	Index    int // 文件内行号（表头后第一行为 1）
	Question string
	Answers  []ParsedAnswer
}

// ParsedFile 解析后的表格文件
type ParsedFile struct {
	Rows []ParsedRow
}

// QuestionCount 含有效答案的问题行数
func (f *ParsedFile) QuestionCount() int {
	n := 0
	for _, row := range f.Rows {
		if len(row.Answers) > 0 {
			n++
		}
	}
	return n
}

// RecordCount 可生成的问答记录总数（每个非空答案一条）
func (f *ParsedFile) RecordCount() int {
	n := 0
	for _, row := range f.Rows {
		n += len(row.Answers)
	}
	return n
}

// Parse 按扩展名解析表格文件
// 表头必须含问题列；无法识别的格式与缺失表头返回 ErrMalformedFile
func Parse(filename string, data []byte) (*ParsedFile, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", types.ErrMalformedFile, filepath.Ext(filename))
	}
}

// parseCSV 解析 CSV 表格
func parseCSV(data []byte) (*ParsedFile, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // 允许行宽不一致

	grid := make([][]string, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid csv: %v", types.ErrMalformedFile, err)
		}
		grid = append(grid, row)
	}

	return buildFromGrid(grid)
}

// parseXLSX 解析 Excel 表格（首个工作表）
func parseXLSX(data []byte) (*ParsedFile, error) {
	wb, err := spreadsheet.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid xlsx: %v", types.ErrMalformedFile, err)
	}

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", types.ErrMalformedFile)
	}

	grid := make([][]string, 0)
	for _, row := range sheets[0].Rows() {
		cells := row.Cells()
		values := make([]string, len(cells))
		for i, cell := range cells {
			values[i] = cell.GetString()
		}
		grid = append(grid, values)
	}

	return buildFromGrid(grid)
}

// buildFromGrid 由单元格矩阵构建问答行
// 第一非空行为表头：问题列按 "question" 识别，答案列按 "answer" 识别；
// 若无标注的答案列，则问题列之外的所有列都视为答案列
func buildFromGrid(grid [][]string) (*ParsedFile, error) {
	headerIdx := -1
	for i, row := range grid {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: file is empty", types.ErrMalformedFile)
	}

	header := grid[headerIdx]
	questionCol := -1
	answerCols := make([]int, 0, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		switch {
		case questionCol < 0 && strings.Contains(normalized, "question"):
			questionCol = i
		case strings.Contains(normalized, "answer"):
			answerCols = append(answerCols, i)
		}
	}
	if questionCol < 0 {
		return nil, fmt.Errorf("%w: question column not found in header", types.ErrMalformedFile)
	}
	if len(answerCols) == 0 {
		for i := range header {
			if i != questionCol {
				answerCols = append(answerCols, i)
			}
		}
	}
	if len(answerCols) == 0 {
		return nil, fmt.Errorf("%w: no answer columns in header", types.ErrMalformedFile)
	}

	parsed := &ParsedFile{Rows: make([]ParsedRow, 0, len(grid)-headerIdx-1)}
	for i := headerIdx + 1; i < len(grid); i++ {
		row := grid[i]
		if isBlankRow(row) {
			continue // 全空行跳过
		}

		question := cellAt(row, questionCol)
		if question == "" {
			continue // 无问题的行不可引用，跳过
		}

		answers := make([]ParsedAnswer, 0, len(answerCols))
		for _, col := range answerCols {
			if text := cellAt(row, col); text != "" {
				answers = append(answers, ParsedAnswer{ColumnIndex: col, Text: text})
			}
		}

		parsed.Rows = append(parsed.Rows, ParsedRow{
			Index:    i - headerIdx,
			Question: question,
			Answers:  answers,
		})
	}

	return parsed, nil
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

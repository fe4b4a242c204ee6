package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"placement-service/internal/models"
)

// Column layout of a question sheet, 0-based.
const (
	colSubject = iota
	colDifficulty
	colText
	colOptionA
	colOptionB
	colOptionC
	colOptionD
	colCorrect
	colExplanation
	colTags

	minColumns = colCorrect + 1
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // .xlsx or .csv
	SheetName string // defaults to the first sheet
	StartRow  int    // 1-based; defaults to 2 to skip the header
}

type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}

// QuestionImporter stores a validated batch of questions.
type QuestionImporter interface {
	ImportQuestions(ctx context.Context, questions []models.Question) (int, error)
}

// Import reads every parseable row of the file and hands them to importer in one batch.
// Rows that fail to parse are reported in the result and skipped.
func Import(ctx context.Context, config ImportConfig, importer QuestionImporter) (*ImportResult, error) {
	questions, result, err := ReadQuestions(config)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return result, nil
	}

	n, err := importer.ImportQuestions(ctx, questions)
	result.Imported = n
	if err != nil {
		return result, fmt.Errorf("failed to import questions: %w", err)
	}
	return result, nil
}

// ReadQuestions parses an Excel or CSV question sheet.
func ReadQuestions(config ImportConfig) ([]models.Question, *ImportResult, error) {
	if config.StartRow < 1 {
		config.StartRow = 2
	}

	var rows [][]string
	var err error
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var questions []models.Question
	for i, row := range rows {
		if i < config.StartRow-1 || blank(row) {
			continue
		}
		result.TotalProcessed++

		q, err := ParseRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}
	return questions, result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ParseRow turns one sheet row into an active question. The correct answer
// may be given as a letter (A-D) or a 1-based option number.
func ParseRow(row []string) (models.Question, error) {
	if len(row) < minColumns {
		return models.Question{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))
	}
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	subject, ok := models.NormalizeSubject(cell(colSubject))
	if !ok {
		return models.Question{}, fmt.Errorf("unsupported subject %q", cell(colSubject))
	}

	difficulty, err := strconv.ParseFloat(cell(colDifficulty), 64)
	if err != nil {
		return models.Question{}, fmt.Errorf("invalid difficulty %q", cell(colDifficulty))
	}

	correct, err := parseCorrect(cell(colCorrect))
	if err != nil {
		return models.Question{}, err
	}

	q := models.Question{
		Subject:            subject,
		Difficulty:         difficulty,
		Text:               cell(colText),
		Options:            []string{cell(colOptionA), cell(colOptionB), cell(colOptionC), cell(colOptionD)},
		CorrectAnswerIndex: correct,
		Explanation:        cell(colExplanation),
		TopicTags:          splitTags(cell(colTags)),
		IsActive:           true,
	}
	if q.Text == "" {
		return models.Question{}, fmt.Errorf("question text is empty")
	}
	return q, nil
}

func parseCorrect(s string) (int, error) {
	if len(s) == 1 {
		c := strings.ToUpper(s)[0]
		if c >= 'A' && c <= 'D' {
			return int(c - 'A'), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > models.OptionCount {
		return 0, fmt.Errorf("invalid correct answer %q, want A-D or 1-%d", s, models.OptionCount)
	}
	return n - 1, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

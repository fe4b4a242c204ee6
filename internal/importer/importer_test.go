package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"placement-service/internal/models"
)

type captureImporter struct {
	got []models.Question
	err error
}

func (c *captureImporter) ImportQuestions(ctx context.Context, questions []models.Question) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.got = append(c.got, questions...)
	return len(questions), nil
}

var header = []string{"subject", "difficulty", "text", "a", "b", "c", "d", "correct", "explanation", "tags"}

func TestParseRow(t *testing.T) {
	q, err := ParseRow([]string{"mathematics", "2.5", "2 + 2?", "3", "4", "5", "22", "b", "basic sum", "arithmetic; addition"})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", q.Subject)
	assert.Equal(t, 2.5, q.Difficulty)
	assert.Equal(t, 1, q.CorrectAnswerIndex)
	assert.Equal(t, []string{"3", "4", "5", "22"}, q.Options)
	assert.Equal(t, []string{"arithmetic", "addition"}, q.TopicTags)
	assert.True(t, q.IsActive)

	q, err = ParseRow([]string{"English", "1", "Pick the noun", "run", "blue", "cat", "fast", "3"})
	require.NoError(t, err)
	assert.Equal(t, 2, q.CorrectAnswerIndex)
	assert.Empty(t, q.TopicTags)
}

func TestParseRowErrors(t *testing.T) {
	testCases := []struct {
		name string
		row  []string
	}{
		{"too few columns", []string{"Mathematics", "1", "text"}},
		{"unknown subject", []string{"Alchemy", "1", "t", "a", "b", "c", "d", "A"}},
		{"bad difficulty", []string{"Mathematics", "hard", "t", "a", "b", "c", "d", "A"}},
		{"bad correct letter", []string{"Mathematics", "1", "t", "a", "b", "c", "d", "E"}},
		{"bad correct number", []string{"Mathematics", "1", "t", "a", "b", "c", "d", "0"}},
		{"empty text", []string{"Mathematics", "1", " ", "a", "b", "c", "d", "A"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRow(tc.row)
			assert.Error(t, err)
		})
	}
}

func TestImportFromExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	f := excelize.NewFile()
	rows := [][]string{
		header,
		{"Physics", "1", "Unit of force?", "Newton", "Joule", "Watt", "Pascal", "A", "", "mechanics"},
		{"Physics", "11x", "Broken row", "a", "b", "c", "d", "A"},
		{},
		{"Biology", "3", "Powerhouse of the cell?", "Nucleus", "Mitochondria", "Ribosome", "Golgi", "2"},
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &cells))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	imp := &captureImporter{}
	result, err := Import(context.Background(), ImportConfig{FilePath: path}, imp)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 3")

	require.Len(t, imp.got, 2)
	assert.Equal(t, "Physics", imp.got[0].Subject)
	assert.Equal(t, 1, imp.got[1].CorrectAnswerIndex)
}

func TestImportFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.csv")
	content := "subject,difficulty,text,a,b,c,d,correct\n" +
		"History,4,\"Year the Berlin Wall fell?\",1987,1989,1991,1993,B\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	imp := &captureImporter{}
	result, err := Import(context.Background(), ImportConfig{FilePath: path}, imp)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, imp.got, 1)
	assert.Equal(t, "Year the Berlin Wall fell?", imp.got[0].Text)
}

func TestImportPropagatesStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.csv")
	content := "subject,difficulty,text,a,b,c,d,correct\nScience,1,Water boils at?,90,100,110,120,B\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Import(context.Background(), ImportConfig{FilePath: path}, &captureImporter{err: errors.New("mongo down")})
	assert.Error(t, err)

	_, err = Import(context.Background(), ImportConfig{FilePath: filepath.Join(t.TempDir(), "missing.xlsx")}, &captureImporter{})
	assert.Error(t, err)
}

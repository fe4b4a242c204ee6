package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"placement-service/internal/models"
)

func TestParseUsage(t *testing.T) {
	got := parseUsage("q-1", map[string]string{
		fieldShown:   "3",
		fieldCorrect: "2",
		fieldTime:    "41.5",
	})
	assert.Equal(t, models.UsageDelta{QuestionID: "q-1", Shown: 3, Correct: 2, TotalTimeSeconds: 41.5}, got)

	// a hash without the correct field only ever saw wrong answers
	got = parseUsage("q-2", map[string]string{fieldShown: "1", fieldTime: "7"})
	assert.Equal(t, int64(0), got.Correct)
	assert.Equal(t, int64(1), got.Shown)

	assert.Equal(t, models.UsageDelta{QuestionID: "q-3"}, parseUsage("q-3", nil))
}

func TestUsageKey(t *testing.T) {
	assert.Equal(t, "placement:usage:abc", usageKey("abc"))
}

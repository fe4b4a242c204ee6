package placement

import (
	"testing"
	"time"

	"placement-service/internal/models"
)

func answeredQuestion(subject string, difficulty float64, correct bool, seconds float64) models.AskedQuestion {
	idx := 1
	if correct {
		idx = 0
	}
	now := time.Now()
	return models.AskedQuestion{
		QuestionID:       subject + "-q",
		Subject:          subject,
		Difficulty:       difficulty,
		UserAnswerIndex:  &idx,
		IsCorrect:        &correct,
		TimeSpentSeconds: &seconds,
		AnsweredAt:       &now,
	}
}

func TestLevelForScore(t *testing.T) {
	testCases := []struct {
		score int
		level int
	}{
		{0, 1}, {29, 1}, {30, 2}, {44, 2}, {45, 3}, {59, 3},
		{60, 4}, {74, 4}, {75, 5}, {89, 5}, {90, 6}, {100, 6},
	}

	for _, tc := range testCases {
		if got := LevelForScore(tc.score); got != tc.level {
			t.Errorf("LevelForScore(%d) = %d, want %d", tc.score, got, tc.level)
		}
	}
}

func TestLevelIsMonotonic(t *testing.T) {
	prev := LevelForScore(0)
	for score := 1; score <= 100; score++ {
		level := LevelForScore(score)
		if level < prev {
			t.Fatalf("level dropped from %d to %d at score %d", prev, level, score)
		}
		prev = level
	}
}

func TestPercentile(t *testing.T) {
	testCases := []struct {
		score      int
		percentile int
	}{
		{0, 0}, {10, 12}, {50, 60}, {82, 98}, {83, 99}, {100, 99},
	}

	for _, tc := range testCases {
		if got := Percentile(tc.score); got != tc.percentile {
			t.Errorf("Percentile(%d) = %d, want %d", tc.score, got, tc.percentile)
		}
	}
}

func TestOverallScoreIsMonotonicInCorrectCount(t *testing.T) {
	for _, total := range []int{1, 3, 7, 20} {
		prev := -1
		for correct := 0; correct <= total; correct++ {
			score := OverallScore(correct, total)
			if score < prev {
				t.Fatalf("total=%d: score dropped from %d to %d at correct=%d", total, prev, score, correct)
			}
			prev = score
		}
		if prev != 100 {
			t.Errorf("total=%d: all correct scored %d, want 100", total, prev)
		}
	}

	if got := OverallScore(2, 3); got != 67 {
		t.Errorf("OverallScore(2, 3) = %d, want 67", got)
	}
	if got := OverallScore(1, 0); got != 0 {
		t.Errorf("OverallScore with zero total = %d, want 0", got)
	}
}

func TestConfidenceGrowsWithSampleSize(t *testing.T) {
	prev := -1
	var questions []models.AskedQuestion
	for n := 1; n <= 20; n++ {
		// fixed 50% accuracy at a mid difficulty with steady timing
		questions = append(questions, answeredQuestion("Mathematics", 5, n%2 == 0, 10))
		c := Confidence(questions)
		if c < prev {
			t.Fatalf("confidence dropped from %d to %d at n=%d", prev, c, n)
		}
		if c < 0 || c > 100 {
			t.Fatalf("confidence %d out of bounds", c)
		}
		prev = c
	}
}

func TestConfidencePenalties(t *testing.T) {
	steady := make([]models.AskedQuestion, 0, 10)
	volatile := make([]models.AskedQuestion, 0, 10)
	boundary := make([]models.AskedQuestion, 0, 10)
	for i := 0; i < 10; i++ {
		steady = append(steady, answeredQuestion("Mathematics", 5, true, 10))
		seconds := 2.0
		if i%2 == 0 {
			seconds = 60
		}
		volatile = append(volatile, answeredQuestion("Mathematics", 5, true, seconds))
		boundary = append(boundary, answeredQuestion("Mathematics", 1, false, 10))
	}

	base := Confidence(steady)
	if got := Confidence(volatile); got >= base {
		t.Errorf("volatile timing confidence %d should be below steady %d", got, base)
	}
	if got := Confidence(boundary); got >= base {
		t.Errorf("boundary misses confidence %d should be below steady %d", got, base)
	}
	if got := Confidence(nil); got != 0 {
		t.Errorf("confidence without answers = %d, want 0", got)
	}
}

func TestScore(t *testing.T) {
	questions := []models.AskedQuestion{
		answeredQuestion("Mathematics", 1, true, 10),
		answeredQuestion("Mathematics", 2, true, 20),
		answeredQuestion("Physics", 3, false, 30),
		answeredQuestion("Mathematics", 2, true, 40),
	}
	config := models.PlacementConfig{Subjects: []string{"Mathematics", "Physics"}, TotalQuestions: 4}

	results := Score(questions, config)

	if results.CorrectCount != 3 {
		t.Errorf("CorrectCount = %d, want 3", results.CorrectCount)
	}
	if results.OverallScore != 75 {
		t.Errorf("OverallScore = %d, want 75", results.OverallScore)
	}
	if results.RecommendedLevel != 5 {
		t.Errorf("RecommendedLevel = %d, want 5", results.RecommendedLevel)
	}
	if results.Percentile != 90 {
		t.Errorf("Percentile = %d, want 90", results.Percentile)
	}
	if results.AverageTimeSeconds != 25 {
		t.Errorf("AverageTimeSeconds = %.1f, want 25", results.AverageTimeSeconds)
	}

	if len(results.SubjectScores) != 2 {
		t.Fatalf("expected 2 subject scores, got %d", len(results.SubjectScores))
	}
	math := results.SubjectScores[0]
	if math.Subject != "Mathematics" || math.CorrectCount != 3 || math.TotalCount != 3 || math.Score != 100 {
		t.Errorf("unexpected Mathematics score: %+v", math)
	}
	physics := results.SubjectScores[1]
	if physics.Subject != "Physics" || physics.CorrectCount != 0 || physics.TotalCount != 1 || physics.Score != 0 {
		t.Errorf("unexpected Physics score: %+v", physics)
	}
}

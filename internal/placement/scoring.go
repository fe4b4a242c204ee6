package placement

import (
	"math"

	"placement-service/internal/models"
)

// Level thresholds on the overall score. A score at or above levelThresholds[i]
// earns level i+2; anything below the first threshold is level 1. These gate
// curriculum access downstream, so they must stay monotonic.
var levelThresholds = []int{30, 45, 60, 75, 90}

const (
	// confidenceSampleHalf is the answer count at which sample size alone yields 50% confidence.
	confidenceSampleHalf = 5

	// confidenceWindow is how many of the most recent answer times feed the volatility penalty.
	confidenceWindow = 5

	maxVolatilityPenalty    = 20.0
	maxBoundaryMissPenalty  = 15.0
	percentileScoreMultiple = 1.2
	maxPercentile           = 99
)

// LevelForScore maps an overall score (0-100) to a recommended level (1-6).
func LevelForScore(score int) int {
	level := 1
	for _, threshold := range levelThresholds {
		if score >= threshold {
			level++
		}
	}
	return level
}

// Percentile is a linear proxy of the score, not a population percentile:
// the engine has no population statistics to rank against.
func Percentile(score int) int {
	p := int(math.Round(float64(score) * percentileScoreMultiple))
	if p > maxPercentile {
		return maxPercentile
	}
	if p < 0 {
		return 0
	}
	return p
}

// OverallScore is the rounded percentage of correct answers over the configured question count.
func OverallScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Confidence grows with the number of answered questions and shrinks with the
// volatility of recent answer times and with misses on boundary difficulties.
// The result is bounded to [0,100].
func Confidence(questions []models.AskedQuestion) int {
	var answered []models.AskedQuestion
	for _, q := range questions {
		if q.Answered() {
			answered = append(answered, q)
		}
	}
	n := len(answered)
	if n == 0 {
		return 0
	}

	base := 100 * float64(n) / float64(n+confidenceSampleHalf)

	window := answered
	if len(window) > confidenceWindow {
		window = window[len(window)-confidenceWindow:]
	}
	volatility := maxVolatilityPenalty * math.Min(1, coefficientOfVariation(answerTimes(window)))

	boundaryMisses := 0
	for _, q := range answered {
		if q.IsCorrect != nil && !*q.IsCorrect && (q.Difficulty <= models.MinDifficulty || q.Difficulty >= models.MaxDifficulty) {
			boundaryMisses++
		}
	}
	boundary := maxBoundaryMissPenalty * float64(boundaryMisses) / float64(n)

	c := int(math.Round(base - volatility - boundary))
	return min(100, max(0, c))
}

func answerTimes(questions []models.AskedQuestion) []float64 {
	times := make([]float64, 0, len(questions))
	for _, q := range questions {
		if q.TimeSpentSeconds != nil {
			times = append(times, *q.TimeSpentSeconds)
		}
	}
	return times
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean <= 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq/float64(len(values))) / mean
}

// Score computes the final results of a placement test.
func Score(questions []models.AskedQuestion, config models.PlacementConfig) *models.Results {
	total := config.TotalQuestions
	if total <= 0 {
		total = len(questions)
	}

	correct := 0
	var timeSum float64
	timed := 0
	for _, q := range questions {
		if q.IsCorrect != nil && *q.IsCorrect {
			correct++
		}
		if q.TimeSpentSeconds != nil {
			timeSum += *q.TimeSpentSeconds
			timed++
		}
	}

	overall := OverallScore(correct, total)
	results := &models.Results{
		OverallScore:     overall,
		RecommendedLevel: LevelForScore(overall),
		Percentile:       Percentile(overall),
		ConfidenceScore:  Confidence(questions),
		CorrectCount:     correct,
		TotalQuestions:   total,
		SubjectScores:    make([]models.SubjectScore, 0, len(config.Subjects)),
	}
	if timed > 0 {
		results.AverageTimeSeconds = timeSum / float64(timed)
	}

	for _, subject := range config.Subjects {
		ss := models.SubjectScore{Subject: subject}
		for _, q := range questions {
			if q.Subject != subject {
				continue
			}
			ss.TotalCount++
			if q.IsCorrect != nil && *q.IsCorrect {
				ss.CorrectCount++
			}
		}
		ss.Score = OverallScore(ss.CorrectCount, ss.TotalCount)
		ss.RecommendedLevel = LevelForScore(ss.Score)
		results.SubjectScores = append(results.SubjectScores, ss)
	}

	return results
}

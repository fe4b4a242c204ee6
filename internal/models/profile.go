package models

import "time"

// SubjectPlacement records the outcome of a completed placement test for one subject.
type SubjectPlacement struct {
	PlacementTestID  string    `bson:"placement_test_id" json:"placement_test_id"`
	OverallScore     int       `bson:"overall_score" json:"overall_score"`
	RecommendedLevel int       `bson:"recommended_level" json:"recommended_level"`
	Grade            string    `bson:"grade" json:"grade"`
	TakenAt          time.Time `bson:"taken_at" json:"taken_at"`
}

type PlacementProfile struct {
	ID                 string                      `bson:"_id,omitempty" json:"id"`
	UserID             string                      `bson:"user_id" json:"user_id"`
	Level              int                         `bson:"level" json:"level"`
	Grade              string                      `bson:"grade" json:"grade"`
	PlacementTestTaken bool                        `bson:"placement_test_taken" json:"placement_test_taken"`
	Placements         map[string]SubjectPlacement `bson:"placements" json:"placements"`
	CreatedAt          time.Time                   `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time                   `bson:"updated_at" json:"updated_at"`
}

// HasPlacement reports whether a placement for the subject has already been recorded.
func (p *PlacementProfile) HasPlacement(subject string) bool {
	_, ok := p.Placements[subject]
	return ok
}

// GradeForScore maps an overall score to the letter grade stored on the profile.
func GradeForScore(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 45:
		return "D"
	case score >= 30:
		return "E"
	default:
		return "F"
	}
}

package domain

// HighScore is the best score recorded for one username within a project.
// It doubles as the submission payload for adding and deleting scores.
type HighScore struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// Project is a tenant owning its own scores and encryption key
type Project struct {
	Name                string      `json:"name"`
	EncryptionKeyBase64 string      `json:"encryptionKeyBase64"`
	Scores              []HighScore `json:"scores"`
}

// ProjectRequest represents a request to create a project
type ProjectRequest struct {
	Name string `json:"name"`
}

// ScoreSubmission is a score submitted through the ingestion pipeline,
// where the project travels with the payload instead of the URL.
type ScoreSubmission struct {
	Project  string `json:"project"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// HighScore returns the submission without its project
func (s ScoreSubmission) HighScore() HighScore {
	return HighScore{Username: s.Username, Score: s.Score}
}

// BatchScoreSubmission represents multiple score submissions
type BatchScoreSubmission struct {
	Scores []ScoreSubmission `json:"scores"`
}

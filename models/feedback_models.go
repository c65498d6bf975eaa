package models

// FeedbackRequest records a user rating for an assistant message.
type FeedbackRequest struct {
	MessageID int64  `json:"message_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// TrendingQuestion is one grouped question topic produced by the trending
// analysis job.
type TrendingQuestion struct {
	Question    string `json:"question" db:"question"`
	Count       int    `json:"count" db:"count"`
	Source      string `json:"source" db:"source"`
	Application string `json:"application" db:"application"`
}

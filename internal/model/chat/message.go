package chat

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// DisplayTimeLayout is the hour:minute stamp shown next to each bubble.
const DisplayTimeLayout = "15:04"

// ISOTimeLayout matches the millisecond precision UTC stamps used for history records.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is one turn in the conversation log.
type Message struct {
	ID        int       `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Time      string    `json:"time"`
	Type      string    `json:"type"`
	Emoji     string    `json:"emoji,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry pairs a user question with the generated answer.
// Response stays empty until the bot reply has been produced.
type HistoryEntry struct {
	Question  string `json:"question"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// FeedbackType is the rating a user gives to a bot reply.
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

// Valid reports whether t is one of the known ratings.
func (t FeedbackType) Valid() bool {
	return t == FeedbackPositive || t == FeedbackNegative
}

// FeedbackRecord captures a rating of the most recent bot reply.
type FeedbackRecord struct {
	Type      FeedbackType `json:"type"`
	Message   string       `json:"message"`
	Response  string       `json:"response"`
	Timestamp string       `json:"timestamp"`
}

// FormatISO renders t the way history and feedback records store it.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOTimeLayout)
}

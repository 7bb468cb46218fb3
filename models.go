package main

import (
	"time"
)

// Thread represents a provider-level grouping of related messages.
// Rows are created once per distinct thread id and never mutated.
type Thread struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ThreadID  string    `json:"thread_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Subject   string    `json:"subject" gorm:"type:text"`
	Snippet   string    `json:"snippet" gorm:"type:text"`
	HistoryID string    `json:"history_id" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Thread
func (Thread) TableName() string {
	return "threads"
}

// Message represents a single email, keyed by the provider message id.
// The body holds the provider's short snippet, not the full body.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID string    `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ThreadID  string    `json:"thread_id" gorm:"type:varchar(255);not null;index"`
	Sender    string    `json:"sender" gorm:"type:text"`
	Recipient string    `json:"recipient" gorm:"type:text"`
	Subject   string    `json:"subject" gorm:"type:text"`
	Body      string    `json:"body" gorm:"type:text"`
	SentAt    time.Time `json:"sent_at"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}

// AIMessageAnalysis holds the AI judgments for one message. NeedsReply and
// ReplyDraft are NULL until the message has been analyzed; Todo holds the
// extracted tasks serialized as a JSON array.
type AIMessageAnalysis struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID   string     `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	NeedsReply  *bool      `json:"needs_reply"`
	ReplyDraft  *string    `json:"reply_draft" gorm:"type:text"`
	Todo        string     `json:"todo" gorm:"type:text"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// TableName specifies the table name for AIMessageAnalysis
func (AIMessageAnalysis) TableName() string {
	return "ai_message_analysis"
}

// InboundMessage is a fetched provider message flattened to the fields
// this service persists
type InboundMessage struct {
	MessageID string
	ThreadID  string
	HistoryID string
	Snippet   string
	Sender    string
	Recipient string
	Subject   string
	SentAt    time.Time
}

// MessagePayload is the slice of a message the analyzer sees
type MessagePayload struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TodoItem is one extracted task
type TodoItem struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// MessageSummary is one entry of the ingestion response
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
}

// AnalysisResult is one entry of the analysis response
type AnalysisResult struct {
	MessageID  string  `json:"message_id"`
	NeedsReply bool    `json:"needs_reply"`
	ReplyDraft *string `json:"reply_draft"`
	Todos      string  `json:"todos"`
}

// TodoResponse is one entry of the todos listing
type TodoResponse struct {
	ID        uint   `json:"id"`
	MessageID string `json:"message_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ReplyDraftResponse is one entry of the reply-drafts listing, combining
// the analysis row with its message metadata
type ReplyDraftResponse struct {
	ID          uint       `json:"id"`
	MessageID   string     `json:"message_id"`
	ReplyDraft  string     `json:"reply_draft"`
	NeedsReply  *bool      `json:"needs_reply"`
	ProcessedAt *time.Time `json:"processed_at"`
	Sender      string     `json:"sender"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

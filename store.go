package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMessageExists reports that an inbound message was already ingested
var ErrMessageExists = errors.New("message already ingested")

// MailStore is the durable record of threads, messages, and AI analyses
type MailStore struct {
	db *gorm.DB
}

// NewMailStore creates a store over an initialized database
func NewMailStore(db *gorm.DB) *MailStore {
	return &MailStore{db: db}
}

// SaveInbound persists a fetched message, creating its thread row if this is
// the first message seen on the thread. Thread upsert and message insert run
// in one transaction so a duplicate-thread conflict cannot drop the message.
func (s *MailStore) SaveInbound(msg InboundMessage) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		thread := Thread{
			ThreadID:  msg.ThreadID,
			Subject:   msg.Subject,
			Snippet:   msg.Snippet,
			HistoryID: msg.HistoryID,
		}
		if err := tx.Where("thread_id = ?", msg.ThreadID).FirstOrCreate(&thread).Error; err != nil {
			return fmt.Errorf("failed to upsert thread %s: %w", msg.ThreadID, err)
		}

		var existing Message
		result := tx.Where("message_id = ?", msg.MessageID).First(&existing)
		if result.Error == nil {
			return ErrMessageExists
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check message %s: %w", msg.MessageID, result.Error)
		}

		message := Message{
			MessageID: msg.MessageID,
			ThreadID:  msg.ThreadID,
			Sender:    msg.Sender,
			Recipient: msg.Recipient,
			Subject:   msg.Subject,
			Body:      msg.Snippet,
			SentAt:    msg.SentAt,
		}
		if err := tx.Create(&message).Error; err != nil {
			// Concurrent ingestion may have inserted the same id between the
			// existence check and the create.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrMessageExists
			}
			return fmt.Errorf("failed to insert message %s: %w", msg.MessageID, err)
		}

		return nil
	})

	return err
}

// TopMessages returns the most recently sent stored messages
func (s *MailStore) TopMessages(limit int) ([]Message, error) {
	var messages []Message
	result := s.db.Order("sent_at DESC").Limit(limit).Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch top messages: %w", result.Error)
	}
	return messages, nil
}

// UpsertAnalysis creates or updates the analysis row for a message, keyed by
// message id. Re-analysis overwrites all three judgments and the processed
// timestamp in place.
func (s *MailStore) UpsertAnalysis(messageID string, needsReply bool, replyDraft *string, todos string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var analysis AIMessageAnalysis
		result := tx.Where("message_id = ?", messageID).First(&analysis)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up analysis for %s: %w", messageID, result.Error)
			}
			analysis = AIMessageAnalysis{MessageID: messageID}
			logrus.Infof("Creating AI analysis for message %s", messageID)
		} else {
			logrus.Infof("Updating AI analysis for message %s", messageID)
		}

		now := time.Now().UTC()
		analysis.NeedsReply = &needsReply
		analysis.ReplyDraft = replyDraft
		analysis.Todo = todos
		analysis.ProcessedAt = &now

		if err := tx.Save(&analysis).Error; err != nil {
			return fmt.Errorf("failed to save analysis for %s: %w", messageID, err)
		}
		return nil
	})

	return err
}

// ListTodos returns one entry per extracted task across all analyses whose
// todo field is non-empty. A stored value that fails to parse as a JSON
// array is surfaced as a single task titled with the raw text, so legacy or
// malformed rows still display.
func (s *MailStore) ListTodos() ([]TodoResponse, error) {
	var analyses []AIMessageAnalysis
	result := s.db.Where("todo IS NOT NULL AND todo != ''").Find(&analyses)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch todos: %w", result.Error)
	}

	todos := make([]TodoResponse, 0)
	for _, analysis := range analyses {
		var items []TodoItem
		if err := json.Unmarshal([]byte(analysis.Todo), &items); err != nil {
			logrus.Warnf("Unparseable todo JSON for message %s, falling back to raw title", analysis.MessageID)
			todos = append(todos, TodoResponse{
				ID:        analysis.ID,
				MessageID: analysis.MessageID,
				Title:     analysis.Todo,
			})
			continue
		}

		for _, item := range items {
			todos = append(todos, TodoResponse{
				ID:        analysis.ID,
				MessageID: analysis.MessageID,
				Title:     item.Title,
				Completed: item.Completed,
			})
		}
	}

	return todos, nil
}

// ListReplyDrafts returns every non-empty draft joined with its message
// metadata. The inner join drops analysis rows whose message is gone.
func (s *MailStore) ListReplyDrafts() ([]ReplyDraftResponse, error) {
	drafts := make([]ReplyDraftResponse, 0)
	result := s.db.Table("ai_message_analysis").
		Select("ai_message_analysis.id AS id, "+
			"ai_message_analysis.message_id AS message_id, "+
			"ai_message_analysis.reply_draft AS reply_draft, "+
			"ai_message_analysis.needs_reply AS needs_reply, "+
			"ai_message_analysis.processed_at AS processed_at, "+
			"messages.sender AS sender, "+
			"messages.subject AS subject, "+
			"messages.body AS body").
		Joins("INNER JOIN messages ON messages.message_id = ai_message_analysis.message_id").
		Where("ai_message_analysis.reply_draft IS NOT NULL AND ai_message_analysis.reply_draft != ''").
		Scan(&drafts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch reply drafts: %w", result.Error)
	}

	return drafts, nil
}

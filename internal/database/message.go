package database

import (
	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

// GetConversation returns all messages exchanged between the two users in
// both directions, oldest first. The pair is unordered: (a, b) and (b, a)
// produce the same result.
func (d *Database) GetConversation(userA, userB uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// GetMessagesInvolving returns every message where any of the given users is
// sender or receiver, oldest first. Used to build worker conversation
// summaries across all of a worker's assigned models.
func (d *Database) GetMessagesInvolving(userIDs []uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("sender_id IN ? OR receiver_id IN ?", userIDs, userIDs).
		Order("created_at ASC").
		Find(&messages).Error

	return messages, err
}

// MarkConversationRead flags everything the counterpart sent to the reader
// as read. Fetching a conversation over REST calls this first, so the
// response already reflects the read state.
func (d *Database) MarkConversationRead(readerID, counterpartID uuid.UUID) error {
	return d.db.Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", readerID, counterpartID, false).
		Update("is_read", true).Error
}

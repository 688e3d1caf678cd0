package storage

import (
	"errors"
	"fmt"
	"time"

	"chatbox/models"
)

// CacheConfirmed upserts one server-confirmed message into the local history
// cache and applies retention pruning. Rows sharing the message's confirmed
// id or correlation id are removed first, mirroring the in-memory reconcile
// rule, so replays and echoed confirmations never produce duplicate rows.
func (s *Store) CacheConfirmed(msg models.Message) error {
	if msg.ConfirmedID == "" {
		return errors.New("confirmed_id is required")
	}
	if msg.SenderID == "" {
		return errors.New("sender_id is required")
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = nowUnixMilli()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(
		`DELETE FROM message_cache
		WHERE confirmed_id = ?
		   OR (correlation_id != '' AND correlation_id = ?)`,
		msg.ConfirmedID,
		msg.CorrelationID,
	); err != nil {
		return fmt.Errorf("evict reconciled rows for %q: %w", msg.ConfirmedID, err)
	}

	var fileName, fileURL, fileMime string
	var fileSize int64
	if msg.File != nil {
		fileName = msg.File.Name
		fileURL = msg.File.URL
		fileSize = msg.File.Size
		fileMime = msg.File.MimeType
	}

	if _, err := tx.Exec(
		`INSERT INTO message_cache (
			local_id,
			correlation_id,
			confirmed_id,
			sender_id,
			sender_name,
			recipient_id,
			group_id,
			content,
			file_name,
			file_url,
			file_size,
			file_mime_type,
			timestamp,
			cached_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.LocalID(),
		msg.CorrelationID,
		msg.ConfirmedID,
		msg.SenderID,
		msg.SenderName,
		msg.RecipientID,
		msg.GroupID,
		msg.Content,
		fileName,
		fileURL,
		fileSize,
		fileMime,
		msg.Timestamp,
		nowUnixMilli(),
	); err != nil {
		return fmt.Errorf("insert cached message %q: %w", msg.ConfirmedID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache transaction: %w", err)
	}

	if s.cacheRetention > 0 {
		cutoff := time.Now().Add(-s.cacheRetention).UnixMilli()
		if _, err := s.PruneOlderThan(cutoff); err != nil {
			return fmt.Errorf("prune message cache: %w", err)
		}
	}

	return nil
}

// LoadConversation returns cached messages for one conversation key ordered
// by sent timestamp: group traffic by group id, direct traffic matched in
// both directions between selfID and the peer.
func (s *Store) LoadConversation(selfID, conversationKey string, limit int) ([]models.Message, error) {
	if conversationKey == "" {
		return nil, errors.New("conversation key is required")
	}
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.db.Query(
		`SELECT
			correlation_id,
			confirmed_id,
			sender_id,
			sender_name,
			recipient_id,
			group_id,
			content,
			file_name,
			file_url,
			file_size,
			file_mime_type,
			timestamp
		FROM message_cache
		WHERE group_id = ?
		   OR (group_id = '' AND sender_id = ? AND recipient_id = ?)
		   OR (group_id = '' AND sender_id = ? AND recipient_id = ?)
		ORDER BY timestamp ASC
		LIMIT ?`,
		conversationKey,
		selfID, conversationKey,
		conversationKey, selfID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", conversationKey, err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg      models.Message
			fileName string
			fileURL  string
			fileSize int64
			fileMime string
		)
		if err := rows.Scan(
			&msg.CorrelationID,
			&msg.ConfirmedID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.RecipientID,
			&msg.GroupID,
			&msg.Content,
			&fileName,
			&fileURL,
			&fileSize,
			&fileMime,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan cached message row: %w", err)
		}
		if fileName != "" || fileURL != "" {
			msg.File = &models.FileDescriptor{
				Name:     fileName,
				URL:      fileURL,
				Size:     fileSize,
				MimeType: fileMime,
			}
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached message rows: %w", err)
	}

	return messages, nil
}

// PruneOlderThan removes cache rows cached before the cutoff timestamp.
func (s *Store) PruneOlderThan(cutoffTimestamp int64) (int64, error) {
	if cutoffTimestamp <= 0 {
		return 0, errors.New("cutoff timestamp must be > 0")
	}

	res, err := s.db.Exec(`DELETE FROM message_cache WHERE cached_at < ?`, cutoffTimestamp)
	if err != nil {
		return 0, fmt.Errorf("prune message cache: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected for cache prune: %w", err)
	}

	return rowsAffected, nil
}

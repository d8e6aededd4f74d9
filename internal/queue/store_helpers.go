package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, url, source, media_kind, chat_id, message_id, requested_by, title, duration_seconds, status, progress_stage, progress_percent, progress_message, error_message, work_dir, source_file, output_file, delivered_file_id, retry_count, last_heartbeat, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		url              string
		source           sql.NullString
		mediaKind        string
		chatID           int64
		messageID        sql.NullInt64
		requestedBy      sql.NullString
		title            sql.NullString
		durationSeconds  sql.NullInt64
		statusStr        string
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		errorMessage     sql.NullString
		workDir          sql.NullString
		sourceFile       sql.NullString
		outputFile       sql.NullString
		deliveredFileID  sql.NullString
		retryCount       sql.NullInt64
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&source,
		&mediaKind,
		&chatID,
		&messageID,
		&requestedBy,
		&title,
		&durationSeconds,
		&statusStr,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&workDir,
		&sourceFile,
		&outputFile,
		&deliveredFileID,
		&retryCount,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		URL:             url,
		Source:          source.String,
		MediaKind:       MediaKind(mediaKind),
		ChatID:          chatID,
		MessageID:       messageID.Int64,
		RequestedBy:     requestedBy.String,
		Title:           title.String,
		DurationSeconds: durationSeconds.Int64,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		WorkDir:         workDir.String,
		SourceFile:      sourceFile.String,
		OutputFile:      outputFile.String,
		DeliveredFileID: deliveredFileID.String,
		RetryCount:      retryCount.Int64,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

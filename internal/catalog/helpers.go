package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"popcorn/internal/fields"
)

const itemColumns = "id, record_id, field, value_json, status, locked_for_update, locked_for_delete, entity_version, created_at, updated_at"

func scanFieldItem(scanner interface{ Scan(dest ...any) error }) (*FieldItem, error) {
	var (
		id           int64
		recordID     int64
		field        string
		valueJSON    string
		status       string
		lockedUpdate int64
		lockedDelete int64
		version      int64
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&recordID,
		&field,
		&valueJSON,
		&status,
		&lockedUpdate,
		&lockedDelete,
		&version,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	value, err := fields.DecodeValue(valueJSON)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}

	item := &FieldItem{
		ID:              id,
		RecordID:        recordID,
		Field:           fields.Type(field),
		Value:           value,
		Status:          ItemStatus(status),
		LockedForUpdate: lockedUpdate != 0,
		LockedForDelete: lockedDelete != 0,
		EntityVersion:   version,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

const contributionColumns = "id, record_id, author_id, field, ids_to_add, ids_to_update, ids_to_delete, sources, user_comment, status, created_at, verifier_id, verification_comment, verified_at"

func scanContribution(scanner interface{ Scan(dest ...any) error }) (*Contribution, error) {
	var (
		id          int64
		recordID    int64
		authorID    string
		field       string
		addJSON     string
		updateJSON  string
		deleteJSON  string
		sourcesJSON string
		comment     sql.NullString
		status      string
		createdRaw  string
		verifierID  sql.NullString
		verifyNote  sql.NullString
		verifiedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&recordID,
		&authorID,
		&field,
		&addJSON,
		&updateJSON,
		&deleteJSON,
		&sourcesJSON,
		&comment,
		&status,
		&createdRaw,
		&verifierID,
		&verifyNote,
		&verifiedRaw,
	); err != nil {
		return nil, err
	}

	idsToAdd, err := decodeIDSet(addJSON)
	if err != nil {
		return nil, fmt.Errorf("contribution %d ids_to_add: %w", id, err)
	}
	idsToUpdate, err := decodeIDMap(updateJSON)
	if err != nil {
		return nil, fmt.Errorf("contribution %d ids_to_update: %w", id, err)
	}
	idsToDelete, err := decodeIDSet(deleteJSON)
	if err != nil {
		return nil, fmt.Errorf("contribution %d ids_to_delete: %w", id, err)
	}
	sources, err := decodeStringSet(sourcesJSON)
	if err != nil {
		return nil, fmt.Errorf("contribution %d sources: %w", id, err)
	}

	contribution := &Contribution{
		ID:                  id,
		RecordID:            recordID,
		AuthorID:            authorID,
		Field:               fields.Type(field),
		IDsToAdd:            idsToAdd,
		IDsToUpdate:         idsToUpdate,
		IDsToDelete:         idsToDelete,
		Sources:             sources,
		UserComment:         comment.String,
		Status:              ContributionStatus(status),
		VerifierID:          verifierID.String,
		VerificationComment: verifyNote.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		contribution.CreatedAt = created
	}
	if verifiedRaw.Valid {
		if verified, err := parseTimeString(verifiedRaw.String); err == nil {
			contribution.VerifiedAt = &verified
		}
	}
	return contribution, nil
}

func encodeIDSet(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	raw, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("encode id set: %w", err)
	}
	return string(raw), nil
}

func decodeIDSet(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func encodeIDMap(m map[int64]int64) (string, error) {
	if m == nil {
		m = map[int64]int64{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode id map: %w", err)
	}
	return string(raw), nil
}

func decodeIDMap(raw string) (map[int64]int64, error) {
	if raw == "" {
		return nil, nil
	}
	m := make(map[int64]int64)
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func encodeStringSet(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode string set: %w", err)
	}
	return string(raw), nil
}

func decodeStringSet(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
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

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
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

package utils

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
)

// CreateDiaryListFromRows scans search, like and main view rows into list
// entry DTOs. Expected columns: id, date, title, image_url, like.
func CreateDiaryListFromRows(rows pgx.Rows) ([]*schemas.DiaryListEntryDTO, error) {
	entries := make([]*schemas.DiaryListEntryDTO, 0)

	for rows.Next() {
		entry := &schemas.DiaryListEntryDTO{}
		var id uuid.UUID
		var date time.Time
		var imageURL pgtype.Text

		if err := rows.Scan(&id, &date, &entry.Title, &imageURL, &entry.Bookmark); err != nil {
			return nil, err
		}

		entry.Id = id.String()
		entry.Date = FormatDiaryDate(date)
		if imageURL.Valid {
			entry.Image = imageURL.String
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/team-ddrawry/ddrawry-server/internal/managers"
	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

// currentImageSubquery selects the diary's current image, the newest active
// and non-deleted row.
const currentImageSubquery = `(SELECT i.image_url FROM images i
		WHERE i.diary_id = d.diary_id AND i.is_active = true AND i.is_deleted = false
		ORDER BY i.created_at DESC LIMIT 1)`

// DiaryHdl defines the interface for handling diary-related HTTP requests.
type DiaryHdl interface {
	Resolve(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	CreateDiary(ctx *gin.Context)
	GetDiary(ctx *gin.Context)
	UpdateDiary(ctx *gin.Context)
	DeleteDiary(ctx *gin.Context)
	GetDraft(ctx *gin.Context)
	UpdateDraft(ctx *gin.Context)
	ToggleLike(ctx *gin.Context)
	GetLikedDiaries(ctx *gin.Context)
	SearchDiaries(ctx *gin.Context)
	GetMainView(ctx *gin.Context)
}

// DiaryHandler provides methods to handle the diary and draft lifecycle.
type DiaryHandler struct {
	databaseManager managers.DatabaseMgr
}

// NewDiaryHandler returns a new DiaryHandler with the provided database manager.
func NewDiaryHandler(databaseManager managers.DatabaseMgr) DiaryHdl {
	return &DiaryHandler{databaseManager: databaseManager}
}

// Resolve determines what the editor should open for a date: a finalized
// diary wins, otherwise the active draft, otherwise a fresh draft is created.
// The insert is guarded by the partial unique index on active drafts, so two
// racing calls converge on the same draft id.
func (handler *DiaryHandler) Resolve(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	date, err := utils.ParseDiaryDate(ctx.Query(utils.DateParamKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidDate, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	var diaryId uuid.UUID
	queryString := "SELECT diary_id FROM diaries WHERE user_id = $1 AND date = $2 AND is_deleted = false"
	err = tx.QueryRow(ctx, queryString, userId, date).Scan(&diaryId)
	if err == nil {
		if err = utils.CommitTransaction(ctx, tx); err != nil {
			return
		}
		utils.WriteAndLogResponse(ctx, &schemas.ResolveDTO{
			Date:    utils.FormatDiaryDate(date),
			IsExist: true,
			Id:      diaryId.String(),
		}, http.StatusOK)
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	var draftId uuid.UUID
	queryString = "SELECT temp_diary_id FROM temp_diaries WHERE user_id = $1 AND date = $2 AND status = false"
	err = tx.QueryRow(ctx, queryString, userId, date).Scan(&draftId)
	if errors.Is(err, pgx.ErrNoRows) {
		if draftId, err = handler.createDraft(ctx, tx, userId, date); err != nil {
			return
		}
	} else if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.ResolveDTO{
		Date:    utils.FormatDiaryDate(date),
		IsExist: false,
		Id:      draftId.String(),
	}, http.StatusOK)
}

// Cancel closes the date's active draft. With type "write" the editor stays
// open on an empty page, with type "main" the user returns to the calendar
// and immediately gets a fresh draft for the date.
func (handler *DiaryHandler) Cancel(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.CancelDiaryRequest)
	date, err := utils.ParseDiaryDate(request.Date)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidDate, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	if err = handler.closeActiveDraft(ctx, tx, userId, date); err != nil {
		return
	}

	var draftId uuid.UUID
	if request.Type == "main" {
		if draftId, err = handler.createDraft(ctx, tx, userId, date); err != nil {
			return
		}
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	if request.Type == "main" {
		utils.WriteAndLogResponse(ctx, &schemas.DiaryIdDTO{Id: draftId.String()}, http.StatusOK)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateDiary finalizes an entry for a date and closes the date's active
// draft in the same transaction. A second finalized entry for the same date
// is rejected.
func (handler *DiaryHandler) CreateDiary(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.CreateDiaryRequest)
	date, err := utils.ParseDiaryDate(request.Date)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidDate, http.StatusBadRequest, err)
		return
	}

	mood, err := schemas.ParseMood(request.Mood.String())
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, err)
		return
	}
	weather, err := schemas.ParseWeather(request.Weather.String())
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	nickname, err := handler.fetchNickname(ctx, tx, userId)
	if err != nil {
		return
	}

	diaryId := uuid.New()
	now := time.Now()
	queryString := `INSERT INTO diaries (diary_id, user_id, date, nickname, mood, weather, title, story, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	if _, err = tx.Exec(ctx, queryString, diaryId, userId, date, nickname,
		int(mood), int(weather), request.Title, request.Story, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.DiaryAlreadyExists, http.StatusConflict, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = `UPDATE temp_diaries SET status = true, updated_at = $1
					WHERE user_id = $2 AND date = $3 AND status = false`
	if _, err = tx.Exec(ctx, queryString, now, userId, date); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.DiaryIdDTO{Id: diaryId.String()}, http.StatusCreated)
}

// GetDiary fetches a finalized entry with its current image. With edit=true
// it additionally spawns a draft cloned from the entry. Any active draft the
// user holds for that date is closed before the clone is inserted, so opening
// an entry for editing replaces an in-progress draft instead of leaving two
// active drafts for the same date.
func (handler *DiaryHandler) GetDiary(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	diaryId, err := uuid.Parse(ctx.Param(utils.DiaryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}
	editMode := ctx.Query(utils.EditParamKey) == "true"

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	record := schemas.Diary{ID: &diaryId, UserID: &userId}
	var date time.Time
	var mood, weather int
	var imageURL pgtype.Text

	queryString := fmt.Sprintf(`SELECT d.date, d.nickname, d.mood, d.weather, d.title, d.story, d.liked, %s
		FROM diaries d WHERE d.diary_id = $1 AND d.user_id = $2 AND d.is_deleted = false`, currentImageSubquery)
	err = tx.QueryRow(ctx, queryString, diaryId, userId).
		Scan(&date, &record.Nickname, &mood, &weather, &record.Title, &record.Story, &record.Liked, &imageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		utils.WriteAndLogError(ctx, schemas.DiaryNotFound, http.StatusNotFound, err)
		return
	} else if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	record.Date = &date
	record.Mood = schemas.Mood(mood)
	record.Weather = schemas.Weather(weather)

	diary := schemas.DiaryDTO{
		Id:       record.ID.String(),
		Date:     utils.FormatDiaryDate(*record.Date),
		Nickname: record.Nickname,
		Mood:     int(record.Mood),
		Weather:  int(record.Weather),
		Title:    record.Title,
		Story:    record.Story,
		Like:     record.Liked,
	}
	if imageURL.Valid {
		diary.Image = imageURL.String
	}

	if !editMode {
		if err = utils.CommitTransaction(ctx, tx); err != nil {
			return
		}
		utils.WriteAndLogResponse(ctx, &diary, http.StatusOK)
		return
	}

	queryString = `UPDATE temp_diaries SET status = true, updated_at = $1
					WHERE user_id = $2 AND date = $3 AND status = false`
	if _, err = tx.Exec(ctx, queryString, time.Now(), userId, date); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	tempId := uuid.New()
	queryString = `INSERT INTO temp_diaries (temp_diary_id, diary_id, user_id, date, nickname, mood, weather, title, story, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $10)`
	if _, err = tx.Exec(ctx, queryString, tempId, record.ID, userId, *record.Date, record.Nickname,
		int(record.Mood), int(record.Weather), record.Title, record.Story, time.Now()); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.DiaryEditDTO{Diary: diary, TempId: tempId.String()}, http.StatusOK)
}

// UpdateDiary overwrites the content of a finalized entry.
func (handler *DiaryHandler) UpdateDiary(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	diaryId, err := uuid.Parse(ctx.Param(utils.DiaryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.UpdateDiaryRequest)
	mood, err := schemas.ParseMood(request.Mood.String())
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, err)
		return
	}
	weather, err := schemas.ParseWeather(request.Weather.String())
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	queryString := `UPDATE diaries SET mood = $1, weather = $2, title = $3, story = $4, updated_at = $5
					WHERE diary_id = $6 AND user_id = $7 AND is_deleted = false`
	commandTag, err := tx.Exec(ctx, queryString, int(mood), int(weather), request.Title, request.Story,
		time.Now(), diaryId, userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("diary not found")
		utils.WriteAndLogError(ctx, schemas.DiaryNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.DiaryIdDTO{Id: diaryId.String()}, http.StatusOK)
}

// DeleteDiary soft-deletes an entry. The row and its id survive, the entry
// just disappears from every view.
func (handler *DiaryHandler) DeleteDiary(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	diaryId, err := uuid.Parse(ctx.Param(utils.DiaryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	queryString := `UPDATE diaries SET is_deleted = true, updated_at = $1
					WHERE diary_id = $2 AND user_id = $3 AND is_deleted = false`
	commandTag, err := tx.Exec(ctx, queryString, time.Now(), diaryId, userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("diary not found")
		utils.WriteAndLogError(ctx, schemas.DiaryNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetDraft fetches an active draft. Unset content fields come back as null.
func (handler *DiaryHandler) GetDraft(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	tempId, err := uuid.Parse(ctx.Param(utils.TempIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	record := schemas.TempDiary{ID: &tempId, UserID: &userId}
	var date time.Time
	var diaryId pgtype.UUID
	var mood, weather pgtype.Int4
	var title, story pgtype.Text

	queryString := `SELECT t.diary_id, t.date, t.nickname, t.mood, t.weather, t.title, t.story
					FROM temp_diaries t WHERE t.temp_diary_id = $1 AND t.user_id = $2 AND t.status = false`
	err = handler.databaseManager.GetPool().QueryRow(ctx, queryString, tempId, userId).
		Scan(&diaryId, &date, &record.Nickname, &mood, &weather, &title, &story)
	if errors.Is(err, pgx.ErrNoRows) {
		utils.WriteAndLogError(ctx, schemas.DraftNotFound, http.StatusNotFound, err)
		return
	} else if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	record.Date = &date
	if diaryId.Valid {
		backRef := uuid.UUID(diaryId.Bytes)
		record.DiaryID = &backRef
	}
	if mood.Valid {
		moodValue := schemas.Mood(mood.Int32)
		record.Mood = &moodValue
	}
	if weather.Valid {
		weatherValue := schemas.Weather(weather.Int32)
		record.Weather = &weatherValue
	}
	if title.Valid {
		record.Title = &title.String
	}
	if story.Valid {
		record.Story = &story.String
	}

	draft := schemas.DraftDTO{
		Id:       record.ID.String(),
		Date:     utils.FormatDiaryDate(*record.Date),
		Nickname: record.Nickname,
	}
	if record.DiaryID != nil {
		draft.DiaryId = record.DiaryID.String()
	}
	if record.Mood != nil {
		moodValue := int(*record.Mood)
		draft.Mood = &moodValue
	}
	if record.Weather != nil {
		weatherValue := int(*record.Weather)
		draft.Weather = &weatherValue
	}
	if record.Title != nil {
		draft.Title = *record.Title
	}
	if record.Story != nil {
		draft.Story = *record.Story
	}

	utils.WriteAndLogResponse(ctx, &draft, http.StatusOK)
}

// UpdateDraft applies a partial auto-save to an active draft. Absent fields
// keep their stored value.
func (handler *DiaryHandler) UpdateDraft(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	tempId, err := uuid.Parse(ctx.Param(utils.TempIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.UpdateDraftRequest)

	setClauses := []string{"updated_at = $1"}
	queryArgs := []interface{}{time.Now()}

	if request.Mood != nil {
		mood, parseErr := schemas.ParseMood(request.Mood.String())
		if parseErr != nil {
			utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, parseErr)
			return
		}
		queryArgs = append(queryArgs, int(mood))
		setClauses = append(setClauses, fmt.Sprintf("mood = $%d", len(queryArgs)))
	}
	if request.Weather != nil {
		weather, parseErr := schemas.ParseWeather(request.Weather.String())
		if parseErr != nil {
			utils.WriteAndLogError(ctx, schemas.InvalidEnumValue, http.StatusBadRequest, parseErr)
			return
		}
		queryArgs = append(queryArgs, int(weather))
		setClauses = append(setClauses, fmt.Sprintf("weather = $%d", len(queryArgs)))
	}
	if request.Title != nil {
		queryArgs = append(queryArgs, *request.Title)
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", len(queryArgs)))
	}
	if request.Story != nil {
		queryArgs = append(queryArgs, *request.Story)
		setClauses = append(setClauses, fmt.Sprintf("story = $%d", len(queryArgs)))
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	queryArgs = append(queryArgs, tempId, userId)
	queryString := fmt.Sprintf(`UPDATE temp_diaries SET %s WHERE temp_diary_id = $%d AND user_id = $%d AND status = false`,
		strings.Join(setClauses, ", "), len(queryArgs)-1, len(queryArgs))

	commandTag, err := tx.Exec(ctx, queryString, queryArgs...)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("draft not found")
		utils.WriteAndLogError(ctx, schemas.DraftNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.DiaryIdDTO{Id: tempId.String()}, http.StatusOK)
}

// ToggleLike flips the like flag of an entry and returns the new state.
func (handler *DiaryHandler) ToggleLike(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	diaryId, err := uuid.Parse(ctx.Param(utils.DiaryIdKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, err)
		return
	}

	var liked bool
	queryString := `UPDATE diaries SET liked = NOT liked, updated_at = $1
					WHERE diary_id = $2 AND user_id = $3 AND is_deleted = false RETURNING liked`
	err = handler.databaseManager.GetPool().QueryRow(ctx, queryString, time.Now(), diaryId, userId).Scan(&liked)
	if errors.Is(err, pgx.ErrNoRows) {
		utils.WriteAndLogError(ctx, schemas.DiaryNotFound, http.StatusNotFound, err)
		return
	} else if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.LikeDTO{Id: diaryId.String(), Bookmark: liked}, http.StatusOK)
}

// GetLikedDiaries lists the liked, non-deleted entries newest first.
func (handler *DiaryHandler) GetLikedDiaries(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	offset, limit := utils.ParsePaginationParams(ctx)

	queryString := fmt.Sprintf(`SELECT d.diary_id, d.date, d.title, %s, d.liked
		FROM diaries d WHERE d.user_id = $1 AND d.liked = true AND d.is_deleted = false
		ORDER BY d.date DESC`, currentImageSubquery)
	rows, err := handler.databaseManager.GetPool().Query(ctx, queryString, userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	entries, err := utils.CreateDiaryListFromRows(rows)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.SendPaginatedResponse(ctx, entries, offset, limit, len(entries))
}

// SearchDiaries matches the keyword against title and story of non-deleted
// entries, newest first.
func (handler *DiaryHandler) SearchDiaries(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	keyword := strings.TrimSpace(ctx.Query(utils.KeywordParamKey))
	if keyword == "" {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, errors.New("missing search keyword"))
		return
	}
	offset, limit := utils.ParsePaginationParams(ctx)

	queryString := fmt.Sprintf(`SELECT d.diary_id, d.date, d.title, %s, d.liked
		FROM diaries d WHERE d.user_id = $1 AND d.is_deleted = false
		AND (d.title ILIKE '%%' || $2 || '%%' OR d.story ILIKE '%%' || $2 || '%%')
		ORDER BY d.date DESC`, currentImageSubquery)
	rows, err := handler.databaseManager.GetPool().Query(ctx, queryString, userId, keyword)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	entries, err := utils.CreateDiaryListFromRows(rows)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	utils.SendPaginatedResponse(ctx, entries, offset, limit, len(entries))
}

// GetMainView lists a month's non-deleted entries for the calendar or list
// view. Calendar entries only need date, image and like state, so their
// titles are omitted.
func (handler *DiaryHandler) GetMainView(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	viewType := ctx.DefaultQuery(utils.ViewTypeParamKey, "calendar")
	if viewType != "calendar" && viewType != "list" {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, errors.New("unknown view type "+viewType))
		return
	}

	monthStart, err := utils.ParseDiaryMonth(ctx.Query(utils.DateParamKey))
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InvalidDate, http.StatusBadRequest, err)
		return
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	queryString := fmt.Sprintf(`SELECT d.diary_id, d.date, d.title, %s, d.liked
		FROM diaries d WHERE d.user_id = $1 AND d.is_deleted = false
		AND d.date >= $2 AND d.date < $3 ORDER BY d.date ASC`, currentImageSubquery)
	rows, err := handler.databaseManager.GetPool().Query(ctx, queryString, userId, monthStart, monthEnd)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	entries, err := utils.CreateDiaryListFromRows(rows)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if viewType == "calendar" {
		for _, entry := range entries {
			entry.Title = ""
		}
	}

	utils.WriteAndLogResponse(ctx, entries, http.StatusOK)
}

// createDraft inserts a nickname-seeded draft for the date. Losing the race
// against a concurrent insert is fine: the winning draft id is re-read and
// returned instead.
func (handler *DiaryHandler) createDraft(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID, date time.Time) (uuid.UUID, error) {
	nickname, err := handler.fetchNickname(ctx, tx, userId)
	if err != nil {
		return uuid.Nil, err
	}

	draftId := uuid.New()
	queryString := `INSERT INTO temp_diaries (temp_diary_id, user_id, date, nickname, status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, false, $5, $5)
					ON CONFLICT (user_id, date) WHERE status = false DO NOTHING
					RETURNING temp_diary_id`
	err = tx.QueryRow(ctx, queryString, draftId, userId, date, nickname, time.Now()).Scan(&draftId)
	if errors.Is(err, pgx.ErrNoRows) {
		queryString = "SELECT temp_diary_id FROM temp_diaries WHERE user_id = $1 AND date = $2 AND status = false"
		err = tx.QueryRow(ctx, queryString, userId, date).Scan(&draftId)
	}
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return uuid.Nil, err
	}

	return draftId, nil
}

// closeActiveDraft flips the date's active draft to closed and fails with
// DraftNotFound when there is none.
func (handler *DiaryHandler) closeActiveDraft(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID, date time.Time) error {
	queryString := `UPDATE temp_diaries SET status = true, updated_at = $1
					WHERE user_id = $2 AND date = $3 AND status = false`
	commandTag, err := tx.Exec(ctx, queryString, time.Now(), userId, date)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("no active draft for date")
		utils.WriteAndLogError(ctx, schemas.DraftNotFound, http.StatusNotFound, err)
		return err
	}
	return nil
}

// fetchNickname reads the live user's nickname for seeding drafts and entries.
func (handler *DiaryHandler) fetchNickname(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID) (string, error) {
	var nickname string
	queryString := "SELECT nickname FROM users WHERE user_id = $1 AND deleted_at IS NULL"
	if err := tx.QueryRow(ctx, queryString, userId).Scan(&nickname); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		} else {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		}
		return "", err
	}
	return nickname, nil
}

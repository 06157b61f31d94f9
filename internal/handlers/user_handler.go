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

	"github.com/team-ddrawry/ddrawry-server/internal/managers"
	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

// UserHdl defines the interface for handling user-related HTTP requests.
type UserHdl interface {
	UpdateSettings(ctx *gin.Context)
	UpdateNickname(ctx *gin.Context)
}

// UserHandler provides methods to handle settings and nickname updates.
type UserHandler struct {
	databaseManager managers.DatabaseMgr
}

// NewUserHandler returns a new UserHandler with the provided database manager.
func NewUserHandler(databaseManager managers.DatabaseMgr) UserHdl {
	return &UserHandler{databaseManager: databaseManager}
}

// UpdateSettings applies a partial update of the preference flags. The row is
// created with defaults first if the user never had one.
func (handler *UserHandler) UpdateSettings(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.UpdateSettingsRequest)
	if request.DarkMode == nil && request.Notification == nil {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, errors.New("no settings provided"))
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	now := time.Now()
	queryString := `INSERT INTO settings (setting_id, user_id, dark_mode, notification, created_at, updated_at)
					VALUES ($1, $2, false, true, $3, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err = tx.Exec(ctx, queryString, uuid.New(), userId, now); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	setClauses := []string{"updated_at = $1"}
	queryArgs := []interface{}{now}

	if request.DarkMode != nil {
		queryArgs = append(queryArgs, *request.DarkMode)
		setClauses = append(setClauses, fmt.Sprintf("dark_mode = $%d", len(queryArgs)))
	}
	if request.Notification != nil {
		queryArgs = append(queryArgs, *request.Notification)
		setClauses = append(setClauses, fmt.Sprintf("notification = $%d", len(queryArgs)))
	}

	queryArgs = append(queryArgs, userId)
	queryString = fmt.Sprintf("UPDATE settings SET %s WHERE user_id = $%d RETURNING dark_mode, notification",
		strings.Join(setClauses, ", "), len(queryArgs))

	settings := schemas.SettingsDTO{}
	if err = tx.QueryRow(ctx, queryString, queryArgs...).Scan(&settings.DarkMode, &settings.Notification); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &settings, http.StatusOK)
}

// UpdateNickname renames the user. The name must be free among live users,
// but re-submitting one's own current nickname succeeds.
func (handler *UserHandler) UpdateNickname(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	request := ctx.Value(utils.SanitizedPayloadKey).(*schemas.UpdateNicknameRequest)
	nickname := strings.TrimSpace(request.Nickname)
	if nickname == "" {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, errors.New("empty nickname"))
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	var ownerId uuid.UUID
	queryString := "SELECT user_id FROM users WHERE nickname = $1 AND deleted_at IS NULL"
	err = tx.QueryRow(ctx, queryString, nickname).Scan(&ownerId)
	if err == nil && ownerId != userId {
		err = errors.New("nickname already taken")
		utils.WriteAndLogError(ctx, schemas.NicknameTaken, http.StatusConflict, err)
		return
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	err = nil

	queryString = "UPDATE users SET nickname = $1, updated_at = $2 WHERE user_id = $3 AND deleted_at IS NULL"
	commandTag, err := tx.Exec(ctx, queryString, nickname, time.Now(), userId)
	if err != nil {
		// A racing rename can still take the name between the check and here.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			utils.WriteAndLogError(ctx, schemas.NicknameTaken, http.StatusConflict, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.NicknameDTO{Nickname: nickname}, http.StatusOK)
}

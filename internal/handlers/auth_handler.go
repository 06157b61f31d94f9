// Package handlers implements the handlers for the different routes of the server to handle the incoming HTTP requests.
package handlers

import (
	"errors"
	"net/http"
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

var errTransaction = errors.New("error beginning transaction")
var errNoSession = errors.New("no session in context")

// AuthHdl defines the interface for handling authentication-related HTTP requests.
type AuthHdl interface {
	Login(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Refresh(ctx *gin.Context)
	Logout(ctx *gin.Context)
	DeleteAccount(ctx *gin.Context)
}

// AuthHandler provides methods to handle login, session refresh, logout and
// account deletion.
type AuthHandler struct {
	databaseManager managers.DatabaseMgr
	sessionManager  managers.SessionMgr
	kakaoManager    managers.KakaoMgr
	secureCookies   bool
}

// NewAuthHandler returns a new AuthHandler with the provided managers.
func NewAuthHandler(databaseManager managers.DatabaseMgr, sessionManager managers.SessionMgr,
	kakaoManager managers.KakaoMgr, secureCookies bool) AuthHdl {
	return &AuthHandler{
		databaseManager: databaseManager,
		sessionManager:  sessionManager,
		kakaoManager:    kakaoManager,
		secureCookies:   secureCookies,
	}
}

// Login redirects the client to the Kakao authorization page.
func (handler *AuthHandler) Login(ctx *gin.Context) {
	state := uuid.NewString()
	ctx.Redirect(http.StatusFound, handler.kakaoManager.AuthCodeURL(state))
}

// Callback completes the Kakao login: it exchanges the authorization code,
// fetches the profile, upserts the user, stores the provider token and sets
// the session cookie pair. A soft-deleted account is not revived; the same
// Kakao id gets a fresh user row.
func (handler *AuthHandler) Callback(ctx *gin.Context) {
	code := ctx.Query(utils.CodeParamKey)
	if code == "" {
		utils.WriteAndLogError(ctx, schemas.BadRequest, http.StatusBadRequest, errors.New("missing authorization code"))
		return
	}

	providerToken, err := handler.kakaoManager.ExchangeCode(ctx, code)
	if err != nil {
		writeProviderError(ctx, err)
		return
	}

	profile, err := handler.kakaoManager.FetchProfile(ctx, providerToken.AccessToken)
	if err != nil {
		writeProviderError(ctx, err)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	now := time.Now()
	var userId uuid.UUID
	var nickname string

	queryString := "SELECT user_id, nickname FROM users WHERE kakao_id = $1 AND deleted_at IS NULL"
	err = tx.QueryRow(ctx, queryString, profile.ID).Scan(&userId, &nickname)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if userId, nickname, err = handler.createUser(ctx, tx, profile, now); err != nil {
			return
		}
	case err != nil:
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	default:
		queryString = "UPDATE users SET last_login = $1, updated_at = $1 WHERE user_id = $2"
		if _, err = tx.Exec(ctx, queryString, now, userId); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
	}

	queryString = "INSERT INTO tokens (token_id, user_id, token, refresh_token, created_at) VALUES ($1, $2, $3, $4, $5)"
	if _, err = tx.Exec(ctx, queryString, uuid.New(), userId, providerToken.AccessToken,
		providerToken.RefreshToken, now); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	pair, err := handler.sessionManager.Issue(userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	handler.setSessionCookies(ctx, pair)
	utils.WriteAndLogResponse(ctx, &schemas.LoginResultDTO{Message: "login success", Nickname: nickname}, http.StatusOK)
}

// Refresh mints a new access token from the refresh cookie and replaces the
// access cookie. The refresh token itself is not rotated.
func (handler *AuthHandler) Refresh(ctx *gin.Context) {
	refreshToken, err := ctx.Cookie(managers.RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errors.New("no refresh token provided"))
		return
	}

	accessToken, err := handler.sessionManager.Refresh(refreshToken)
	if err != nil {
		if errors.Is(err, managers.ErrTokenExpired) {
			utils.WriteAndLogError(ctx, schemas.TokenExpired, http.StatusUnauthorized, err)
			return
		}
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusUnauthorized, err)
		return
	}

	ctx.SetCookie(managers.AccessTokenCookie, accessToken,
		int(handler.sessionManager.AccessTTL().Seconds()), "/", "", handler.secureCookies, true)
	utils.WriteAndLogResponse(ctx, &schemas.TokenPairDTO{AccessToken: accessToken}, http.StatusOK)
}

// Logout terminates the session: best-effort provider logout with a verified
// provider token, expiry of the stored provider tokens and removal of the
// session cookies. Provider failures are logged but never block the local
// teardown.
func (handler *AuthHandler) Logout(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	handler.logoutProvider(ctx, tx, userId)

	if err = handler.expireProviderTokens(ctx, tx, userId); err != nil {
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	handler.clearSessionCookies(ctx)
	ctx.Status(http.StatusNoContent)
}

// DeleteAccount soft-deletes the user: best-effort provider unlink, deleted_at
// on the user row, expiry of all their provider tokens and removal of the
// session cookies.
func (handler *AuthHandler) DeleteAccount(ctx *gin.Context) {
	userId, ok := utils.CurrentUserId(ctx)
	if !ok {
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, errNoSession)
		return
	}

	tx := utils.BeginTransaction(ctx, handler.databaseManager.GetPool())
	if tx == nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, errTransaction)
		return
	}
	var err error
	defer func() { utils.RollbackTransaction(ctx, tx, err) }()

	if providerToken := handler.liveProviderToken(ctx, tx, userId); providerToken != "" {
		if unlinkErr := handler.kakaoManager.Unlink(ctx, providerToken); unlinkErr != nil {
			utils.LogMessageWithFieldsAndError(ctx, "warn", "Provider unlink failed, continuing teardown", unlinkErr)
		}
	}

	queryString := "UPDATE users SET deleted_at = $1, updated_at = $1 WHERE user_id = $2 AND deleted_at IS NULL"
	commandTag, err := tx.Exec(ctx, queryString, time.Now(), userId)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if commandTag.RowsAffected() == 0 {
		err = errors.New("user not found")
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
		return
	}

	if err = handler.expireProviderTokens(ctx, tx, userId); err != nil {
		return
	}

	if err = utils.CommitTransaction(ctx, tx); err != nil {
		return
	}

	handler.clearSessionCookies(ctx)
	ctx.Status(http.StatusNoContent)
}

// createUser inserts a fresh user with a default settings row. The insert runs
// inside a savepoint so a unique violation leaves the surrounding transaction
// usable: a nickname collision is retried with a suffixed nickname, while a
// kakao id collision means a concurrent callback already created the account,
// whose row is used instead.
func (handler *AuthHandler) createUser(ctx *gin.Context, tx pgx.Tx,
	profile *managers.KakaoProfile, now time.Time) (uuid.UUID, string, error) {
	userId := uuid.New()
	user := &schemas.User{
		ID:        &userId,
		KakaoID:   profile.ID,
		Nickname:  profile.Nickname,
		CreatedAt: &now,
		UpdatedAt: &now,
		LastLogin: &now,
	}

	queryString := `INSERT INTO users (user_id, kakao_id, nickname, created_at, updated_at, last_login)
					VALUES ($1, $2, $3, $4, $4, $4)`

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return uuid.Nil, "", err
	}

	if _, err = savepoint.Exec(ctx, queryString, user.ID, user.KakaoID, user.Nickname, user.CreatedAt); err == nil {
		if err = savepoint.Commit(ctx); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return uuid.Nil, "", err
		}
		if err = handler.createDefaultSettings(ctx, tx, userId, now); err != nil {
			return uuid.Nil, "", err
		}
		return userId, user.Nickname, nil
	}

	if rollbackErr := savepoint.Rollback(ctx); rollbackErr != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Error rolling back savepoint", rollbackErr)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return uuid.Nil, "", err
	}

	if pgErr.ConstraintName == "users_nickname_live_key" {
		// Another live user already carries this provider nickname
		user.Nickname = user.Nickname + "-" + userId.String()[:4]
		if _, err = tx.Exec(ctx, queryString, user.ID, user.KakaoID, user.Nickname, user.CreatedAt); err != nil {
			utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
			return uuid.Nil, "", err
		}
		if err = handler.createDefaultSettings(ctx, tx, userId, now); err != nil {
			return uuid.Nil, "", err
		}
		return userId, user.Nickname, nil
	}

	// The same kakao id landed twice; use the row the concurrent callback won.
	var winnerId uuid.UUID
	var winnerNickname string
	queryString = "SELECT user_id, nickname FROM users WHERE kakao_id = $1 AND deleted_at IS NULL"
	if err = tx.QueryRow(ctx, queryString, profile.ID).Scan(&winnerId, &winnerNickname); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return uuid.Nil, "", err
	}
	return winnerId, winnerNickname, nil
}

func (handler *AuthHandler) createDefaultSettings(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID, now time.Time) error {
	settingId := uuid.New()
	defaults := &schemas.Setting{
		ID:           &settingId,
		UserID:       &userId,
		DarkMode:     false,
		Notification: true,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	queryString := `INSERT INTO settings (setting_id, user_id, dark_mode, notification, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $5)`
	if _, err := tx.Exec(ctx, queryString, defaults.ID, defaults.UserID,
		defaults.DarkMode, defaults.Notification, defaults.CreatedAt); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}
	return nil
}

func (handler *AuthHandler) logoutProvider(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID) {
	providerToken := handler.liveProviderToken(ctx, tx, userId)
	if providerToken == "" {
		return
	}

	if err := handler.kakaoManager.Logout(ctx, providerToken); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Provider logout failed, continuing teardown", err)
	}
}

// liveProviderToken returns a provider access token fit for a remote call.
// The stored token is verified against the provider first; a stale token is
// refreshed once through the stored refresh token and the replacement
// persisted as a new row.
func (handler *AuthHandler) liveProviderToken(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID) string {
	stored := handler.currentProviderToken(ctx, tx, userId)
	if stored == nil {
		return ""
	}

	valid, err := handler.kakaoManager.ValidateToken(ctx, stored.Token)
	if err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Provider token check failed", err)
		return stored.Token
	}
	if valid || stored.RefreshToken == "" {
		return stored.Token
	}

	refreshed, err := handler.kakaoManager.RefreshProviderToken(ctx, stored.RefreshToken)
	if err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Provider token refresh failed", err)
		return stored.Token
	}

	now := time.Now()
	if _, err = tx.Exec(ctx, "UPDATE tokens SET expires_at = $1 WHERE token_id = $2", now, stored.ID); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Error expiring stale provider token", err)
	}
	queryString := "INSERT INTO tokens (token_id, user_id, token, refresh_token, created_at) VALUES ($1, $2, $3, $4, $5)"
	if _, err = tx.Exec(ctx, queryString, uuid.New(), userId,
		refreshed.AccessToken, refreshed.RefreshToken, now); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Error storing refreshed provider token", err)
	}
	return refreshed.AccessToken
}

func (handler *AuthHandler) currentProviderToken(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID) *schemas.ProviderToken {
	queryString := `SELECT token_id, token, refresh_token FROM tokens WHERE user_id = $1 AND expires_at IS NULL
					ORDER BY created_at DESC LIMIT 1`

	var tokenId uuid.UUID
	var refreshToken pgtype.Text
	stored := &schemas.ProviderToken{UserID: &userId}
	if err := tx.QueryRow(ctx, queryString, userId).Scan(&tokenId, &stored.Token, &refreshToken); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			utils.LogMessageWithFieldsAndError(ctx, "warn", "Error fetching provider token", err)
		}
		return nil
	}
	stored.ID = &tokenId
	if refreshToken.Valid {
		stored.RefreshToken = refreshToken.String
	}
	return stored
}

func (handler *AuthHandler) expireProviderTokens(ctx *gin.Context, tx pgx.Tx, userId uuid.UUID) error {
	queryString := "UPDATE tokens SET expires_at = $1 WHERE user_id = $2 AND expires_at IS NULL"
	if _, err := tx.Exec(ctx, queryString, time.Now(), userId); err != nil {
		utils.WriteAndLogError(ctx, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}
	return nil
}

func (handler *AuthHandler) setSessionCookies(ctx *gin.Context, pair *schemas.TokenPairDTO) {
	accessMaxAge := int(handler.sessionManager.AccessTTL().Seconds())
	refreshMaxAge := int(handler.sessionManager.RefreshTTL().Seconds())

	ctx.SetCookie(managers.AccessTokenCookie, pair.AccessToken, accessMaxAge, "/", "", handler.secureCookies, true)
	ctx.SetCookie(managers.RefreshTokenCookie, pair.RefreshToken, refreshMaxAge, "/", "", handler.secureCookies, true)
}

func (handler *AuthHandler) clearSessionCookies(ctx *gin.Context) {
	ctx.SetCookie(managers.AccessTokenCookie, "", -1, "/", "", handler.secureCookies, true)
	ctx.SetCookie(managers.RefreshTokenCookie, "", -1, "/", "", handler.secureCookies, true)
}

// writeProviderError maps provider client failures to the error envelope. A
// rejected upstream call keeps its upstream status visible in the logs.
func writeProviderError(ctx *gin.Context, err error) {
	var providerErr *managers.ProviderError
	if errors.As(err, &providerErr) {
		utils.WriteAndLogError(ctx, schemas.ProviderError, http.StatusBadGateway, err)
		return
	}
	utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
}

package routing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/team-ddrawry/ddrawry-server/internal/config"
	"github.com/team-ddrawry/ddrawry-server/internal/managers"
	"github.com/team-ddrawry/ddrawry-server/internal/managers/mocks"
)

const testSecret = "test-secret-test-secret"

type routerTestEnv struct {
	pool       pgxmock.PgxPoolIface
	sessionMgr managers.SessionMgr
	kakaoMgr   *mocks.MockKakaoManager
	server     *httptest.Server
	userId     uuid.UUID
	token      string
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	sessionMgr := managers.NewSessionManager(config.Session{
		Secret:     testSecret,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	kakaoMgrMock := &mocks.MockKakaoManager{}

	router := InitRouter(databaseMgrMock, sessionMgr, kakaoMgrMock, false)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	userId := uuid.New()
	pair, err := sessionMgr.Issue(userId)
	require.NoError(t, err)

	return &routerTestEnv{
		pool:       poolMock,
		sessionMgr: sessionMgr,
		kakaoMgr:   kakaoMgrMock,
		server:     server,
		userId:     userId,
		token:      pair.AccessToken,
	}
}

func (env *routerTestEnv) expect(t *testing.T) *httpexpect.Expect {
	return httpexpect.Default(t, env.server.URL)
}

func (env *routerTestEnv) authed(req *httpexpect.Request) *httpexpect.Request {
	return req.WithCookie(managers.AccessTokenCookie, env.token)
}

func TestResolveByDate(t *testing.T) {
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	t.Run("FinalizedDiaryWins", func(t *testing.T) {
		env := setupRouterTest(t)
		diaryId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT diary_id FROM diaries")).
			WithArgs(env.userId, date).
			WillReturnRows(pgxmock.NewRows([]string{"diary_id"}).AddRow(diaryId))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/diaries/")).WithQuery("date", "20240512").
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("is_exist", true).
			HasValue("id", diaryId.String()).
			HasValue("date", "2024-05-12")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("ActiveDraftReturned", func(t *testing.T) {
		env := setupRouterTest(t)
		draftId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT diary_id FROM diaries")).
			WithArgs(env.userId, date).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT temp_diary_id FROM temp_diaries")).
			WithArgs(env.userId, date).
			WillReturnRows(pgxmock.NewRows([]string{"temp_diary_id"}).AddRow(draftId))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/diaries/")).WithQuery("date", "2024-05-12").
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("is_exist", false).
			HasValue("id", draftId.String())

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("FreshDraftCreated", func(t *testing.T) {
		env := setupRouterTest(t)
		draftId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT diary_id FROM diaries")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT temp_diary_id FROM temp_diaries")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT nickname FROM users")).
			WithArgs(env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"nickname"}).AddRow("dalgona"))
		env.pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO temp_diaries")).
			WillReturnRows(pgxmock.NewRows([]string{"temp_diary_id"}).AddRow(draftId))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/diaries/")).WithQuery("date", "20240512").
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("is_exist", false).
			HasValue("id", draftId.String())

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("LostInsertRaceReturnsWinner", func(t *testing.T) {
		env := setupRouterTest(t)
		winnerId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT diary_id FROM diaries")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT temp_diary_id FROM temp_diaries")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT nickname FROM users")).
			WillReturnRows(pgxmock.NewRows([]string{"nickname"}).AddRow("dalgona"))
		env.pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO temp_diaries")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT temp_diary_id FROM temp_diaries")).
			WillReturnRows(pgxmock.NewRows([]string{"temp_diary_id"}).AddRow(winnerId))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/diaries/")).WithQuery("date", "20240512").
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("id", winnerId.String())

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("InvalidDate", func(t *testing.T) {
		env := setupRouterTest(t)

		env.authed(env.expect(t).GET("/diaries/")).WithQuery("date", "not-a-date").
			Expect().Status(http.StatusBadRequest).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-002")
	})

	t.Run("Unauthorized", func(t *testing.T) {
		env := setupRouterTest(t)

		env.expect(t).GET("/diaries/").WithQuery("date", "20240512").
			Expect().Status(http.StatusUnauthorized).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-010")
	})
}

func TestCancelDiary(t *testing.T) {
	t.Run("WriteClosesDraft", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET status = true")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).POST("/diaries/cancel")).
			WithJSON(map[string]string{"date": "20240512", "type": "write"}).
			Expect().Status(http.StatusNoContent)

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("WriteWithoutDraft", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET status = true")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		env.pool.ExpectRollback()

		env.authed(env.expect(t).POST("/diaries/cancel")).
			WithJSON(map[string]string{"date": "20240512", "type": "write"}).
			Expect().Status(http.StatusNotFound).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-006")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("MainSpawnsFreshDraft", func(t *testing.T) {
		env := setupRouterTest(t)
		draftId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET status = true")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT nickname FROM users")).
			WillReturnRows(pgxmock.NewRows([]string{"nickname"}).AddRow("dalgona"))
		env.pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO temp_diaries")).
			WillReturnRows(pgxmock.NewRows([]string{"temp_diary_id"}).AddRow(draftId))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).POST("/diaries/cancel")).
			WithJSON(map[string]string{"date": "20240512", "type": "main"}).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("id", draftId.String())

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})
}

func TestCreateDiary(t *testing.T) {
	t.Run("FinalizeClosesDraft", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT nickname FROM users")).
			WillReturnRows(pgxmock.NewRows([]string{"nickname"}).AddRow("dalgona"))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO diaries")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET status = true")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).POST("/diaries/")).
			WithJSON(map[string]interface{}{
				"date":    "20240512",
				"mood":    "happy",
				"weather": 1,
				"title":   "a sunny day",
				"story":   "went to the park",
			}).
			Expect().Status(http.StatusCreated).
			JSON().Object().ContainsKey("id")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		env := setupRouterTest(t)

		env.authed(env.expect(t).POST("/diaries/")).
			WithJSON(map[string]interface{}{
				"date":    "20240512",
				"mood":    "grumpy",
				"weather": 1,
				"title":   "a sunny day",
			}).
			Expect().Status(http.StatusBadRequest).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-003")
	})
}

func TestGetDiary(t *testing.T) {
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	t.Run("WithImage", func(t *testing.T) {
		env := setupRouterTest(t)
		diaryId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("FROM diaries d WHERE d.diary_id = $1")).
			WithArgs(diaryId, env.userId).
			WillReturnRows(pgxmock.NewRows(
				[]string{"date", "nickname", "mood", "weather", "title", "story", "liked", "image_url"}).
				AddRow(date, "dalgona", 6, 1, "a sunny day", "went to the park", true,
					pgtype.Text{String: "https://cdn.example.com/img.png", Valid: true}))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/diaries/"+diaryId.String())).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("id", diaryId.String()).
			HasValue("date", "2024-05-12").
			HasValue("mood", 6).
			HasValue("image", "https://cdn.example.com/img.png")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("EditModeSpawnsDraft", func(t *testing.T) {
		env := setupRouterTest(t)
		diaryId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("FROM diaries d WHERE d.diary_id = $1")).
			WillReturnRows(pgxmock.NewRows(
				[]string{"date", "nickname", "mood", "weather", "title", "story", "liked", "image_url"}).
				AddRow(date, "dalgona", 6, 1, "a sunny day", "went to the park", false, pgtype.Text{}))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET status = true")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO temp_diaries")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectCommit()

		response := env.authed(env.expect(t).GET("/diaries/"+diaryId.String())).
			WithQuery("edit", "true").
			Expect().Status(http.StatusOK).
			JSON().Object()
		response.Value("data").Object().HasValue("title", "a sunny day")
		response.Value("temp_id").String().NotEmpty()

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("FROM diaries d WHERE d.diary_id = $1")).
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectRollback()

		env.authed(env.expect(t).GET("/diaries/"+uuid.NewString())).
			Expect().Status(http.StatusNotFound).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-005")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})
}

func TestDraftLifecycle(t *testing.T) {
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	t.Run("GetPartiallyFilledDraft", func(t *testing.T) {
		env := setupRouterTest(t)
		tempId := uuid.New()

		env.pool.ExpectQuery(regexp.QuoteMeta("FROM temp_diaries t WHERE t.temp_diary_id = $1")).
			WithArgs(tempId, env.userId).
			WillReturnRows(pgxmock.NewRows(
				[]string{"diary_id", "date", "nickname", "mood", "weather", "title", "story"}).
				AddRow(pgtype.UUID{}, date, "dalgona",
					pgtype.Int4{Int32: 3, Valid: true}, pgtype.Int4{},
					pgtype.Text{String: "half done", Valid: true}, pgtype.Text{}))

		response := env.authed(env.expect(t).GET("/diaries/temp/"+tempId.String())).
			Expect().Status(http.StatusOK).
			JSON().Object()
		response.HasValue("id", tempId.String())
		response.HasValue("mood", 3)
		response.Value("weather").IsNull()
		response.HasValue("title", "half done")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("PartialUpdateKeepsAbsentFields", func(t *testing.T) {
		env := setupRouterTest(t)
		tempId := uuid.New()

		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET updated_at = $1, title = $2")).
			WithArgs(pgxmock.AnyArg(), "new title", tempId, env.userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).PUT("/diaries/temp/"+tempId.String())).
			WithJSON(map[string]string{"title": "new title"}).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("id", tempId.String())

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("UpdateClosedDraft", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE temp_diaries SET updated_at = $1")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		env.pool.ExpectRollback()

		env.authed(env.expect(t).PUT("/diaries/temp/"+uuid.NewString())).
			WithJSON(map[string]string{"story": "too late"}).
			Expect().Status(http.StatusNotFound).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-006")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})
}

func TestToggleLike(t *testing.T) {
	t.Run("TogglesAndReturnsNewState", func(t *testing.T) {
		env := setupRouterTest(t)
		diaryId := uuid.New()

		env.pool.ExpectQuery(regexp.QuoteMeta("UPDATE diaries SET liked = NOT liked")).
			WithArgs(pgxmock.AnyArg(), diaryId, env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"liked"}).AddRow(true))

		env.authed(env.expect(t).PUT("/diaries/like/"+diaryId.String())).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("id", diaryId.String()).
			HasValue("bookmark", true)

		env.pool.ExpectQuery(regexp.QuoteMeta("UPDATE diaries SET liked = NOT liked")).
			WithArgs(pgxmock.AnyArg(), diaryId, env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"liked"}).AddRow(false))

		env.authed(env.expect(t).PUT("/diaries/like/"+diaryId.String())).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("bookmark", false)

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("DeletedDiary", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectQuery(regexp.QuoteMeta("UPDATE diaries SET liked = NOT liked")).
			WillReturnError(pgx.ErrNoRows)

		env.authed(env.expect(t).PUT("/diaries/like/"+uuid.NewString())).
			Expect().Status(http.StatusNotFound).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-005")
	})
}

func TestSearchDiaries(t *testing.T) {
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	t.Run("PaginatedResults", func(t *testing.T) {
		env := setupRouterTest(t)
		diaryId := uuid.New()

		env.pool.ExpectQuery(regexp.QuoteMeta("d.title ILIKE")).
			WithArgs(env.userId, "sunny").
			WillReturnRows(pgxmock.NewRows([]string{"diary_id", "date", "title", "image_url", "liked"}).
				AddRow(diaryId, date, "a sunny day", pgtype.Text{}, false))

		response := env.authed(env.expect(t).GET("/diaries/search")).
			WithQuery("keyword", "sunny").
			Expect().Status(http.StatusOK).
			JSON().Object()
		response.Value("records").Array().Length().IsEqual(1)
		response.Value("pagination").Object().HasValue("records", 1)

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("MissingKeyword", func(t *testing.T) {
		env := setupRouterTest(t)

		env.authed(env.expect(t).GET("/diaries/search")).
			Expect().Status(http.StatusBadRequest).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-001")
	})
}

func TestMainView(t *testing.T) {
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	t.Run("CalendarOmitsTitles", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectQuery(regexp.QuoteMeta("d.date >= $2 AND d.date < $3")).
			WithArgs(env.userId,
				time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)).
			WillReturnRows(pgxmock.NewRows([]string{"diary_id", "date", "title", "image_url", "liked"}).
				AddRow(uuid.New(), date, "a sunny day", pgtype.Text{}, true))

		entries := env.authed(env.expect(t).GET("/diaries/main")).
			WithQuery("type", "calendar").WithQuery("date", "202405").
			Expect().Status(http.StatusOK).
			JSON().Array()
		entries.Length().IsEqual(1)
		entries.Value(0).Object().NotContainsKey("title")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("InvalidMonth", func(t *testing.T) {
		env := setupRouterTest(t)

		env.authed(env.expect(t).GET("/diaries/main")).
			WithQuery("type", "list").WithQuery("date", "2024-05").
			Expect().Status(http.StatusBadRequest).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-002")
	})
}

func TestUpdateNickname(t *testing.T) {
	t.Run("Conflict", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM users WHERE nickname = $1")).
			WithArgs("taken").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(uuid.New()))
		env.pool.ExpectRollback()

		env.authed(env.expect(t).PUT("/users/nickname")).
			WithJSON(map[string]string{"nickname": "taken"}).
			Expect().Status(http.StatusConflict).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-007")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("OwnNicknameSucceeds", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM users WHERE nickname = $1")).
			WithArgs("mine").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(env.userId))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE users SET nickname = $1")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).PUT("/users/nickname")).
			WithJSON(map[string]string{"nickname": "mine"}).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("nickname", "mine")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("FreshNickname", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM users WHERE nickname = $1")).
			WithArgs("fresh").
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE users SET nickname = $1")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).PUT("/users/nickname")).
			WithJSON(map[string]string{"nickname": "fresh"}).
			Expect().Status(http.StatusOK).
			JSON().Object().
			HasValue("nickname", "fresh")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("RenameRaceMapsToConflict", func(t *testing.T) {
		env := setupRouterTest(t)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM users WHERE nickname = $1")).
			WithArgs("contested").
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE users SET nickname = $1")).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_nickname_live_key"})
		env.pool.ExpectRollback()

		env.authed(env.expect(t).PUT("/users/nickname")).
			WithJSON(map[string]string{"nickname": "contested"}).
			Expect().Status(http.StatusConflict).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-007")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})
}

func TestUpdateSettings(t *testing.T) {
	env := setupRouterTest(t)

	env.pool.ExpectBegin()
	env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	env.pool.ExpectQuery(regexp.QuoteMeta("UPDATE settings SET")).
		WillReturnRows(pgxmock.NewRows([]string{"dark_mode", "notification"}).AddRow(true, true))
	env.pool.ExpectCommit()

	env.authed(env.expect(t).PATCH("/users/settings")).
		WithJSON(map[string]bool{"dark_mode": true}).
		Expect().Status(http.StatusOK).
		JSON().Object().
		HasValue("dark_mode", true).
		HasValue("notification", true)

	assert.NoError(t, env.pool.ExpectationsWereMet())
}

func TestKakaoCallback(t *testing.T) {
	t.Run("FirstLoginCreatesUser", func(t *testing.T) {
		env := setupRouterTest(t)

		env.kakaoMgr.On("ExchangeCode", mock.Anything, "good-code").
			Return(&managers.KakaoToken{AccessToken: "provider-access", RefreshToken: "provider-refresh"}, nil)
		env.kakaoMgr.On("FetchProfile", mock.Anything, "provider-access").
			Return(&managers.KakaoProfile{ID: "1234567890", Nickname: "dalgona"}, nil)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id, nickname FROM users WHERE kakao_id = $1")).
			WithArgs("1234567890").
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectCommit()
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectCommit()

		response := env.expect(t).GET("/auth/kakao/callback").
			WithQuery("code", "good-code").
			Expect().Status(http.StatusOK)
		response.JSON().Object().HasValue("nickname", "dalgona")
		response.Cookie(managers.AccessTokenCookie).Value().NotEmpty()
		response.Cookie(managers.RefreshTokenCookie).Value().NotEmpty()

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("NicknameCollisionRetriesWithSuffix", func(t *testing.T) {
		env := setupRouterTest(t)

		env.kakaoMgr.On("ExchangeCode", mock.Anything, "good-code").
			Return(&managers.KakaoToken{AccessToken: "provider-access", RefreshToken: "provider-refresh"}, nil)
		env.kakaoMgr.On("FetchProfile", mock.Anything, "provider-access").
			Return(&managers.KakaoProfile{ID: "1234567890", Nickname: "dalgona"}, nil)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id, nickname FROM users WHERE kakao_id = $1")).
			WithArgs("1234567890").
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_nickname_live_key"})
		env.pool.ExpectRollback()
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectCommit()

		env.expect(t).GET("/auth/kakao/callback").
			WithQuery("code", "good-code").
			Expect().Status(http.StatusOK).
			JSON().Object().Value("nickname").String().HasPrefix("dalgona-")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("ConcurrentCallbackReusesExistingUser", func(t *testing.T) {
		env := setupRouterTest(t)
		winnerId := uuid.New()

		env.kakaoMgr.On("ExchangeCode", mock.Anything, "good-code").
			Return(&managers.KakaoToken{AccessToken: "provider-access", RefreshToken: "provider-refresh"}, nil)
		env.kakaoMgr.On("FetchProfile", mock.Anything, "provider-access").
			Return(&managers.KakaoProfile{ID: "1234567890", Nickname: "dalgona"}, nil)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id, nickname FROM users WHERE kakao_id = $1")).
			WithArgs("1234567890").
			WillReturnError(pgx.ErrNoRows)
		env.pool.ExpectBegin()
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_kakao_id_live_key"})
		env.pool.ExpectRollback()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT user_id, nickname FROM users WHERE kakao_id = $1")).
			WithArgs("1234567890").
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "nickname"}).AddRow(winnerId, "dalgona"))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectCommit()

		env.expect(t).GET("/auth/kakao/callback").
			WithQuery("code", "good-code").
			Expect().Status(http.StatusOK).
			JSON().Object().HasValue("nickname", "dalgona")

		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("ProviderRejectsCode", func(t *testing.T) {
		env := setupRouterTest(t)

		env.kakaoMgr.On("ExchangeCode", mock.Anything, "stale-code").
			Return(nil, &managers.ProviderError{Operation: "token exchange", StatusCode: http.StatusBadRequest})

		env.expect(t).GET("/auth/kakao/callback").
			WithQuery("code", "stale-code").
			Expect().Status(http.StatusBadGateway).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-013")
	})
}

func TestRefreshSession(t *testing.T) {
	t.Run("MintsNewAccessToken", func(t *testing.T) {
		env := setupRouterTest(t)
		pair, err := env.sessionMgr.Issue(env.userId)
		require.NoError(t, err)

		response := env.expect(t).GET("/auth/refresh").
			WithCookie(managers.RefreshTokenCookie, pair.RefreshToken).
			Expect().Status(http.StatusOK)
		response.JSON().Object().Value("accessToken").String().NotEmpty()
		response.Cookie(managers.AccessTokenCookie).Value().NotEmpty()
	})

	t.Run("ExpiredRefreshToken", func(t *testing.T) {
		env := setupRouterTest(t)
		expiredMgr := managers.NewSessionManager(config.Session{
			Secret:     testSecret,
			AccessTTL:  -time.Minute,
			RefreshTTL: -time.Minute,
		})
		pair, err := expiredMgr.Issue(env.userId)
		require.NoError(t, err)

		env.expect(t).GET("/auth/refresh").
			WithCookie(managers.RefreshTokenCookie, pair.RefreshToken).
			Expect().Status(http.StatusUnauthorized).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-011")
	})

	t.Run("MalformedRefreshToken", func(t *testing.T) {
		env := setupRouterTest(t)

		env.expect(t).GET("/auth/refresh").
			WithCookie(managers.RefreshTokenCookie, "garbage").
			Expect().Status(http.StatusUnauthorized).
			JSON().Object().Value("error").Object().
			HasValue("code", "ERR-012")
	})
}

func TestLogout(t *testing.T) {
	t.Run("ProviderFailureDoesNotBlockTeardown", func(t *testing.T) {
		env := setupRouterTest(t)

		env.kakaoMgr.On("ValidateToken", mock.Anything, "provider-access").Return(true, nil)
		env.kakaoMgr.On("Logout", mock.Anything, "provider-access").
			Return(errors.New("provider unreachable"))

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT token_id, token, refresh_token FROM tokens")).
			WithArgs(env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "token", "refresh_token"}).
				AddRow(uuid.New(), "provider-access", pgtype.Text{String: "provider-refresh", Valid: true}))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expires_at = $1 WHERE user_id = $2")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/auth/kakao/logout")).
			Expect().Status(http.StatusNoContent)

		env.kakaoMgr.AssertCalled(t, "Logout", mock.Anything, "provider-access")
		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("StaleTokenRefreshedBeforeProviderLogout", func(t *testing.T) {
		env := setupRouterTest(t)
		tokenId := uuid.New()

		env.kakaoMgr.On("ValidateToken", mock.Anything, "stale-access").Return(false, nil)
		env.kakaoMgr.On("RefreshProviderToken", mock.Anything, "provider-refresh").
			Return(&managers.KakaoToken{AccessToken: "fresh-access", RefreshToken: "fresh-refresh"}, nil)
		env.kakaoMgr.On("Logout", mock.Anything, "fresh-access").Return(nil)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT token_id, token, refresh_token FROM tokens")).
			WithArgs(env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "token", "refresh_token"}).
				AddRow(tokenId, "stale-access", pgtype.Text{String: "provider-refresh", Valid: true}))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expires_at = $1 WHERE token_id = $2")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expires_at = $1 WHERE user_id = $2")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/auth/kakao/logout")).
			Expect().Status(http.StatusNoContent)

		env.kakaoMgr.AssertCalled(t, "Logout", mock.Anything, "fresh-access")
		env.kakaoMgr.AssertNotCalled(t, "Logout", mock.Anything, "stale-access")
		assert.NoError(t, env.pool.ExpectationsWereMet())
	})

	t.Run("TokenWithoutRefreshUsedAsIs", func(t *testing.T) {
		env := setupRouterTest(t)

		env.kakaoMgr.On("ValidateToken", mock.Anything, "stale-access").Return(false, nil)
		env.kakaoMgr.On("Logout", mock.Anything, "stale-access").Return(nil)

		env.pool.ExpectBegin()
		env.pool.ExpectQuery(regexp.QuoteMeta("SELECT token_id, token, refresh_token FROM tokens")).
			WithArgs(env.userId).
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "token", "refresh_token"}).
				AddRow(uuid.New(), "stale-access", pgtype.Text{}))
		env.pool.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expires_at = $1 WHERE user_id = $2")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		env.pool.ExpectCommit()

		env.authed(env.expect(t).GET("/auth/kakao/logout")).
			Expect().Status(http.StatusNoContent)

		env.kakaoMgr.AssertCalled(t, "Logout", mock.Anything, "stale-access")
		env.kakaoMgr.AssertNotCalled(t, "RefreshProviderToken", mock.Anything, mock.Anything)
		assert.NoError(t, env.pool.ExpectationsWereMet())
	})
}

func TestDeleteAccount(t *testing.T) {
	env := setupRouterTest(t)

	env.kakaoMgr.On("ValidateToken", mock.Anything, "provider-access").Return(true, nil)
	env.kakaoMgr.On("Unlink", mock.Anything, "provider-access").Return(nil)

	env.pool.ExpectBegin()
	env.pool.ExpectQuery(regexp.QuoteMeta("SELECT token_id, token, refresh_token FROM tokens")).
		WithArgs(env.userId).
		WillReturnRows(pgxmock.NewRows([]string{"token_id", "token", "refresh_token"}).
			AddRow(uuid.New(), "provider-access", pgtype.Text{String: "provider-refresh", Valid: true}))
	env.pool.ExpectExec(regexp.QuoteMeta("UPDATE users SET deleted_at")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	env.pool.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expires_at")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	env.pool.ExpectCommit()

	env.authed(env.expect(t).DELETE("/auth/")).
		Expect().Status(http.StatusNoContent)

	env.kakaoMgr.AssertCalled(t, "Unlink", mock.Anything, "provider-access")
	assert.NoError(t, env.pool.ExpectationsWereMet())
}

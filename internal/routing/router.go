// Package routing wires the middleware stack and the route groups of the server.
package routing

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/team-ddrawry/ddrawry-server/internal/handlers"
	"github.com/team-ddrawry/ddrawry-server/internal/managers"
	"github.com/team-ddrawry/ddrawry-server/internal/middleware"
	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

// InitRouter builds the gin engine with the common middleware and all route
// groups.
func InitRouter(databaseMgr managers.DatabaseMgr, sessionMgr managers.SessionMgr,
	kakaoMgr managers.KakaoMgr, secureCookies bool) *gin.Engine {
	router := gin.New()
	setupCommonMiddleware(router)
	setupRoutes(router, databaseMgr, sessionMgr, kakaoMgr, secureCookies)

	return router
}

func setupCommonMiddleware(router *gin.Engine) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.InjectTrace())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "https://ddrawry.netlify.app"},
		AllowMethods:     []string{"GET", "PATCH", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
}

func setupRoutes(router *gin.Engine, databaseMgr managers.DatabaseMgr, sessionMgr managers.SessionMgr,
	kakaoMgr managers.KakaoMgr, secureCookies bool) {
	// Version route
	router.GET("/", func(c *gin.Context) {
		apiVersion := os.Getenv("API_VERSION")
		if apiVersion == "" {
			apiVersion = "main:latest"
		}
		metadata := &schemas.MetadataDTO{
			ApiVersion: apiVersion,
			ApiName:    "ddrawry",
		}
		utils.WriteAndLogResponse(c, metadata, http.StatusOK)
	})

	// Health route
	router.GET("/health", func(c *gin.Context) {
		if err := databaseMgr.GetPool().Ping(c); err != nil {
			c.String(http.StatusInternalServerError, "Database not responding")
			return
		}
		c.Status(http.StatusOK)
	})

	authHdl := handlers.NewAuthHandler(databaseMgr, sessionMgr, kakaoMgr, secureCookies)
	authRouter := router.Group("/auth")
	authRoutes(authRouter, authHdl, sessionMgr)

	diaryHdl := handlers.NewDiaryHandler(databaseMgr)
	diaryRouter := router.Group("/diaries")
	diaryRouter.Use(sessionMgr.AuthMiddleware())
	diaryRoutes(diaryRouter, diaryHdl)

	userHdl := handlers.NewUserHandler(databaseMgr)
	userRouter := router.Group("/users")
	userRouter.Use(sessionMgr.AuthMiddleware())
	userRoutes(userRouter, userHdl)
}

func authRoutes(authRouter *gin.RouterGroup, authHdl handlers.AuthHdl, sessionMgr managers.SessionMgr) {
	authRouter.GET("/kakao/login", authHdl.Login)
	authRouter.GET("/kakao/callback", authHdl.Callback)
	authRouter.GET("/refresh", authHdl.Refresh)
	authRouter.GET("/kakao/logout", sessionMgr.AuthMiddleware(), authHdl.Logout)
	authRouter.DELETE("/", sessionMgr.AuthMiddleware(), authHdl.DeleteAccount)
}

func diaryRoutes(diaryRouter *gin.RouterGroup, diaryHdl handlers.DiaryHdl) {
	diaryRouter.GET("/", diaryHdl.Resolve)
	diaryRouter.POST("/", middleware.ValidateAndSanitizeStruct(&schemas.CreateDiaryRequest{}), diaryHdl.CreateDiary)
	diaryRouter.POST("/cancel", middleware.ValidateAndSanitizeStruct(&schemas.CancelDiaryRequest{}), diaryHdl.Cancel)
	diaryRouter.GET("/search", diaryHdl.SearchDiaries)
	diaryRouter.GET("/main", diaryHdl.GetMainView)
	diaryRouter.GET("/like", diaryHdl.GetLikedDiaries)
	diaryRouter.PUT("/like/:"+utils.DiaryIdKey, diaryHdl.ToggleLike)
	diaryRouter.GET("/temp/:"+utils.TempIdKey, diaryHdl.GetDraft)
	diaryRouter.PUT("/temp/:"+utils.TempIdKey, middleware.ValidateAndSanitizeStruct(&schemas.UpdateDraftRequest{}), diaryHdl.UpdateDraft)
	diaryRouter.GET("/:"+utils.DiaryIdKey, diaryHdl.GetDiary)
	diaryRouter.PUT("/:"+utils.DiaryIdKey, middleware.ValidateAndSanitizeStruct(&schemas.UpdateDiaryRequest{}), diaryHdl.UpdateDiary)
	diaryRouter.DELETE("/:"+utils.DiaryIdKey, diaryHdl.DeleteDiary)
}

func userRoutes(userRouter *gin.RouterGroup, userHdl handlers.UserHdl) {
	userRouter.PATCH("/settings", middleware.ValidateAndSanitizeStruct(&schemas.UpdateSettingsRequest{}), userHdl.UpdateSettings)
	userRouter.PUT("/nickname", middleware.ValidateAndSanitizeStruct(&schemas.UpdateNicknameRequest{}), userHdl.UpdateNickname)
}

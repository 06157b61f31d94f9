package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/team-ddrawry/ddrawry-server/internal/config"
	"github.com/team-ddrawry/ddrawry-server/internal/database"
	"github.com/team-ddrawry/ddrawry-server/internal/managers"
	"github.com/team-ddrawry/ddrawry-server/internal/routing"
)

const envFile = ".env"

// Init loads the configuration, connects to the database, applies pending
// migrations and starts the server.
func Init() {
	if err := godotenv.Load(envFile); err != nil {
		log.Info("No .env file found, using environment variables from system")
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}
	setLogLevel(cfg.LogLevel)

	if err := database.RunMigrations(cfg.Database.MigrateURL()); err != nil {
		log.Fatal("Error running migrations: ", err)
	}
	log.Info("Database schema up to date")

	pool := initializeDatabase(cfg.Database)
	defer pool.Close()

	databaseMgr := managers.NewDatabaseManager(pool)
	sessionMgr := managers.NewSessionManager(cfg.Session)
	kakaoMgr := managers.NewKakaoManager(cfg.Kakao)

	r := routing.InitRouter(databaseMgr, sessionMgr, kakaoMgr, cfg.Session.SecureCookies)
	log.Info("Initialized router")

	// Handle interrupt signal gracefully
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)

		<-c
		log.Println("Server shutting down...")
		os.Exit(0)
	}()

	log.Printf("Starting server on port %s...\n", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Error starting server: ", err)
	}
}

func initializeDatabase(cfg config.Database) *pgxpool.Pool {
	log.Info("Initializing database")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		log.Fatal("error configuring database: ", err)
	}

	poolConfig.MinConns = 5
	poolConfig.MaxConns = 30
	poolConfig.MaxConnIdleTime = time.Minute * 2
	poolConfig.HealthCheckPeriod = time.Minute * 1

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatal("error connecting to database: ", err)
	}
	log.Info("Connected to database")
	return pool
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	case "FATAL":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

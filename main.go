package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/gif"
	"groupchat-backend/internal/handlers"
	"groupchat-backend/internal/hub"
	"groupchat-backend/internal/jwt"
	"groupchat-backend/internal/keyValue"
	"groupchat-backend/internal/models"
	"groupchat-backend/internal/snowflake"
	"groupchat-backend/internal/storage"
)

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()

	if cfg.LogToFile {
		config.OutputPaths = []string{"app.log", "stdout"}
	} else {
		config.OutputPaths = []string{"stdout"}
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	config.Level = level

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (*models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return nil, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	fmt.Println("Connecting to database...")
	repo, err := database.NewMongoStore(cfg.MongoUri, cfg.MongoDatabase)
	if err != nil {
		sugar.Fatal(err)
	}

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(cfg)
		if err != nil {
			sugar.Fatal(err)
		}
	} else {
		fmt.Println("Running in self-contained mode, skipping redis...")
	}

	sessionIDs, err := snowflake.NewGenerator(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	wsHub := hub.NewHub(sugar, repo, redisClient, cfg.SelfContained, sessionIDs)
	kv := keyValue.New(sugar, redisClient, cfg.SelfContained)

	var verifier *jwt.Verifier
	if cfg.JwtSecret != "" {
		verifier = jwt.NewVerifier(cfg.JwtSecret)
	} else {
		sugar.Warn("JwtSecret is empty, requests will not be authenticated")
	}

	isHttps := cfg.TlsCert != "" && cfg.TlsKey != ""

	var httpProtocol string
	if isHttps {
		httpProtocol = "https"
	} else {
		httpProtocol = "http"
	}

	baseURL := cfg.PublicBaseUrl
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", httpProtocol, cfg.Address, cfg.Port)
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "./public"
	}
	uploader := storage.NewLocalUploader(uploadDir, baseURL)

	gifClient := gif.NewClient(cfg.GifApiUrl, cfg.GifApiKey)

	h := handlers.New(sugar, repo, wsHub, uploader, gifClient, verifier, kv)
	router := h.Router(cfg, uploadDir)

	fmt.Printf("Server is running on %s://%s:%s\n", httpProtocol, cfg.Address, cfg.Port)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Address, cfg.Port),
		Handler: router,
	}

	go func() {
		var err error
		if isHttps {
			err = server.ListenAndServeTLS(cfg.TlsCert, cfg.TlsKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Error(err)
	}
	if err := repo.Close(shutdownCtx); err != nil {
		sugar.Error(err)
	}
}

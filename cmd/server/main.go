package main

import (
	"log"

	"github.com/classmate/classroom-assistant/internal/config"
	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/server"
	"github.com/classmate/classroom-assistant/pkg/database"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Shutdown()

	log.Printf("classroom assistant listening on :%s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Lecture{},
		&model.Task{},
		&model.Notification{},
		&model.ChatRoom{},
		&model.ChatMessage{},
	)
}

func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		log.Println("REDIS_URL not set, live notifications and rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, redis disabled: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}

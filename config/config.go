package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds everything the process needs to run. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	BotToken string

	AppPort int

	MongoURI string
	MongoDB  string

	// Google Drive credentials for photo uploads
	DriveClientID     string
	DriveClientSecret string
	DriveRefreshToken string
	DriveFolderID     string
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.BotToken = cast.ToString(getOrReturnDefault("BOT_TOKEN", ""))
	cfg.AppPort = cast.ToInt(getOrReturnDefault("PORT", 8080))

	cfg.MongoURI = cast.ToString(getOrReturnDefault("MONGO_URI", "mongodb://localhost:27017"))
	cfg.MongoDB = cast.ToString(getOrReturnDefault("MONGO_DB", "baraholka"))

	cfg.DriveClientID = cast.ToString(getOrReturnDefault("DRIVE_CLIENT_ID", ""))
	cfg.DriveClientSecret = cast.ToString(getOrReturnDefault("DRIVE_CLIENT_SECRET", ""))
	cfg.DriveRefreshToken = cast.ToString(getOrReturnDefault("DRIVE_REFRESH_TOKEN", ""))
	cfg.DriveFolderID = cast.ToString(getOrReturnDefault("DRIVE_FOLDER_ID", ""))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

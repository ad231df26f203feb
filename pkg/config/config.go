package config

import "os"

type Config struct {
	Port                    string
	Env                     string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	CloudinaryURL           string
	RedisAddr               string
	FirebaseCredentialsPath string
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "odinbook"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		CloudinaryURL:           getEnv("CLOUDINARY_URL", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

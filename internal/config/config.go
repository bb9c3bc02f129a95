package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string
	Env  string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	GeminiAPIKey string
	GeminiModel  string

	WebhookSecret string
	JWTSecret     string

	AMQPUrl   string
	AMQPQueue string

	AssistantName string
	FrontendURL   string
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		dbPort = 5432 // fallback
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")
	}

	queue := os.Getenv("AMQP_QUEUE")
	if queue == "" {
		queue = "triggers"
	}

	assistant := os.Getenv("ASSISTANT_NAME")
	if assistant == "" {
		assistant = "assistant"
	}

	return &Config{
		Port: port,
		Env:  os.Getenv("ENV"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     dbPort,
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		GeminiAPIKey: apiKey,
		GeminiModel:  model,

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),

		AMQPUrl:   os.Getenv("AMQP_URL"),
		AMQPQueue: queue,

		AssistantName: assistant,
		FrontendURL:   os.Getenv("FRONTEND_URL"),
	}
}

// Production reports whether the service runs with the production posture
// (unsigned webhooks rejected).
func (c *Config) Production() bool {
	return c.Env == "production"
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

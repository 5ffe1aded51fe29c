package miseagent

import "time"

type ModelConfig struct {
	Provider         string  `env:"MODEL_PROVIDER,default=gemini"`
	ModelID          string  `env:"MODEL_ID,default=gemini-2.0-flash"`
	FallbackProvider string  `env:"FALLBACK_MODEL_PROVIDER,default=groq"`
	FallbackModelID  string  `env:"FALLBACK_MODEL_ID,default=llama-3.3-70b-versatile"`
	MaxTokens        int32   `env:"MAX_TOKENS,default=1024"`
	Temperature      float32 `env:"TEMPERATURE,default=0.2"`
	TopP             float32 `env:"TOP_P,default=0.9"`
}

// ProviderConfig holds credentials for the OpenAI-compatible providers.
// Empty base URLs select each provider's public endpoint.
type ProviderConfig struct {
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`
	GroqAPIKey    string `env:"GROQ_API_KEY"`
	GroqBaseURL   string `env:"GROQ_BASE_URL"`
	OllamaBaseURL string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434/v1"`
}

type AgentConfig struct {
	MaxIterations       int           `env:"MAX_ITERATIONS,default=10"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=8"`
	TurnTimeout         time.Duration `env:"TURN_TIMEOUT,default=2m"`
	SearchDelay         time.Duration `env:"AMAZON_SEARCH_DELAY,default=1s"`
	Country             string        `env:"AMAZON_COUNTRY,default=US"`
	LogBucket           string        `env:"COORDINATION_LOG_BUCKET"`
	LogPrefix           string        `env:"COORDINATION_LOG_PREFIX,default=coordination/"`
	DebugDump           bool          `env:"DEBUG_DUMP,default=false"`
}

type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
}

type ServerConfig struct {
	Addr          string `env:"SERVER_ADDR,default=:8080"`
	JWTSecret     string `env:"JWT_SECRET"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`
}

type AmazonConfig struct {
	APIKey   string `env:"RAPIDAPI_KEY"`
	Host     string `env:"RAPIDAPI_HOST,default=real-time-amazon-data.p.rapidapi.com"`
	BaseURL  string `env:"RAPIDAPI_BASE_URL"`
}

type MCPConfig struct {
	UserID string `env:"MCP_USER_ID,default=local"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL,default=#groceries"`
}

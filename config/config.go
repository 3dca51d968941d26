package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type LLM struct {
	Provider         string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"hosted"`
	APIKey           string        `env:"LLM_API_KEY"`
	APIEndpoint      string        `yaml:"api_endpoint" env:"LLM_API_ENDPOINT"`
	Model            string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	Temperature      float32       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.7"`
	SystemPrompt     string        `yaml:"system_prompt" env:"LLM_SYSTEM_PROMPT" env-default:"You are a helpful assistant replying on my behalf. Keep answers short and friendly."`
	MaxHistoryLength int           `yaml:"max_history_length" env:"LLM_MAX_HISTORY_LENGTH" env-default:"10"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"30s"`
}

type AutoReply struct {
	ReplyToAll        bool   `yaml:"reply_to_all" env:"AUTO_REPLY_TO_ALL" env-default:"false"`
	SendFallbackReply bool   `yaml:"send_fallback_reply" env:"SEND_FALLBACK_REPLY" env-default:"false"`
	DelayMode         string `yaml:"delay_mode" env:"REPLY_DELAY_MODE" env-default:"instant"`
	FixedDelaySeconds int    `yaml:"fixed_delay_seconds" env:"REPLY_FIXED_DELAY_SECONDS" env-default:"3"`
	MinDelaySeconds   int    `yaml:"min_delay_seconds" env:"REPLY_MIN_DELAY_SECONDS" env-default:"1"`
	MaxDelaySeconds   int    `yaml:"max_delay_seconds" env:"REPLY_MAX_DELAY_SECONDS" env-default:"10"`
	Language          string `yaml:"language" env:"REPLY_LANGUAGE" env-default:"en"`
}

type Storage struct {
	RedisEndpoint    string `yaml:"redis_endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	RetainedMessages int    `yaml:"retained_messages" env:"STORAGE_RETAINED_MESSAGES" env-default:"100"`
}

type Telegram struct {
	TelegramAPIToken string `env:"TELEGRAM_APITOKEN" env-required:"true"`
}

type Config struct {
	LLM       LLM       `yaml:"llm"`
	AutoReply AutoReply `yaml:"auto_reply"`
	Storage   Storage   `yaml:"storage"`
	Telegram  Telegram  `yaml:"telegram"`
}

func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

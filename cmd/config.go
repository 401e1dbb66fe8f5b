package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8000"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	ReplyQueueSize       int           `env:"REPLY_QUEUE_SIZE,default=64"`
	BotWorkers           int           `env:"BOT_WORKERS,default=4"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	JWTExpiry            time.Duration `env:"JWT_EXPIRY,default=720h"`
	LLMAPIBase           string        `env:"LLM_API_BASE,required=true"`
	LLMModel             string        `env:"LLM_MODEL,required=true"`
	LLMAPIKey            string        `env:"LLM_API_KEY"`
	LLMTimeout           time.Duration `env:"LLM_TIMEOUT,default=120s"`
}

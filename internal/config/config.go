package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string        `yaml:"env" env-default:"local"`
	LogFile    string        `yaml:"log_file" env:"LOG_FILE"`
	AppURL     string        `yaml:"app_url" env-required:"true"`
	TokenTTL   time.Duration `yaml:"token_ttl" env-default:"24h"`
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	HTTPServer HTTPServer    `yaml:"http_server"`
	DB         DB            `yaml:"db"`
	Storage    Storage       `yaml:"storage"`
	OpenAI     OpenAI        `yaml:"openai"`
	Mail       Mail          `yaml:"mail"`
	Pipeline   Pipeline      `yaml:"pipeline"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"2m"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env-default:"52428800"`
}

type DB struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	Username string `yaml:"username" env-default:"postgres"`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env-default:"voicetribe"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Storage struct {
	Backend string  `yaml:"backend" env-default:"local"`
	S3      S3      `yaml:"s3"`
	Local   LocalFS `yaml:"local"`
}

type S3 struct {
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region" env-default:"us-east-1"`
	Bucket        string        `yaml:"bucket" env-default:"recordings"`
	AccessKey     string        `yaml:"-" env:"S3_ACCESS_KEY"`
	SecretKey     string        `yaml:"-" env:"S3_SECRET_KEY"`
	PublicBaseURL string        `yaml:"public_base_url"`
	// Private buckets are served through presigned redirects from /files,
	// so PublicBaseURL must then point at that route.
	Private       bool          `yaml:"private"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env-default:"15m"`
}

type LocalFS struct {
	Root          string `yaml:"root" env-default:"./data/objects"`
	PublicBaseURL string `yaml:"public_base_url" env-default:"http://localhost:8080/files"`
}

type OpenAI struct {
	APIKey             string        `yaml:"-" env:"OPENAI_API_KEY"`
	BaseURL            string        `yaml:"base_url"`
	TranscriptionModel string        `yaml:"transcription_model" env-default:"whisper-1"`
	SummaryModel       string        `yaml:"summary_model" env-default:"gpt-4o-mini"`
	SpeechModel        string        `yaml:"speech_model" env-default:"tts-1"`
	Voice              string        `yaml:"voice" env-default:"alloy"`
	Timeout            time.Duration `yaml:"timeout" env-default:"2m"`
}

type Mail struct {
	Provider       string `yaml:"provider" env-default:"sendgrid"`
	From           string `yaml:"from" env-default:"onboarding@voicetribe.app"`
	FromName       string `yaml:"from_name" env-default:"VoiceTribe"`
	SendgridAPIKey string `yaml:"-" env:"SENDGRID_API_KEY"`
	SESRegion      string `yaml:"ses_region" env-default:"us-east-1"`
}

type Pipeline struct {
	TranscriptionWorkers int `yaml:"transcription_workers" env-default:"4"`
	TTSMonthlyLimit      int `yaml:"tts_monthly_limit" env-default:"1"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// TranscriberConfig selects and configures the speech-to-text backend.
type TranscriberConfig struct {
	Provider       string `mapstructure:"provider" validate:"required,oneof=http deepgram"`
	Endpoint       string `mapstructure:"endpoint"`
	Token          string `mapstructure:"token"`
	DeepgramKey    string `mapstructure:"deepgram_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,min=1"`
	MinBlobBytes   int    `mapstructure:"min_blob_bytes" validate:"required,min=1"`
}

// EnhanceConfig configures the best-effort title and formatting clients.
type EnhanceConfig struct {
	OpenAIKey        string `mapstructure:"openai_key"`
	TitleModel       string `mapstructure:"title_model"`
	FormatEndpoint   string `mapstructure:"format_endpoint"`
	FormatTimeoutSec int    `mapstructure:"format_timeout_sec"`
}

// CaptureConfig selects the local audio input device.
type CaptureConfig struct {
	Device string `mapstructure:"device" validate:"required"`
}

// StorageConfig locates the local stores.
type StorageConfig struct {
	ClipDBPath     string `mapstructure:"clip_db_path" validate:"required"`
	AudioStorePath string `mapstructure:"audio_store_path" validate:"required"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path" validate:"required"`

	Transcriber TranscriberConfig `mapstructure:"transcriber" validate:"required"`
	Enhance     EnhanceConfig     `mapstructure:"enhance"`
	Capture     CaptureConfig     `mapstructure:"capture" validate:"required"`
	Storage     StorageConfig     `mapstructure:"storage" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "clip-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", ".")

	v.SetDefault("TRANSCRIBER__PROVIDER", "http")
	v.SetDefault("TRANSCRIBER__ENDPOINT", "")
	v.SetDefault("TRANSCRIBER__TOKEN", "")
	v.SetDefault("TRANSCRIBER__DEEPGRAM_KEY", "")
	v.SetDefault("TRANSCRIBER__MODEL", "nova-2")
	v.SetDefault("TRANSCRIBER__LANGUAGE", "en-US")
	v.SetDefault("TRANSCRIBER__TIMEOUT_SECONDS", 30)
	v.SetDefault("TRANSCRIBER__MIN_BLOB_BYTES", 100)

	v.SetDefault("CAPTURE__DEVICE", "default")

	v.SetDefault("ENHANCE__OPENAI_KEY", "")
	v.SetDefault("ENHANCE__TITLE_MODEL", "gpt-4o-mini")
	v.SetDefault("ENHANCE__FORMAT_ENDPOINT", "")
	v.SetDefault("ENHANCE__FORMAT_TIMEOUT_SEC", 20)

	v.SetDefault("STORAGE__CLIP_DB_PATH", "clips.sqlite")
	v.SetDefault("STORAGE__AUDIO_STORE_PATH", "audio.bbolt")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

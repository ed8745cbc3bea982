package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env  string `yaml:"env" env:"ENV" env-default:"local"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:""`
		TokenTTLHours int    `yaml:"token_ttl_hours" env-default:"24"`
	} `yaml:"auth"`
	Mongo struct {
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"clinichat"`
	} `yaml:"mongo"`
	Upload struct {
		MaxFileSizeMB    int64  `yaml:"max_file_size_mb" env-default:"10"`
		BaseURL          string `yaml:"base_url" env-default:"/api/v1/files"`
		URLSigningSecret string `yaml:"url_signing_secret" env:"URL_SIGNING_SECRET" env-default:""`
	} `yaml:"upload"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"ClinichatOpsBot"`
	} `yaml:"telegram"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env:"PORT" env-default:"9200"`
	} `yaml:"listen"`
}

// MaxFileSize returns the upload ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.Upload.MaxFileSizeMB << 20
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

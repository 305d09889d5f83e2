package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"

	"citywords/entity"
)

// Listen is the bind address for the out-of-scope admin HTTP surface.
type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

// Postgres holds the relational store's connection parameters (§6).
type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"POSTGRES_DB" env-default:"chatgames"`
	SSLMode  string `yaml:"ssl_mode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// DSN renders the libpq connection string pgx expects.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RabbitMQ holds the broker connection parameters (§4.1, §6).
type RabbitMQ struct {
	Host     string `yaml:"host" env:"RABBITMQ_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"RABBITMQ_PORT" env-default:"5672"`
	User     string `yaml:"user" env:"RABBITMQ_USER" env-default:"guest"`
	Password string `yaml:"password" env:"RABBITMQ_PASSWORD" env-default:"guest"`
	VHost    string `yaml:"vhost" env:"RABBITMQ_VHOST" env-default:"/"`
}

// URL renders the AMQP 0.9.1 connection URI.
func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

// GameDefaults seeds the GameSettings singleton (§3) on first read; changing
// these env values after the row exists has no effect (the row wins).
type GameDefaults struct {
	ResponseTimeSec int  `yaml:"response_time_sec" env-default:"30"`
	PollTimeSec     int  `yaml:"poll_time_sec" env-default:"20"`
	Anonymous       bool `yaml:"anonymous_poll" env-default:"true"`
	StartingLives   int  `yaml:"starting_lives" env-default:"3"`
}

// Admin seeds the single operator account for the out-of-scope admin HTTP
// surface's login endpoint.
type Admin struct {
	Email      string `yaml:"email" env:"EMAIL" env-default:""`
	Password   string `yaml:"password" env:"PASSWORD" env-default:""`
	SessionKey string `yaml:"session_key" env:"SESSION_KEY" env-default:""`
}

// AdminUser is the identity the admin HTTP surface authenticates requests
// against; there is exactly one, seeded from config.
func (a Admin) AdminUser() entity.AdminUser {
	return entity.AdminUser{Email: a.Email}
}

type Config struct {
	Env             string       `yaml:"env" env-default:"local"`
	LogPath         string       `yaml:"log_path" env-default:"/var/log/"`
	BotToken        string       `yaml:"bot_token" env:"BOT_TOKEN_TG" env-default:""`
	YandexDictToken string       `yaml:"yandex_dict_token" env:"YANDEX_DICT_TOKEN" env-default:""`
	Postgres        Postgres     `yaml:"postgres"`
	RabbitMQ        RabbitMQ     `yaml:"rabbitmq"`
	GameDefaults    GameDefaults `yaml:"game_defaults"`
	Admin           Admin        `yaml:"admin"`
	Listen          Listen       `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type Mongo struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"sortec"`
}

type MySql struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	HostName string `yaml:"hostname" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"sortec"`
	Prefix   string `yaml:"prefix" env-default:""`
}

// Redis, when enabled, replaces the store's own counter as correlative source.
type Redis struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Addr     string `yaml:"addr" env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
	Key      string `yaml:"key" env-default:"sortec:registration:seq"`
}

type Telegram struct {
	Enabled bool    `yaml:"enabled" env-default:"false"`
	ApiKey  string  `yaml:"api_key" env-default:""`
	Admins  []int64 `yaml:"admins"`
	// LogLevel is the minimal slog level mirrored to admin chats
	LogLevel string `yaml:"log_level" env-default:"error"`
}

type Mail struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:""`
	Port     int    `yaml:"port" env-default:"587"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	From     string `yaml:"from" env-default:"administrador@sorteosc.com"`
	TLS      bool   `yaml:"tls" env-default:"true"`
}

type Contest struct {
	CodePrefix string `yaml:"code_prefix" env-default:"SORTEC"`
	AdminEmail string `yaml:"admin_email" env-default:"administrador@sorteosc.com"`
	BaseUrl    string `yaml:"base_url" env-default:"http://localhost:8080"`
	SiteUrl    string `yaml:"site_url" env-default:""`
	ImageUrl   string `yaml:"image_url" env-default:""`

	// StoreTimeoutMs bounds a store write that outlives its request
	StoreTimeoutMs int `yaml:"store_timeout_ms" env-default:"10000"`
}

type Notify struct {
	Workers          int `yaml:"workers" env-default:"2"`
	QueueSize        int `yaml:"queue_size" env-default:"100"`
	EnqueueTimeoutMs int `yaml:"enqueue_timeout_ms" env-default:"500"`
}

type Config struct {
	Env      string   `yaml:"env" env-default:"local"`
	Listen   Listen   `yaml:"listen"`
	Mongo    Mongo    `yaml:"mongo"`
	MySql    MySql    `yaml:"mysql"`
	Redis    Redis    `yaml:"redis"`
	Telegram Telegram `yaml:"telegram"`
	Mail     Mail     `yaml:"mail"`
	Contest  Contest  `yaml:"contest"`
	Notify   Notify   `yaml:"notify"`
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

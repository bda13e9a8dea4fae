package main

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/qrvision/qrvision"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type config struct {
	Env  string `yaml:"env" env:"QRVISION_ENV" env-default:"local"`
	Site struct {
		Name        string `yaml:"name" env:"QRVISION_SITE_NAME"`
		URL         string `yaml:"url" env:"QRVISION_SITE_URL"`
		Description string `yaml:"description" env:"QRVISION_SITE_DESCRIPTION"`
	} `yaml:"site"`
	HTTPServer struct {
		Address     string        `yaml:"address" env:"QRVISION_ADDR" env-default:":3000"`
		CORSOrigins []string      `yaml:"cors_origins" env:"QRVISION_CORS_ORIGINS" env-separator:","`
		RenderLimit int           `yaml:"render_limit" env:"QRVISION_RENDER_LIMIT" env-default:"60"`
		SymbolTTL   time.Duration `yaml:"symbol_ttl" env:"QRVISION_SYMBOL_TTL" env-default:"10m"`
	} `yaml:"http_server"`
	Storage struct {
		Driver   string `yaml:"driver" env:"QRVISION_STORAGE" env-default:"sqlite"`
		Path     string `yaml:"path" env:"QRVISION_DB_PATH" env-default:"data/analytics.db"`
		TimeZone string `yaml:"time_zone" env:"QRVISION_TZ"`
	} `yaml:"storage"`
	Admin struct {
		Password      string `yaml:"password" env:"QRVISION_ADMIN_PASSWORD"`
		PasswordHash  string `yaml:"password_hash" env:"QRVISION_ADMIN_PASSWORD_HASH"`
		SessionSecret string `yaml:"session_secret" env:"QRVISION_SESSION_SECRET" env-required:"true"`
		CookieSecure  bool   `yaml:"cookie_secure" env:"QRVISION_COOKIE_SECURE"`
	} `yaml:"admin"`
}

// loadConfig reads path when set, otherwise the environment alone.
// Environment variables override values from the file.
func loadConfig(path string) (*config, error) {
	var cfg config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

func (c *config) siteConfig() qrvision.SiteConfig {
	return qrvision.SiteConfig{
		Name:              c.Site.Name,
		URL:               c.Site.URL,
		Description:       c.Site.Description,
		Addr:              c.HTTPServer.Address,
		StorageDriver:     c.Storage.Driver,
		DatabasePath:      c.Storage.Path,
		TimeZone:          c.Storage.TimeZone,
		AdminPassword:     c.Admin.Password,
		AdminPasswordHash: c.Admin.PasswordHash,
		SessionSecret:     c.Admin.SessionSecret,
		CookieSecure:      c.Admin.CookieSecure,
		CORSOrigins:       c.HTTPServer.CORSOrigins,
		SymbolTTL:         c.HTTPServer.SymbolTTL,
		RenderLimit:       c.HTTPServer.RenderLimit,
	}
}

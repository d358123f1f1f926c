package app

import (
	"strings"

	"github.com/spf13/viper"

	"taskboard/internal/config"
)

// EnvPrefix namespaces the environment overrides, e.g. TASKBOARD_AUTH_JWT_SECRET.
const EnvPrefix = "TASKBOARD"

var envKeys = []string{
	"server.addr",
	"server.base_path",
	"auth.jwt_secret",
	"auth.dev_login",
	"ai.api_key",
	"calendar.enabled",
	"calendar.client_id",
	"calendar.client_secret",
	"calendar.redirect_url",
	"calendar.success_url",
	"calendar.error_url",
	"blob.enabled",
	"blob.endpoint",
	"blob.access_key",
	"blob.secret_key",
	"blob.bucket",
	"redis.url",
	"nats.url",
	"log.level",
	"log.file",
}

// LoadConfig reads the workspace config file and layers TASKBOARD_* environment
// variables on top. The merged result is validated.
func LoadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyEnv(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config, v *viper.Viper) {
	str := map[string]*string{
		"server.addr":            &cfg.Server.Addr,
		"server.base_path":       &cfg.Server.BasePath,
		"auth.jwt_secret":        &cfg.Auth.JWTSecret,
		"ai.api_key":             &cfg.AI.APIKey,
		"calendar.client_id":     &cfg.Calendar.ClientID,
		"calendar.client_secret": &cfg.Calendar.ClientSecret,
		"calendar.redirect_url":  &cfg.Calendar.RedirectURL,
		"calendar.success_url":   &cfg.Calendar.SuccessURL,
		"calendar.error_url":     &cfg.Calendar.ErrorURL,
		"blob.endpoint":          &cfg.Blob.Endpoint,
		"blob.access_key":        &cfg.Blob.AccessKey,
		"blob.secret_key":        &cfg.Blob.SecretKey,
		"blob.bucket":            &cfg.Blob.Bucket,
		"redis.url":              &cfg.Redis.URL,
		"nats.url":               &cfg.NATS.URL,
		"log.level":              &cfg.Log.Level,
		"log.file":               &cfg.Log.File,
	}
	flags := map[string]*bool{
		"auth.dev_login":   &cfg.Auth.DevLogin,
		"calendar.enabled": &cfg.Calendar.Enabled,
		"blob.enabled":     &cfg.Blob.Enabled,
	}
	for _, key := range envKeys {
		if !v.IsSet(key) {
			continue
		}
		if dst, ok := str[key]; ok {
			*dst = v.GetString(key)
			continue
		}
		if dst, ok := flags[key]; ok {
			*dst = v.GetBool(key)
		}
	}
}

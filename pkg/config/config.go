package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

// Credentials authenticate against the controller
type Credentials struct {
	UserName        string `json:"userName" env:"ONEVIEWSDK_USERNAME"`
	Password        string `json:"password" env:"ONEVIEWSDK_PASSWORD"`
	AuthLoginDomain string `json:"authLoginDomain" env:"ONEVIEWSDK_AUTH_LOGIN_DOMAIN"`
}

// Controller holds the endpoint, credentials and timeouts of one controller
type Controller struct {
	IP              string      `json:"ip" env:"ONEVIEWSDK_IP"`
	Credentials     Credentials `json:"credentials"`
	SessionID       string      `json:"sessionID" env:"ONEVIEWSDK_SESSIONID"`
	APIVersion      int         `json:"api_version" env:"ONEVIEWSDK_API_VERSION" envDefault:"800"`
	ImageStreamerIP string      `json:"image_streamer_ip" env:"ONEVIEWSDK_IMAGE_STREAMER_IP"`
	Insecure        bool        `json:"insecure" env:"ONEVIEWSDK_INSECURE"`

	Timeout          time.Duration `json:"-" env:"ONEVIEWSDK_TIMEOUT" envDefault:"60s"`
	TaskPollInterval time.Duration `json:"-" env:"ONEVIEWSDK_TASK_POLL_INTERVAL" envDefault:"2s"`
	TaskTimeout      time.Duration `json:"-" env:"ONEVIEWSDK_TASK_TIMEOUT" envDefault:"1h"`
}

// file is the on-disk JSON shape. Timeouts are given in seconds.
type file struct {
	Controller
	TimeoutSeconds int `json:"timeout"`
}

// FromEnv builds a Controller from ONEVIEWSDK_* environment variables
func FromEnv() (*Controller, error) {
	cfg := &Controller{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse controller environment")
	}
	return cfg, nil
}

// Load returns the controller configuration for a task. An empty path uses
// the environment only, otherwise keys set in the JSON file at path win over
// the environment and defaults.
func Load(path string) (*Controller, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		var f file
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
		if f.TimeoutSeconds > 0 {
			f.Timeout = time.Duration(f.TimeoutSeconds) * time.Second
		}
		if err := mergo.Merge(cfg, f.Controller, mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, "failed to overlay config file")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Controller) Validate() error {
	if c.IP == "" {
		return errors.New("controller ip is required (ip or ONEVIEWSDK_IP)")
	}
	if c.SessionID == "" && c.Credentials.UserName == "" {
		return errors.New("controller credentials are required (credentials.userName or sessionID)")
	}
	if c.APIVersion <= 0 {
		return errors.Errorf("invalid api version %d", c.APIVersion)
	}
	return nil
}

// BaseURL is the controller REST endpoint
func (c *Controller) BaseURL() string {
	return endpoint(c.IP)
}

// StreamerURL is the image streamer REST endpoint, empty when not configured
func (c *Controller) StreamerURL() string {
	if c.ImageStreamerIP == "" {
		return ""
	}
	return endpoint(c.ImageStreamerIP)
}

func endpoint(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

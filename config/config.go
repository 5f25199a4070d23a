/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5001"
	DEFAULT_GATEWAY_URL     = "https://api.sandbox.datatrans.com"
	DEFAULT_AMOUNT          = "1.00"
	DEFAULT_CURRENCY        = "CHF"
	DEFAULT_PAYMENT_METHOD  = "TWI"
	DEFAULT_GATEWAY_TIMEOUT = 30
	DEFAULT_STATUS_RETRIES  = 2
	DEFAULT_WORKER_COUNT    = 2
	DEFAULT_MONITORING_PORT = "5004"

	// PlaceholderAPIKey is the value shipped in the sample env file.
	PlaceholderAPIKey = "YOUR_DATATRANS_API_KEY_SECRET"
)

var (
	DefaultPaidStatuses   = []string{"settled", "authorized"}
	DefaultFailedStatuses = []string{"failed", "canceled", "expired"}
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL      bool   `json:"ssl" envconfig:"JUKEBOX_SERVER_SSL"`
	AdminKey string `json:"admin_key" envconfig:"JUKEBOX_SERVER_ADMIN_KEY"`
	Domain   string `json:"domain" envconfig:"JUKEBOX_SERVER_SSL_DOMAIN"`
	Email    string `json:"ssl_email" envconfig:"JUKEBOX_SERVER_SSL_EMAIL"`
	Port     string `json:"port" envconfig:"JUKEBOX_SERVER_PORT"`
}

type GatewayConfig struct {
	BaseURL        string   `json:"base_url" envconfig:"JUKEBOX_GATEWAY_BASE_URL"`
	MerchantID     string   `json:"merchant_id" envconfig:"JUKEBOX_GATEWAY_MERCHANT_ID"`
	APIKey         string   `json:"api_key" envconfig:"JUKEBOX_GATEWAY_API_KEY"`
	Amount         string   `json:"amount" envconfig:"JUKEBOX_GATEWAY_AMOUNT"`
	Currency       string   `json:"currency" envconfig:"JUKEBOX_GATEWAY_CURRENCY"`
	PaymentMethod  string   `json:"payment_method" envconfig:"JUKEBOX_GATEWAY_PAYMENT_METHOD"`
	TimeoutSec     int      `json:"timeout_sec" envconfig:"JUKEBOX_GATEWAY_TIMEOUT_SEC"`
	StatusRetries  int      `json:"status_retries" envconfig:"JUKEBOX_GATEWAY_STATUS_RETRIES"`
	PaidStatuses   []string `json:"paid_statuses" envconfig:"JUKEBOX_GATEWAY_PAID_STATUSES"`
	FailedStatuses []string `json:"failed_statuses" envconfig:"JUKEBOX_GATEWAY_FAILED_STATUSES"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"JUKEBOX_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"JUKEBOX_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	Concurrency    int    `json:"concurrency" envconfig:"JUKEBOX_QUEUE_CONCURRENCY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"JUKEBOX_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"JUKEBOX_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"JUKEBOX_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"JUKEBOX_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"JUKEBOX_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"JUKEBOX_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName     string          `json:"project_name" envconfig:"JUKEBOX_PROJECT_NAME"`
	EnableTelemetry bool            `json:"enable_telemetry" envconfig:"JUKEBOX_ENABLE_TELEMETRY"`
	Server          ServerConfig    `json:"server"`
	Gateway         GatewayConfig   `json:"gateway"`
	Redis           RedisConfig     `json:"redis"`
	Queue           QueueConfig     `json:"queue"`
	Notification    Notification    `json:"notification"`
	RateLimit       RateLimitConfig `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("jukebox", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called jukebox.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Jukebox"
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Server.AdminKey == "" {
		log.Println("Warning: Admin key is empty. Admin routes will reject every request.")
	}

	if err := cnf.Gateway.addDefaults(); err != nil {
		return err
	}

	// Gateway credentials are checked per request so the server can start
	// and serve the queue before payment is set up.
	if err := cnf.Gateway.Validate(); err != nil {
		log.Printf("Warning: %v. Payments will fail until it is configured.", err)
	}

	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = DEFAULT_WORKER_COUNT
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (g *GatewayConfig) addDefaults() error {
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	g.MerchantID = strings.TrimSpace(g.MerchantID)
	g.APIKey = strings.TrimSpace(g.APIKey)

	if g.BaseURL == "" {
		g.BaseURL = DEFAULT_GATEWAY_URL
	}
	if g.Amount == "" {
		g.Amount = DEFAULT_AMOUNT
	}
	if g.Currency == "" {
		g.Currency = DEFAULT_CURRENCY
	}
	g.Currency = strings.ToUpper(g.Currency)
	if g.PaymentMethod == "" {
		g.PaymentMethod = DEFAULT_PAYMENT_METHOD
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = DEFAULT_GATEWAY_TIMEOUT
	}
	if g.StatusRetries <= 0 {
		g.StatusRetries = DEFAULT_STATUS_RETRIES
	}
	if len(g.PaidStatuses) == 0 {
		g.PaidStatuses = DefaultPaidStatuses
	}
	if len(g.FailedStatuses) == 0 {
		g.FailedStatuses = DefaultFailedStatuses
	}

	if _, err := g.AmountMinorUnits(); err != nil {
		return err
	}
	return nil
}

// Validate reports whether the gateway can be called at all. It never
// touches the network.
func (g GatewayConfig) Validate() error {
	if g.BaseURL == "" {
		return errors.New("gateway base url is not configured")
	}
	if g.MerchantID == "" {
		return errors.New("gateway merchant id is not configured")
	}
	if g.APIKey == "" || g.APIKey == PlaceholderAPIKey {
		return errors.New("gateway api key is not configured")
	}
	return nil
}

// AmountMinorUnits converts the configured decimal charge into the
// smallest currency unit expected by the gateway (1.00 CHF -> 100).
func (g GatewayConfig) AmountMinorUnits() (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(g.Amount))
	if err != nil {
		return 0, fmt.Errorf("invalid gateway amount %q: %w", g.Amount, err)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("gateway amount must be positive, got %s", g.Amount)
	}
	minor := amount.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("gateway amount %s has more than two decimal places", g.Amount)
	}
	return minor.IntPart(), nil
}

// Redacted returns a copy with credentials masked, for printing.
func (cnf Configuration) Redacted() Configuration {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	cnf.Gateway.APIKey = mask(cnf.Gateway.APIKey)
	cnf.Server.AdminKey = mask(cnf.Server.AdminKey)
	cnf.Notification.Slack.WebhookUrl = mask(cnf.Notification.Slack.WebhookUrl)
	return cnf
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/flagx"
	"github.com/dmitrijs2005/hiringhub/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
// Zero values leave the corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP         string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC         string         `json:"endpoint_addr_grpc"`
	DatabaseDSN              string         `json:"database_dsn"`
	SecretKey                string         `json:"secret_key"`
	CookieSecure             *bool          `json:"cookie_secure"`
	IdentityValidityDuration timex.Duration `json:"identity_validity_duration"`
	OTPValidityDuration      timex.Duration `json:"otp_validity_duration"`
	SessionIdleDuration      timex.Duration `json:"session_idle_duration"`
	S3RootUser               string         `json:"s3_root_user"`
	S3RootPassword           string         `json:"s3_root_password"`
	S3Bucket                 string         `json:"s3_bucket"`
	S3Region                 string         `json:"s3_region"`
	S3BaseEndpoint           string         `json:"s3_base_endpoint"`
	InferenceBaseURL         string         `json:"inference_base_url"`
	InferenceTimeout         timex.Duration `json:"inference_timeout"`
	OTPRequestsPerMinute     int            `json:"otp_requests_per_minute"`
	OTPBurst                 int            `json:"otp_burst"`
	VerifyRequestsPerMinute  int            `json:"verify_requests_per_minute"`
	VerifyBurst              int            `json:"verify_burst"`
	TrustProxy               *bool          `json:"trust_proxy"`
	BreakerMinRequests       uint32         `json:"breaker_min_requests"`
	BreakerFailureRatio      float64        `json:"breaker_failure_ratio"`
	BreakerOpenTimeout       timex.Duration `json:"breaker_open_timeout"`
	LogLevel                 string         `json:"log_level"`
	SMTPHost                 string         `json:"smtp_host"`
	SMTPPort                 int            `json:"smtp_port"`
	SMTPUsername             string         `json:"smtp_username"`
	SMTPPassword             string         `json:"smtp_password"`
	SMTPFrom                 string         `json:"smtp_from"`
}

// parseJson loads configuration values from the JSON file named by -c/-config
// (or $HIRINGHUB_CONFIG) into config. Without a file it does nothing.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	if err := applyJSONFile(config, jsonConfigFile); err != nil {
		panic(err)
	}
}

func applyJSONFile(config *Config, path string) error {
	c := &JsonConfig{}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setDuration(&config.IdentityValidityDuration, c.IdentityValidityDuration)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	setDuration(&config.SessionIdleDuration, c.SessionIdleDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.InferenceBaseURL, c.InferenceBaseURL)
	setDuration(&config.InferenceTimeout, c.InferenceTimeout)
	if c.OTPRequestsPerMinute > 0 {
		config.OTPRequestsPerMinute = c.OTPRequestsPerMinute
	}
	if c.OTPBurst > 0 {
		config.OTPBurst = c.OTPBurst
	}
	if c.VerifyRequestsPerMinute > 0 {
		config.VerifyRequestsPerMinute = c.VerifyRequestsPerMinute
	}
	if c.VerifyBurst > 0 {
		config.VerifyBurst = c.VerifyBurst
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}
	if c.BreakerMinRequests > 0 {
		config.BreakerMinRequests = c.BreakerMinRequests
	}
	if c.BreakerFailureRatio > 0 {
		config.BreakerFailureRatio = c.BreakerFailureRatio
	}
	setDuration(&config.BreakerOpenTimeout, c.BreakerOpenTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SMTP.Host, c.SMTPHost)
	if c.SMTPPort > 0 {
		config.SMTP.Port = c.SMTPPort
	}
	setString(&config.SMTP.Username, c.SMTPUsername)
	setString(&config.SMTP.Password, c.SMTPPassword)
	setString(&config.SMTP.From, c.SMTPFrom)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if !v.IsZero() {
		*dst = v.Duration
	}
}

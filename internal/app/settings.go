package app

import (
	"strings"

	"github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/internal/database"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/pkg/mail"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// AdminSeed converts the admin settings into the database seed.
func (c AuthConfig) AdminSeed() database.AdminSeed {
	return database.AdminSeed{
		Username: strings.TrimSpace(c.Admin.Username),
		Password: c.Admin.Password,
	}
}

// DatabaseSettings converts DatabaseConfig into database.Open parameters.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{
		Driver: driver,
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var host DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = strings.TrimSpace(host.Host)
	cfg.Port = host.Port
	cfg.Name = strings.TrimSpace(host.Database)
	cfg.User = strings.TrimSpace(host.Username)
	cfg.Password = host.Password
	return cfg
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		FromName: c.SMTP.FromName,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// CloudSettings converts the Cloud API section into notify parameters.
func (c NotifyConfig) CloudSettings() notify.CloudConfig {
	return notify.CloudConfig{
		AccessToken:        strings.TrimSpace(c.WhatsAppCloud.AccessToken),
		PhoneNumberID:      strings.TrimSpace(c.WhatsAppCloud.PhoneNumberID),
		BaseURL:            strings.TrimSpace(c.WhatsAppCloud.BaseURL),
		APIVersion:         strings.TrimSpace(c.WhatsAppCloud.APIVersion),
		DefaultCountryCode: c.DefaultCountryCode,
		Timeout:            c.WhatsAppCloud.Timeout,
	}
}

// MultiDeviceSettings converts the multi-device section into notify parameters.
func (c NotifyConfig) MultiDeviceSettings() notify.MultiDeviceConfig {
	return notify.MultiDeviceConfig{
		StorePath:          strings.TrimSpace(c.WhatsApp.StorePath),
		DefaultCountryCode: c.DefaultCountryCode,
	}
}

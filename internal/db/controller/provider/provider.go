// Package provider stores the typed settings of the third-party integrations
// (mail, sms, payment and social login) as JSON blobs in the settings table.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/setting"
)

// Mask replaces stored secrets in read responses.
const Mask = "********"

const keyPrefix = "provider_"

// ErrUnknownProvider is returned for a provider name without settings type.
var ErrUnknownProvider = errors.New("unknown provider")

var validate = validator.New() //nolint:gochecknoglobals

// Settings is implemented by every provider settings type.
type Settings interface {
	// Name is the provider name used in routes, e.g. "mail".
	Name() string
	// Masked returns a copy with every secret replaced by Mask.
	Masked() Settings
	// KeepSecrets copies secrets from prev where the submitted value is empty or Mask.
	KeepSecrets(prev Settings)
}

var registry = map[string]func() Settings{ //nolint:gochecknoglobals
	"mail":    func() Settings { return &Mail{} },
	"sms":     func() Settings { return &SMS{} },
	"payment": func() Settings { return &Payment{} },
	"social":  func() Settings { return &Social{} },
}

// Names returns every provider name, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}

// New returns empty settings for the named provider.
func New(name string) (Settings, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	return f(), nil
}

// Load reads the stored settings into s. Missing settings return setting.ErrSettingNotFound.
func Load(ctx context.Context, db *gorm.DB, s Settings) error {
	stored, err := setting.Get(ctx, db, keyPrefix+s.Name())
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err = json.Unmarshal(stored.Value, s); err != nil {
		return fmt.Errorf("failed to decode %s settings: %w", s.Name(), err)
	}

	return nil
}

// Save validates and stores s.
func Save(ctx context.Context, db *gorm.DB, s Settings) error {
	if err := Validate(s); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode %s settings: %w", s.Name(), err)
	}

	return setting.Set(ctx, db, keyPrefix+s.Name(), data) //nolint:wrapcheck
}

// Validate checks s against its validation tags.
func Validate(s Settings) error {
	return validate.Struct(s) //nolint:wrapcheck
}

func keep(submitted *string, prev string) {
	if *submitted == "" || *submitted == Mask {
		*submitted = prev
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return Mask
}

// Mail is the outgoing SMTP server.
type Mail struct {
	Host     string `json:"host"      validate:"required,hostname|ip"`
	Port     int    `json:"port"      validate:"required,min=1,max=65535"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"      validate:"required,email"`
	UseTLS   bool   `json:"use_tls"`
}

// Name implements Settings.
func (*Mail) Name() string { return "mail" }

// Masked implements Settings.
func (m *Mail) Masked() Settings {
	c := *m
	c.Password = mask(c.Password)

	return &c
}

// KeepSecrets implements Settings.
func (m *Mail) KeepSecrets(prev Settings) {
	if p, ok := prev.(*Mail); ok {
		keep(&m.Password, p.Password)
	}
}

// SMS is the text message gateway.
type SMS struct {
	Provider string `json:"provider" validate:"required,oneof=twilio messagebird vonage"`
	APIKey   string `json:"api_key"  validate:"required"`
	Sender   string `json:"sender"   validate:"required,max=16"`
}

// Name implements Settings.
func (*SMS) Name() string { return "sms" }

// Masked implements Settings.
func (s *SMS) Masked() Settings {
	c := *s
	c.APIKey = mask(c.APIKey)

	return &c
}

// KeepSecrets implements Settings.
func (s *SMS) KeepSecrets(prev Settings) {
	if p, ok := prev.(*SMS); ok {
		keep(&s.APIKey, p.APIKey)
	}
}

// Payment is the payment service provider.
type Payment struct {
	Provider      string `json:"provider"       validate:"required,oneof=stripe paypal adyen"`
	PublicKey     string `json:"public_key"     validate:"required"`
	SecretKey     string `json:"secret_key"     validate:"required"`
	WebhookSecret string `json:"webhook_secret"`
	Sandbox       bool   `json:"sandbox"`
}

// Name implements Settings.
func (*Payment) Name() string { return "payment" }

// Masked implements Settings.
func (p *Payment) Masked() Settings {
	c := *p
	c.SecretKey = mask(c.SecretKey)
	c.WebhookSecret = mask(c.WebhookSecret)

	return &c
}

// KeepSecrets implements Settings.
func (p *Payment) KeepSecrets(prev Settings) {
	if o, ok := prev.(*Payment); ok {
		keep(&p.SecretKey, o.SecretKey)
		keep(&p.WebhookSecret, o.WebhookSecret)
	}
}

// Social is the OpenID Connect provider used for social login.
type Social struct {
	Enabled      bool     `json:"enabled"`
	Issuer       string   `json:"issuer"        validate:"required_if=Enabled true"`
	ClientID     string   `json:"client_id"     validate:"required_if=Enabled true"`
	ClientSecret string   `json:"client_secret" validate:"required_if=Enabled true"`
	RedirectURL  string   `json:"redirect_url"  validate:"required_if=Enabled true"`
	Scopes       []string `json:"scopes"`
}

// Name implements Settings.
func (*Social) Name() string { return "social" }

// Masked implements Settings.
func (s *Social) Masked() Settings {
	c := *s
	c.ClientSecret = mask(c.ClientSecret)

	return &c
}

// KeepSecrets implements Settings.
func (s *Social) KeepSecrets(prev Settings) {
	if p, ok := prev.(*Social); ok {
		keep(&s.ClientSecret, p.ClientSecret)
	}
}

// LoadSocial returns the stored social login settings.
func LoadSocial(ctx context.Context, db *gorm.DB) (*Social, error) {
	s := &Social{}
	if err := Load(ctx, db, s); err != nil {
		return nil, err
	}

	return s, nil
}

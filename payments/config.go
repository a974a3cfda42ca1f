// Package payments integrates M-Pesa: STK push collection on orders, the
// asynchronous payment callback, seller earnings with the platform
// commission split, and B2C payouts.
package payments

import "github.com/caarlos0/env/v11"

// Config holds the Daraja API credentials and endpoints. The defaults point
// at the sandbox; production deployments override every field.
type Config struct {
	ConsumerKey    string `env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string `env:"MPESA_CONSUMER_SECRET"`
	Shortcode      string `env:"MPESA_SHORTCODE" envDefault:"174379"`
	Passkey        string `env:"MPESA_PASSKEY"`
	BaseURL        string `env:"MPESA_BASE_URL" envDefault:"https://sandbox.safaricom.co.ke"`
	CallbackURL    string `env:"MPESA_CALLBACK_URL"`

	// B2C payout credentials.
	InitiatorName      string `env:"MPESA_INITIATOR_NAME"`
	SecurityCredential string `env:"MPESA_SECURITY_CREDENTIAL"`
	B2CShortcode       string `env:"MPESA_B2C_SHORTCODE"`
	ResultURL          string `env:"MPESA_RESULT_URL"`
	TimeoutURL         string `env:"MPESA_TIMEOUT_URL"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

package erp

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the token-based authentication credentials and endpoint of
// the ERP restlet that serves the sales export.
type Config struct {
	AccountID      string        `yaml:"account_id" envconfig:"ACCOUNT_ID"`
	ConsumerKey    string        `yaml:"consumer_key" envconfig:"CONSUMER_KEY"`
	ConsumerSecret string        `yaml:"consumer_secret" envconfig:"CONSUMER_SECRET"`
	TokenID        string        `yaml:"token_id" envconfig:"TOKEN_ID"`
	TokenSecret    string        `yaml:"token_secret" envconfig:"TOKEN_SECRET"`
	RestletURL     string        `yaml:"restlet_url" envconfig:"RESTLET_URL"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"120s"`
}

// Enabled reports whether any credential is set at all, distinguishing "not
// configured" from "misconfigured".
func (c Config) Enabled() bool {
	return c.AccountID != "" || c.ConsumerKey != "" || c.RestletURL != ""
}

// Validate lists every missing credential in one error so a misconfigured
// deployment is fixed in one pass.
func (c Config) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"account_id", c.AccountID},
		{"consumer_key", c.ConsumerKey},
		{"consumer_secret", c.ConsumerSecret},
		{"token_id", c.TokenID},
		{"token_secret", c.TokenSecret},
		{"restlet_url", c.RestletURL},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("erp configuration incomplete, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// realm is the authentication realm derived from the account ID: sandbox
// accounts use an underscore form while the wire format wants a dash, always
// uppercased.
func (c Config) realm() string {
	return strings.ToUpper(strings.ReplaceAll(c.AccountID, "_", "-"))
}

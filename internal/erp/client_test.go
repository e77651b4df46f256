package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

func testConfig(restletURL string) Config {
	return Config{
		AccountID:      "123456_sb1",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		TokenID:        "tk",
		TokenSecret:    "ts",
		RestletURL:     restletURL,
		Timeout:        5 * time.Second,
	}
}

func fixedClient(cfg Config) *Client {
	c := NewClient(cfg, nil)
	c.nonce = func() string { return "fixednonce" }
	c.timestamp = func() string { return "1700000000" }
	return c
}

func TestConfigValidate(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		assert.NoError(t, testConfig("https://erp.example/restlet").Validate())
	})

	t.Run("lists every missing field", func(t *testing.T) {
		err := Config{AccountID: "a", RestletURL: "u"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consumer_key")
		assert.Contains(t, err.Error(), "consumer_secret")
		assert.Contains(t, err.Error(), "token_id")
		assert.Contains(t, err.Error(), "token_secret")
		assert.NotContains(t, err.Error(), "account_id")
	})

	t.Run("enabled detection", func(t *testing.T) {
		assert.False(t, Config{}.Enabled())
		assert.True(t, Config{AccountID: "a"}.Enabled())
	})
}

func TestAuthorizationHeader(t *testing.T) {
	client := fixedClient(testConfig("https://erp.example/restlet?script=42&deploy=1"))

	header, err := client.authorizationHeader(http.MethodGet, client.cfg.RestletURL)
	require.NoError(t, err)

	assert.True(t, len(header) > 6 && header[:6] == "OAuth ")
	assert.Contains(t, header, `realm="123456-SB1"`, "underscore becomes dash, uppercased")
	assert.Contains(t, header, `oauth_consumer_key="ck"`)
	assert.Contains(t, header, `oauth_token="tk"`)
	assert.Contains(t, header, `oauth_signature_method="HMAC-SHA256"`)
	assert.Contains(t, header, `oauth_timestamp="1700000000"`)
	assert.Contains(t, header, `oauth_nonce="fixednonce"`)
	assert.Contains(t, header, `oauth_version="1.0"`)
	assert.Contains(t, header, `oauth_signature="`)

	// Same inputs, same signature.
	again, err := client.authorizationHeader(http.MethodGet, client.cfg.RestletURL)
	require.NoError(t, err)
	assert.Equal(t, header, again)

	// The query string participates in the signature.
	other, err := client.authorizationHeader(http.MethodGet, "https://erp.example/restlet?script=43&deploy=1")
	require.NoError(t, err)
	assert.NotEqual(t, header, other)
}

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "abc-._~XYZ019", percentEncode("abc-._~XYZ019"))
	assert.Equal(t, "a%20b", percentEncode("a b"))
	assert.Equal(t, "a%2Bb%3D", percentEncode("a+b="))
	assert.Equal(t, "%C3%B1", percentEncode("ñ"))
}

func TestFetchSalesTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, `oauth_nonce="fixednonce"`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Cliente": "Acme", "Hotel - Code": "AC-01", "ene 2024": 1234.5, "Ubicación": "Madrid"},
			{"Cliente": "Beta", "ene 2024": 0}
		]`))
	}))
	defer srv.Close()

	client := fixedClient(testConfig(srv.URL))
	table, err := client.FetchSalesTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Cliente", "Hotel - Code", "Ubicación", "ene 2024"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Acme", "AC-01", "Madrid", "1234.5"}, table.Rows[0])
	assert.Equal(t, []string{"Beta", "", "", "0"}, table.Rows[1])
}

func TestFetchSalesTableErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		client := NewClient(Config{}, nil)
		_, err := client.FetchSalesTable(context.Background())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("upstream failure is quoted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "INVALID_LOGIN_ATTEMPT", http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := fixedClient(testConfig(srv.URL))
		_, err := client.FetchSalesTable(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "INVALID_LOGIN_ATTEMPT")
	})

	t.Run("missing entity field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"Name": "Acme"}]`))
		}))
		defer srv.Close()

		client := fixedClient(testConfig(srv.URL))
		_, err := client.FetchSalesTable(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), analysis.EntityColumn)
	})

	t.Run("empty dataset", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		client := fixedClient(testConfig(srv.URL))
		_, err := client.FetchSalesTable(context.Background())
		require.Error(t, err)
	})
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := fixedClient(testConfig(srv.URL))
	assert.NoError(t, client.TestConnection(context.Background()))
}

// Package vault retrieves oracle API keys from HashiCorp Vault so they
// never live in config files. When Vault is disabled the client serves
// keys from its local cache only.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
)

// Config holds Vault connection configuration
type Config struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Client wraps the HashiCorp Vault client for oracle credential lookup
type Client struct {
	client *api.Client
	config Config
	mu     sync.RWMutex
	cache  map[string]string // provider -> api key
}

// NewClient creates a new Vault client
func NewClient(cfg Config) (*Client, error) {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if !cfg.Enabled {
		return &Client{config: cfg, cache: make(map[string]string)}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg, cache: make(map[string]string)}, nil
}

// secretPath builds the KV v2 data path for a provider's credentials
func (c *Client) secretPath(provider string) string {
	return fmt.Sprintf("%s/data/analyst/oracle/%s", c.config.MountPath, provider)
}

// StoreOracleKey stores an oracle API key in Vault
func (c *Client) StoreOracleKey(ctx context.Context, provider, apiKey string) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[provider] = apiKey
		c.mu.Unlock()
		return nil
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key": apiKey,
		},
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(provider), secretData); err != nil {
		return fmt.Errorf("failed to store oracle key in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[provider] = apiKey
	c.mu.Unlock()
	return nil
}

// GetOracleKey retrieves an oracle API key for a provider
func (c *Client) GetOracleKey(ctx context.Context, provider string) (string, error) {
	c.mu.RLock()
	if key, ok := c.cache[provider]; ok {
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return "", fmt.Errorf("oracle key for %s not found and vault is disabled", provider)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(provider))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("oracle key for %s not found in vault", provider)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected secret format for %s", provider)
	}
	key, ok := data["api_key"].(string)
	if !ok || key == "" {
		return "", fmt.Errorf("oracle key for %s is empty", provider)
	}

	c.mu.Lock()
	c.cache[provider] = key
	c.mu.Unlock()
	return key, nil
}

// ClearCache drops cached keys, forcing the next lookup to hit Vault
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]string)
	c.mu.Unlock()
}

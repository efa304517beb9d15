// Package config loads and validates the dispenser's JSON configuration.
// The file format is the bot_info.json shape used operationally: pool
// contract address, token schedules, recipient wallets and the dispense
// cadence, plus an optional node section.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"token-dispenser/internal/domain"
)

// NodeConfig describes how to reach the ledger node.
type NodeConfig struct {
	NodeURL     string `json:"node_url"`
	ExplorerURL string `json:"explorer_url"`
	APIKey      string `json:"api_key"`
	NetworkType string `json:"network_type"`
	WSUrl       string `json:"ws_url"` // optional block feed endpoint
}

// Config is the full dispenser configuration, validated once at load.
type Config struct {
	Node                  NodeConfig `json:"node"`
	PoolContractAddress   string     `json:"proxy_contract_address"`
	RecipientWallets      []string   `json:"recipient_wallets"`
	BlocksBetweenDispense int64      `json:"blocks_between_dispense"`
	UnlockHeight          int64      `json:"unlock_height"`

	Tokens map[string]TokenEntry `json:"tokens"`
}

// TokenEntry is the on-disk shape of one token's schedule.
type TokenEntry struct {
	TokenID          string `json:"token_id"`
	TotalAmount      int64  `json:"total_amount"`
	Decimals         int    `json:"decimals"`
	DistributionType string `json:"distribution_type"`
	TokensPerRound   int64  `json:"tokens_per_round"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks all required fields. Token entries are validated
// through domain.TokenConfig so the rules live in one place.
func (c *Config) Validate() error {
	if c.PoolContractAddress == "" {
		return fmt.Errorf("%w: proxy_contract_address is required", domain.ErrConfigInvalid)
	}
	if len(c.RecipientWallets) == 0 {
		return fmt.Errorf("%w: recipient_wallets must be a non-empty list", domain.ErrConfigInvalid)
	}
	for i, wallet := range c.RecipientWallets {
		if wallet == "" {
			return fmt.Errorf("%w: recipient_wallets[%d] is empty", domain.ErrConfigInvalid, i)
		}
	}
	if c.BlocksBetweenDispense <= 0 {
		return fmt.Errorf("%w: blocks_between_dispense must be positive, got %d",
			domain.ErrConfigInvalid, c.BlocksBetweenDispense)
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("%w: at least one token is required", domain.ErrConfigInvalid)
	}

	for _, cfg := range c.TokenConfigs() {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TokenConfigs converts the token entries into domain configs, ordered
// by name for deterministic processing.
func (c *Config) TokenConfigs() []*domain.TokenConfig {
	names := make([]string, 0, len(c.Tokens))
	for name := range c.Tokens {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]*domain.TokenConfig, 0, len(names))
	for _, name := range names {
		entry := c.Tokens[name]
		configs = append(configs, &domain.TokenConfig{
			Name:             name,
			TokenID:          entry.TokenID,
			TotalAmount:      entry.TotalAmount,
			Decimals:         entry.Decimals,
			DistributionType: domain.DistributionType(entry.DistributionType),
			TokensPerRound:   entry.TokensPerRound,
		})
	}
	return configs
}

// TokenIDs returns the configured token ids, sorted.
func (c *Config) TokenIDs() []string {
	ids := make([]string, 0, len(c.Tokens))
	for _, entry := range c.Tokens {
		ids = append(ids, entry.TokenID)
	}
	sort.Strings(ids)
	return ids
}

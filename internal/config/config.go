// Package config centralizes runtime configuration for tlm. It loads a
// JSON configuration file and exposes a process-wide configuration with
// sensible defaults. Tests and development builds will use defaults when the
// file is not present. Production operators should place a JSON file at
// /etc/tlm/config.json or specify a different path via the CONFIG_FILE env var.
package config

import (
	"encoding/json"
	"os"
)

// Config holds configurable options for the tlm service.
type Config struct {
	KeyFile           string `json:"key_file"`
	LedgerDBFile      string `json:"ledger_db_file"`
	Port              int    `json:"port"`
	LogFile           string `json:"log_file"`
	AdminAddress      string `json:"admin_address"`
	MaxSupply         string `json:"max_supply"`
	AuditIntervalSecs int    `json:"audit_interval_secs"`
	DocsDir           string `json:"docs_dir"`
}

var cfg *Config

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so that the
// application can run in development with minimal friction.
//
// AdminAddress selects the genesis admin; when empty, the node's own
// identity becomes the deployer/admin. MaxSupply fixes the supply cap at
// genesis and is ignored once a persisted ledger exists.
func LoadConfig(path string) (*Config, error) {
	// sensible defaults
	def := &Config{
		KeyFile:           "tlm_key.pem",
		LedgerDBFile:      "ledger.db",
		Port:              8080,
		LogFile:           "tlm.log",
		AdminAddress:      "",
		MaxSupply:         "1000000000000000000",
		AuditIntervalSecs: 30,
		DocsDir:           "docs",
	}

	// if no file path provided, return defaults
	if path == "" {
		cfg = def
		return cfg, nil
	}

	// read file
	b, err := os.ReadFile(path)
	if err != nil {
		// file missing or unreadable -> use defaults
		cfg = def
		return cfg, nil
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		// parse error -> use defaults
		cfg = def
		return cfg, nil
	}

	// merge defaults for any zero-value fields
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if c.LedgerDBFile == "" {
		c.LedgerDBFile = def.LedgerDBFile
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.LogFile == "" {
		c.LogFile = def.LogFile
	}
	if c.MaxSupply == "" {
		c.MaxSupply = def.MaxSupply
	}
	if c.AuditIntervalSecs == 0 {
		c.AuditIntervalSecs = def.AuditIntervalSecs
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}

	cfg = &c
	return cfg, nil
}

// Get returns the loaded configuration. If LoadConfig hasn't been called
// yet, it returns defaults.
func Get() *Config {
	if cfg == nil {
		// initialize with defaults
		LoadConfig("")
	}
	return cfg
}

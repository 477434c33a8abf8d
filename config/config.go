// Package config loads the node-level router configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"liquidroute/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk shape of the router node configuration. Addresses are
// bech32 strings; Parameters resolves them to raw account identities.
type Config struct {
	APIAddress  string `toml:"APIAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`
	Environment string `toml:"Environment"`

	Operator      string `toml:"Operator"`
	Module        string `toml:"Module"`
	OracleAdmin   string `toml:"OracleAdmin"`
	OracleUpdater string `toml:"OracleUpdater"`

	Stabilizers []StabilizerConfig `toml:"Stabilizers"`
}

// StabilizerConfig describes one external liquidity source operated alongside
// the router.
type StabilizerConfig struct {
	Account  string `toml:"Account"`
	Operator string `toml:"Operator"`
}

// Parameters holds the resolved runtime parameters.
type Parameters struct {
	APIAddress  string
	DataDir     string
	NetworkName string
	Environment string

	Operator      [20]byte
	Module        [20]byte
	OracleAdmin   [20]byte
	OracleUpdater [20]byte

	Stabilizers []StabilizerParameters
}

// StabilizerParameters is the resolved form of StabilizerConfig.
type StabilizerParameters struct {
	Account  [20]byte
	Operator [20]byte
}

// Load reads the configuration at path, creating a default file when none
// exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Normalise()
	return cfg, nil
}

// Normalise trims fields and applies defaults in place.
func (c *Config) Normalise() {
	if c == nil {
		return
	}
	c.APIAddress = strings.TrimSpace(c.APIAddress)
	if c.APIAddress == "" {
		c.APIAddress = ":8095"
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "./router-data"
	}
	c.NetworkName = strings.TrimSpace(c.NetworkName)
	if c.NetworkName == "" {
		c.NetworkName = "liquidroute-local"
	}
	c.Environment = strings.TrimSpace(c.Environment)
	c.Operator = strings.TrimSpace(c.Operator)
	c.Module = strings.TrimSpace(c.Module)
	c.OracleAdmin = strings.TrimSpace(c.OracleAdmin)
	c.OracleUpdater = strings.TrimSpace(c.OracleUpdater)
	for i := range c.Stabilizers {
		c.Stabilizers[i].Account = strings.TrimSpace(c.Stabilizers[i].Account)
		c.Stabilizers[i].Operator = strings.TrimSpace(c.Stabilizers[i].Operator)
	}
}

// Parameters validates the configuration and resolves every address. The
// operator, module, and oracle admin are required; the oracle updater falls
// back to the admin; a stabilizer without its own operator uses the router
// operator.
func (c *Config) Parameters() (Parameters, error) {
	if c == nil {
		return Parameters{}, fmt.Errorf("config: nil configuration")
	}
	params := Parameters{
		APIAddress:  c.APIAddress,
		DataDir:     c.DataDir,
		NetworkName: c.NetworkName,
		Environment: c.Environment,
	}
	var err error
	if params.Operator, err = resolveAddress("Operator", c.Operator); err != nil {
		return Parameters{}, err
	}
	if params.Module, err = resolveAddress("Module", c.Module); err != nil {
		return Parameters{}, err
	}
	if params.OracleAdmin, err = resolveAddress("OracleAdmin", c.OracleAdmin); err != nil {
		return Parameters{}, err
	}
	updater := c.OracleUpdater
	if updater == "" {
		updater = c.OracleAdmin
	}
	if params.OracleUpdater, err = resolveAddress("OracleUpdater", updater); err != nil {
		return Parameters{}, err
	}
	for i, stab := range c.Stabilizers {
		resolved := StabilizerParameters{}
		if resolved.Account, err = resolveAddress(fmt.Sprintf("Stabilizers[%d].Account", i), stab.Account); err != nil {
			return Parameters{}, err
		}
		operator := stab.Operator
		if operator == "" {
			operator = c.Operator
		}
		if resolved.Operator, err = resolveAddress(fmt.Sprintf("Stabilizers[%d].Operator", i), operator); err != nil {
			return Parameters{}, err
		}
		params.Stabilizers = append(params.Stabilizers, resolved)
	}
	return params, nil
}

func resolveAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	if value == "" {
		return out, fmt.Errorf("config: %s is required", field)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("config: %s: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

// createDefault writes a fresh configuration with generated identities so a
// new node can start without manual key handling.
func createDefault(path string) (*Config, error) {
	operator, err := generatedAddress()
	if err != nil {
		return nil, err
	}
	module, err := generatedAddress()
	if err != nil {
		return nil, err
	}
	admin, err := generatedAddress()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		APIAddress:  ":8095",
		DataDir:     "./router-data",
		NetworkName: "liquidroute-local",
		Operator:    operator,
		Module:      module,
		OracleAdmin: admin,
	}
	cfg.Normalise()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func generatedAddress() (string, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	return key.PubKey().Address().String(), nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

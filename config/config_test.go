package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidroute/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.toml")
	operator := testAddress(t)
	module := testAddress(t)
	admin := testAddress(t)
	stab := testAddress(t)

	contents := `
APIAddress = ":9000"
DataDir = "/var/lib/router"
Operator = "` + operator + `"
Module = "` + module + `"
OracleAdmin = "` + admin + `"

[[Stabilizers]]
Account = "` + stab + `"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.APIAddress)
	require.Equal(t, "/var/lib/router", cfg.DataDir)
	require.Equal(t, "liquidroute-local", cfg.NetworkName)

	params, err := cfg.Parameters()
	require.NoError(t, err)
	require.Len(t, params.Stabilizers, 1)
	// Updater defaults to the admin, stabilizer operator to the router operator.
	require.Equal(t, params.OracleAdmin, params.OracleUpdater)
	require.Equal(t, params.Operator, params.Stabilizers[0].Operator)
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8095", cfg.APIAddress)
	require.NotEmpty(t, cfg.Operator)

	params, err := cfg.Parameters()
	require.NoError(t, err)
	require.NotEqual(t, params.Operator, params.Module)
}

func TestParametersRejectsMissingOperator(t *testing.T) {
	cfg := &Config{Module: testAddress(t), OracleAdmin: testAddress(t)}
	cfg.Normalise()
	_, err := cfg.Parameters()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Operator")
}

func TestParametersRejectsMalformedAddress(t *testing.T) {
	cfg := &Config{
		Operator:    "not-a-bech32-address",
		Module:      testAddress(t),
		OracleAdmin: testAddress(t),
	}
	cfg.Normalise()
	_, err := cfg.Parameters()
	require.Error(t, err)
}

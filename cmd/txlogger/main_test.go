package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/stretchr/testify/require"
)

func newAddress(t *testing.T) string {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return address.Uint160ToString(k.GetScriptHash())
}

type cliEnv struct {
	t      *testing.T
	config string
}

func newCLIEnv(t *testing.T, deployer, mode string) *cliEnv {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := fmt.Sprintf(`
Storage:
  Type: boltdb
  Path: %s
Logger:
  Level: error
Deployer: %s
Gateway:
  Mode: %s
  MinimumAmount: "0.1"
Indexer:
  Path: %s
`, filepath.Join(dir, "ledger.db"), deployer, mode, filepath.Join(dir, "index.db"))

	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	return &cliEnv{t: t, config: path}
}

func (e *cliEnv) run(args ...string) (string, error) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"txlogger", "--config", e.config}, args...))
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func TestCLI_Native(t *testing.T) {
	var (
		deployer = newAddress(t)
		sender   = newAddress(t)
		r1       = newAddress(t)
		r2       = newAddress(t)
		e        = newCLIEnv(t, deployer, "native")
	)

	out := e.mustRun("info")
	require.Contains(t, out, "ThankYouCoin (TYC)")
	require.Contains(t, out, "mode:         native")
	require.Contains(t, out, "total supply: 1024")

	e.mustRun("deposit", "--to", sender, "--amount", "10")

	out = e.mustRun("send", "--from", sender, "--to", r1, "--amount", "1.5")
	require.Contains(t, out, "Committed")

	out = e.mustRun("send-multi", "--from", sender, "--to", r1, "--to", r2, "--amount", "0.5", "--amount", "2")
	require.Contains(t, out, "Committed")

	out, err := e.run("send", "--from", sender, "--to", r2, "--amount", "0.01")
	require.Error(t, err)
	require.Contains(t, out, "Rejected")

	out = e.mustRun("balance", "--account", r1)
	require.Contains(t, out, "native: 2\n")

	out = e.mustRun("balance", "--account", sender)
	require.Contains(t, out, "native: 6\n")

	out = e.mustRun("transfers", "--account", sender)
	require.Contains(t, out, r1)
	require.Contains(t, out, r2)

	out = e.mustRun("transfers", "--account", r2, "--received")
	require.Contains(t, out, "#1")
}

func TestCLI_Token(t *testing.T) {
	var (
		deployer = newAddress(t)
		holder   = newAddress(t)
		receiver = newAddress(t)
		e        = newCLIEnv(t, deployer, "token")
	)

	_, err := e.run("mint", "--from", holder, "--to", holder, "--amount", "5")
	require.Error(t, err)

	e.mustRun("mint", "--from", deployer, "--to", holder, "--amount", "5")
	e.mustRun("approve", "--from", holder, "--amount", "3")

	out := e.mustRun("allowance", "--account", holder)
	require.Equal(t, "3\n", out)

	out, err = e.run("send", "--from", holder, "--to", receiver, "--amount", "4")
	require.Error(t, err)
	require.Contains(t, out, "AbortedRollback")

	e.mustRun("send", "--from", holder, "--to", receiver, "--amount", "3")

	out = e.mustRun("balance", "--account", receiver)
	require.Contains(t, out, "TYC: 3\n")

	out = e.mustRun("allowance", "--account", holder)
	require.Equal(t, "0\n", out)
}

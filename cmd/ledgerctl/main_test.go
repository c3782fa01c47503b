package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

var account = strings.Repeat("cd", 32)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "store:\n  backend: sqlite\ndatabase:\n  path: " + filepath.Join(dir, "ledger.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath, "--env", "", "--account", account}, args...))
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestLedgerctl_Lifecycle(t *testing.T) {
	cfg := writeConfig(t)
	hashA := strings.Repeat("0a", 32)
	hashB := strings.Repeat("0b", 32)

	out, err := run(t, cfg, "install")
	require.NoError(t, err)
	assert.Equal(t, "ledger installed", out)

	out, err = run(t, cfg, "version")
	require.NoError(t, err)
	assert.Equal(t, "contract version 1.0.0", out)

	out, err = run(t, cfg, "count")
	require.NoError(t, err)
	assert.Equal(t, "0", out)

	out, err = run(t, cfg, "create", hashA, hashB)
	require.NoError(t, err)
	assert.Equal(t, "1", out)

	out, err = run(t, cfg, "history", "1")
	require.NoError(t, err)
	assert.Equal(t, "No transitions recorded.", out)

	_, err = run(t, cfg, "transition", "1", "PENDING_REVIEW", "--role", "1")
	require.NoError(t, err)
	out, err = run(t, cfg, "transition", "1", "20", "--role", "2", "--comment", hashA)
	require.NoError(t, err)
	assert.Equal(t, "workflow 1 is now ESCALATED", out)

	out, err = run(t, cfg, "state", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"current_state": "ESCALATED"`)
	assert.Contains(t, out, `"id": "1"`)
	assert.Contains(t, out, "account-hash-"+account)

	out, err = run(t, cfg, "history", "1")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "PENDING_REVIEW -> ESCALATED")
	assert.Contains(t, lines[1], "APPROVER")

	out, err = run(t, cfg, "verify")
	require.NoError(t, err)
	assert.Equal(t, "verified 1 workflows", out)
}

func TestLedgerctl_Errors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "state", "7")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = run(t, cfg, "create", "abcd", strings.Repeat("00", 32))
	assert.ErrorIs(t, err, domainwf.ErrInvalidArgument)

	_, err = run(t, cfg, "create", strings.Repeat("00", 32), strings.Repeat("00", 32))
	require.NoError(t, err)

	_, err = run(t, cfg, "transition", "1", "APPROVED")
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

	_, err = run(t, cfg, "transition", "1", "NOPE")
	assert.ErrorIs(t, err, domainwf.ErrInvalidArgument)
}

func TestLedgerctl_MissingAccount(t *testing.T) {
	cfg := writeConfig(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "--env", "", "create", strings.Repeat("00", 32), strings.Repeat("00", 32)})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, domainwf.ErrMissingArgument)
}

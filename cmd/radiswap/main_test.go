package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	out, err := execute(t, "quote", "--reserve-in", "1000", "--reserve-out", "1000", "--amount", "100", "--fee", "0.003", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "90.661089388014913158\n", out)

	_, err = execute(t, "quote", "--reserve-in", "1000", "--reserve-out", "1000", "--amount", "100", "--fee", "1.5", "--log-level", "error")
	require.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	lines := []string{
		`{"kind":"create_account","account":"alice"}`,
		`{"kind":"create_asset","account":"alice","asset":{"symbol":"XRD","supply":"5000"}}`,
		`{"kind":"create_asset","account":"alice","asset":{"symbol":"USD","supply":"5000"}}`,
		`{"kind":"instantiate_pool","account":"alice","pool":"p","fee":"0.003","assets":[{"resource":"XRD","amount":"1000"},{"resource":"USD","amount":"1000"}]}`,
		`{"kind":"swap","account":"alice","pool":"p","assets":[{"resource":"USD","amount":"0"}]}`,
	}
	require.NoError(t, os.WriteFile(in, []byte(strings.Join(lines, "\n")), 0o644))

	out, err := execute(t, "replay",
		"--in", in,
		"--out", filepath.Join(dir, "receipts.jsonl"),
		"--failed", filepath.Join(dir, "failed.jsonl"),
		"--checkpoint", filepath.Join(dir, "cp.json"),
		"--batch-size", "2",
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Equal(t, "instructions=5 resumed=0 committed=4 rejected=1\n", out)

	_, err = os.Stat(filepath.Join(dir, "failed.jsonl"))
	require.NoError(t, err)
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("RADISWAP_PG_DSN", "")
	_, err := execute(t, "migrate", "--log-level", "error")
	require.Error(t, err)
}

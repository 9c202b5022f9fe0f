package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timelapse/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// scriptedReader returns the given passwords in order.
func scriptedReader(passwords ...string) passwordReader {
	return func() ([]byte, error) {
		if len(passwords) == 0 {
			return nil, errors.New("no more input")
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
}

func TestPromptHash(t *testing.T) {
	tests := []struct {
		name      string
		passwords []string
		wantErr   string
	}{
		{name: "valid", passwords: []string{"hunter22", "hunter22"}},
		{name: "mismatch", passwords: []string{"hunter22", "hunter23"}, wantErr: "do not match"},
		{name: "too short", passwords: []string{"abc", "abc"}, wantErr: "at least 6"},
		{name: "read failure", passwords: []string{"hunter22"}, wantErr: "reading password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			hash, err := promptHash(scriptedReader(tt.passwords...), &out)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.passwords[0])))
			assert.Contains(t, out.String(), "Confirm Password:")
			assert.NotContains(t, out.String(), tt.passwords[0], "the password is never echoed")
		})
	}
}

func TestHashAcceptedByBasicAuth(t *testing.T) {
	hash, err := hashPassword([]byte("s3cret-pi"))
	require.NoError(t, err)

	config := middleware.AuthConfig{Username: "timelapse", PasswordHash: hash}
	assert.True(t, config.Verify("timelapse", "s3cret-pi"))
	assert.False(t, config.Verify("timelapse", "wrong"))
}

func TestSetPasswordHashPreservesDocument(t *testing.T) {
	input := `# camera host
capture_dir: /home/pi/capture # written by raspistill
username: pi
password: timelapse
port: 4443
`
	out, err := setPasswordHash([]byte(input), "$2a$04$abc")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# camera host")
	assert.Contains(t, text, "# written by raspistill")
	assert.NotContains(t, text, "password: timelapse")

	var parsed map[string]string
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Equal(t, map[string]string{
		"capture_dir":   "/home/pi/capture",
		"username":      "pi",
		"port":          "4443",
		"password_hash": "$2a$04$abc",
	}, parsed)

	assert.Less(t, strings.Index(text, "capture_dir"), strings.Index(text, "port"), "key order is kept")
}

func TestSetPasswordHashReplacesExisting(t *testing.T) {
	out, err := setPasswordHash([]byte("PASSWORD_HASH: old\nusername: pi\n"), "new")
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Equal(t, map[string]string{"PASSWORD_HASH": "new", "username": "pi"}, parsed)
}

func TestSetPasswordHashEmptyAndInvalid(t *testing.T) {
	out, err := setPasswordHash(nil, "hash")
	require.NoError(t, err)
	assert.Equal(t, "password_hash: hash\n", string(out))

	_, err = setPasswordHash([]byte("- a\n- b\n"), "hash")
	assert.ErrorIs(t, err, errNotMapping)

	_, err = setPasswordHash([]byte("key: [unclosed\n"), "hash")
	assert.Error(t, err)
}

func TestUpdateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: pi\npassword: plain\n"), 0o640))

	require.NoError(t, updateConfigFile(path, "hash"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	state, err := passwordStatus(path)
	require.NoError(t, err)
	assert.Equal(t, "bcrypt password hash configured", state)
}

func TestUpdateConfigFileCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.yaml")

	require.NoError(t, updateConfigFile(path, "hash"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPasswordStatus(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	state, err := passwordStatus(write("plain.yaml", "password: x\n"))
	require.NoError(t, err)
	assert.Contains(t, state, "plain-text")

	state, err = passwordStatus(write("none.yaml", "port: 4443\n"))
	require.NoError(t, err)
	assert.Contains(t, state, "default credentials")

	_, err = passwordStatus(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name     string
		args     []string
		input    []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "no arguments", wantCode: 1, wantErr: "Usage:"},
		{name: "unknown command", args: []string{"reset;rm"}, wantCode: 1, wantErr: "Unknown command: reset_rm"},
		{name: "set without file", args: []string{"set"}, wantCode: 1, wantErr: "Usage:"},
		{name: "hash", args: []string{"hash"}, input: []string{"hunter22", "hunter22"}, wantOut: "$2a$"},
		{name: "hash mismatch", args: []string{"hash"}, input: []string{"hunter22", "nope"}, wantCode: 1, wantErr: "do not match"},
		{name: "set", args: []string{"set", path}, input: []string{"hunter22", "hunter22"}, wantOut: "Password updated"},
		{name: "status", args: []string{"status", path}, wantOut: "bcrypt password hash configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, scriptedReader(tt.input...), &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := map[string]string{
		"set":          "set",
		"hash-2_x":     "hash-2_x",
		"a b":          "a_b",
		"../etc\npass": "___etc_pass",
		"\x1b[31mred":  "__31mred",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeCommand(in), "%q", in)
	}
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	hashKey     = "password_hash"
	passwordKey = "password"
)

var errNotMapping = errors.New("config file must be a YAML mapping")

// updateConfigFile stores hash in the config file at path, creating the
// file if needed. The existing file mode is kept.
func updateConfigFile(path, hash string) error {
	perm := fs.FileMode(0o600)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return fmt.Errorf("reading config: %w", err)
	default:
		if info, statErr := os.Stat(path); statErr == nil {
			perm = info.Mode().Perm()
		}
	}

	updated, err := setPasswordHash(data, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := renameio.WriteFile(path, updated, perm, renameio.IgnoreUmask()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// setPasswordHash sets password_hash in the YAML document and drops any
// plain-text password. Comments and the order of other keys survive.
func setPasswordHash(data []byte, hash string) ([]byte, error) {
	root, doc, err := parseMapping(data)
	if err != nil {
		return nil, err
	}

	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: hash}
	if i := findKey(root, hashKey); i >= 0 {
		root.Content[i+1] = value
	} else {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: hashKey}, value)
	}

	if i := findKey(root, passwordKey); i >= 0 {
		root.Content = append(root.Content[:i], root.Content[i+2:]...)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// passwordStatus describes the password configuration of the file at path
// without revealing it.
func passwordStatus(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading config: %w", err)
	}
	root, _, err := parseMapping(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	if i := findKey(root, hashKey); i >= 0 && root.Content[i+1].Value != "" {
		return "bcrypt password hash configured", nil
	}
	if i := findKey(root, passwordKey); i >= 0 && root.Content[i+1].Value != "" {
		return "plain-text password configured (run set to hash it)", nil
	}
	return "no password configured (default credentials apply)", nil
}

// parseMapping returns the top-level mapping of a YAML document, creating
// an empty one for empty input.
func parseMapping(data []byte) (*yaml.Node, *yaml.Node, error) {
	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, errNotMapping
	}
	return doc.Content[0], &doc, nil
}

// findKey returns the index of key in a mapping node's content, matching
// case-insensitively like the server's config loader, or -1.
func findKey(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if strings.EqualFold(mapping.Content[i].Value, key) {
			return i
		}
	}
	return -1
}

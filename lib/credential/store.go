// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/neuromorphic-platform/nmpi-ci/lib/sealed"
	"github.com/neuromorphic-platform/nmpi-ci/lib/secret"
)

// BundleVersion is the current schema version of the bundle file.
const BundleVersion = 1

// namePattern constrains credential names: an alphanumeric start, then
// alphanumerics, dots, dashes, and underscores. The shipped pipeline
// uses names like "nmpi-test-token".
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is a handle on the two store files. The zero value is not
// usable; both paths must be set. Methods are not safe for concurrent
// use from multiple processes (the store is a single-operator file, not
// a database).
type Store struct {
	// BundlePath is the encrypted bundle file.
	BundlePath string

	// IdentityPath is the age private key file.
	IdentityPath string
}

// bundle is the on-disk envelope around the encrypted credential map.
type bundle struct {
	// Version is the envelope schema version (see BundleVersion).
	Version int `json:"version"`

	// PublicKey is the age public key the ciphertext is encrypted to.
	// Recorded so Set and Remove can re-encrypt without the private key
	// material beyond what decryption itself needs.
	PublicKey string `json:"public_key"`

	// Ciphertext is the base64-encoded age-encrypted blob. The
	// plaintext is a JSON object mapping credential names to values.
	Ciphertext string `json:"ciphertext"`

	// UpdatedAt is the ISO 8601 timestamp of the last mutation.
	UpdatedAt string `json:"updated_at"`
}

// ValidateName checks a credential name against the store's naming
// rules. Exported so the CLI can reject a bad name before prompting
// for its value.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("credential name is empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid credential name %q: must start with an alphanumeric and contain only alphanumerics, dots, dashes, and underscores", name)
	}
	return nil
}

// Init creates a new credential store: it generates an age keypair,
// writes the private key to IdentityPath (mode 0600, parent directories
// created 0700), and writes an empty bundle encrypted to the public
// key. Returns the public key for display.
//
// Init refuses to overwrite: it fails if either file already exists.
func (s *Store) Init() (string, error) {
	for _, path := range []string{s.BundlePath, s.IdentityPath} {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("refusing to overwrite existing file %s", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return "", err
	}
	defer keypair.Close()

	if err := writeIdentityFile(s.IdentityPath, keypair.PrivateKey); err != nil {
		return "", err
	}

	if err := s.save(keypair.PublicKey, map[string]string{}); err != nil {
		// Leave no half-initialized store behind.
		os.Remove(s.IdentityPath)
		return "", err
	}
	return keypair.PublicKey, nil
}

// Set stores a credential value under the given name, replacing any
// existing value. The value buffer is borrowed, not closed.
func (s *Store) Set(name string, value *secret.Buffer) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	entries, envelope, err := s.load()
	if err != nil {
		return err
	}
	entries[name] = value.String()
	return s.save(envelope.PublicKey, entries)
}

// Remove deletes a credential from the store. Unknown names are an
// error so a typo'd removal does not silently succeed.
func (s *Store) Remove(name string) error {
	entries, envelope, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return fmt.Errorf("credential %q not found", name)
	}
	delete(entries, name)
	return s.save(envelope.PublicKey, entries)
}

// List returns the stored credential names, sorted. Listing decrypts:
// the bundle envelope carries no cleartext name index that could drift
// from the ciphertext.
func (s *Store) List() ([]string, error) {
	entries, _, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Resolve decrypts the bundle once and returns the requested values,
// each in its own secret buffer. Duplicate names in the request are
// resolved once. If any requested name is absent the whole resolution
// fails, the error names every missing credential, and no buffers
// escape.
//
// An empty request succeeds without touching the store files, so
// pipelines without credential bindings run against an uninitialized
// store.
//
// The caller owns the returned buffers and must close each one.
func (s *Store) Resolve(names []string) (map[string]*secret.Buffer, error) {
	resolved := make(map[string]*secret.Buffer)
	if len(names) == 0 {
		return resolved, nil
	}

	entries, _, err := s.load()
	if err != nil {
		return nil, err
	}

	var missing []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		value, ok := entries[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		buffer, err := secret.NewFromBytes([]byte(value))
		if err != nil {
			closeAll(resolved)
			return nil, fmt.Errorf("protecting credential %q: %w", name, err)
		}
		resolved[name] = buffer
	}

	if len(missing) > 0 {
		closeAll(resolved)
		sort.Strings(missing)
		return nil, fmt.Errorf("credentials not found in store: %s (add them with \"nmpi-ci credential set\")", strings.Join(missing, ", "))
	}
	return resolved, nil
}

func closeAll(buffers map[string]*secret.Buffer) {
	for _, buffer := range buffers {
		buffer.Close()
	}
}

// load reads the bundle envelope, decrypts it with the identity file,
// and returns the credential map plus the envelope (for the public key
// on re-encryption).
func (s *Store) load() (map[string]string, *bundle, error) {
	envelope, err := s.readBundle()
	if err != nil {
		return nil, nil, err
	}

	identity, err := secret.ReadFromPath(s.IdentityPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("identity file not found at %s", s.IdentityPath)
		}
		return nil, nil, fmt.Errorf("reading identity file: %w", err)
	}
	defer identity.Close()

	plaintext, err := sealed.Decrypt(envelope.Ciphertext, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("decrypting credential bundle: %w", err)
	}
	defer plaintext.Close()

	var entries map[string]string
	if err := json.Unmarshal(plaintext.Bytes(), &entries); err != nil {
		return nil, nil, fmt.Errorf("parsing decrypted credential bundle: %w", err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, envelope, nil
}

// save encrypts the credential map to the public key and atomically
// replaces the bundle file.
func (s *Store) save(publicKey string, entries map[string]string) error {
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling credential bundle: %w", err)
	}
	ciphertext, encryptErr := sealed.Encrypt(plaintext, []string{publicKey})
	secret.Zero(plaintext)
	if encryptErr != nil {
		return fmt.Errorf("encrypting credential bundle: %w", encryptErr)
	}

	envelope := bundle{
		Version:    BundleVersion,
		PublicKey:  publicKey,
		Ciphertext: ciphertext,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return writeBundleFile(s.BundlePath, &envelope)
}

func (s *Store) readBundle() (*bundle, error) {
	data, err := os.ReadFile(s.BundlePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credential store not found at %s (run \"nmpi-ci credential init\" first)", s.BundlePath)
		}
		return nil, fmt.Errorf("reading credential store: %w", err)
	}

	var envelope bundle
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parsing credential store %s: %w", s.BundlePath, err)
	}
	if envelope.Version != BundleVersion {
		return nil, fmt.Errorf("credential store %s has version %d, this build supports version %d", s.BundlePath, envelope.Version, BundleVersion)
	}
	if envelope.Ciphertext == "" {
		return nil, fmt.Errorf("credential store %s has no ciphertext", s.BundlePath)
	}
	if err := sealed.ParsePublicKey(envelope.PublicKey); err != nil {
		return nil, fmt.Errorf("credential store %s: %w", s.BundlePath, err)
	}
	return &envelope, nil
}

// writeIdentityFile writes the private key directly from its mmap
// buffer, never copying it through the heap. Mode 0600, parent
// directories created 0700.
func writeIdentityFile(path string, key *secret.Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	if _, err := file.Write(key.Bytes()); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing identity file: %w", err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("syncing identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing identity file: %w", err)
	}
	return nil
}

// writeBundleFile atomically replaces the bundle: write to a temporary
// file in the same directory, fsync, rename into place. Readers never
// see a partial bundle, and a crash mid-Set leaves the previous bundle
// intact.
func writeBundleFile(path string, envelope *bundle) error {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bundle envelope: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary bundle file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary bundle file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary bundle file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary bundle file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming bundle into place: %w", err)
	}

	// Best-effort directory sync so the rename survives power loss.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

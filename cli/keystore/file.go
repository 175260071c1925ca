package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File format constants.
const (
	// magicHeader identifies venice keystore files.
	magicHeader = "VNKS"
	// version is the current file format version.
	version = byte(0x01)
	// saltLength is the Argon2id salt length.
	saltLength = 16
	// nonceLength is the AES-GCM nonce length.
	nonceLength = 12
)

// Argon2id parameters (OWASP recommended).
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// ErrCorruptKeystore is returned when the keystore file cannot be decoded
// or authenticated.
var ErrCorruptKeystore = errors.New("keystore file is corrupt or was encrypted with a different key")

// FileKeystore implements Keystore using encrypted file storage. Keys live
// in a JSON map sealed with AES-256-GCM; the cipher key is derived with
// Argon2id from a machine-bound secret and a per-file salt.
type FileKeystore struct {
	path   string
	secret []byte
	mu     sync.Mutex
}

// NewFileKeystore creates a file-based keystore at the given path. The
// sealing secret is derived from machine-specific data, so the file is not
// portable between machines or accounts.
func NewFileKeystore(path string) (*FileKeystore, error) {
	secret, err := machineSecret()
	if err != nil {
		return nil, err
	}
	return &FileKeystore{path: path, secret: secret}, nil
}

// machineSecret builds the key-derivation input from stable local
// identifiers.
func machineSecret() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return []byte("venice-keystore:" + hostname + ":" + username), nil
}

// Set stores a key-value pair.
func (f *FileKeystore) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return err
	}
	keys[name] = value
	return f.save(keys)
}

// Get retrieves a value by name.
func (f *FileKeystore) Get(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := keys[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return value, nil
}

// Delete removes a key by name.
func (f *FileKeystore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := keys[name]; !ok {
		return &ErrKeyNotFound{Name: name}
	}
	delete(keys, name)
	return f.save(keys)
}

// List returns all stored key names, sorted.
func (f *FileKeystore) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// load reads and decrypts the keystore file. A missing file yields an
// empty map.
func (f *FileKeystore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	header := len(magicHeader) + 1
	if len(data) < header+saltLength+nonceLength || string(data[:len(magicHeader)]) != magicHeader {
		return nil, ErrCorruptKeystore
	}
	if data[len(magicHeader)] != version {
		return nil, ErrCorruptKeystore
	}

	salt := data[header : header+saltLength]
	nonce := data[header+saltLength : header+saltLength+nonceLength]
	ciphertext := data[header+saltLength+nonceLength:]

	gcm, err := f.sealer(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCorruptKeystore
	}

	keys := make(map[string]string)
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, ErrCorruptKeystore
	}
	return keys, nil
}

// save encrypts and writes the keystore file atomically.
func (f *FileKeystore) save(keys map[string]string) error {
	plaintext, err := json.Marshal(keys)
	if err != nil {
		return err
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}

	gcm, err := f.sealer(salt)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(magicHeader)+1+saltLength+nonceLength+len(plaintext)+gcm.Overhead())
	out = append(out, magicHeader...)
	out = append(out, version)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// sealer derives the cipher key for the given salt and returns the AEAD.
func (f *FileKeystore) sealer(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.secret, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

package filerepo

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/sessions"
	"github.com/natefinch/atomic"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileExtension = ".json"
	saltLength    = 16
	keyLength     = 32
	nonceLength   = 24
)

var _ sessions.Repo = (*Repo)(nil)

// Repo keeps one JSON file per storage key inside a directory. Writes are atomic so a
// crash mid-write never leaves a truncated session behind.
type Repo struct {
	dir        string
	passphrase []byte
}

type Option func(*Repo)

// WithPassphrase seals the record with NaCl secretbox under a scrypt derived key
func WithPassphrase(passphrase string) Option {
	return func(r *Repo) {
		if passphrase != "" {
			r.passphrase = []byte(passphrase)
		}
	}
}

func New(dir string, options ...Option) (*Repo, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("[filerepo New] directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[filerepo New] failed to create %s: %w", dir, err)
	}
	r := &Repo{dir: dir}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// sealed is the on-disk envelope when a passphrase is configured
type sealed struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Box   []byte `json:"box"`
}

func (r *Repo) Save(key string, record *sessions.Record) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("[filerepo Save] failed to encode record: %w", err)
	}

	if r.passphrase != nil {
		if data, err = r.seal(data); err != nil {
			return fmt.Errorf("[filerepo Save] failed to seal record: %w", err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("[filerepo Save] failed to write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

func (r *Repo) Load(key string) (*sessions.Record, error) {
	path, err := r.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filerepo Load] failed to read %s: %w", path, err)
	}

	var envelope sealed
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Box) > 0 {
		if data, err = r.open(envelope); err != nil {
			return nil, fmt.Errorf("[filerepo Load] failed to open sealed record: %w", err)
		}
	}

	record := &sessions.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("[filerepo Load] failed to decode record: %w", err)
	}
	return record, nil
}

func (r *Repo) Delete(key string) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filerepo Delete] failed to remove %s: %w", path, err)
	}
	return nil
}

func (r *Repo) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("[filerepo] invalid storage key %q", key)
	}
	return filepath.Join(r.dir, key+fileExtension), nil
}

func (r *Repo) deriveKey(salt []byte) (*[keyLength]byte, error) {
	derived, err := scrypt.Key(r.passphrase, salt, 1<<15, 8, 1, keyLength)
	if err != nil {
		return nil, err
	}
	var key [keyLength]byte
	copy(key[:], derived)
	return &key, nil
}

func (r *Repo) seal(plaintext []byte) ([]byte, error) {
	envelope := sealed{
		Salt:  make([]byte, saltLength),
		Nonce: make([]byte, nonceLength),
	}
	if _, err := rand.Read(envelope.Salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(envelope.Nonce); err != nil {
		return nil, err
	}

	key, err := r.deriveKey(envelope.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLength]byte
	copy(nonce[:], envelope.Nonce)
	envelope.Box = secretbox.Seal(nil, plaintext, &nonce, key)
	return json.Marshal(envelope)
}

func (r *Repo) open(envelope sealed) ([]byte, error) {
	if r.passphrase == nil {
		return nil, fmt.Errorf("record is sealed and no passphrase is configured")
	}
	if len(envelope.Nonce) != nonceLength {
		return nil, fmt.Errorf("invalid nonce length %d", len(envelope.Nonce))
	}

	key, err := r.deriveKey(envelope.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLength]byte
	copy(nonce[:], envelope.Nonce)
	plaintext, ok := secretbox.Open(nil, envelope.Box, &nonce, key)
	if !ok {
		return nil, fmt.Errorf("wrong passphrase or corrupted record")
	}
	return plaintext, nil
}

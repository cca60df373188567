// Package cryptox keeps an owner's signing key on disk. The ed25519 seed is
// sealed with AES-GCM under a key stretched from a passphrase with
// Argon2id; the resulting keystore is a small JSON document.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/gofrs/flock"
	"golang.org/x/crypto/argon2"
)

const keystoreVersion = 1

// Argon2id parameters of new keystores. Stored alongside so they can be
// raised later without breaking existing files.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	keyLen     = 32
	saltLen    = 16
)

var (
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted keystore")
	ErrKeystoreExists  = errors.New("keystore already exists")
)

type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// Keystore is the on-disk form of a sealed signing key.
type Keystore struct {
	Version    int       `json:"version"`
	Address    string    `json:"address"`
	KDF        KDFParams `json:"kdf"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

func DeriveKey(passphrase, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, keyLen)
}

// seal encrypts plaintext with AES-GCM under key using a fresh random nonce.
func seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// GenerateKey returns a new random signing key.
func GenerateKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	return priv, err
}

// Seal protects priv with passphrase.
func Seal(priv ed25519.PrivateKey, passphrase []byte) (*Keystore, error) {
	owner, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	params := KDFParams{Time: kdfTime, Memory: kdfMemory, Threads: kdfThreads}
	key := DeriveKey(passphrase, salt, params)
	defer common.WipeByteArray(key)

	ciphertext, nonce, err := seal(priv.Seed(), key)
	if err != nil {
		return nil, err
	}

	return &Keystore{
		Version:    keystoreVersion,
		Address:    owner.String(),
		KDF:        params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Open recovers the signing key. The recovered key must match the stored
// address.
func (k *Keystore) Open(passphrase []byte) (ed25519.PrivateKey, error) {
	if k.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", k.Version)
	}

	key := DeriveKey(passphrase, k.Salt, k.KDF)
	defer common.WipeByteArray(key)

	seed, err := open(k.Ciphertext, k.Nonce, key)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(seed)

	if len(seed) != ed25519.SeedSize {
		return nil, ErrWrongPassphrase
	}
	priv := ed25519.NewKeyFromSeed(seed)

	owner, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if owner.String() != k.Address {
		return nil, ErrWrongPassphrase
	}
	return priv, nil
}

// Owner returns the address the keystore belongs to without decrypting it.
func (k *Keystore) Owner() (address.Address, error) {
	return address.Parse(k.Address)
}

func lockFor(path string) *flock.Flock {
	return flock.New(path + ".lock")
}

// Save writes k to path. It refuses to replace an existing keystore unless
// overwrite is set. Concurrent writers are serialized by a lock file next
// to path.
func Save(path string, k *Keystore, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	lock := lockFor(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock keystore: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ErrKeystoreExists
		}
	}

	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the keystore at path.
func Load(path string) (*Keystore, error) {
	lock := lockFor(path)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock keystore: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var k Keystore
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	return &k, nil
}

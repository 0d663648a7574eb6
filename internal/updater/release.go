package updater

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

// SignManifest encodes m as indented JSON and signs the encoded bytes. sig
// is the hex text served as manifest.json.sig.
func SignManifest(m Manifest, key ed25519.PrivateKey) (data, sig []byte, err error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("invalid signing key length %d", len(key))
	}
	channel, err := NormalizeChannel(m.Channel)
	if err != nil {
		return nil, nil, err
	}
	m.Channel = channel
	data, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	sig = []byte(hexcodec.EncodeBytes(ed25519.Sign(key, data)) + "\n")
	return data, sig, nil
}

// WriteRelease writes <dir>/<channel>/manifest.json and its signature and
// returns the manifest path. Both files are replaced atomically.
func WriteRelease(dir string, m Manifest, key ed25519.PrivateKey) (string, error) {
	data, sig, err := SignManifest(m, key)
	if err != nil {
		return "", err
	}
	channel, _ := NormalizeChannel(m.Channel)
	manifestPath := filepath.Join(dir, channel, "manifest.json")
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}
	if err := writeAtomic(manifestPath, data); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := writeAtomic(manifestPath+".sig", sig); err != nil {
		return "", fmt.Errorf("write signature: %w", err)
	}
	return manifestPath, nil
}

// ChecksumHex returns the lowercase hex SHA-256 of everything read from r.
func ChecksumHex(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hexcodec.EncodeBytes(h.Sum(nil)), nil
}

// DecodeSigningKey accepts a hex ed25519 seed or full private key.
func DecodeSigningKey(s string) (ed25519.PrivateKey, error) {
	if s == "" {
		return nil, errors.New("empty signing key")
	}
	if seed, err := decodeFixedHex("signing key", s, ed25519.SeedSize); err == nil {
		return ed25519.NewKeyFromSeed(seed), nil
	}
	key, err := decodeFixedHex("signing key", s, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PrivateKey(key), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Package updater replaces the running hexcrack binary with a newer build
// published on a signed release channel, and restores the previous build on
// request.
package updater

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

// DefaultBaseURL is the endpoint serving channel manifests.
const DefaultBaseURL = "https://updates.hexcrack.dev"

// releasePublicKeyHex is the ed25519 key that signs release manifests.
// HEXCRACK_UPDATER_PUBLIC_KEY replaces it, mainly for tests.
const releasePublicKeyHex = "ead6de0269b0c76f943ba9937d5baa21f00ff6d3a06a2fcec097c0164cef6323"

// Manifest lists the builds published on a channel.
type Manifest struct {
	Version  string  `json:"version"`
	Channel  string  `json:"channel"`
	NotesURL string  `json:"notes_url,omitempty"`
	Builds   []Build `json:"builds"`
}

// Build describes how to update one OS/architecture pair.
type Build struct {
	OS    string   `json:"os"`
	Arch  string   `json:"arch"`
	Full  Artifact `json:"full"`
	Delta *Delta   `json:"delta,omitempty"`
}

// Artifact is a complete binary and its hex SHA-256.
type Artifact struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Delta is a bsdiff patch from FromVersion to the manifest version. Its
// SHA256 covers the patch itself.
type Delta struct {
	FromVersion string `json:"from_version"`
	URL         string `json:"url"`
	SHA256      string `json:"sha256"`
}

// BuildFor returns the build matching goos and goarch.
func (m Manifest) BuildFor(goos, goarch string) (Build, bool) {
	for _, b := range m.Builds {
		if strings.EqualFold(b.OS, goos) && strings.EqualFold(b.Arch, goarch) {
			return b, true
		}
	}
	return Build{}, false
}

// DecodeManifest parses manifest JSON.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return Manifest{}, errors.New("manifest missing version")
	}
	if len(m.Builds) == 0 {
		return Manifest{}, errors.New("manifest missing builds")
	}
	return m, nil
}

// FetchManifest downloads <baseURL>/<channel>/manifest.json and its .sig,
// verifies the signature and parses the manifest.
func FetchManifest(ctx context.Context, client *http.Client, baseURL, channel string) (Manifest, error) {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	channel, err := NormalizeChannel(channel)
	if err != nil {
		return Manifest{}, err
	}
	manifestURL, err := manifestURLFor(baseURL, channel)
	if err != nil {
		return Manifest{}, err
	}

	data, err := download(ctx, client, manifestURL, channel)
	if err != nil {
		return Manifest{}, err
	}
	rawSig, err := download(ctx, client, manifestURL+".sig", channel)
	if err != nil {
		return Manifest{}, fmt.Errorf("download manifest signature: %w", err)
	}
	sig, err := decodeFixedHex("signature", string(rawSig), ed25519.SignatureSize)
	if err != nil {
		return Manifest{}, err
	}
	pub, err := publicKey()
	if err != nil {
		return Manifest{}, err
	}
	if !ed25519.Verify(pub, data, sig) {
		return Manifest{}, errors.New("manifest signature verification failed")
	}
	return DecodeManifest(data)
}

func manifestURLFor(baseURL, channel string) (string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return "", errors.New("empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = path.Join(u.Path, channel, "manifest.json")
	return u.String(), nil
}

func download(ctx context.Context, client *http.Client, targetURL, channel string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("hexcrack/%s (%s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	if channel != "" {
		req.Header.Set("X-Hexcrack-Update-Channel", channel)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", targetURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("download %s: unexpected status %d: %s", targetURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", targetURL, err)
	}
	return data, nil
}

func publicKey() (ed25519.PublicKey, error) {
	if override := strings.TrimSpace(os.Getenv("HEXCRACK_UPDATER_PUBLIC_KEY")); override != "" {
		key, err := decodeFixedHex("HEXCRACK_UPDATER_PUBLIC_KEY", override, ed25519.PublicKeySize)
		if err != nil {
			return nil, err
		}
		return ed25519.PublicKey(key), nil
	}
	key, err := decodeFixedHex("release public key", releasePublicKeyHex, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(key), nil
}

// DecodeChecksum decodes a hex SHA-256 digest.
func DecodeChecksum(sum string) ([]byte, error) {
	return decodeFixedHex("checksum", sum, sha256.Size)
}

// decodeFixedHex decodes s with the strict hex decoder and requires exactly
// size bytes.
func decodeFixedHex(what, s string, size int) ([]byte, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return nil, fmt.Errorf("empty %s", what)
	}
	if len(cleaned) != size*2 {
		return nil, fmt.Errorf("invalid %s length %d", what, len(cleaned))
	}
	b, err := hexcodec.DecodeBytes(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return b, nil
}

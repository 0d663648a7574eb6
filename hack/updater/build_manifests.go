// Command build_manifests turns channel descriptions into signed update
// manifests laid out the way the updater fetches them.
package main

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RowanDark/hexcrack/internal/updater"
)

type artifactInput struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

type deltaInput struct {
	FromVersion string `json:"from_version"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	SHA256      string `json:"sha256"`
}

type buildInput struct {
	OS    string        `json:"os"`
	Arch  string        `json:"arch"`
	Full  artifactInput `json:"full"`
	Delta *deltaInput   `json:"delta"`
}

type channelInput struct {
	Channel  string       `json:"channel"`
	Version  string       `json:"version"`
	NotesURL string       `json:"notes_url"`
	Builds   []buildInput `json:"builds"`
}

func main() {
	configDir := flag.String("config", "packaging/updater", "channel configuration directory")
	outDir := flag.String("out", "out/updater", "output directory for manifests")
	flag.Parse()

	key, err := updater.DecodeSigningKey(strings.TrimSpace(os.Getenv("HEXCRACK_UPDATER_SIGNING_KEY")))
	if err != nil {
		fatal(fmt.Errorf("HEXCRACK_UPDATER_SIGNING_KEY: %w", err))
	}
	configs, err := channelConfigs(*configDir)
	if err != nil {
		fatal(err)
	}
	for _, file := range configs {
		path, err := processChannel(file, *outDir, key)
		if err != nil {
			fatal(fmt.Errorf("%s: %w", file, err))
		}
		fmt.Println(path)
	}
}

// channelConfigs lists the *.json files in dir, skipping *.example.json.
func channelConfigs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}
	var configs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".example.json") {
			continue
		}
		configs = append(configs, filepath.Join(dir, name))
	}
	sort.Strings(configs)
	if len(configs) == 0 {
		return nil, errors.New("no channel configuration files found")
	}
	return configs, nil
}

func processChannel(path, outDir string, key ed25519.PrivateKey) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	var input channelInput
	if err := json.Unmarshal(data, &input); err != nil {
		return "", fmt.Errorf("parse config: %w", err)
	}
	channel, err := updater.NormalizeChannel(input.Channel)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input.Version) == "" {
		return "", errors.New("version is required")
	}
	if len(input.Builds) == 0 {
		return "", errors.New("at least one build must be defined")
	}

	manifest := updater.Manifest{
		Version:  strings.TrimSpace(input.Version),
		Channel:  channel,
		NotesURL: strings.TrimSpace(input.NotesURL),
	}
	baseDir := filepath.Dir(path)
	for i, build := range input.Builds {
		if strings.TrimSpace(build.OS) == "" || strings.TrimSpace(build.Arch) == "" {
			return "", fmt.Errorf("build %d missing os/arch", i)
		}
		full, err := resolveArtifact(build.Full, baseDir)
		if err != nil {
			return "", fmt.Errorf("build %d full artifact: %w", i, err)
		}
		var delta *updater.Delta
		if build.Delta != nil {
			if strings.TrimSpace(build.Delta.FromVersion) == "" {
				return "", fmt.Errorf("build %d delta: from_version is required", i)
			}
			art, err := resolveArtifact(artifactInput{URL: build.Delta.URL, Path: build.Delta.Path, SHA256: build.Delta.SHA256}, baseDir)
			if err != nil {
				return "", fmt.Errorf("build %d delta: %w", i, err)
			}
			delta = &updater.Delta{FromVersion: strings.TrimSpace(build.Delta.FromVersion), URL: art.URL, SHA256: art.SHA256}
		}
		manifest.Builds = append(manifest.Builds, updater.Build{
			OS:    strings.TrimSpace(build.OS),
			Arch:  strings.TrimSpace(build.Arch),
			Full:  full,
			Delta: delta,
		})
	}
	return updater.WriteRelease(outDir, manifest, key)
}

// resolveArtifact takes the checksum from the input or, failing that, hashes
// the local file at Path. Explicit checksums must be valid SHA-256 hex.
func resolveArtifact(in artifactInput, baseDir string) (updater.Artifact, error) {
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return updater.Artifact{}, errors.New("artifact url is required")
	}
	sum := strings.ToLower(strings.TrimSpace(in.SHA256))
	if sum != "" {
		if _, err := updater.DecodeChecksum(sum); err != nil {
			return updater.Artifact{}, err
		}
		return updater.Artifact{URL: url, SHA256: sum}, nil
	}

	p := strings.TrimSpace(in.Path)
	if p == "" {
		return updater.Artifact{}, errors.New("artifact sha256 or path must be provided")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return updater.Artifact{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()
	sum, err = updater.ChecksumHex(f)
	if err != nil {
		return updater.Artifact{}, fmt.Errorf("hash %s: %w", p, err)
	}
	return updater.Artifact{URL: url, SHA256: sum}, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

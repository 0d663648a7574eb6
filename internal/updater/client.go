package updater

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	update "github.com/inconshreveable/go-update"

	"github.com/RowanDark/hexcrack/internal/logging"
)

// Client swaps the hexcrack executable for the newest build on a channel.
type Client struct {
	Store          *Store
	HTTPClient     *http.Client
	BaseURL        string
	ExecPath       string
	CurrentVersion string
	// Out receives human readable progress; nil discards it.
	Out io.Writer
	// Logger receives update_applied and update_rollback events.
	Logger *logging.Logger
}

type UpdateOptions struct {
	Channel string
	// PersistChannel records Channel as the default for later updates.
	PersistChannel bool
}

type RollbackOptions struct {
	ForceStable bool
}

// Update fetches the channel manifest and replaces the executable when the
// manifest carries a different version. A delta is tried first when it
// starts from the running version; any delta failure falls back to the full
// artifact.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) error {
	if c.Store == nil {
		return errors.New("nil updater store")
	}
	channel, err := NormalizeChannel(opts.Channel)
	if err != nil {
		return err
	}
	st, err := c.Store.Load()
	if err != nil {
		return err
	}

	manifest, err := FetchManifest(ctx, c.httpClient(), c.BaseURL, channel)
	if err != nil {
		return err
	}

	current := c.currentVersion()
	if manifest.Version == current || strings.TrimSpace(st.Version) == manifest.Version {
		c.printf("hexcrack %s is already the newest build on the %s channel\n", current, channel)
		if opts.PersistChannel {
			st.Channel = channel
			return c.Store.Save(st)
		}
		return nil
	}

	build, ok := manifest.BuildFor(runtime.GOOS, runtime.GOARCH)
	if !ok {
		return fmt.Errorf("no build available for %s/%s in manifest", runtime.GOOS, runtime.GOARCH)
	}
	checksum, err := DecodeChecksum(build.Full.SHA256)
	if err != nil {
		return fmt.Errorf("full artifact: %w", err)
	}

	execPath, err := c.resolveExecPath()
	if err != nil {
		return err
	}
	info, err := os.Stat(execPath)
	if err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}
	backupPath := filepath.Join(c.Store.Dir(), "hexcrack.previous")

	base := update.Options{
		TargetPath:  execPath,
		TargetMode:  info.Mode(),
		Checksum:    checksum,
		OldSavePath: backupPath,
		Hash:        crypto.SHA256,
	}
	if err := base.CheckPermissions(); err != nil {
		return fmt.Errorf("insufficient permissions to update %s: %w", execPath, err)
	}

	method := "full"
	applyErr := errors.New("no delta offered")
	if build.Delta != nil && deltaApplies(build.Delta.FromVersion, current, st.Version) {
		method = "delta"
		applyErr = c.applyDelta(ctx, *build.Delta, base)
		if applyErr != nil {
			c.printf("delta update failed (%v); falling back to full download\n", applyErr)
		}
	}
	if applyErr != nil {
		method = "full"
		applyErr = c.apply(ctx, build.Full.URL, base)
	}
	if applyErr != nil {
		// Unattended jobs on beta drop back to stable after a failed update.
		if st.Channel == ChannelBeta {
			st.Channel = ChannelStable
			_ = c.Store.Save(st)
		}
		c.logError(logging.EventUpdateApplied, applyErr, map[string]any{"version": manifest.Version})
		return applyErr
	}

	st.PreviousVersion = current
	st.Version = manifest.Version
	st.BackupPath = backupPath
	st.AppliedAt = time.Now().UTC()
	if opts.PersistChannel {
		st.Channel = channel
	}
	if err := c.Store.Save(st); err != nil {
		return err
	}
	c.emit(logging.EventUpdateApplied, map[string]any{
		"version":  manifest.Version,
		"previous": current,
		"channel":  channel,
		"method":   method,
	})
	c.printf("updated hexcrack to %s on the %s channel\n", manifest.Version, channel)
	return nil
}

func (c *Client) applyDelta(ctx context.Context, delta Delta, opts update.Options) error {
	patch, err := c.download(ctx, delta.URL)
	if err != nil {
		return fmt.Errorf("download delta: %w", err)
	}
	expected, err := DecodeChecksum(delta.SHA256)
	if err != nil {
		return fmt.Errorf("delta: %w", err)
	}
	if actual := sha256.Sum256(patch); !bytes.Equal(actual[:], expected) {
		return fmt.Errorf("delta checksum mismatch: got %x want %x", actual, expected)
	}
	opts.Patcher = update.NewBSDiffPatcher()
	return applyBytes(patch, opts, "apply delta update")
}

func (c *Client) apply(ctx context.Context, artifactURL string, opts update.Options) error {
	data, err := c.download(ctx, artifactURL)
	if err != nil {
		return fmt.Errorf("download full artifact: %w", err)
	}
	return applyBytes(data, opts, "apply update")
}

func applyBytes(data []byte, opts update.Options, what string) error {
	if err := update.Apply(bytes.NewReader(data), opts); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("%s: %v (rollback failed: %v)", what, err, rerr)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// Rollback restores the binary saved by the last successful update.
func (c *Client) Rollback(ctx context.Context, opts RollbackOptions) error {
	if c.Store == nil {
		return errors.New("nil updater store")
	}
	st, err := c.Store.Load()
	if err != nil {
		return err
	}
	if st.BackupPath == "" {
		return errors.New("no rollback backup recorded")
	}
	backup, err := os.ReadFile(st.BackupPath)
	if err != nil {
		return fmt.Errorf("read backup binary: %w", err)
	}
	execPath, err := c.resolveExecPath()
	if err != nil {
		return err
	}
	info, err := os.Stat(execPath)
	if err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}
	sum := sha256.Sum256(backup)
	err = applyBytes(backup, update.Options{
		TargetPath:  execPath,
		TargetMode:  info.Mode(),
		OldSavePath: st.BackupPath,
		Checksum:    sum[:],
		Hash:        crypto.SHA256,
	}, "rollback")
	if err != nil {
		c.logError(logging.EventUpdateRollback, err, nil)
		return err
	}

	st.AppliedAt = time.Now().UTC()
	st.Version, st.PreviousVersion = st.PreviousVersion, st.Version
	if opts.ForceStable {
		st.Channel = ChannelStable
	}
	if err := c.Store.Save(st); err != nil {
		return err
	}
	c.emit(logging.EventUpdateRollback, map[string]any{"version": st.Version})
	c.printf("rolled back hexcrack to %s\n", st.Version)
	return nil
}

func (c *Client) resolveExecPath() (string, error) {
	if strings.TrimSpace(c.ExecPath) != "" {
		return c.ExecPath, nil
	}
	p, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("determine executable path: %w", err)
	}
	return p, nil
}

func (c *Client) download(ctx context.Context, targetURL string) ([]byte, error) {
	return download(ctx, c.httpClient(), targetURL, "")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) currentVersion() string {
	if v := strings.TrimSpace(c.CurrentVersion); v != "" {
		return v
	}
	return "dev"
}

func (c *Client) printf(format string, args ...any) {
	if c.Out == nil {
		return
	}
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Client) emit(eventType logging.EventType, metadata map[string]any) {
	if c.Logger == nil {
		return
	}
	_ = c.Logger.Emit(logging.Event{EventType: eventType, Operation: "self-update", Metadata: metadata})
}

func (c *Client) logError(eventType logging.EventType, err error, metadata map[string]any) {
	if c.Logger == nil {
		return
	}
	_ = c.Logger.Error(eventType, "self-update", err, metadata)
}

// deltaApplies reports whether a patch from `from` matches the running or
// last applied version.
func deltaApplies(from, current, lastApplied string) bool {
	from = strings.TrimSpace(from)
	if from == "" {
		return false
	}
	return from == strings.TrimSpace(current) || from == strings.TrimSpace(lastApplied)
}

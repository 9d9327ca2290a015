// Package updater replaces the running camnode binary with a GitHub
// release build. The current binary is saved to a backup store first so
// a bad release can be reverted in place, and every successful apply
// arms a delayed SIGTERM so systemd restarts the unit on the new binary.
package updater

import (
	"context"
	"time"
)

// State names a phase of the update lifecycle. The values appear
// verbatim in the status API.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateAvailable   State = "available"
	StateDownloading State = "downloading"
	StateApplying    State = "applying"
	StateRestarting  State = "restarting"
	StateError       State = "error"
	StateRolledBack  State = "rolled_back"
)

// Options selects where releases come from.
type Options struct {
	Repository string // GitHub owner/name slug
	Prerelease bool   // consider pre-release tags too
}

// Service drives the self-update lifecycle.
type Service interface {
	// CheckForUpdate asks the release source for the newest version.
	// Nothing is downloaded.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)

	// ApplyUpdate downloads the release found by the last check,
	// replaces the binary, and arms a restart. Called from idle it
	// runs the check itself first.
	ApplyUpdate(ctx context.Context) error

	// Rollback reinstates the backed-up binary and arms a restart.
	Rollback(ctx context.Context) error

	// GetStatus reports the state machine, versions, and backup info.
	GetStatus(ctx context.Context) *Status

	// Restart arms a restart without touching the binary.
	Restart(ctx context.Context) error

	// IsRestartPending reports whether this service triggered the
	// shutdown in progress. The main process uses it to pick the
	// exit path that makes systemd restart the unit.
	IsRestartPending() bool

	// IsEnabled reports whether updates can run on this install.
	IsEnabled() bool

	// DisabledReason says why updates cannot run. Empty when enabled.
	DisabledReason() string
}

// UpdateInfo is the result of a version check.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// Status is a snapshot of the updater state machine.
type Status struct {
	State           State      `json:"state"`
	CurrentVersion  string     `json:"current_version"`
	TargetVersion   string     `json:"target_version,omitempty"`
	Error           string     `json:"error,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available"`
	BackupVersion   string     `json:"backup_version,omitempty"`
}

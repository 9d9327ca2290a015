package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/version"
)

// restartDelay is how long an armed restart waits before SIGTERM, long
// enough for the HTTP response that requested it to reach the client.
const restartDelay = 500 * time.Millisecond

type service struct {
	updater *selfupdate.Updater
	repo    selfupdate.Repository
	backups *backupStore
	logger  *slog.Logger

	mu          sync.RWMutex
	state       State
	pending     *selfupdate.Release // release found by the last check
	checkedAt   *time.Time
	lastErr     error
	wantRestart bool

	disabledReason string // non-empty when the install cannot be updated
}

// NewService builds the updater. On installs where the binary cannot be
// replaced (read-only dir, packaged install) it returns a disabled
// service rather than an error, so the daemon still runs and the API
// can report why updates are off.
func NewService(opts *Options) (Service, error) {
	logger := logging.GetLogger("updater")

	if err := probeInstallDir(); err != nil {
		logger.Warn("Self-update disabled", "reason", err)
		return &service{
			state:          StateIdle,
			disabledReason: err.Error(),
			logger:         logger,
		}, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("github source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("updater: %w", err)
	}

	backups, err := openBackupStore(logger)
	if err != nil {
		logger.Warn("Running without binary backups", "error", err)
		backups = nil
	}

	return &service{
		updater: up,
		repo:    selfupdate.ParseSlug(opts.Repository),
		backups: backups,
		state:   StateIdle,
		logger:  logger,
	}, nil
}

// probeInstallDir verifies the running binary can be replaced in place
// by creating and removing a file next to it.
func probeInstallDir() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolve executable symlinks: %w", err)
	}

	probe := filepath.Join(filepath.Dir(exe), ".camnode-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("install dir not writable: %w", err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

func (s *service) IsEnabled() bool {
	return s.disabledReason == ""
}

func (s *service) DisabledReason() string {
	return s.disabledReason
}

func (s *service) requireEnabled() error {
	if s.disabledReason != "" {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	return nil
}

// CheckForUpdate queries the release source and compares against the
// running version. On success the found release is held for a later
// ApplyUpdate.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if err := s.requireEnabled(); err != nil {
		return nil, err
	}
	if !s.tryAdvance(StateChecking, StateIdle, StateAvailable, StateError) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", s.current()), nil)
	}

	release, found, err := s.updater.DetectLatest(ctx, s.repo)
	if err != nil {
		s.fail(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.checkedAt = &now
	s.mu.Unlock()

	if !found {
		err := fmt.Errorf("repository not found or has no releases")
		s.fail(err)
		return nil, newError(ErrCodeNotFound, err.Error(), nil)
	}

	running := version.Version
	// Dev builds never match a release tag, treat them as always behind.
	outdated := version.IsDev() || release.GreaterThan(running)

	if !outdated {
		s.advance(StateIdle)
		return &UpdateInfo{
			CurrentVersion:  running,
			LatestVersion:   release.Version(),
			UpdateAvailable: false,
		}, nil
	}

	s.mu.Lock()
	s.pending = release
	s.mu.Unlock()
	s.advance(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  running,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate backs up the current binary, downloads the pending
// release over it, and arms a restart. A failed apply restores the
// backup.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if err := s.requireEnabled(); err != nil {
		return err
	}

	// A bare apply from idle runs the check on the caller's behalf.
	if s.current() == StateIdle {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	if !s.tryAdvance(StateDownloading, StateAvailable) {
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", s.current()), nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		s.fail(err)
		return newError(ErrCodeApplyFailed, "failed to resolve executable path", err)
	}

	if s.backups != nil {
		if err := s.backups.save(exe); err != nil {
			s.fail(err)
			return newError(ErrCodeBackupFailed, "failed to back up current binary", err)
		}
	}

	s.advance(StateApplying)

	s.mu.RLock()
	release := s.pending
	s.mu.RUnlock()

	if err := s.updater.UpdateTo(ctx, release, exe); err != nil {
		s.fail(err)
		s.recoverBackup()
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.advance(StateRestarting)
	s.logger.Info("Update applied, restarting", "version", release.Version())
	s.armRestart()
	return nil
}

// Rollback reinstates the backed-up binary and arms a restart.
func (s *service) Rollback(_ context.Context) error {
	if err := s.requireEnabled(); err != nil {
		return err
	}
	if s.backups == nil || !s.backups.available() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}

	if err := s.backups.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	s.advance(StateRolledBack)
	s.logger.Info("Rollback complete, restarting")
	s.armRestart()
	return nil
}

func (s *service) GetStatus(_ context.Context) *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.checkedAt,
	}
	if s.pending != nil {
		st.TargetVersion = s.pending.Version()
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if s.backups != nil {
		st.BackupAvailable = s.backups.available()
		st.BackupVersion = s.backups.version()
	}
	return st
}

func (s *service) Restart(_ context.Context) error {
	s.logger.Info("Restart requested")
	s.armRestart()
	return nil
}

func (s *service) IsRestartPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wantRestart
}

// advance moves to the given state unconditionally. Any recorded error
// belongs to the state being left, so it is cleared.
func (s *service) advance(to State) {
	s.mu.Lock()
	s.logger.Debug("Update state", "from", s.state, "to", to)
	s.state = to
	s.lastErr = nil
	s.mu.Unlock()
}

// tryAdvance moves to the given state only from one of the listed
// states and reports whether the move happened.
func (s *service) tryAdvance(to State, from ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(from, s.state) {
		return false
	}
	s.logger.Debug("Update state", "from", s.state, "to", to)
	s.state = to
	s.lastErr = nil
	return true
}

func (s *service) current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastErr = err
	s.mu.Unlock()
}

// recoverBackup puts the saved binary back after a failed apply.
func (s *service) recoverBackup() {
	if s.backups == nil || !s.backups.available() {
		s.logger.Error("No backup to recover after failed update")
		return
	}
	if err := s.backups.restore(); err != nil {
		s.logger.Error("Backup recovery failed", "error", err)
		return
	}
	s.advance(StateRolledBack)
	s.logger.Info("Recovered previous binary")
}

// armRestart marks the restart as ours and sends SIGTERM to this
// process after a short delay. systemd's Restart= policy brings the
// unit back up on the (possibly new) binary.
func (s *service) armRestart() {
	s.mu.Lock()
	s.wantRestart = true
	s.mu.Unlock()

	go func() {
		time.Sleep(restartDelay)
		s.logger.Info("Sending SIGTERM for restart")
		p, err := os.FindProcess(os.Getpid())
		if err == nil {
			err = p.Signal(syscall.SIGTERM)
		}
		if err != nil {
			s.logger.Error("SIGTERM failed", "error", err)
		}
	}()
}

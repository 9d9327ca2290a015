package models

import "time"

// UpdateCheckData is the result of asking the release source for a
// newer build.
type UpdateCheckData struct {
	CurrentVersion  string    `json:"current_version" example:"0.4.0" doc:"Version this binary was built as"`
	LatestVersion   string    `json:"latest_version" example:"0.5.0" doc:"Newest released version"`
	ReleaseNotes    string    `json:"release_notes" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url" doc:"Release page URL"`
	PublishedAt     time.Time `json:"published_at" doc:"Release publish time"`
	AssetSize       int       `json:"asset_size" example:"5242880" doc:"Download size in bytes"`
	UpdateAvailable bool      `json:"update_available" example:"true" doc:"True when the release is newer than this binary"`
}

type UpdateCheckResponse struct {
	Body UpdateCheckData
}

// UpdateStatusData is a snapshot of the updater state machine.
type UpdateStatusData struct {
	State           string     `json:"state" example:"idle" doc:"Updater state"`
	CurrentVersion  string     `json:"current_version" example:"0.4.0" doc:"Running version"`
	TargetVersion   string     `json:"target_version,omitempty" example:"0.5.0" doc:"Version being installed"`
	Error           string     `json:"error,omitempty" doc:"Failure detail when state is error"`
	LastChecked     *time.Time `json:"last_checked,omitempty" doc:"Time of the last release check"`
	BackupAvailable bool       `json:"backup_available" example:"true" doc:"Whether a rollback target exists"`
	BackupVersion   string     `json:"backup_version,omitempty" example:"0.3.0" doc:"Version held in the backup store"`
}

type UpdateStatusResponse struct {
	Body UpdateStatusData
}

// UpdateActionData reports the outcome of apply, rollback, and restart.
// All three answer with a message and then take the process down.
type UpdateActionData struct {
	Message string `json:"message" example:"Update applied, restarting..." doc:"Operation result message"`
}

type UpdateActionResponse struct {
	Body UpdateActionData
}

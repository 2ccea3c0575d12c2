package telemetry

import (
	"runtime"

	"github.com/hoardlabs/hoard/pkg/version"
)

// Event names.
const (
	EventAppStarted         = "app_started"
	EventAppExited          = "app_exited"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
	EventSyncCompleted      = "sync_completed"
	EventSyncFailed         = "sync_failed"
	EventSyncSkipped        = "sync_skipped"
	EventOfflineDataCleared = "offline_data_cleared"
	EventSettingsChanged    = "settings_changed"
)

// Version is set at compile time via ldflags.
var Version string

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(mode string) {
	props := baseProperties()
	props["mode"] = mode
	c.Track(EventAppStarted, props)
}

// TrackAppExited tracks application exit.
func (c *posthogClient) TrackAppExited(mode string, sessionDurationMs int64) {
	props := baseProperties()
	props["mode"] = mode
	props["session_duration_ms"] = sessionDurationMs
	c.Track(EventAppExited, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI errors. Only the error type is sent, never the
// message, which may contain URLs or titles.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackSyncCompleted tracks a finished sync run.
func (c *posthogClient) TrackSyncCompleted(mode string, itemsSynced, imagesCached, imagesPruned int, durationMs int64) {
	props := baseProperties()
	props["sync_mode"] = mode
	props["items_synced"] = itemsSynced
	props["images_cached"] = imagesCached
	props["images_pruned"] = imagesPruned
	props["duration_ms"] = durationMs
	c.Track(EventSyncCompleted, props)
}

// TrackSyncFailed tracks a sync run that ended in the error state.
func (c *posthogClient) TrackSyncFailed(mode, errorType string, durationMs int64) {
	props := baseProperties()
	props["sync_mode"] = mode
	props["error_type"] = errorType
	props["duration_ms"] = durationMs
	c.Track(EventSyncFailed, props)
}

// TrackSyncSkipped tracks a sync that the pre-flight gate declined.
func (c *posthogClient) TrackSyncSkipped(reason string) {
	props := baseProperties()
	props["reason"] = reason
	c.Track(EventSyncSkipped, props)
}

// TrackOfflineDataCleared tracks a full offline wipe.
func (c *posthogClient) TrackOfflineDataCleared(savesRemoved int64, imagesRemoved int) {
	props := baseProperties()
	props["saves_removed"] = savesRemoved
	props["images_removed"] = imagesRemoved
	c.Track(EventOfflineDataCleared, props)
}

// TrackSettingsChanged tracks a config change. Only the setting name is
// sent, never its value.
func (c *posthogClient) TrackSettingsChanged(settingName string) {
	props := baseProperties()
	props["setting_name"] = settingName
	c.Track(EventSettingsChanged, props)
}

// No-op implementations for disabled telemetry.

func (c *noopClient) TrackAppStarted(mode string)                            {}
func (c *noopClient) TrackAppExited(mode string, sessionDurationMs int64)    {}
func (c *noopClient) TrackCLICommandExecuted(string, bool, int64)            {}
func (c *noopClient) TrackCLIError(commandName, errorType string)            {}
func (c *noopClient) TrackSyncCompleted(string, int, int, int, int64)        {}
func (c *noopClient) TrackSyncFailed(mode, errorType string, duration int64) {}
func (c *noopClient) TrackSyncSkipped(reason string)                         {}
func (c *noopClient) TrackOfflineDataCleared(int64, int)                     {}
func (c *noopClient) TrackSettingsChanged(settingName string)                {}

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hoardlabs/hoard/internal/models"
	"github.com/hoardlabs/hoard/internal/syncer"
)

var syncMode string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull saves, snapshots, and images into the offline cache",
	Long: `Pull the remote catalog into the local offline cache.

Syncs save records, reader-mode snapshots, and preview images, then prunes
cached images that fall outside the selected scope. The pass is skipped
silently when offline sync is disabled, the device is offline, or the
wifi-only setting blocks the current network.

Examples:
  hoard sync
  hoard sync --mode favorites`,
	Args: cobra.NoArgs,
	RunE: runSyncCmd,
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "sync scope: all, favorites, recent, or collections")
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := openEngine()
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer eng.Close()

	if syncMode != "" {
		mode := models.SyncMode(syncMode)
		valid := false
		for _, m := range models.ValidSyncModes() {
			if m == mode {
				valid = true
				break
			}
		}
		if !valid {
			return trackCLIError("sync", fmt.Errorf("invalid sync mode %q", syncMode))
		}
		eng.cfg.Offline.SyncMode = mode
		eng.syncer.SetSyncMode(mode)
	}

	// Keep connectivity transitions flowing into the state machine while
	// the sync runs.
	eng.syncer.StartMonitoring(ctx)

	if !eng.syncer.ShouldSync(ctx) {
		fmt.Println("Sync skipped (offline, disabled, or blocked by wifi-only).")
		telemetryClient.TrackSyncSkipped("gate")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	fmt.Printf("%s (mode: %s)\n", headerStyle.Render("SYNCING"), eng.cfg.Offline.SyncMode)
	fmt.Println(strings.Repeat("─", 50))

	unsubscribe := eng.syncer.Subscribe(func(state models.SyncState) {
		if state.Status != models.SyncSyncing || state.Phase == "" {
			return
		}
		if state.TotalItems > 0 {
			fmt.Printf("  %s %s (%d/%d)\n", dimStyle.Render(">"), state.Phase, state.ItemsSynced, state.TotalItems)
		} else {
			fmt.Printf("  %s %s\n", dimStyle.Render(">"), state.Phase)
		}
	})
	defer unsubscribe()

	start := time.Now()
	err = eng.syncer.SyncSaves(ctx)
	durationMs := time.Since(start).Milliseconds()

	state := eng.syncer.State()
	fmt.Println(strings.Repeat("─", 50))

	switch {
	case errors.Is(err, syncer.ErrSyncInProgress):
		fmt.Println("A sync is already running.")
		return trackCLIError("sync", err)

	case err != nil:
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		fmt.Printf("%s %v\n", errorStyle.Render("Sync failed:"), err)
		telemetryClient.TrackSyncFailed(string(eng.cfg.Offline.SyncMode), classifyError(err), durationMs)
		return err

	default:
		successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
		fmt.Printf("%s %d item(s) synced in %s\n",
			successStyle.Render("Done!"), state.ItemsSynced, time.Since(start).Round(time.Millisecond))

		imagesCached := 0
		if stats, statsErr := eng.syncer.StorageStats(); statsErr == nil {
			imagesCached = stats.ImagesCount
		}
		telemetryClient.TrackSyncCompleted(string(eng.cfg.Offline.SyncMode), state.ItemsSynced, imagesCached, 0, durationMs)
		return nil
	}
}

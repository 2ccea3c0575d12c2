package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hoardlabs/hoard/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state, connectivity, and storage usage",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return trackCLIError("status", err)
	}
	defer eng.Close()

	headerStyle := lipgloss.NewStyle().Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	network := eng.syncer.CheckNetworkStatus(cmd.Context())
	state := eng.syncer.State()

	fmt.Println(headerStyle.Render("SYNC"))
	fmt.Printf("%s %s\n", labelStyle.Render("Status:"), state.Status)
	if state.Error != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Error:"), state.Error)
	}
	if state.LastSyncedAt > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("Last synced:"), time.UnixMilli(state.LastSyncedAt).Format(time.RFC1123))
	} else {
		fmt.Printf("%s never\n", labelStyle.Render("Last synced:"))
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Mode:"), eng.cfg.Offline.SyncMode)
	if eng.cfg.Offline.SyncMode == models.SyncModeRecent {
		fmt.Printf("%s %d days\n", labelStyle.Render("Recent window:"), eng.cfg.Offline.RecentDays)
	}

	fmt.Printf("\n%s\n", headerStyle.Render("NETWORK"))
	fmt.Printf("%s %v\n", labelStyle.Render("Online:"), network.IsOnline)
	fmt.Printf("%s %v\n", labelStyle.Render("Wi-Fi:"), network.IsWifi)
	fmt.Printf("%s %v\n", labelStyle.Render("Wifi-only sync:"), eng.cfg.Offline.WifiOnly)

	stats, err := eng.syncer.StorageStats()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("storage stats: %w", err))
	}

	fmt.Printf("\n%s\n", headerStyle.Render("STORAGE"))
	fmt.Printf("%s %d\n", labelStyle.Render("Saves:"), stats.SavesCount)
	fmt.Printf("%s %d\n", labelStyle.Render("Snapshots:"), stats.SnapshotsCount)
	fmt.Printf("%s %d\n", labelStyle.Render("Images:"), stats.ImagesCount)
	fmt.Printf("%s %s\n", labelStyle.Render("Database:"), formatBytes(stats.DatabaseSize))
	fmt.Printf("%s %s\n", labelStyle.Render("Image cache:"), formatBytes(stats.ImageCacheSize))
	fmt.Printf("%s %s\n", labelStyle.Render("Total:"), formatBytes(stats.TotalSize))

	return nil
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

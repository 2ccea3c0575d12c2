package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hoardlabs/hoard/internal/profile"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all offline data",
	Long: `Delete everything in the offline cache: saves, snapshots, cached
images, and the sync watermark. The next sync starts from scratch.

Examples:
  hoard clear
  hoard clear --force`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return trackCLIError("clear", err)
	}
	defer eng.Close()

	stats, err := eng.syncer.StorageStats()
	if err != nil {
		return trackCLIError("clear", fmt.Errorf("storage stats: %w", err))
	}

	if stats.SavesCount == 0 && stats.ImagesCount == 0 {
		fmt.Println("The offline cache is already empty.")
		return nil
	}

	if !clearForce {
		fmt.Printf("This deletes %d save(s), %d snapshot(s), and %d cached image(s) (%s).\n",
			stats.SavesCount, stats.SnapshotsCount, stats.ImagesCount, formatBytes(stats.TotalSize))
		fmt.Print("Continue? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := eng.syncer.ClearAllOfflineData(); err != nil {
		return trackCLIError("clear", fmt.Errorf("clear offline data: %w", err))
	}
	if err := profile.NewStore(eng.db).Clear(); err != nil {
		return trackCLIError("clear", fmt.Errorf("clear profile: %w", err))
	}

	telemetryClient.TrackOfflineDataCleared(stats.SavesCount, stats.ImagesCount)
	fmt.Println("Offline cache cleared.")
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hoardlabs/hoard/internal/models"
)

var (
	listFavorites bool
	listArchived  bool
	listLimit     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saves available offline",
	Long: `List saves in the local offline cache, newest first.

Reads only the local store; works fully offline.

Examples:
  hoard list
  hoard list --favorites
  hoard list --archived --limit 10`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFavorites, "favorites", false, "only favorited saves")
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "only archived saves")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of saves to show")
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return trackCLIError("list", err)
	}
	defer eng.Close()

	filter := models.SaveFilter{Limit: listLimit}
	if listFavorites {
		fav := true
		filter.IsFavorite = &fav
	}
	if listArchived {
		arch := true
		filter.IsArchived = &arch
	}

	saves, err := eng.syncer.OfflineSaves(filter)
	if err != nil {
		return trackCLIError("list", fmt.Errorf("list saves: %w", err))
	}

	if len(saves) == 0 {
		fmt.Println("No saves in the offline cache.")
		fmt.Println("\nRun 'hoard sync' to pull your saves.")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	favStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	fmt.Printf("%s (%d saves)\n", headerStyle.Render("OFFLINE SAVES"), len(saves))
	fmt.Println("──────────────────────────────────────────────────")

	for _, save := range saves {
		marker := " "
		if save.IsFavorite {
			marker = favStyle.Render("*")
		}

		title := save.Title
		if title == "" {
			title = save.URL
		}

		savedAt := time.UnixMilli(save.SavedAt).Format("2006-01-02")
		fmt.Printf("%s %s\n", marker, title)
		fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf("%s  %s  %s", save.ID, savedAt, save.URL)))
	}

	return nil
}

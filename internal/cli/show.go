package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var showContent bool

var showCmd = &cobra.Command{
	Use:   "show <save-id>",
	Short: "Show a cached save and its snapshot",
	Long: `Show a save from the local offline cache, including its reader-mode
snapshot when one is cached.

Examples:
  hoard show 8f14e45f
  hoard show 8f14e45f --content`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showContent, "content", false, "print the full snapshot text")
}

func runShow(cmd *cobra.Command, args []string) error {
	saveID := args[0]

	eng, err := openEngine()
	if err != nil {
		return trackCLIError("show", err)
	}
	defer eng.Close()

	save, err := eng.syncer.OfflineSave(saveID)
	if err != nil {
		return trackCLIError("show", fmt.Errorf("get save: %w", err))
	}
	if save == nil {
		return trackCLIError("show", fmt.Errorf("save %q not found in the offline cache", saveID))
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	title := save.Title
	if title == "" {
		title = save.URL
	}
	fmt.Println(headerStyle.Render(title))
	fmt.Println("──────────────────────────────────────────────────")
	fmt.Printf("%s %s\n", labelStyle.Render("URL:"), save.URL)
	fmt.Printf("%s %s\n", labelStyle.Render("Saved:"), time.UnixMilli(save.SavedAt).Format(time.RFC1123))
	fmt.Printf("%s %s\n", labelStyle.Render("Visibility:"), save.Visibility)
	if save.IsFavorite {
		fmt.Printf("%s yes\n", labelStyle.Render("Favorite:"))
	}
	if tags := save.TagList(); len(tags) > 0 {
		fmt.Printf("%s %v\n", labelStyle.Render("Tags:"), tags)
	}
	if save.Note != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Note:"), save.Note)
	}
	if uri := eng.syncer.ImageURI(save); uri != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Image:"), uri)
	}

	snapshot, err := eng.syncer.OfflineSnapshot(saveID)
	if err != nil {
		return trackCLIError("show", fmt.Errorf("get snapshot: %w", err))
	}
	if snapshot == nil {
		fmt.Printf("\n%s\n", labelStyle.Render("No snapshot cached."))
		return nil
	}

	fmt.Printf("\n%s (%s", headerStyle.Render("SNAPSHOT"), snapshot.Status)
	if snapshot.WordCount > 0 {
		fmt.Printf(", %d words", snapshot.WordCount)
	}
	fmt.Println(")")
	if snapshot.Byline != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("By:"), snapshot.Byline)
	}

	switch {
	case showContent && snapshot.HasContent():
		fmt.Println()
		fmt.Println(snapshot.ContentText)
	case snapshot.Excerpt != "":
		fmt.Printf("\n%s\n", snapshot.Excerpt)
	}

	return nil
}

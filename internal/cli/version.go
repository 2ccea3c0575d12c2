package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoardlabs/hoard/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

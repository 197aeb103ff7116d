//nolint
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit         string
	TendermintRelease string

	Version string
)

const (
	NodeVersion = "0.1.0"

	// AppVersion is reported to tendermint in Info and bumped on every state machine change.
	AppVersion uint64 = 1
)

func init() {
	Version = fmt.Sprintf("abcikit Release: %s;", NodeVersion)
	if GitCommit != "" {
		Version += fmt.Sprintf(" abcikit Commit: %s;", GitCommit)
	}
	if TendermintRelease != "" {
		Version += fmt.Sprintf(" Tendermint Release: %s;", TendermintRelease)
	}
}

// VersionCmd prints the release and build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the app version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(Version)
	},
}

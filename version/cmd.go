package version

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const jsonFlag = "json"

// CommandVersion prints cmd version
func CommandVersion(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "version",
		Short:   "Prints version of this binary.",
		Aliases: []string{"v"},
		Example: fmt.Sprintf("%s version", binaryName),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool(jsonFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", jsonFlag, err)
			}

			info := Get()
			if asJSON {
				bz, err := json.Marshal(info)
				if err != nil {
					return err
				}
				cmd.Println(string(bz))

				return nil
			}

			var sb strings.Builder
			_, _ = sb.WriteString("Version:       " + info.Version + "\n")
			_, _ = sb.WriteString("Git Commit:    " + info.GitCommit + "\n")
			_, _ = sb.WriteString("Git Timestamp: " + info.GitTimestamp + "\n")
			_, _ = sb.WriteString("Go Version:    " + info.GoVersion + "\n")

			cmd.Print(sb.String())

			return nil
		},
	}
	cmd.Flags().Bool(jsonFlag, false, "Print the version as json")

	return cmd
}

package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/entropy-keeper/util"
)

// AddDaemonCommands adds the commands operating the keeper daemon.
func AddDaemonCommands(cmd *cobra.Command, binaryName string) {
	cmd.AddCommand(
		CommandInit(binaryName),
		CommandStart(binaryName),
		CommandVerifyCommitment(binaryName),
	)
}

func getHomePath(cmd *cobra.Command) (string, error) {
	rawHome, err := cmd.Flags().GetString(HomeFlag)
	if err != nil {
		return "", fmt.Errorf("failed to read flag %s: %w", HomeFlag, err)
	}

	homePath, err := filepath.Abs(rawHome)
	if err != nil {
		return "", fmt.Errorf("failed to get home path: %w", err)
	}

	return util.CleanAndExpandPath(homePath), nil
}

func printRespJSON(cmd *cobra.Command, resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		cmd.PrintErrln("unable to decode response: ", err)

		return
	}

	cmd.Printf("%s\n", jsonBytes)
}

package daemon

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/util"
)

const secretSize = 32

// CommandInit returns the init command of keeperd that creates the home directory.
func CommandInit(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "init",
		Short:   "Initialize a keeper home directory.",
		Long:    `Creates a new keeper home directory with a default config. The provider secret and the signer key are generated on request.`,
		Example: fmt.Sprintf(`%s init --home /home/user/.keeperd --generate-keys`, binaryName),
		Args:    cobra.NoArgs,
		RunE:    runInitCmd,
	}
	cmd.Flags().Bool(forceFlag, false, "Override existing configuration")
	cmd.Flags().Bool(generateKeysFlag, false, "Generate a provider secret and a signer key if they do not exist")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool(forceFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", forceFlag, err)
	}
	generateKeys, err := cmd.Flags().GetBool(generateKeysFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", generateKeysFlag, err)
	}

	if util.FileExists(config.CfgFile(homePath)) && !force {
		return fmt.Errorf("config file %s already exists", config.CfgFile(homePath))
	}

	if err := util.MakeDirectory(homePath); err != nil {
		return err
	}
	// Create log and data directories
	if err := util.MakeDirectory(config.LogDir(homePath)); err != nil {
		return err
	}
	if err := util.MakeDirectory(config.DataDir(homePath)); err != nil {
		return err
	}

	defaultConfig := config.DefaultConfigWithHome(homePath)
	if err := config.WriteConfigFile(homePath, &defaultConfig); err != nil {
		return err
	}

	if !generateKeys {
		return nil
	}

	if err := writeSecretFile(defaultConfig.Provider.SecretFile); err != nil {
		return err
	}
	address, err := writeSignerKeyFile(defaultConfig.Provider.SignerKeyFile)
	if err != nil {
		return err
	}
	if address != "" {
		cmd.Printf("Generated signer key for address %s, fund it before starting the keeper\n", address)
	}

	return nil
}

// writeSecretFile keeps an existing secret, the hash chains already
// committed on-chain are derived from it.
func writeSecretFile(path string) error {
	if util.FileExists(path) {
		return nil
	}

	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate the provider secret: %w", err)
	}

	return writeHexFile(path, secret)
}

func writeSignerKeyFile(path string) (string, error) {
	if util.FileExists(path) {
		return "", nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate the signer key: %w", err)
	}
	if err := writeHexFile(path, crypto.FromECDSA(key)); err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

func writeHexFile(path string, bz []byte) error {
	if err := os.WriteFile(path, []byte(hex.EncodeToString(bz)), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

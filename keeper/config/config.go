package config

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"go.uber.org/zap/zapcore"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/util"
)

// Constants for config default values
const (
	defaultLogLevel        = zapcore.InfoLevel
	defaultLogFormat       = "auto"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "keeperd.log"
	defaultConfigFileName  = "keeperd.yml"
	defaultDataDirname     = "data"
	defaultSecretFileName  = "secret.hex"
	defaultSignerFileName  = "signer.hex"
	defaultRestartCooldown = 5 * time.Second

	// EnvPrefix is the prefix of environment variables overriding the config
	// file. `__` separates nested keys, e.g. KEEPERD_CHAINS__ETHEREUM__GAS_LIMIT.
	EnvPrefix = "KEEPERD_"
)

var (
	//   C:\Users\<username>\AppData\Local\ on Windows
	//   ~/.keeperd on Linux
	//   ~/Users/<username>/Library/Application Support/Keeperd on MacOS
	DefaultKeeperdDir = btcutil.AppDataDir("keeperd", false)
)

// Config is the main config for the keeperd cli command
type Config struct {
	LogLevel  string `koanf:"log_level" yaml:"log_level"`
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	Provider ProviderConfig `koanf:"provider" yaml:"provider"`

	// RestartCooldown is the pause before a failed chain pipeline is restarted
	RestartCooldown time.Duration `koanf:"restart_cooldown" yaml:"restart_cooldown"`

	Chains map[string]*ChainConfig `koanf:"chains" yaml:"chains"`

	DatabaseConfig *DBConfig `koanf:"db" yaml:"db"`

	Metrics *metrics.Config `koanf:"metrics" yaml:"metrics"`
}

// ProviderConfig identifies the randomness provider served by this keeper.
type ProviderConfig struct {
	Address string `koanf:"address" yaml:"address"`
	// SecretFile holds the hex encoded secret the hash chains are derived from
	SecretFile string `koanf:"secret_file" yaml:"secret_file"`
	// SignerKeyFile holds the hex encoded private key paying for reveals
	SignerKeyFile string `koanf:"signer_key_file" yaml:"signer_key_file"`
}

func DefaultConfigWithHome(homePath string) Config {
	return Config{
		LogLevel:  defaultLogLevel.String(),
		LogFormat: defaultLogFormat,
		Provider: ProviderConfig{
			SecretFile:    filepath.Join(homePath, defaultSecretFileName),
			SignerKeyFile: filepath.Join(homePath, defaultSignerFileName),
		},
		RestartCooldown: defaultRestartCooldown,
		Chains:          map[string]*ChainConfig{},
		DatabaseConfig:  DefaultDBConfigWithHomePath(homePath),
		Metrics:         metrics.DefaultConfig(),
	}
}

func DefaultConfig() Config {
	return DefaultConfigWithHome(DefaultKeeperdDir)
}

func CfgFile(homePath string) string {
	return filepath.Join(homePath, defaultConfigFileName)
}

func LogDir(homePath string) string {
	return filepath.Join(homePath, defaultLogDirname)
}

func LogFile(homePath string) string {
	return filepath.Join(LogDir(homePath), defaultLogFilename)
}

func DataDir(homePath string) string {
	return filepath.Join(homePath, defaultDataDirname)
}

// LoadConfig initializes and parses the config using the config file under
// the home directory and the environment.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Load the yaml config file overwriting defaults with any specified options
//  3. Overwrite any option set through a KEEPERD_ prefixed environment variable
//  4. Fill every chain with the per-chain defaults before applying its options
func LoadConfig(homePath string) (*Config, error) {
	// The home directory is required to have a configuration file with a specific name
	// under it.
	cfgFile := CfgFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	k := koanf.New(".")

	// Load configuration from the yaml config.
	if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	// Load environment variables and merge into the loaded config.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg, err := unmarshalConfig(k, homePath)
	if err != nil {
		return nil, err
	}

	// Make sure everything we just loaded makes sense.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envKey(s string) string {
	// `__` is used as a hierarchy delimiter.
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func unmarshalConfig(k *koanf.Koanf, homePath string) (*Config, error) {
	cfg := DefaultConfigWithHome(homePath)
	// chains are decoded one by one below on top of their defaults
	cfg.Chains = nil
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	chains := make(map[string]*ChainConfig)
	for _, chainID := range k.MapKeys("chains") {
		chainCfg := DefaultChainConfig()
		if err := k.Unmarshal("chains."+chainID, &chainCfg); err != nil {
			return nil, fmt.Errorf("failed to decode config of chain %s: %w", chainID, err)
		}
		chains[chainID] = &chainCfg
	}
	cfg.Chains = chains

	return &cfg, nil
}

// WriteConfigFile writes cfg as yaml to the config file under homePath.
func WriteConfigFile(homePath string, cfg *Config) error {
	bz, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(CfgFile(homePath), bz, 0o600)
}

// Validate checks the given configuration to be sane. This makes sure no
// illegal values or a combination of values are set.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if err := cfg.Provider.Validate(); err != nil {
		return fmt.Errorf("provider configuration validation failed: %w", err)
	}

	if cfg.RestartCooldown <= 0 {
		return fmt.Errorf("restart cooldown must be positive, got %v", cfg.RestartCooldown)
	}

	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	for chainID, chainCfg := range cfg.Chains {
		if chainCfg == nil {
			return fmt.Errorf("config of chain %s cannot be empty", chainID)
		}
		if strings.Contains(chainID, ".") {
			return fmt.Errorf("chain id %s must not contain a dot", chainID)
		}
		if err := chainCfg.Validate(); err != nil {
			return fmt.Errorf("configuration of chain %s validation failed: %w", chainID, err)
		}
	}

	if cfg.DatabaseConfig == nil {
		return fmt.Errorf("database config cannot be empty")
	}
	if err := cfg.DatabaseConfig.Validate(); err != nil {
		return fmt.Errorf("database configuration validation failed: %w", err)
	}

	// Validate metrics configuration
	if cfg.Metrics == nil {
		return fmt.Errorf("metrics configuration cannot be empty")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration validation failed: %w", err)
	}

	return nil
}

func (p *ProviderConfig) Validate() error {
	if !common.IsHexAddress(p.Address) {
		return fmt.Errorf("invalid provider address: %q", p.Address)
	}
	if p.SecretFile == "" {
		return fmt.Errorf("secret file cannot be empty")
	}
	if p.SignerKeyFile == "" {
		return fmt.Errorf("signer key file cannot be empty")
	}

	return nil
}

func (p *ProviderConfig) GetAddress() common.Address {
	return common.HexToAddress(p.Address)
}

// LoadSecret reads the hash chain secret. The secret is only held in memory.
func (p *ProviderConfig) LoadSecret() ([]byte, error) {
	bz, err := readHexFile(p.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load secret: %w", err)
	}
	if len(bz) == 0 {
		return nil, fmt.Errorf("secret file %s is empty", p.SecretFile)
	}

	return bz, nil
}

func (p *ProviderConfig) LoadSignerKey() (*ecdsa.PrivateKey, error) {
	bz, err := readHexFile(p.SignerKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signer key: %w", err)
	}

	if err := util.ValidateSignerKeyBytes(bz); err != nil {
		return nil, fmt.Errorf("invalid signer key in %s: %w", p.SignerKeyFile, err)
	}

	key, err := crypto.ToECDSA(bz)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key in %s: %w", p.SignerKeyFile, err)
	}

	return key, nil
}

func readHexFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(util.CleanAndExpandPath(path))
	if err != nil {
		return nil, err
	}

	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
}

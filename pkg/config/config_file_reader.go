package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const DefaultEnvPrefix = "CONNECT"

var (
	guardianKeys = []string{"hosts", "maxAttempts", "initialInterval", "maxInterval", "timeout", "rateLimit"}
	chainKeys    = []string{"rpc", "tokenBridge", "coreBridge", "wrappedNative", "commitment"}
)

// ConfigOptions is used to configure the loading of config parameters by the connect commands.
type ConfigOptions struct {
	// FilePath is the path to the config file to be loaded, including the file name and extension.
	// The file may be any of the types supported by Viper (such as .yaml or .json).
	FilePath string

	// EnvPrefix is the prefix to be added to environment variables to load variables that
	// override config file settings. For instance, setting it to "CONNECT" will cause it
	// to look for variables like "CONNECT_NETWORK" or "CONNECT_GUARDIAN_HOSTS".
	EnvPrefix string
}

// InitFileConfig initializes configuration according to the following precedence:
// 1. Command line flags
// 2. Environment variables
// 3. Config file
// 4. Cobra default values
func InitFileConfig(cmd *cobra.Command, options ConfigOptions) (*viper.Viper, error) {
	v := viper.New()

	if options.FilePath != "" {
		v.SetConfigFile(options.FilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(options.EnvPrefix)
	// Nested keys such as guardian.hosts are read from CONNECT_GUARDIAN_HOSTS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}
	// Explicitly set flags take precedence over everything else when read back through v.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		configName := f.Name

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(configName) {
			val := v.Get(configName)
			if setErr := cmd.Flags().Set(f.Name, valueString(val)); setErr != nil {
				err = fmt.Errorf("failed to bind flag %s to viper: %w", f.Name, setErr)
			}
		}
	})
	return err
}

// valueString renders a viper value the way pflag parses it. Slices from config files become comma separated.
func valueString(val any) string {
	if list, ok := val.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", val)
}

// Load builds the configuration for the environment named by the "network" key, overlaying whatever the file,
// environment or flags set on top of that environment's defaults.
func Load(v *viper.Viper) (*Config, error) {
	network := v.GetString("network")
	if network == "" {
		network = string(common.MainNet)
	}
	env, err := common.ParseEnvironment(network)
	if err != nil {
		return nil, err
	}

	cfg, err := Defaults(env)
	if err != nil {
		return nil, err
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}
	var overrides Config
	if err := v.Unmarshal(&overrides); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// AutomaticEnv only answers Get for known keys, so list-valued env vars are read explicitly.
	if hosts := splitList(v.GetStringSlice("guardian.hosts")); len(hosts) > 0 {
		overrides.Guardian.Hosts = hosts
	}
	cfg.Merge(&overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv registers every Config key with viper. AutomaticEnv only resolves keys viper already knows about, so
// without this a variable such as CONNECT_CHAINS_APTOS_RPC never reaches Unmarshal.
func bindEnv(v *viper.Viper) error {
	keys := []string{"cache.size"}
	for _, k := range guardianKeys {
		keys = append(keys, "guardian."+k)
	}
	for _, id := range vaa.KnownChains() {
		for _, k := range chainKeys {
			keys = append(keys, "chains."+id.String()+"."+k)
		}
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s to the environment: %w", key, err)
		}
	}
	return nil
}

// splitList flattens comma separated entries, as found in environment variables.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

package config

import (
	"fmt"
	"time"

	"github.com/certusone/wormhole/connect/pkg/common"
)

const (
	defaultInitialInterval = time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultGuardianTimeout = 10 * time.Second
)

// Public guardian REST endpoints.
var (
	mainnetGuardianHosts = []string{
		"https://api.wormholescan.io",
		"https://wormhole-v2-mainnet-api.mcf.rocks",
		"https://wormhole-v2-mainnet-api.chainlayer.network",
		"https://wormhole-v2-mainnet-api.staking.fund",
		"https://guardian.mainnet.xlabs.xyz",
	}
	testnetGuardianHosts = []string{
		"https://api.testnet.wormholescan.io",
	}
	devnetGuardianHosts = []string{
		"http://localhost:7071",
	}
)

var mainnetChains = map[string]ChainConfig{
	"aptos": {
		RPC:         "https://fullnode.mainnet.aptoslabs.com/v1",
		TokenBridge: "0x576410486a2da45eee6c949c995670112ddf2fbeedab20350d506328eefc9d4f",
		CoreBridge:  "0x5bc11445584a763c1fa7ed39081f1b920954da14e04b32440cba863d03e19625",
	},
	"ethereum": {
		RPC:           "https://ethereum-rpc.publicnode.com",
		TokenBridge:   "0x3ee18B2214AFF97000D974cf647E7C347E8fa585",
		CoreBridge:    "0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B",
		WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	},
	"solana": {
		RPC:         "https://api.mainnet-beta.solana.com",
		TokenBridge: "wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb",
		CoreBridge:  "worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth",
		Commitment:  "finalized",
	},
}

var testnetChains = map[string]ChainConfig{
	"aptos": {
		RPC:         "https://fullnode.testnet.aptoslabs.com/v1",
		TokenBridge: "0x576410486a2da45eee6c949c995670112ddf2fbeedab20350d506328eefc9d4f",
		CoreBridge:  "0x5bc11445584a763c1fa7ed39081f1b920954da14e04b32440cba863d03e19625",
	},
	// Sepolia
	"ethereum": {
		RPC:           "https://ethereum-sepolia-rpc.publicnode.com",
		TokenBridge:   "0xDB5492265f6038831E89f495670FF909aDe94bd9",
		CoreBridge:    "0x4a8bc80Ed5a4067f1CCf107057b8270E0cC11A78",
		WrappedNative: "0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9",
	},
	"solana": {
		RPC:         "https://api.devnet.solana.com",
		TokenBridge: "DZnkkTmCiFWfYTfT41X3Rd1kDgozqzxWaHqsw6W4x2oe",
		CoreBridge:  "3u8hJUVTA4jH1wYAyUur7FFZVQ8H635K3tSHHF4ssjQ5",
		Commitment:  "confirmed",
	},
}

// Local tilt devnet.
var devnetChains = map[string]ChainConfig{
	"aptos": {
		RPC:         "http://localhost:8080",
		TokenBridge: "0x84a5f374d29fc77e370014dce4fd6a55b58ad608de8074b0be5571701724da31",
		CoreBridge:  "0xde0036a9600559e295d5f6802ef6f3f802f510366e0c23912b0655d972166017",
	},
	"ethereum": {
		RPC:           "http://localhost:8545",
		TokenBridge:   "0x0290FB167208Af455bB137780163b7B7a9a10C16",
		CoreBridge:    "0xC89Ce4735882C9F0f0FE26686c53074E09B0D550",
		WrappedNative: "0xDDb64fE46a91D46ee29420539FC25FD07c5FEa3E",
	},
	"solana": {
		RPC:         "http://localhost:8899",
		TokenBridge: "B6RHG3mfcckmrYN1UhmJzyS1XX3fZKbkeUcpJe9Sy3FE",
		CoreBridge:  "Bridge1p5gheXUvJ6jGWGeCsgPKgnE3YgdGKRVCMY9o",
		Commitment:  "confirmed",
	},
}

// Defaults returns the public endpoints and contract addresses for env.
func Defaults(env common.Environment) (*Config, error) {
	var hosts []string
	var chains map[string]ChainConfig
	switch env {
	case common.MainNet:
		hosts, chains = mainnetGuardianHosts, mainnetChains
	case common.TestNet:
		hosts, chains = testnetGuardianHosts, testnetChains
	case common.UnsafeDevNet:
		hosts, chains = devnetGuardianHosts, devnetChains
	default:
		return nil, fmt.Errorf("no defaults for environment %q", env)
	}

	cfg := &Config{
		Environment: env,
		Guardian: Guardian{
			Hosts:           append([]string(nil), hosts...),
			InitialInterval: defaultInitialInterval,
			MaxInterval:     defaultMaxInterval,
			Timeout:         defaultGuardianTimeout,
		},
		Chains: make(map[string]ChainConfig, len(chains)),
	}
	for name, chain := range chains {
		cfg.Chains[name] = chain
	}
	return cfg, nil
}

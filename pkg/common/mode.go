package common

import (
	"fmt"
	"strings"
)

type Environment string

const (
	MainNet      Environment = "prod"
	TestNet      Environment = "test" // public testnet, same contracts layout as mainnet with different addresses
	UnsafeDevNet Environment = "dev"  // local tilt devnet
)

// ParseEnvironment parses a string into the corresponding Environment value, allowing various reasonable variations.
func ParseEnvironment(str string) (Environment, error) {
	switch strings.ToLower(str) {
	case "prod", "mainnet":
		return MainNet, nil
	case "test", "testnet":
		return TestNet, nil
	case "dev", "devnet", "unsafedevnet":
		return UnsafeDevNet, nil
	}
	return UnsafeDevNet, fmt.Errorf("invalid environment string: %s", str)
}

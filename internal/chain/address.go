// Package chain validates token addresses for the platforms reported by the listings provider.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Platform names as reported by CoinMarketCap, lowercased
const (
	Solana   = "solana"
	Ethereum = "ethereum"
	BNB      = "bnb smart chain (bep20)"
	Base     = "base"
	Arbitrum = "arbitrum"
	Polygon  = "polygon"
	Optimism = "optimism"
)

// solanaPubkeyLen is the size of a decoded Solana public key
const solanaPubkeyLen = 32

var evmPlatforms = map[string]bool{
	Ethereum: true,
	BNB:      true,
	Base:     true,
	Arbitrum: true,
	Polygon:  true,
	Optimism: true,
}

// Matches reports whether a provider platform name designates the target chain
func Matches(platform, target string) bool {
	return platform != "" && strings.EqualFold(strings.TrimSpace(platform), strings.TrimSpace(target))
}

// IsEVM reports whether the platform uses 20-byte hex addresses
func IsEVM(platform string) bool {
	return evmPlatforms[strings.ToLower(platform)]
}

// ValidTokenAddress reports whether address is well formed for the platform.
// Unknown platforms accept any non-empty value other than the N/A placeholder.
func ValidTokenAddress(platform, address string) bool {
	address = strings.TrimSpace(address)
	if address == "" || address == "N/A" {
		return false
	}

	switch {
	case strings.EqualFold(platform, Solana):
		decoded, err := base58.Decode(address)
		return err == nil && len(decoded) == solanaPubkeyLen
	case IsEVM(platform):
		return common.IsHexAddress(address)
	default:
		return true
	}
}

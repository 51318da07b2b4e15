package ports

import (
	"context"
)

// FlagQuoteInjection gates the injection pipeline. When off, articles pass through unchanged.
const FlagQuoteInjection = "quote-injection"

// FeatureFlags evaluates runtime switches without tying the app layer to a provider
// (static config today, LaunchDarkly/Unleash/etc. later).
//
//	if !flags.IsEnabled(ctx, ports.FlagQuoteInjection, true) {
//	    return passthrough(req), nil
//	}
type FeatureFlags interface {
	// IsEnabled returns defaultValue when the flag is unknown or cannot be evaluated.
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
}

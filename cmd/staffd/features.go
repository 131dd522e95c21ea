package main

import (
	"context"
	"strings"

	featuregate "github.com/goliatone/go-featuregate/gate"
)

// staticGate enables every feature key except the ones listed in
// STAFF_DISABLED_FEATURES.
type staticGate struct {
	disabled map[string]struct{}
}

var _ featuregate.FeatureGate = staticGate{}

func newStaticGate(disabled []string) staticGate {
	gate := staticGate{disabled: make(map[string]struct{}, len(disabled))}
	for _, key := range disabled {
		if key = strings.TrimSpace(key); key != "" {
			gate.disabled[key] = struct{}{}
		}
	}
	return gate
}

func (g staticGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	_, off := g.disabled[strings.TrimSpace(key)]
	return !off, nil
}

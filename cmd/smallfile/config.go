package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/smallfile-go/smallfile/internal/params"
)

// bindParamFlags registers every params flag against a scratch Params
// value seeded from defaults; cobra parses CLI flags into it during its
// normal flag-parsing pass, before RunE ever runs.
func bindParamFlags(cmd *cobra.Command) *params.Params {
	d := params.Defaults()
	params.RegisterFlags(cmd, &d)
	return &d
}

// resolveParams implements a three-layer precedence: built-in
// defaults, then a YAML overlay, then only the CLI flags the user
// actually typed. flagParams already holds cobra's parse of every flag
// (explicit or default); only the names pflag reports as Changed get
// copied across, keyed by flag name — which is identical to that
// field's YAML tag throughout params.Params, so the copy can go through
// a generic YAML round-trip instead of a hand-written field switch.
func resolveParams(cmd *cobra.Command, g *globalFlags, flagParams *params.Params) (*params.Params, error) {
	final := params.Defaults()
	if g.configPath != "" {
		if err := params.LoadYAML(g.configPath, &final); err != nil {
			return nil, err
		}
	}

	flagMap, err := toYAMLMap(flagParams)
	if err != nil {
		return nil, err
	}
	finalMap, err := toYAMLMap(&final)
	if err != nil {
		return nil, err
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		if v, ok := flagMap[f.Name]; ok {
			finalMap[f.Name] = v
		}
	})

	merged, err := yaml.Marshal(finalMap)
	if err != nil {
		return nil, err
	}
	var result params.Params
	if err := yaml.Unmarshal(merged, &result); err != nil {
		return nil, fmt.Errorf("cmd: merging resolved params: %w", err)
	}
	return &result, nil
}

func toYAMLMap(p *params.Params) (map[string]any, error) {
	b, err := yaml.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Package config loads aptserv settings from an HCL file and merges them with
// settings given on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// DefaultFile is the config file used when none is named explicitly.
const DefaultFile = "autoserv.hcl"

// hclFile is the schema of a config file. Every attribute is optional.
type hclFile struct {
	OutputDir    *string    `hcl:"output_dir,optional"`
	IncludeTests *bool      `hcl:"include_tests,optional"`
	Packages     []string   `hcl:"packages,optional"`
	Processors   []string   `hcl:"processors,optional"`
	Options      *cty.Value `hcl:"options,optional"`
}

// Settings are the resolved settings for one aptserv run.
type Settings struct {
	OutputDir    string
	IncludeTests bool
	Packages     []string
	Processors   []string
	Options      map[string]string
}

// Overrides are settings that take precedence over a config file. Nil and
// empty fields leave the file's value in place.
type Overrides struct {
	OutputDir    *string
	IncludeTests *bool
	Packages     []string
	Processors   []string
	// Options are merged key by key into the file's options.
	Options map[string]string
}

// Load reads the config file at path.
func Load(path string) (*Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	s := &Settings{
		Packages:   parsed.Packages,
		Processors: parsed.Processors,
	}
	if parsed.OutputDir != nil {
		s.OutputDir = *parsed.OutputDir
	}
	if parsed.IncludeTests != nil {
		s.IncludeTests = *parsed.IncludeTests
	}
	if parsed.Options != nil {
		opts, err := optionsFromValue(*parsed.Options)
		if err != nil {
			return nil, fmt.Errorf("invalid options in %s: %w", path, err)
		}
		s.Options = opts
	}
	return s, nil
}

// Find loads the config file at path. If path is blank, DefaultFile is loaded
// when it exists, and otherwise empty settings are returned.
func Find(path string) (*Settings, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, err
	}
	return Load(DefaultFile)
}

// Apply overwrites s with every override that is set.
func (s *Settings) Apply(o Overrides) {
	if o.OutputDir != nil {
		s.OutputDir = *o.OutputDir
	}
	if o.IncludeTests != nil {
		s.IncludeTests = *o.IncludeTests
	}
	if len(o.Packages) > 0 {
		s.Packages = o.Packages
	}
	if len(o.Processors) > 0 {
		s.Processors = o.Processors
	}
	if len(o.Options) > 0 {
		if s.Options == nil {
			s.Options = make(map[string]string, len(o.Options))
		}
		for k, v := range o.Options {
			s.Options[k] = v
		}
	}
}

// OptionNames returns the names of the configured options, sorted.
func (s *Settings) OptionNames() []string {
	names := make([]string, 0, len(s.Options))
	for k := range s.Options {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// optionsFromValue converts an HCL object or map into string options. Null
// values become empty strings, so `verify = null` just switches an option on.
func optionsFromValue(val cty.Value) (map[string]string, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() {
		return nil, errors.New("value must be known")
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expecting an object, got %s", ty.FriendlyName())
	}
	opts := map[string]string{}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		if v.IsNull() {
			opts[name] = ""
			continue
		}
		str, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", name, err)
		}
		opts[name] = str.AsString()
	}
	return opts, nil
}

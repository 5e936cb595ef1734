package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// enumFlag is a string flag restricted to a fixed set of values.
type enumFlag struct {
	allowed []string
	value   string
}

var _ pflag.Value = (*enumFlag)(nil) // Compile-time check

// newEnumFlag creates an enumFlag holding def.
func newEnumFlag(def string, allowed ...string) *enumFlag {
	return &enumFlag{allowed: allowed, value: def}
}

// String implements the pflag.Value interface.
func (e *enumFlag) String() string {
	return e.value
}

// Set implements the pflag.Value interface.
func (e *enumFlag) Set(v string) error {
	v = strings.ToLower(v)
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}
	e.value = v
	return nil
}

// Type implements the pflag.Value interface.
func (e *enumFlag) Type() string {
	return strings.Join(e.allowed, "|")
}

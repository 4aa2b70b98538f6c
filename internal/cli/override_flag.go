package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const (
	overrideFlagTypeName              = "bool"
	overrideFlagTrueLiteral           = "true"
	overrideFlagUnsetLiteral          = "unset"
	overrideFlagAcceptedValuesListing = "true, false, yes, no, on, off, 1, 0"
	overrideFlagInvalidValueFormat    = "invalid boolean value %q for --%s; accepted values: %s"
)

var overrideFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// overrideFlagValue is a boolean flag that stays nil until given on the
// command line, so an absent flag leaves the configured value in place.
type overrideFlagValue struct {
	target  **bool
	flagKey string
}

func (value *overrideFlagValue) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = overrideFlagTrueLiteral
	}
	parsed, ok := overrideFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf(overrideFlagInvalidValueFormat, input, value.flagKey, overrideFlagAcceptedValuesListing)
	}
	*value.target = &parsed
	return nil
}

func (value *overrideFlagValue) String() string {
	if value == nil || value.target == nil || *value.target == nil {
		return overrideFlagUnsetLiteral
	}
	return strconv.FormatBool(**value.target)
}

func (value *overrideFlagValue) Type() string {
	return overrideFlagTypeName
}

func registerOverrideFlag(flagSet *pflag.FlagSet, target **bool, name string, usage string) {
	flagSet.Var(&overrideFlagValue{target: target, flagKey: name}, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.NoOptDefVal = overrideFlagTrueLiteral
	}
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// switchValue is a boolean flag value that also accepts yes/no and on/off.
type switchValue bool

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q (want true/yes/on/1 or false/no/off/0)", s)
}

func (v *switchValue) Set(s string) error {
	b, err := parseSwitch(s)
	if err != nil {
		return err
	}
	*v = switchValue(b)
	return nil
}

func (v *switchValue) String() string {
	return strconv.FormatBool(bool(*v))
}

func (v *switchValue) Type() string {
	return "BOOL"
}

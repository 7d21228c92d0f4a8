// Package shared provides common CLI flag definitions and utility functions
// used across the tabletrelay command-line interface.
package shared

import (
	"github.com/urfave/cli/v3"
)

const categoryCommon = "common"

// VerboseFlag is the name of the flag to enable verbose logging.
const VerboseFlag = "verbose"

// TimeoutFlag is the name of the flag to specify the dial timeout.
const TimeoutFlag = "timeout"

// GetArgsUsage returns the arguments usage string for client commands.
func GetArgsUsage() string {
	return "address"
}

// GetCommonFlags returns the flags every command accepts.
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     VerboseFlag,
			Aliases:  []string{"v"},
			Usage:    "Verbose logging",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
	}
}

// GetClientFlags returns the flags of commands that connect to a relay.
func GetClientFlags() []cli.Flag {
	return append(GetCommonFlags(),
		&cli.IntFlag{
			Name:     TimeoutFlag,
			Aliases:  []string{"t"},
			Usage:    "Dial timeout in milliseconds",
			Category: categoryCommon,
			Value:    5000,
			Required: false,
		},
	)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"modesrx/internal/app"
)

func main() {
	config := app.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "modesrx [dump-file]",
		Short: "Mode S squitter receiver for RTL-SDR",
		Long: `Software-defined receiver for Mode S squitters on 1090 MHz.

Samples an RTL-SDR dongle at 2 Msps, searches the Mode S preamble at four
sub-sample phases through a fractional-delay filter bank, demodulates the
PPM payload, verifies the 24-bit CRC (with optional error correction) and
prints one line per message: a sample-accurate timestamp, the ICAO aircraft
address and the message body in hex.

Modes:
  modesrx              decode live from the dongle
  modesrx -w FILE      capture raw samples to FILE, no decoding
  modesrx FILE         decode offline from a previously captured FILE`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}
			if len(args) == 1 {
				if config.DumpPath != "" {
					return fmt.Errorf("-w and a dump-file argument are mutually exclusive")
				}
				config.InputPath = args[0]
			}
			cmd.SilenceUsage = true
			return app.NewApplication(config).Run()
		},
	}

	rootCmd.Flags().StringVarP(&config.DumpPath, "write", "w", "", "Capture raw samples to a file instead of decoding")
	rootCmd.Flags().IntVarP(&config.DeviceIndex, "device", "d", 0, "RTL-SDR device index")
	rootCmd.Flags().IntVarP(&config.GainTenths, "gain", "g", 0, "Tuner gain in tenths of dB (0 for maximum)")
	rootCmd.Flags().Float32VarP(&config.DetectThresh, "threshold", "t", 0.0, "Preamble correlation threshold")
	rootCmd.Flags().BoolVar(&config.FixXoredCRCs, "fix-xored", false, "Correct single-bit errors in address-XORed CRCs")
	rootCmd.Flags().BoolVar(&config.FixTwoBit, "fix-2bit", false, "Correct double-bit errors (inline-address formats)")
	rootCmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", "", "Also write decoded lines to a rotating log in this directory")
	rootCmd.Flags().BoolVarP(&config.UseUTC, "utc", "u", true, "Use UTC for log rotation")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose diagnostics (per-decode CRC notes)")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

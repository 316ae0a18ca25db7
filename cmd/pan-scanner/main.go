package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MacAttak/pan-scanner/pkg/report"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pan-scanner",
		Short: "PAN Scanner - Find payment card numbers in documents",
		Long: `PAN Scanner searches directories and sub directories for documents
containing primary account numbers (PANs) of the major card brands.

It recursively explodes archives, office documents and mail containers,
validates every candidate with the Luhn checksum and reports masked
matches with full provenance through nested containers.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newVerifyCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "PAN Scanner\n")
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Build Date: %s\n", buildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a directory tree or single file for PANs",
		Long: `Scan recursively walks a directory (or reads a single file) and reports
every document containing a valid PAN, including matches found inside
archives, office documents and mail containers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.searchDir, "dir", "s", "", "base directory to search in")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "file path for a single-file scan")
	cmd.Flags().StringVarP(&opts.excludeDirs, "exclude", "x", "", "comma-separated directories to exclude (absolute paths)")
	cmd.Flags().StringVarP(&opts.reportDir, "report-dir", "o", "./", "directory for the TXT formatted report")
	cmd.Flags().StringVarP(&opts.jsonDir, "json-dir", "j", "", "directory for the JSON formatted report")
	cmd.Flags().BoolVarP(&opts.unmask, "unmask", "u", false, "unmask PANs in output (unsupported, masked values only)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "C", "", "configuration file to use (YAML or INI)")
	cmd.Flags().StringVarP(&opts.excludePAN, "exclude-pan", "X", "", "comma-separated PANs to exclude from the search")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no terminal output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <report-file>",
		Short: "Verify the integrity hash of a text report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := report.VerifyTextFile(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("hashes not OK: %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Hashes OK")
			return nil
		},
	}
}

// Package cmd - version command showing build and converter info
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tawesh/idb-to-sql/internal/config"
)

var versionOutputFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version, build and converter information",
	Long: `Display version information including:

  - ibdreplay version, build time and git commit
  - Go runtime version
  - Operating system, architecture and logical CPUs
  - The converter binary ibdreplay will run

Examples:
  ibdreplay version
  ibdreplay version --format json
  ibdreplay version --format short`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.OutOrStdout(), versionOutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionOutputFormat, "format", "table", "Output format (table, json, short)")
}

type versionInfo struct {
	Version       string `json:"version"`
	BuildTime     string `json:"build_time"`
	GitCommit     string `json:"git_commit"`
	GoVersion     string `json:"go_version"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	NumCPU        int    `json:"num_cpu"`
	Converter     string `json:"converter"`
	ConverterPath string `json:"converter_path,omitempty"`
}

func runVersion(w io.Writer, format string) error {
	info := collectVersionInfo()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "short":
		fmt.Fprintf(w, "ibdreplay %s\n", info.Version)
	default:
		outputTable(w, info)
	}
	return nil
}

func collectVersionInfo() versionInfo {
	info := versionInfo{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		GitCommit: cfg.GitCommit,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    config.DefaultProcesses(),
		Converter: cfg.Converter,
	}
	if path, err := exec.LookPath(cfg.Converter); err == nil {
		info.ConverterPath = path
	}
	return info
}

func outputTable(w io.Writer, info versionInfo) {
	commit := info.GitCommit
	if len(commit) > 40 {
		commit = commit[:40]
	}
	converter := info.ConverterPath
	if converter == "" {
		converter = info.Converter + " (not found on PATH)"
	}

	line := strings.Repeat("═", 63)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "╔%s╗\n", line)
	fmt.Fprintf(w, "║  %-60s ║\n", "ibdreplay version info")
	fmt.Fprintf(w, "╠%s╣\n", line)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "Version:", info.Version)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "Build Time:", info.BuildTime)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "Git Commit:", commit)
	fmt.Fprintf(w, "╠%s╣\n", line)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "Go Version:", info.GoVersion)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "OS/Arch:", info.OS+"/"+info.Arch)
	fmt.Fprintf(w, "║  %-20s %-39d ║\n", "CPU Cores:", info.NumCPU)
	fmt.Fprintf(w, "║  %-20s %-39s ║\n", "Converter:", converter)
	fmt.Fprintf(w, "╚%s╝\n", line)
	fmt.Fprintln(w)
}

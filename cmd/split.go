package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Tawesh/idb-to-sql/internal/encoding"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/fs"
	"github.com/Tawesh/idb-to-sql/internal/sqlscript"
)

var (
	splitFormat     string
	splitPreviewLen int
	splitStatsOnly  bool
)

var splitCmd = &cobra.Command{
	Use:   "split <script.sql>",
	Short: "Show how a SQL script is split and grouped, without a database",
	Long: `Split a SQL script into statements and classify each one as ordered
(runs in the schema transaction) or INSERT (may run in parallel). Nothing is
executed.

Examples:
  ibdreplay split dump/orders.sql
  ibdreplay split dump/orders.sql --stats
  ibdreplay split dump/orders.sql --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSplit(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringVar(&splitFormat, "format", "text", "Output format (text, json)")
	splitCmd.Flags().IntVar(&splitPreviewLen, "preview", 100, "Characters of each statement to show in text output")
	splitCmd.Flags().BoolVar(&splitStatsOnly, "stats", false, "Only print statement counts")
}

type splitStatement struct {
	Index     int    `json:"index"`
	Group     string `json:"group"`
	Statement string `json:"statement"`
}

type splitReport struct {
	File       string           `json:"file"`
	Encoding   string           `json:"encoding"`
	Bytes      int              `json:"bytes"`
	Ordered    int              `json:"ordered"`
	Inserts    int              `json:"inserts"`
	Statements []splitStatement `json:"statements,omitempty"`
}

func runSplit(w io.Writer, path string) error {
	raw, err := fs.ReadFile(path)
	if err != nil {
		return apperrors.InputNotFound(path, err)
	}
	enc := encoding.Detect(raw)
	text, err := encoding.Decode(raw, enc)
	if err != nil {
		return apperrors.DecodeFailed(path, enc, err)
	}

	stmts := sqlscript.Split(text)
	groups := sqlscript.Classify(stmts)
	report := splitReport{
		File:     path,
		Encoding: enc,
		Bytes:    len(raw),
		Ordered:  len(groups.Ordered),
		Inserts:  len(groups.Unordered),
	}
	if !splitStatsOnly {
		report.Statements = make([]splitStatement, 0, len(stmts))
		for i, s := range stmts {
			group := "ordered"
			if sqlscript.IsInsert(s) {
				group = "insert"
			}
			report.Statements = append(report.Statements, splitStatement{Index: i + 1, Group: group, Statement: s})
		}
	}

	switch splitFormat {
	case "json":
		je := json.NewEncoder(w)
		je.SetIndent("", "  ")
		return je.Encode(report)
	case "text":
		printSplitText(w, report)
		return nil
	default:
		return apperrors.InvalidConfig("format", fmt.Sprintf("unknown output format %q (text, json)", splitFormat))
	}
}

func printSplitText(w io.Writer, r splitReport) {
	fmt.Fprintf(w, "%s: %s, %s\n", r.File, humanize.Bytes(uint64(r.Bytes)), r.Encoding)
	fmt.Fprintf(w, "  ordered statements: %s\n", humanize.Comma(int64(r.Ordered)))
	fmt.Fprintf(w, "  INSERT statements:  %s\n", humanize.Comma(int64(r.Inserts)))
	if len(r.Statements) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, s := range r.Statements {
		fmt.Fprintf(w, "%5d  %-7s  %s\n", s.Index, s.Group, sqlscript.Preview(oneLine(s.Statement), splitPreviewLen))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

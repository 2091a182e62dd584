// Package main provides the Graphvana CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphvana/graphvana/pkg/config"
	"github.com/graphvana/graphvana/pkg/document"
	"github.com/graphvana/graphvana/pkg/gql/planner"
	"github.com/graphvana/graphvana/pkg/graphvana"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphvana",
		Short: "Graphvana - graph documents with a Cypher-style query language",
		Long: `Graphvana stores labeled property graphs as JSON documents and
queries them with GQL, a Cypher-style pattern language.

Features:
  • Persistent immutable graph snapshots
  • MATCH / CREATE / DELETE / SET / REMOVE / RETURN with UNION chaining
  • Variable-length path matching and reachability queries
  • Stored, named transformations inside the document`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Graphvana v%s (%s)\n", version, commit)
		},
	})

	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a query against a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().StringP("file", "f", "", "Document file (omit for an empty graph)")
	queryCmd.Flags().Bool("save", false, "Write the resulting graph back to the document file")
	rootCmd.AddCommand(queryCmd)

	shellCmd := &cobra.Command{
		Use:   "shell [document]",
		Short: "Interactive query shell",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShell,
	}
	rootCmd.AddCommand(shellCmd)

	explainCmd := &cobra.Command{
		Use:   "explain <text>",
		Short: "Print the query plan without executing",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain,
	}
	rootCmd.AddCommand(explainCmd)

	validateCmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validate a document file",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(path string) (*graphvana.DB, error) {
	cfg, err := config.LoadFromFile(config.FindConfigFile())
	if err != nil {
		return nil, err
	}
	if path == "" {
		return graphvana.New(cfg), nil
	}
	return graphvana.Open(path, cfg)
}

func runQuery(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	save, _ := cmd.Flags().GetBool("save")

	db, err := openDB(path)
	if err != nil {
		return err
	}
	res, err := db.Execute(args[0])
	if err != nil {
		return err
	}
	printResult(res.Result)
	if !res.Diff.Empty() {
		fmt.Printf("graph changed: +%d/-%d nodes, +%d/-%d edges\n",
			len(res.Diff.AddedNodes), len(res.Diff.RemovedNodes),
			len(res.Diff.AddedEdges), len(res.Diff.RemovedEdges))
	}
	if save && path != "" {
		doc, err := db.Snapshot()
		if err != nil {
			return err
		}
		return doc.Save(path)
	}
	return nil
}

func runShell(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	db, err := openDB(path)
	if err != nil {
		return err
	}

	fmt.Printf("Graphvana v%s shell. Type :quit to exit, :explain <query> for plans.\n", version)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("gql> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit", line == ":q", line == ":exit":
			return nil
		case strings.HasPrefix(line, ":explain "):
			dump, err := db.Explain(strings.TrimPrefix(line, ":explain "))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Print(dump)
		case strings.HasPrefix(line, ":"):
			fmt.Fprintf(os.Stderr, "unknown command %s\n", line)
		default:
			res, err := db.Execute(line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			printResult(res.Result)
			if !res.Diff.Empty() {
				fmt.Printf("graph changed: +%d/-%d nodes, +%d/-%d edges\n",
					len(res.Diff.AddedNodes), len(res.Diff.RemovedNodes),
					len(res.Diff.AddedEdges), len(res.Diff.RemovedEdges))
			}
		}
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	dump, err := planner.DescribeQuery(args[0])
	if err != nil {
		return err
	}
	fmt.Print(dump)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d nodes, %d edges, %d styles, %d transformations)\n",
		args[0], len(doc.Graph.Nodes), len(doc.Graph.Edges),
		len(doc.Styles), len(doc.Transformations))
	return nil
}

// printResult renders a RETURN table with aligned columns.
func printResult(res *planner.Result) {
	if res == nil {
		return
	}
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(res.Rows))
	for ri, row := range res.Rows {
		cells[ri] = make([]string, len(row))
		for i, v := range row {
			s := v.String()
			cells[ri][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	printRow := func(parts []string) {
		for i, p := range parts {
			if i > 0 {
				fmt.Print("  ")
			}
			fmt.Printf("%-*s", widths[i], p)
		}
		fmt.Println()
	}
	printRow(res.Columns)
	sep := make([]string, len(res.Columns))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	printRow(sep)
	for _, row := range cells {
		printRow(row)
	}
	fmt.Printf("%d row(s)\n", len(res.Rows))
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TanveerShahriar/Thesis/internal/audit"
	"github.com/TanveerShahriar/Thesis/internal/catalog"
	"github.com/TanveerShahriar/Thesis/internal/estimate"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the function catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import [manifest]",
	Short: "Import a function manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [signature]",
	Short: "Show a catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete [signature]",
	Short: "Delete a catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogDelete,
}

var catalogEstimateCmd = &cobra.Command{
	Use:   "estimate [signature]",
	Short: "Ask the estimator service for a cost expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogEstimate,
}

var (
	catalogDB    string
	bodyFile     string
	estimatorURL string
)

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd, catalogShowCmd, catalogDeleteCmd, catalogEstimateCmd)

	catalogCmd.PersistentFlags().StringVar(&catalogDB, "db", "", "Path to SQLite database (default from config)")

	catalogEstimateCmd.Flags().StringVar(&bodyFile, "body-file", "", "File holding the function source")
	catalogEstimateCmd.Flags().StringVar(&estimatorURL, "url", "", "Estimator service URL (default from config)")
}

// openCatalog opens the store named by --db or the config file.
func openCatalog() (*store.Store, error) {
	path := catalogDB
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.DB
	}
	return store.New(path)
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	m, err := catalog.LoadManifest(args[0])
	if err != nil {
		return err
	}

	s, err := openCatalog()
	if err != nil {
		return err
	}
	defer s.Close()

	imported, err := catalog.Import(s, m)
	if err != nil {
		return err
	}
	audit.NewPDRWriter(s).Record(audit.ActionCatalogImport, m, "success", args[0],
		fmt.Sprintf("%d functions", len(imported)))

	fmt.Printf("Imported %d functions from %s\n", len(imported), args[0])
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return err
	}
	defer s.Close()

	fns, err := s.ListFunctions()
	if err != nil {
		return err
	}
	if len(fns) == 0 {
		fmt.Println("No functions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNATURE\tPARAMS\tSTATEMENTS\tCOST\tSOURCE")
	for _, fn := range fns {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			fn.Signature, strings.Join(fn.Params, ","), fn.StatementCount,
			truncate(fn.CostExpr, 30), truncate(fn.Source, 30))
	}
	w.Flush()
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return err
	}
	defer s.Close()

	fn, err := s.GetFunction(args[0])
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("function %s not found", args[0])
	}

	fmt.Printf("ID:          %s\n", fn.ID)
	fmt.Printf("Signature:   %s\n", fn.Signature)
	fmt.Printf("Name:        %s\n", fn.Name)
	fmt.Printf("Params:      %s\n", strings.Join(fn.Params, ", "))
	fmt.Printf("Types:       %s\n", strings.Join(fn.ParamTypes, ", "))
	fmt.Printf("Statements:  %d\n", fn.StatementCount)
	fmt.Printf("Cost:        %s\n", fn.CostExpr)
	fmt.Printf("Source:      %s\n", fn.Source)
	fmt.Printf("Updated:     %s\n", fn.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runCatalogDelete(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteFunction(args[0]); err != nil {
		return err
	}
	audit.NewPDRWriter(s).Record(audit.ActionCatalogDelete, args[0], "success", args[0], "")
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runCatalogEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	estCfg := cfg.Estimator
	if estimatorURL != "" {
		estCfg.URL = estimatorURL
	}
	remote, err := estimate.NewRemote(&estCfg)
	if err != nil {
		return err
	}

	var body string
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = string(data)
	}

	s, err := openCatalog()
	if err != nil {
		return err
	}
	defer s.Close()

	fn, err := s.GetFunction(args[0])
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("function %s not found", args[0])
	}

	res := remote.Estimate(context.Background(), fn, body)
	fn.CostExpr = res.Expression
	if _, err := s.UpsertFunction(fn); err != nil {
		return err
	}

	outcome := "success"
	details := fmt.Sprintf("attempts=%d", res.Attempts)
	if res.FellBack {
		outcome = "fallback"
		if res.Err != nil {
			details += " error=" + res.Err.Error()
		}
	}
	audit.NewPDRWriter(s).Record(audit.ActionEstimate, map[string]string{"function": fn.Signature, "body": body},
		outcome, fn.Signature, details)

	fmt.Printf("%s cost: %s (%s after %d attempts)\n", fn.Signature, res.Expression, outcome, res.Attempts)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

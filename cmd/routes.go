package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dutyplan/infra/logger"
	"github.com/kilianp07/dutyplan/infra/routestore"
	"github.com/kilianp07/dutyplan/pkg/routefile"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Stored route commands",
}

var routesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored routes",
	RunE:  runRoutesLs,
}

var routesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store every route of a yaml or json file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoutesImport,
}

func init() {
	routesCmd.AddCommand(routesLsCmd, routesImportCmd)
	rootCmd.AddCommand(routesCmd)
}

func runRoutesLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := routestore.Open(cfg.Storage, logger.New("routestore"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	routes, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tFROM\tTO\tBUSES\tCREATED")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%g\t%s\n",
			r.ID, r.RouteNumber, r.RouteName, r.FromTerminal, r.ToTerminal,
			r.BusesAssigned.Float(), r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runRoutesImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	docs, err := routefile.Load(args[0])
	if err != nil {
		return err
	}
	for i, d := range docs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("route %d: %w", i+1, err)
		}
	}
	store, err := routestore.Open(cfg.Storage, logger.New("routestore"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	for _, d := range docs {
		r, err := store.Create(cmd.Context(), d)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, r.RouteNumber)
	}
	return nil
}

package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/localrivet/latentfs"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/tools"
)

var (
	ingestSource string
	jsonOutput   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [text...]",
	Short: "Embed and store texts",
	Long: `Embed and store texts as new items.

Each argument is one item. With no arguments every non-blank line of stdin
is one item.

Example:
  latentfs ingest "black holes bend light" "ramen broth simmers for hours"
  cat notes.txt | latentfs ingest --source notes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		texts := args
		if len(texts) == 0 {
			lines, err := readLines(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			texts = lines
		}

		comps, _, _, err := openComponents()
		if err != nil {
			return err
		}
		defer comps.Close()

		var meta map[string]string
		if ingestSource != "" {
			meta = map[string]string{"source": ingestSource}
		}
		ids, err := comps.Organizer.Ingest(cmd.Context(), texts, meta)
		if err != nil {
			return err
		}

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List stored items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := openSeeded(cmd)
		if err != nil {
			return err
		}
		defer comps.Close()

		items, err := comps.Organizer.Items(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, items)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGROUP\tTEXT")
		for _, it := range items {
			group := it.GroupID
			if group == "" {
				group = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", it.ID, group, truncate(it.Text, 60))
		}
		return w.Flush()
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Rebuild and print the semantic folders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := openSeeded(cmd)
		if err != nil {
			return err
		}
		defer comps.Close()

		res, err := comps.Organizer.Groups(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, res)
		}
		printGroups(cmd, res.Groups, res.Diagnostics)
		return nil
	},
}

var reassignCmd = &cobra.Command{
	Use:   "reassign <item-id> <group-id>",
	Short: "Move an item toward a folder and rebuild",
	Long: `Nudge an item's vector toward a folder's centroid and rebuild the folders.

Group ids come from 'latentfs groups' (cluster_0, cluster_1, ...). The item
may land in a different folder than the target: the folders are rebuilt from
scratch after the move.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, _, _, err := openComponents()
		if err != nil {
			return err
		}
		defer comps.Close()

		res, err := comps.Organizer.Reassign(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, res)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Item %s is now in %s (similarity %.3f -> %.3f)\n",
			res.ItemID, res.NewGroupID, res.SimilarityBefore, res.SimilarityAfter)
		if res.ZeroNorm {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", tools.ZeroNormWarning)
		}
		if res.Stale {
			fmt.Fprintln(out, "Folders were not rebuilt; another rebuild ran moments ago.")
		}
		printGroups(cmd, res.Groups, res.Diagnostics)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "metadata source for the new items")
	for _, c := range []*cobra.Command{itemsCmd, groupsCmd, reassignCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	}
	rootCmd.AddCommand(ingestCmd, itemsCmd, groupsCmd, reassignCmd)
}

// openSeeded opens the components and seeds an empty store when configured.
func openSeeded(cmd *cobra.Command) (*latentfs.Components, error) {
	comps, cfg, log, err := openComponents()
	if err != nil {
		return nil, err
	}
	if cfg.Store.SeedOnEmpty {
		if err := latentfs.SeedIfEmpty(cmd.Context(), comps.Organizer, log); err != nil {
			comps.Close()
			return nil, err
		}
	}
	return comps, nil
}

func printGroups(cmd *cobra.Command, groups []model.Group, diags []model.Diagnostic) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tITEMS\tREPRESENTATIVE")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", g.ID, g.Name, len(g.MemberIDs), g.RepresentativeID)
	}
	w.Flush()

	for _, d := range diags {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s %s: %s\n", d.GroupID, d.Stage, d.Message)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kincore/internal/core"
	"kincore/internal/graph"
	"kincore/internal/infra/persistence/memory"
	"kincore/pkg/domain"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import records from a JSON snapshot in a single transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var snap memory.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", args[0], err)
			}
			res, err := a.svc.Apply(cmd.Context(), func(tx domain.Transaction) error {
				for _, e := range snap.Entities() {
					if _, err := tx.Create(e); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if a.format == "json" {
				violations := res.Violations
				if violations == nil {
					violations = []domain.Violation{}
				}
				return a.printJSON(map[string]any{"imported": snap.Len(), "violations": violations})
			}
			if err := a.printViolations(res.Violations); err != nil {
				return err
			}
			return a.printf("imported %d records\n", snap.Len())
		},
	}
}

func newFilterCmd(a *app) *cobra.Command {
	var namespace string
	parent := &cobra.Command{
		Use:   "filter",
		Short: "Manage and run named filters",
	}
	parent.PersistentFlags().StringVarP(&namespace, "namespace", "n", string(domain.NamespacePerson), "Record namespace")
	ns := func() (domain.Namespace, error) {
		parsed, ok := domain.ParseNamespace(namespace)
		if !ok {
			return "", fmt.Errorf("unknown namespace %q", namespace)
		}
		return parsed, nil
	}

	parent.AddCommand(
		&cobra.Command{
			Use:   "run NAME",
			Short: "Run a named filter over every record of the namespace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := ns()
				if err != nil {
					return err
				}
				matches, err := a.svc.RunFilter(cmd.Context(), n, args[0], nil)
				if err != nil {
					return err
				}
				return a.printRecords(n, matches, nil)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the named filters of the namespace",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				n, err := ns()
				if err != nil {
					return err
				}
				names := a.svc.Library().Names(n)
				if a.format == "json" {
					return a.printJSON(names)
				}
				return a.printf("%s", joinLines(names))
			},
		},
		&cobra.Command{
			Use:   "kinds",
			Short: "List the rule kinds available in the namespace",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				n, err := ns()
				if err != nil {
					return err
				}
				specs := core.DefaultRegistry().Kinds(n)
				if a.format == "json" {
					type kind struct {
						Kind   string   `json:"kind"`
						Name   string   `json:"name"`
						Params []string `json:"params"`
					}
					out := make([]kind, 0, len(specs))
					for _, s := range specs {
						out = append(out, kind{Kind: s.Kind, Name: s.Name, Params: s.Labels})
					}
					return a.printJSON(out)
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				for _, s := range specs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Kind, s.Category, strings.Join(s.Labels, " "))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "load FILE",
			Short: "Merge filters from a YAML document into the stored library",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				loaded, err := core.LoadLibrary(bytes.NewReader(raw), nil)
				if err != nil {
					return err
				}
				lib := a.svc.Library()
				for _, f := range loaded.Filters() {
					if err := lib.Add(f); err != nil {
						return err
					}
				}
				if err := core.SaveLibrary(cmd.Context(), a.filters, a.cfg.Filters.Library, lib); err != nil {
					return err
				}
				return a.printf("saved %d filters to %s\n", len(loaded.Filters()), a.cfg.Filters.Library)
			},
		},
	)
	return parent
}

type lineageFlags struct {
	generations int
	inclusive   bool
	allLinks    bool
}

func (f lineageFlags) options() []graph.Option {
	opts := []graph.Option{graph.InclusiveIf(f.inclusive)}
	if f.generations > 0 {
		opts = append(opts, graph.WithMaxGeneration(f.generations))
	}
	if f.allLinks {
		opts = append(opts, graph.AllLinks())
	}
	return opts
}

func bindLineageFlags(cmd *cobra.Command, f *lineageFlags, allLinks bool) {
	cmd.Flags().IntVarP(&f.generations, "generations", "g", 0, "Stop after this many generations (0 for no limit)")
	cmd.Flags().BoolVar(&f.inclusive, "inclusive", false, "Include the person themselves")
	cmd.Flags().BoolVar(&f.allLinks, "all-links", allLinks, "Follow every family link instead of only the first")
}

func newAncestorsCmd(a *app) *cobra.Command {
	var flags lineageFlags
	cmd := &cobra.Command{
		Use:   "ancestors ID",
		Short: "List the ancestors of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visits, err := a.svc.Ancestors(cmd.Context(), args[0], flags.options()...)
			if err != nil {
				return err
			}
			return a.printVisits(visits)
		},
	}
	bindLineageFlags(cmd, &flags, false)
	return cmd
}

func newDescendantsCmd(a *app) *cobra.Command {
	var flags lineageFlags
	cmd := &cobra.Command{
		Use:   "descendants ID",
		Short: "List the descendants of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visits, err := a.svc.Descendants(cmd.Context(), args[0], flags.options()...)
			if err != nil {
				return err
			}
			return a.printVisits(visits)
		},
	}
	bindLineageFlags(cmd, &flags, true)
	return cmd
}

func newPathCmd(a *app) *cobra.Command {
	var (
		deep     string
		shortest bool
	)
	cmd := &cobra.Command{
		Use:   "path ID [ID]",
		Short: "Show the people connecting two persons, or a person and a filter's matches",
		Long: `With two IDs, path prints the relationship path through the nearest
common ancestors. --shortest prints the ordered shortest chain through any
family link instead. With one ID and --deep FILTER, path prints everyone on
the shortest links to each person matched by the named filter.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case deep != "":
				if len(args) != 1 {
					return errors.New("--deep takes exactly one ID")
				}
				members, err := a.svc.DeepRelationshipPath(ctx, args[0], deep, nil)
				if err != nil {
					return err
				}
				return a.printRecords(domain.NamespacePerson, members, nil)
			case len(args) != 2:
				return errors.New("path needs two IDs")
			case shortest:
				chain, err := a.svc.ShortestPath(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if chain == nil {
					return fmt.Errorf("%s and %s are not connected", args[0], args[1])
				}
				return a.printRecords(domain.NamespacePerson, chain, nil)
			default:
				members, err := a.svc.RelationshipPath(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return a.printRecords(domain.NamespacePerson, members, nil)
			}
		},
	}
	cmd.Flags().StringVar(&deep, "deep", "", "Person filter whose matches are path targets")
	cmd.Flags().BoolVar(&shortest, "shortest", false, "Print the ordered shortest chain")
	return cmd
}

func newCommonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "common ID ID",
		Short: "Report whether two persons share an ancestor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shared, err := a.svc.CommonAncestor(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(map[string]bool{"common_ancestor": shared})
			}
			if shared {
				return a.printf("yes\n")
			}
			return a.printf("no\n")
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the integrity checks over the whole store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.CheckIntegrity(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.printViolations(res.Violations); err != nil {
				return err
			}
			if res.HasBlocking() {
				return errors.New("integrity check found blocking violations")
			}
			return nil
		},
	}
}

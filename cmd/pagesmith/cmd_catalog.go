// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/datatypes"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog [kind]",
		Short: "List the section variants in the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			metas := cat.All()
			if len(args) == 1 {
				kind, err := catalog.ParseKind(args[0])
				if err != nil {
					return err
				}
				if metas, err = cat.Lookup(kind); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), datatypes.NewCatalogResponse(metas), opts.pretty)
			}
			return printCatalog(cmd.OutOrStdout(), metas)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}

func printCatalog(w io.Writer, metas []*catalog.SectionMeta) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tSIZE\tDENSITY\tINTENSITY\tFLAGS\tDESCRIPTION")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			m.Ref(), m.EstimatedSize, m.Density, m.Intensity, flags(m), m.Description)
	}
	return tw.Flush()
}

func flags(m *catalog.SectionMeta) string {
	var f []string
	if m.HasCTA {
		f = append(f, "cta")
	}
	if m.HasAnimation {
		f = append(f, "motion")
	}
	if m.RequiresJS {
		f = append(f, "js")
	}
	if m.OverflowX {
		f = append(f, "overflow")
	}
	if len(f) == 0 {
		return "-"
	}
	return strings.Join(f, ",")
}

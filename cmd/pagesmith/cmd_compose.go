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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/datatypes"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
)

// errInfeasible is returned after the infeasibility report has been printed.
var errInfeasible = errors.New("composition is infeasible")

func newComposeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compose <request-file|->",
		Short: "Compose a page from a request file without a server",
		Long: `Reads a compose request (JSON or YAML) and prints the best sequence.
The request has the same shape as the body of POST /v1/compose.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			in, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			var body datatypes.ComposeRequest
			if err := datatypes.Decode(in, &body); err != nil {
				return err
			}

			composer := compose.NewComposer(catalog.Default(), rules.Default())
			req, bounds := body.ToCompose(cfg.ComposeBounds())
			res, err := composer.Compose(req, bounds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Infeasible != nil {
				if err := writeJSON(out, apperr.FromInfeasible(res.Infeasible).Response(), opts.pretty); err != nil {
					return err
				}
				return fmt.Errorf("%w: %s", errInfeasible, res.Infeasible.Reason)
			}
			return writeJSON(out, datatypes.NewComposeResponse(res), opts.pretty)
		},
	}
}

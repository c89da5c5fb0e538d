// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var root = &cobra.Command{
		Use:   "tabula",
		Short: "Inspect and transform tabular data files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd)
		},
	}
	root.PersistentFlags().Int("v", 0, "log verbosity (1 summaries, 4 details)")
	root.PersistentFlags().Bool("dev", false, "human readable log output")
	root.PersistentFlags().BoolP("quiet", "q", false, "silence status output")
	root.PersistentFlags().String("format", "table", "output format: 'table', 'csv', 'json' or 'snapshot'")
	root.PersistentFlags().String("delimiter", "", "CSV input delimiter (detected when empty)")
	root.PersistentFlags().Bool("no-header", false, "CSV input has no header line")
	addCommands(root)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Copyright 2026 The PlantGate Authors
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

// Command policylint loads the access policy from the environment, runs the
// startup validation, and prints the findings plus the operator summary.
// Exit status is non-zero when the policy would abort server boot.
package main

import (
	"fmt"
	"os"

	"github.com/plantgate/plantgate/internal/config"
)

func main() {
	cfg := config.New()
	result := cfg.Validate()

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, f := range result.Fatal {
		fmt.Printf("fatal: %s\n", f)
	}

	fmt.Println()
	fmt.Print(cfg.Summary())

	if len(result.Fatal) > 0 {
		fmt.Printf("\npolicy is invalid: %d fatal finding(s)\n", len(result.Fatal))
		os.Exit(1)
	}
	fmt.Printf("\npolicy is valid (%d warning(s))\n", len(result.Warnings))
}

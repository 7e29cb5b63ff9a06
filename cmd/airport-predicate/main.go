// Command airport-predicate compiles DuckDB filter pushdowns into
// predicates and applies them to Arrow data.
package main

import (
	"os"

	"github.com/hugr-lab/airport-predicate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Command taintpass-vet runs the taintpass analyzer as a standalone vet
// style checker.
//
//	taintpass-vet -entry=serve -source=1 ./...
package main

import (
	"github.com/picatz/taintpass/injection"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(injection.Analyzer)
}

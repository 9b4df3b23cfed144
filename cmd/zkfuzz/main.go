// Command zkfuzz is a circuit-fuzzing harness: it mutates field-element
// witnesses and inputs under coevolution to hunt for under-constrained and
// over-constrained zero-knowledge circuits.
package main

import "os"

func main() {
	os.Exit(Execute())
}

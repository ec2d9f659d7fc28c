// Command forecastctl runs the forecast engine offline against JSON series
// files: merging sources into a timeline, scoring accuracy and checking
// candle consistency.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

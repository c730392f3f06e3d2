// catalogctl reads and edits a running catalog server from the command line.
//
// Usage:
//
//	catalogctl fetch [--alternates] [--format RE] [--offline]
//	catalogctl watch [--alternates] [--interval 5s]
//	catalogctl ban X-0001:RE=1 X-0002:LI=0
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command pathfinder runs the static-analysis engine over a Solidity-like
// smart contract project; see cmd.Execute for the command surface.
package main

import (
	"fmt"
	"os"

	"github.com/shivasurya/code-pathfinder/sast-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

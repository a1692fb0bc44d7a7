// Package main is the entry of the flexmmu command.
package main

import "github.com/sarchlab/flexmmu/flexmmu/cmd"

func main() {
	cmd.Execute()
}

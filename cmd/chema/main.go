// cmd/chema/main.go
package main

import (
	cmd "github.com/chemalabs/chema/internal/commands"
)

// main starts the chema CLI application by delegating to the
// cobra root command defined in the commands package. It does not
// take any arguments and does not return a value.
func main() {
	cmd.Execute()
}

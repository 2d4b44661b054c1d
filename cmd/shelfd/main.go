// Command shelfd serves the datashelf dynamic CRUD surface.
package main

import "github.com/meshline/datashelf/internal/cli"

func main() {
	cli.Execute()
}

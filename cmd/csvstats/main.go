// Command csvstats is the terminal client for the CSV upload pipeline API.
package main

import "github.com/csvstats/csvstats/internal/cli"

func main() {
	cli.Execute()
}

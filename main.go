// Package main is the entry point for the atlasmetrics CLI, which fetches
// Atlas Conquest match records and publishes the site's statistics.
package main

import "github.com/pable/atlas-metrics/cmd"

func main() {
	cmd.Execute()
}

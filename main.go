package main

import (
	"os"

	"github.com/aspectumapp/osm2geojson/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

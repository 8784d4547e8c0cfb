package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var locateAttrs bool

// locateCmd represents the locate command
var locateCmd = &cobra.Command{
	Use:   "locate LAT LON",
	Short: "Find the municipality containing a coordinate",
	Long: `Look a WGS-84 coordinate up in the configured boundary shapefile
(geo.boundaries) and print the municipality it falls in.

Examples:
  munitax locate -- 40.9384 -73.8326
  munitax locate -- 40.9384 -73.8326 --attrs`,
	Args: cobra.ExactArgs(2),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().BoolVar(&locateAttrs, "attrs", false, "print every attribute of the matching polygon")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q", args[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q", args[1])
	}

	b, err := loadBoundaries()
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("no boundary layer configured: set geo.boundaries")
	}

	attrs, found := b.Attributes(lat, lon)
	if !found {
		fmt.Println("No municipality boundary contains that point")
		return nil
	}
	raw, _ := b.Locate(lat, lon)
	if id, ok := reg.Resolve(raw); ok {
		m, _ := reg.Get(id)
		fmt.Printf("Municipality      : %s (%s)\n", m.Name, m.ID)
		if m.SchoolDistrict != "" {
			fmt.Printf("School district   : %s\n", m.SchoolDistrict)
		}
	} else {
		fmt.Printf("Boundary          : %s %s[not in registry]%s\n", raw, colorRed, colorReset)
	}

	if locateAttrs {
		fmt.Println()
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			fmt.Printf("  %-16s: %s\n", k, attrs[k])
		}
	}
	return nil
}

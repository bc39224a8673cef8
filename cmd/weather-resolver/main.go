package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "weather-resolver"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Weather Resolver - resolve a place and fetch its weather",
	Long: `Weather Resolver turns a city name or device position into a single
normalized weather snapshot, falling back across geocoding and weather
providers.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

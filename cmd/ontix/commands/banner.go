package commands

import (
	"fmt"
	"strings"

	"github.com/teranos/ontix/logger"
	"github.com/teranos/ontix/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, addr, policy string, backends []string) {
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔════════════════════════════════════════════╗\n")
	fmt.Printf("   ║                                            ║\n")
	fmt.Printf("   ║    ██████  ███   ██ ████████ ██ ██   ██    ║\n")
	fmt.Printf("   ║   ██    ██ ████  ██    ██    ██  ██ ██     ║\n")
	fmt.Printf("   ║   ██    ██ ██ ██ ██    ██    ██   ███      ║\n")
	fmt.Printf("   ║   ██    ██ ██  ████    ██    ██  ██ ██     ║\n")
	fmt.Printf("   ║    ██████  ██   ███    ██    ██ ██   ██    ║\n")
	fmt.Printf("   ║                                            ║\n")
	fmt.Printf("   ║        federated ontology backend          ║\n")
	fmt.Printf("   ║                                            ║\n")
	fmt.Printf("   ╚════════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ ontix Info ────────────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	fmt.Printf("%s│%s Listening: %s\n", green, reset, addr)
	fmt.Printf("%s│%s Policy:    %s\n", green, reset, policy)
	fmt.Printf("%s│%s Backends:  %s\n", green, reset, strings.Join(backends, ", "))
	fmt.Printf("%s└─────────────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ Federated ontology API ready%s\n", yellow, bold, reset)
	fmt.Printf("%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}

// Command shortforged runs the shortforge daemon without the CLI, for service
// managers. It is equivalent to `shortforge serve`.
package main

import (
	"context"
	"log"

	"shortforge/internal/config"
	"shortforge/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(configPathFromEnv())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, runOptionsFromEnv()); err != nil {
		log.Fatalf("shortforged: %v", err)
	}
}

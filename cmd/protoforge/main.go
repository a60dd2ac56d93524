package main

import (
	"context"
	"os"

	protoforge "github.com/louisbranch/protoforge/internal/cmd/protoforge"
	platformcmd "github.com/louisbranch/protoforge/internal/platform/cmd"
	"github.com/louisbranch/protoforge/internal/platform/config"
)

func main() {
	ctx := context.Background()
	err := platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceProtoforge, func(ctx context.Context) error {
		return protoforge.Run(ctx, os.Args[1:], os.Stdout)
	})
	if err != nil {
		config.Exitf("protoforge: %v", err)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command recon recovers a component architecture from type facts.
//
// Usage:
//
//	recon decompose --facts facts.yaml
//	recon decompose --facts facts.yaml --reference expected.yaml --csv bench.csv
//	recon decompose --facts facts.yaml --watch
//	recon compare --produced produced.yaml --reference expected.yaml --facts facts.yaml
//	recon serve --config recon.yaml --port 8090
//
// Configuration is read from --config, then $RECON_CONFIG, then built-in
// defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

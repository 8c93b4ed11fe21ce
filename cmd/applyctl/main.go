// Command applyctl runs the job application pipeline from a terminal:
//
//	applyctl analyze --resume resume.pdf --job job.txt
//	applyctl connect
//	applyctl draft --resume resume.pdf --job-url https://example.com/jobs/1 --to jobs@example.com
package main

import (
	"fmt"
	"os"

	"jobapply-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

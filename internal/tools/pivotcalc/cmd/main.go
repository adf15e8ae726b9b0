package main

import (
	"fmt"
	"os"
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/tools/pivotcalc"
)

func main() {
	if err := pivotcalc.NewRootCmd(os.Stdout, time.Now).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pivotcalc:", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	lwrf "github.com/doismellburning/lwrf/src"
)

func main() {
	if code := lwrf.PulsesMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

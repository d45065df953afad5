package main

import (
	"os"

	lwrf "github.com/doismellburning/lwrf/src"
)

func main() {
	if code := lwrf.RecvMain(os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the LightwaveRF radio server.
 *
 *---------------------------------------------------------------*/

import (
	"os"

	lwrf "github.com/doismellburning/lwrf/src"
)

func main() {
	if code := lwrf.DaemonMain(os.Args[1:], os.Stderr); code != 0 {
		os.Exit(code)
	}
}

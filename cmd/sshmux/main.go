package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

const usage = `sshmux is a utility for working with the channel mux protocol

Usage:

  sshmux serve <addr>            run a command execution server
  sshmux exec <addr> <command>   run a command on a server
  sshmux pipe <addr>             bridge stdio to a server session
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "exec":
		err = cmdExec(os.Args[2:])
	case "pipe":
		err = cmdPipe(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// parseString reads a length-prefixed string from a request payload.
func parseString(b []byte) (string, []byte, bool) {
	if len(b) < 4 {
		return "", nil, false
	}
	length := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	rest := b[4:]
	if uint32(len(rest)) < length {
		return "", nil, false
	}
	return string(rest[:length]), rest[length:], true
}

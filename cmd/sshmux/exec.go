package main

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/wiremux/sshmux/mux"
)

func cmdExec(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: sshmux exec <addr> <command>")
	}
	sess, err := mux.DialTCP(args[0])
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()
	ch, err := sess.Open(ctx)
	if err != nil {
		return err
	}

	if err := ch.Exec(strings.Join(args[1:], " ")); err != nil {
		return err
	}

	go func() {
		io.Copy(ch, os.Stdin)
		ch.CloseWrite()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		io.Copy(os.Stdout, ch)
		wg.Done()
	}()
	go func() {
		io.Copy(os.Stderr, stderrReader{ch})
		wg.Done()
	}()
	wg.Wait()

	if err := ch.CloseWait(ctx); err != nil {
		return err
	}

	if sig, ok := ch.ExitSignal(); ok {
		return errors.Errorf("command killed by SIG%s: %s", sig.Name, sig.Message)
	}
	if status, ok := ch.ExitStatus(); ok && status != 0 {
		os.Exit(int(status))
	}
	return nil
}

type stderrReader struct {
	ch mux.Channel
}

func (r stderrReader) Read(p []byte) (int, error) {
	return r.ch.ReadExtended(p)
}

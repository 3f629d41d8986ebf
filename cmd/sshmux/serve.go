package main

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wiremux/sshmux/mux"
)

func cmdServe(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sshmux serve <addr>")
	}
	l, err := mux.ListenTCP(args[0])
	if err != nil {
		return err
	}
	log.WithField("addr", l.Addr()).Info("Listening")
	for {
		sess, err := l.Accept()
		if err != nil {
			return err
		}
		go serveSession(sess)
	}
}

func serveSession(sess *mux.Session) {
	defer sess.Close()
	for {
		ch, err := sess.Accept()
		if err != nil {
			return
		}
		go serveChannel(ch)
	}
}

// serveChannel answers channel requests until a process is started, then
// hosts the process on the channel.
func serveChannel(ch mux.Channel) {
	defer ch.Close()
	var env []string
	for req := range ch.Requests() {
		switch req.Type {
		case "env":
			name, rest, ok := parseString(req.Payload)
			if !ok {
				req.Reply(false)
				continue
			}
			value, _, ok := parseString(rest)
			if !ok {
				req.Reply(false)
				continue
			}
			env = append(env, name+"="+value)
			req.Reply(true)
		case "pty-req":
			// No terminal handling; accept so shells still start.
			req.Reply(true)
		case "shell":
			req.Reply(true)
			runCommand(ch, shellCommand(), env)
			return
		case "exec":
			command, _, ok := parseString(req.Payload)
			if !ok {
				req.Reply(false)
				continue
			}
			req.Reply(true)
			runCommand(ch, exec.Command(shellPath(), "-c", command), env)
			return
		default:
			req.Reply(false)
		}
	}
}

func shellPath() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func shellCommand() *exec.Cmd {
	return exec.Command(shellPath())
}

// extWriter sends process stderr over the channel's extended substream.
type extWriter struct {
	ch mux.Channel
}

func (w extWriter) Write(p []byte) (int, error) {
	return w.ch.WriteExtended(p)
}

func runCommand(ch mux.Channel, cmd *exec.Cmd, env []string) {
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = ch
	cmd.Stdout = ch
	cmd.Stderr = extWriter{ch}

	err := cmd.Run()
	var status uint32
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = uint32(exitErr.ExitCode())
		} else {
			log.WithError(err).WithField("channel", ch.ID()).Error("Command failed to run")
			status = 127
		}
	}
	ch.ReportExitStatus(status)
	ch.CloseWrite()
}

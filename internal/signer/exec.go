package signer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// CommandSigner implements Signer by running an external program that
// reads the content on stdin and prints the detached signature on stdout,
// e.g. "gpg --batch --detach-sign --local-user KEY".
type CommandSigner struct {
	Command []string
}

// NewCommandSigner creates a signer around the given argv
func NewCommandSigner(command []string) (*CommandSigner, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("signer command is empty")
	}
	return &CommandSigner{Command: command}, nil
}

// Begin starts the signer process
func (s *CommandSigner) Begin(ctx context.Context) (Session, error) {
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)

	sess := &commandSession{cmd: cmd}
	cmd.Stdout = &sess.stdout
	cmd.Stderr = &sess.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open signer stdin: %w", err)
	}
	sess.stdin = stdin

	logrus.Debugf("Starting signer: %s", strings.Join(s.Command, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start signer %s: %w", s.Command[0], err)
	}

	return sess, nil
}

type commandSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (s *commandSession) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *commandSession) Digest() ([]byte, error) {
	if err := s.stdin.Close(); err != nil {
		logrus.Debugf("Closing signer stdin: %v", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("signer %s failed: %w: %s", s.cmd.Path, err, strings.TrimSpace(s.stderr.String()))
	}
	if s.stdout.Len() == 0 {
		return nil, fmt.Errorf("signer %s produced no signature", s.cmd.Path)
	}
	return s.stdout.Bytes(), nil
}

// Package sandbox is the safe shell sandbox (§4.3): five ordered
// defense-in-depth layers applied before a command string is ever handed
// to exec.CommandContext, plus the process-group spawn discipline that
// bounds output and wall-clock time.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// BlockReason identifies which of the five layers rejected a command
// (§4.3, §7 "ShellBlocked").
type BlockReason string

const (
	ReasonInjection     BlockReason = "injection"
	ReasonNotAllowed    BlockReason = "not_allowed"
	ReasonBlocked       BlockReason = "blocked"
	ReasonSensitivePath BlockReason = "sensitive_path"
	ReasonBadVerb       BlockReason = "systemctl_verb"
)

// BlockedError is a structured rejection naming the layer that fired.
type BlockedError struct {
	Reason  BlockReason
	Command string
}

func (e *BlockedError) Error() string {
	if e.Reason == ReasonBlocked {
		return fmt.Sprintf("shell: blocked command: %s", e.Command)
	}
	return fmt.Sprintf("shell: %s: %s", e.Reason, e.Command)
}

// metacharacters is the raw-string scan set from layer 1.
var metacharacters = []string{";", "|", "`", "$(", ">", "<", "&&", "||", "\n", "\r"}

// allowedBins is the closed, read-only allowlist (layer 3).
var allowedBins = map[string]bool{
	"cat": true, "ls": true, "df": true, "free": true, "uname": true,
	"uptime": true, "ps": true, "ip": true, "ifconfig": true, "hostname": true,
	"sensors": true, "lscpu": true, "lsblk": true, "head": true, "tail": true,
	"wc": true, "du": true, "ss": true, "date": true, "dmesg": true,
	"journalctl": true, "systemctl": true, "vcgencmd": true, "top": true,
	"whoami": true,
}

// blockedBins overrides the allowlist even for a name that happens to
// collide with it (layer 4).
var blockedBins = map[string]bool{
	"rm": true, "dd": true, "sudo": true, "curl": true, "wget": true,
	"bash": true, "sh": true, "ssh": true, "reboot": true, "shutdown": true,
	"kill": true, "mkfs": true, "chmod": true, "chown": true,
}

// sensitivePaths are the substrings forbidden anywhere in argv (layer 5).
var sensitivePaths = []string{
	"/etc/shadow", "/root", "/.ssh", ".env", "credentials", ".aws/credentials",
}

// systemctlReadOnlyVerbs narrows systemctl to inspection verbs (layer 6).
var systemctlReadOnlyVerbs = map[string]bool{
	"status": true, "is-active": true, "is-enabled": true,
	"list-units": true, "show": true,
}

const (
	maxOutputBytes = 8 * 1024
	execTimeout    = 5 * time.Second
	truncateMarker = "\n... [output truncated]"
)

// Validate runs the five-layer check against a raw command string,
// returning the tokenized argv on success or a *BlockedError naming the
// rejecting layer.
func Validate(raw string) ([]string, error) {
	for _, meta := range metacharacters {
		if strings.Contains(raw, meta) {
			return nil, &BlockedError{Reason: ReasonInjection, Command: raw}
		}
	}

	argv := strings.Fields(raw)
	if len(argv) == 0 {
		return nil, &BlockedError{Reason: ReasonInjection, Command: raw}
	}

	program := argv[0]
	if blockedBins[program] {
		return nil, &BlockedError{Reason: ReasonBlocked, Command: program}
	}
	if !allowedBins[program] {
		return nil, &BlockedError{Reason: ReasonNotAllowed, Command: program}
	}

	joined := strings.ToLower(strings.Join(argv, " "))
	for _, p := range sensitivePaths {
		if strings.Contains(joined, strings.ToLower(p)) {
			return nil, &BlockedError{Reason: ReasonSensitivePath, Command: raw}
		}
	}

	if program == "systemctl" {
		if len(argv) < 2 || !systemctlReadOnlyVerbs[argv[1]] {
			return nil, &BlockedError{Reason: ReasonBadVerb, Command: raw}
		}
	}

	return argv, nil
}

// Result is the bounded subprocess outcome: exit status non-zero is not
// itself a failure (§4.3) — the caller reports Completed with this
// output as response_text regardless of ExitCode.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
	Killed   bool
}

// Sandbox spawns validated commands directly — never through a shell
// interpreter — with process-group isolation, a bounded output buffer,
// and a hard wall-clock timeout.
type Sandbox struct {
	logger *zap.Logger
}

// New constructs a Sandbox.
func New(logger *zap.Logger) *Sandbox {
	return &Sandbox{logger: logger}
}

// RunCommand adapts Run to the executor's narrow service.ShellRunner
// contract: output plus exit code, with sanitizer rejections and spawn
// failures surfaced as err so the executor maps them onto a Failed
// response (§4.2 "Shell").
func (s *Sandbox) RunCommand(ctx context.Context, raw string) (string, int, error) {
	result, err := s.Run(ctx, raw)
	if err != nil {
		return "", 0, err
	}
	return result.Output, result.ExitCode, nil
}

// Run validates raw, then spawns it. It returns a *BlockedError directly
// when validation fails, so callers can map BlockReason onto the
// ShellBlocked error code (§7) without re-parsing the message.
func (s *Sandbox) Run(ctx context.Context, raw string) (*Result, error) {
	argv, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	cmdPath, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, &BlockedError{Reason: ReasonNotAllowed, Command: argv[0]}
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, cmdPath, argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "LANG=C"}

	var buf boundedBuffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	s.logger.Info("shell sandbox executing",
		zap.String("program", argv[0]), zap.Strings("argv", argv[1:]))

	runErr := cmd.Run()
	result := &Result{
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.Killed = true
		result.ExitCode = -1
		killProcessGroup(cmd)
		s.logger.Warn("shell sandbox killed on timeout", zap.String("program", argv[0]))
		return result, fmt.Errorf("shell: timeout after %s", execTimeout)
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("shell: exec failed: %w", runErr)
		}
	}

	return result, nil
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// boundedBuffer caps total writes at maxOutputBytes, appending a
// truncation marker the first time the cap is exceeded (§4.3).
type boundedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len() >= maxOutputBytes {
		b.truncated = true
		return len(p), nil
	}
	remaining := maxOutputBytes - b.buf.Len()
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncateMarker
	}
	return b.buf.String()
}

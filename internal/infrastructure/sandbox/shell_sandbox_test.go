package sandbox

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func sandboxTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestValidate_AllowsKnownReadOnlyBinary(t *testing.T) {
	argv, err := Validate("df -h")
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if len(argv) != 2 || argv[0] != "df" || argv[1] != "-h" {
		t.Errorf("unexpected argv: %v", argv)
	}
}

func TestValidate_RejectsShellMetacharacters(t *testing.T) {
	cases := []string{"ls; rm -rf /", "cat /etc/passwd | mail x", "ls `whoami`", "df $(whoami)", "ls > /etc/passwd"}
	for _, raw := range cases {
		_, err := Validate(raw)
		if err == nil {
			t.Errorf("expected injection rejection for %q", raw)
			continue
		}
		blocked, ok := err.(*BlockedError)
		if !ok || blocked.Reason != ReasonInjection {
			t.Errorf("%q: expected ReasonInjection, got %v", raw, err)
		}
	}
}

func TestValidate_RejectsBlockedBinaryEvenIfAllowlisted(t *testing.T) {
	_, err := Validate("rm -rf /tmp")
	blocked, ok := err.(*BlockedError)
	if !ok || blocked.Reason != ReasonBlocked {
		t.Fatalf("expected ReasonBlocked, got %v", err)
	}
}

func TestValidate_RejectsBinaryNotOnAllowlist(t *testing.T) {
	_, err := Validate("python3 exploit.py")
	blocked, ok := err.(*BlockedError)
	if !ok || blocked.Reason != ReasonNotAllowed {
		t.Fatalf("expected ReasonNotAllowed, got %v", err)
	}
}

func TestValidate_RejectsSensitivePaths(t *testing.T) {
	_, err := Validate("cat /etc/shadow")
	blocked, ok := err.(*BlockedError)
	if !ok || blocked.Reason != ReasonSensitivePath {
		t.Fatalf("expected ReasonSensitivePath, got %v", err)
	}
}

func TestValidate_RestrictsSystemctlToReadOnlyVerbs(t *testing.T) {
	_, err := Validate("systemctl restart networking")
	blocked, ok := err.(*BlockedError)
	if !ok || blocked.Reason != ReasonBadVerb {
		t.Fatalf("expected ReasonBadVerb for a write verb, got %v", err)
	}

	argv, err := Validate("systemctl status networking")
	if err != nil {
		t.Fatalf("expected status to be allowed, got %v", err)
	}
	if len(argv) != 3 {
		t.Errorf("unexpected argv: %v", argv)
	}
}

func TestValidate_RejectsEmptyCommand(t *testing.T) {
	_, err := Validate("   ")
	if err == nil {
		t.Error("expected an empty command to be rejected")
	}
}

func TestSandbox_RunCommand_AllowedBinaryProducesOutput(t *testing.T) {
	sb := New(sandboxTestLogger())
	output, exitCode, err := sb.RunCommand(context.Background(), "hostname")
	if err != nil {
		t.Fatalf("unexpected error running an allowed binary: %v", err)
	}
	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if output == "" {
		t.Error("expected non-empty hostname output")
	}
}

func TestSandbox_RunCommand_BlockedCommandNeverSpawns(t *testing.T) {
	sb := New(sandboxTestLogger())
	_, _, err := sb.RunCommand(context.Background(), "rm -rf /")
	if err == nil {
		t.Fatal("expected a blocked command to error without spawning")
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInput(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "9.txt")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	sample := "7,1\n11,1\n11,7\n9,7\n9,5\n2,5\n2,3\n7,3\n"
	notchU := "0,0\n6,0\n6,6\n4,6\n4,2\n2,2\n2,6\n0,6\n"

	cases := []struct {
		name     string
		args     func(t *testing.T) []string
		wantCode int
		wantOut  string
	}{
		{
			name:    "sample",
			args:    func(t *testing.T) []string { return []string{"-input", writeInput(t, sample)} },
			wantOut: "Answer 1 is: 50\nAnswer 2 is: 24\n",
		},
		{
			name:    "notch sides",
			args:    func(t *testing.T) []string { return []string{"-input", writeInput(t, notchU)} },
			wantOut: "Answer 1 is: 49\nAnswer 2 is: 49\n",
		},
		{
			name: "notch perimeter",
			args: func(t *testing.T) []string {
				return []string{"-input", writeInput(t, notchU), "-containment", "perimeter"}
			},
			wantOut: "Answer 1 is: 49\nAnswer 2 is: 21\n",
		},
		{
			name:     "missing file",
			args:     func(t *testing.T) []string { return []string{"-input", filepath.Join(t.TempDir(), "nope.txt")} },
			wantCode: 1,
			wantOut:  "Failed with error: ",
		},
		{
			name:     "diagonal edge",
			args:     func(t *testing.T) []string { return []string{"-input", writeInput(t, "0,0\n1,1\n0,1\n")} },
			wantCode: 1,
			wantOut:  "Failed with error: ",
		},
		{
			name:     "bad flag",
			args:     func(*testing.T) []string { return []string{"-nope"} },
			wantCode: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args(t), &stdout, &stderr)
			if code != tc.wantCode {
				t.Fatalf("code=%d want %d (stdout %q stderr %q)", code, tc.wantCode, stdout.String(), stderr.String())
			}
			if tc.wantCode == 0 && stdout.String() != tc.wantOut {
				t.Fatalf("stdout=%q want %q", stdout.String(), tc.wantOut)
			}
			if tc.wantCode == 1 && !strings.HasPrefix(stdout.String(), tc.wantOut) {
				t.Fatalf("stdout=%q want prefix %q", stdout.String(), tc.wantOut)
			}
		})
	}
}

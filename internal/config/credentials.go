package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordEnv overrides the configured SSO password when set. Keeps the
// password out of the settings file on shared machines.
const PasswordEnv = "WHOHASSEEN_SSO_PASSWORD"

// ResolvePassword returns the SSO password from config, environment, or an
// interactive no-echo prompt, in that order. The prompt is only reached when
// passive SSO has already failed, so blocking on stdin here is acceptable.
func (c Config) ResolvePassword() (string, error) {
	if c.SSOPassword != "" {
		return c.SSOPassword, nil
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return PromptPassword(fmt.Sprintf("Enter Tableau password for %s: ", c.SSOUsername))
}

// PromptPassword reads a password from the terminal without echo. Falls back
// to a plain line read when stdin is not a terminal (piped input in tests or
// scripts).
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

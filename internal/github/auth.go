// Package github fetches documents from GitHub repositories.
package github

import (
	"os"
	"os/exec"
	"strings"
)

const (
	// EnvGitHubToken is the environment variable for fallback token auth.
	EnvGitHubToken = "KEYFIT_GITHUB_TOKEN"
)

// GetToken resolves a GitHub token using the auth chain.
// Priority: 1) gh auth token, 2) KEYFIT_GITHUB_TOKEN env.
// An empty token means public access only.
func GetToken() string {
	if token, err := GetTokenFromGHCLI(); err == nil && token != "" {
		return token
	}
	return GetTokenFromEnv()
}

// GetTokenFromGHCLI executes `gh auth token` to get token.
func GetTokenFromGHCLI() (string, error) {
	output, err := exec.Command("gh", "auth", "token").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// GetTokenFromEnv reads KEYFIT_GITHUB_TOKEN.
func GetTokenFromEnv() string {
	return os.Getenv(EnvGitHubToken)
}

// AuthMethod describes which source GetToken would use.
func AuthMethod() string {
	if token, err := GetTokenFromGHCLI(); err == nil && token != "" {
		return "gh CLI"
	}
	if GetTokenFromEnv() != "" {
		return EnvGitHubToken
	}
	return "none (public repositories only)"
}

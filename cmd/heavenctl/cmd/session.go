package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type sessionFile struct {
	SessionId    string            `json:"session_id"`
	ExtraCookies map[string]string `json:"extra_cookies"`
}

func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".heavenctl-session.json"), nil
}

func saveSession(session sessionFile) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	contents, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	// the session cookie is a credential, keep it owner-only
	return os.WriteFile(path, contents, 0600)
}

func loadSession() (sessionFile, error) {
	path, err := sessionPath()
	if err != nil {
		return sessionFile{}, err
	}
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sessionFile{}, fmt.Errorf("no session found, run 'heavenctl login' first")
	}
	if err != nil {
		return sessionFile{}, err
	}
	var session sessionFile
	err = json.Unmarshal(contents, &session)
	if err != nil {
		return sessionFile{}, err
	}
	return session, nil
}

package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type fileAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type fileDoc struct {
	Accounts []fileAccount `json:"accounts"`
}

// LoadFile reads a {"accounts":[{username,password,enabled?,notes?}]}
// document from disk.
func LoadFile(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	return fromFileAccounts(doc.Accounts), nil
}

// ParseEnv decodes an environment-style account list. Three mutually
// exclusive encodings are tried in order: a JSON object with an "accounts"
// array, a flat JSON array of account objects, and comma-separated
// "user:pass" pairs. A malformed JSON payload falls through to the pair
// parser so passwords containing braces still have a chance to load.
func ParseEnv(s string) ([]Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "{") {
		var doc fileDoc
		if err := json.Unmarshal([]byte(s), &doc); err == nil {
			return fromFileAccounts(doc.Accounts), nil
		}
	}
	if strings.HasPrefix(s, "[") {
		var arr []fileAccount
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return fromFileAccounts(arr), nil
		}
	}

	var accs []Account
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || strings.HasPrefix(pair, "{") || strings.HasPrefix(pair, `"`) {
			continue
		}
		user, pass, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		accs = append(accs, Account{
			Username: strings.TrimSpace(user),
			Password: strings.TrimSpace(pass),
			Enabled:  true,
		})
	}
	if len(accs) == 0 {
		return nil, fmt.Errorf("no accounts recognized in environment value")
	}
	return accs, nil
}

func fromFileAccounts(in []fileAccount) []Account {
	accs := make([]Account, 0, len(in))
	for _, fa := range in {
		if fa.Username == "" || fa.Password == "" {
			continue
		}
		enabled := true
		if fa.Enabled != nil {
			enabled = *fa.Enabled
		}
		accs = append(accs, Account{
			Username: fa.Username,
			Password: fa.Password,
			Enabled:  enabled,
			Notes:    fa.Notes,
		})
	}
	return accs
}

// Browser session capture from "Copy as cURL" commands.
package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// sessionHeaders lists the headers replayed against the library server.
// Everything else in a browser cURL command (accept, sec-fetch-*, ...) is noise.
var sessionHeaders = map[string]bool{
	"x-csrftoken":     true,
	"referer":         true,
	"user-agent":      true,
	"accept-language": true,
	"authorization":   true,
}

// Session holds the browser session replayed on every request to the library server.
type Session struct {
	Headers map[string]string `json:"headers"`
	Cookie  string            `json:"cookie"`
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(path string) (*Session, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts session headers and cookie.
//
// A -b cookie takes precedence over a Cookie header.
func ParseCurlCommand(data []byte) (*Session, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var headerCookie string

	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := splitHeader(firstGroup(match))
		if !ok {
			continue
		}

		lower := strings.ToLower(key)
		switch {
		case lower == "cookie":
			if headerCookie == "" {
				headerCookie = value
			}
		case sessionHeaders[lower]:
			headers[key] = value
		}
	}

	cookie := headerCookie
	if m := cookieRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		cookie = firstGroup(m)
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("%w: no session headers found in curl command", ErrInvalidInput)
	}

	return &Session{Headers: headers, Cookie: cookie}, nil
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

func splitHeader(line string) (string, string, bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// CSRFToken returns the CSRF token from the X-CSRFToken header, falling back to the csrftoken cookie.
func (s *Session) CSRFToken() string {
	for k, v := range s.Headers {
		if strings.EqualFold(k, "x-csrftoken") {
			return v
		}
	}
	for _, part := range strings.Split(s.Cookie, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && name == "csrftoken" {
			return value
		}
	}
	return ""
}

// Apply copies the session onto an outgoing request.
func (s *Session) Apply(req *http.Request) {
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}
	if s.Cookie != "" {
		req.Header.Set("Cookie", s.Cookie)
	}
	if token := s.CSRFToken(); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
}

// SaveSession writes the session as JSON, readable only by the current user.
func SaveSession(path string, s *Session) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadSession reads a session saved by [SaveSession].
//
// A missing file yields [ErrMissingSession].
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSession, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: session file is not valid JSON: %v", ErrInvalidConfig, err)
	}
	return &s, nil
}

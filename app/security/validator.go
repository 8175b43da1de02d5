package security

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/errs"
)

// Fixed deny patterns checked against the raw command string before any
// tokenization. Allow-lists come from configuration; these do not.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+-[a-zA-Z]*r[a-zA-Z]*f`),
	regexp.MustCompile(`rm\s+-[a-zA-Z]*f[a-zA-Z]*r`),
	regexp.MustCompile(`rm\s+--recursive`),
	regexp.MustCompile(`[;&]\s*rm\s`),
	regexp.MustCompile(`\|\s*(sh|bash|zsh)\b`),
	regexp.MustCompile(`(curl|wget)[^|;]*\|`),
	regexp.MustCompile(`>\s*/dev/`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`\bmkfs\.`),
	regexp.MustCompile(`\bsudo\s`),
	regexp.MustCompile(`\bsu\s+-`),
	regexp.MustCompile(`\bchown\s`),
	regexp.MustCompile(`\bsystemctl\s`),
	regexp.MustCompile(`\bcrontab\s`),
	regexp.MustCompile(`/etc/(passwd|shadow)`),
}

type Validator struct {
	cfg         configs.Security
	allowedCmds map[string]struct{}
}

func NewValidator(cfg configs.Security) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedCommands))
	for _, cmd := range cfg.AllowedCommands {
		allowed[cmd] = struct{}{}
	}
	return &Validator{cfg: cfg, allowedCmds: allowed}
}

// ValidateToolCall gates a proposed tool call before dispatch. Routing is
// by tool-name prefix, so every tool family shares one policy.
func (v *Validator) ValidateToolCall(name string, params map[string]any) error {
	for key, value := range params {
		s, ok := value.(string)
		if !ok {
			continue
		}
		if len(s) > v.cfg.MaxArgLength {
			return errs.New(errs.KindSecurity, "argument %q exceeds maximum length %d", key, v.cfg.MaxArgLength)
		}
	}

	switch {
	case strings.HasPrefix(name, "shell_"):
		command, _ := params["command"].(string)
		return v.ValidateShellCommand(command)
	case strings.HasPrefix(name, "file_"):
		for _, key := range []string{"path", "source", "destination", "directory"} {
			if raw, ok := params[key].(string); ok && raw != "" {
				if _, err := v.ValidateFilePath(raw); err != nil {
					return err
				}
			}
		}
	case strings.HasPrefix(name, "browser_"):
		if raw, ok := params["url"].(string); ok && raw != "" {
			return v.ValidateNetworkTarget(raw)
		}
	}
	return nil
}

func (v *Validator) ValidateShellCommand(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return errs.New(errs.KindSecurity, "empty command not allowed")
	}
	if strings.Count(command, `"`)%2 != 0 || strings.Count(command, `'`)%2 != 0 {
		return errs.New(errs.KindSecurity, "unparsable command: unbalanced quotes")
	}

	for _, pattern := range forbiddenPatterns {
		if pattern.MatchString(command) {
			return errs.New(errs.KindSecurity, "command matches forbidden pattern %q", pattern.String())
		}
	}

	tokens := strings.Fields(command)
	base := filepath.Base(tokens[0])
	if _, ok := v.allowedCmds[base]; !ok {
		return errs.New(errs.KindSecurity, "command %q is not on the allow-list", base)
	}
	return nil
}

// ValidateFilePath resolves path to canonical absolute form and checks it
// lives under one of the configured roots. Relative paths are anchored at
// the first allowed root, the same anchor the file sandbox uses. The
// resolved path is returned so callers operate on it rather than the raw
// input.
func (v *Validator) ValidateFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errs.New(errs.KindSecurity, "empty path not allowed")
	}
	if len(v.cfg.AllowedRoots) == 0 {
		return "", errs.New(errs.KindConfig, "no allowed roots configured for file access")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.cfg.AllowedRoots[0], path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errs.Wrap(errs.KindSecurity, err, "invalid path %q", path)
	}
	resolved := canonical(abs)

	for _, root := range v.cfg.AllowedRoots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if withinRoot(canonical(rootAbs), resolved) {
			return resolved, nil
		}
	}
	return "", errs.New(errs.KindSecurity, "path %q is outside allowed directories", path)
}

func (v *Validator) ValidateNetworkTarget(rawURL string) error {
	if len(v.cfg.AllowedDomains) == 0 {
		return errs.New(errs.KindConfig, "no allowed domains configured for network access")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errs.Wrap(errs.KindSecurity, err, "unparsable url %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errs.New(errs.KindSecurity, "protocol %q is not allowed", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errs.New(errs.KindSecurity, "url %q has no host", rawURL)
	}

	if port := parsed.Port(); port != "" {
		for _, blocked := range v.cfg.BlockedPorts {
			if port == fmt.Sprint(blocked) {
				return errs.New(errs.KindSecurity, "port %s is blocked", port)
			}
		}
	}

	for _, domain := range v.cfg.AllowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}
	return errs.New(errs.KindSecurity, "domain %q is not on the allow-list", host)
}

// canonical follows symlinks on the deepest existing ancestor so a link
// out of a sandbox cannot smuggle a path past the root check.
func canonical(abs string) string {
	rest := ""
	for cur := filepath.Clean(abs); ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Clean(filepath.Join(resolved, rest))
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Clean(abs)
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func withinRoot(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package har

import (
	"path"
	"strings"

	"github.com/yourorg/docpilot/internal/config"
)

// FilterConfig is an alias of config.HARConfig.
type FilterConfig = config.HARConfig

// keep reports whether a captured request looks like API traffic.
func keep(method, urlPath, responseType string, cfg FilterConfig) bool {
	if strings.EqualFold(method, "OPTIONS") {
		return false
	}
	if hasIgnoredExtension(urlPath, cfg.IgnoreExtensions) {
		return false
	}
	if matchesContentType(responseType, cfg.IgnoreContentTypes) {
		return false
	}
	return !hasIgnoredPath(urlPath, cfg.IgnorePaths)
}

func hasIgnoredExtension(p string, exts []string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(strings.TrimSpace(e)) == ext {
			return true
		}
	}
	return false
}

func hasIgnoredPath(p string, prefixes []string) bool {
	for _, pref := range prefixes {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

// matchesContentType supports exact types and type/* wildcards.
func matchesContentType(ct string, ignores []string) bool {
	if strings.TrimSpace(ct) == "" {
		return false
	}
	base := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	for _, p := range ignores {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/*") {
			if strings.HasPrefix(base, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if base == p {
			return true
		}
	}
	return false
}

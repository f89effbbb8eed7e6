package config

import "strings"

// RewritePath applies the first matching rule to path.
// After a match, backslashes in the remainder are turned into forward slashes
// so UNC-style paths become valid container paths.
func RewritePath(path string, rules []PathRewrite) string {
	for _, rule := range rules {
		if rule.Prefix == "" || !strings.HasPrefix(path, rule.Prefix) {
			continue
		}
		rest := strings.ReplaceAll(strings.TrimPrefix(path, rule.Prefix), `\`, "/")
		return rule.Replacement + rest
	}
	return path
}

// ResolvePaths computes the library roots used for discovery.
// It must run again after the raw roots or rewrite rules change.
func (c *Config) ResolvePaths() {
	c.Discovery.ResolvedMoviesRoot = RewritePath(c.Discovery.MoviesRoot, c.PathRewrites)
	c.Discovery.ResolvedShowsRoot = RewritePath(c.Discovery.ShowsRoot, c.PathRewrites)
}

package importer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
)

var whitespace = regexp.MustCompile(`\s+`)

// IsCurl reports whether content looks like a curl command.
func IsCurl(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "curl ") || strings.HasPrefix(trimmed, "curl\t")
}

// ParseCurl turns a curl command into a saved request. Data flags imply
// POST unless a method was given; -u becomes a Basic Authorization header.
func ParseCurl(cmd string) (core.Item, error) {
	cmd = strings.ReplaceAll(cmd, "\\\r\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	cmd = whitespace.ReplaceAllString(strings.TrimSpace(cmd), " ")

	tokens := tokenize(cmd)
	if len(tokens) == 0 || tokens[0] != "curl" {
		return core.Item{}, fmt.Errorf("%w: not a curl command", core.ErrParse)
	}

	var (
		method   = ""
		url      string
		body     string
		hasBody  bool
		headers  []core.CollectionHeader
		setValue = func(key, value string) {
			for i := range headers {
				if headers[i].Key == key {
					headers[i].Value = value
					return
				}
			}
			headers = append(headers, core.CollectionHeader{Key: key, Value: value, Type: "text"})
		}
	)

	next := func(i int) (string, bool) {
		if i+1 < len(tokens) {
			return tokens[i+1], true
		}
		return "", false
	}

	for i := 1; i < len(tokens); i++ {
		token := tokens[i]
		switch token {
		case "-X", "--request":
			if v, ok := next(i); ok {
				method = strings.ToUpper(v)
				i++
			}
		case "-H", "--header":
			if v, ok := next(i); ok {
				if idx := strings.Index(v, ":"); idx > 0 {
					setValue(strings.TrimSpace(v[:idx]), strings.TrimSpace(v[idx+1:]))
				}
				i++
			}
		case "-d", "--data", "--data-raw", "--data-binary":
			if v, ok := next(i); ok {
				body, hasBody = v, true
				i++
			}
		case "--data-urlencode":
			if v, ok := next(i); ok {
				if body != "" {
					body += "&"
				}
				body += v
				hasBody = true
				i++
			}
		case "--json":
			if v, ok := next(i); ok {
				body, hasBody = v, true
				setValue("Content-Type", "application/json")
				setValue("Accept", "application/json")
				i++
			}
		case "-u", "--user":
			if v, ok := next(i); ok {
				setValue("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(v)))
				i++
			}
		case "-A", "--user-agent":
			if v, ok := next(i); ok {
				setValue("User-Agent", v)
				i++
			}
		case "-e", "--referer":
			if v, ok := next(i); ok {
				setValue("Referer", v)
				i++
			}
		case "-b", "--cookie":
			if v, ok := next(i); ok {
				setValue("Cookie", v)
				i++
			}
		case "--compressed":
			setValue("Accept-Encoding", "gzip, deflate, br")
		case "-I", "--head":
			method = "HEAD"
		case "-G", "--get":
			method = "GET"
		case "-o", "--output", "--url":
			if v, ok := next(i); ok {
				if token == "--url" {
					url = v
				}
				i++
			}
		case "-L", "--location", "-k", "--insecure", "-s", "--silent",
			"-S", "--show-error", "-v", "--verbose", "-O", "--remote-name":
		default:
			if strings.HasPrefix(token, "-") {
				if v, ok := next(i); ok && !strings.HasPrefix(v, "-") && !looksLikeURL(v) {
					i++
				}
				continue
			}
			if url == "" {
				url = token
			}
		}
	}

	if url == "" {
		return core.Item{}, fmt.Errorf("%w: no URL found in curl command", core.ErrParse)
	}

	if method == "" {
		method = "GET"
		if hasBody {
			method = "POST"
		}
	}
	m, err := core.ParseMethod(method)
	if err != nil {
		return core.Item{}, err
	}

	item := core.Item{
		Name: nameFromURL(url),
		Request: core.CollectionRequest{
			Method: m,
			URL:    core.URL{Raw: url},
			Header: headers,
		},
	}
	if hasBody {
		item.Request.Body = &core.CollectionBody{
			Mode:    "raw",
			Raw:     body,
			Options: &core.BodyOptions{Raw: &core.RawOptions{Language: bodyLanguage(body)}},
		}
	}
	return item, nil
}

func bodyLanguage(body string) string {
	if json.Valid([]byte(body)) {
		return "json"
	}
	return "text"
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://")
}

// tokenize splits a command line on blanks, honouring quotes and escapes.
func tokenize(cmd string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		escaped bool
		started bool
	)

	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	for _, r := range cmd {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			started = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return tokens
}

// nameFromURL uses the last path segment, falling back to the host.
func nameFromURL(raw string) string {
	name := raw
	if idx := strings.Index(name, "://"); idx >= 0 {
		name = name[idx+3:]
	}
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}

	host, path, _ := strings.Cut(name, "/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}

	host, _, _ = strings.Cut(host, ":")
	return host
}

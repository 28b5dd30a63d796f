package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/atikulmunna/logrank/internal/model"
	"github.com/spf13/cast"
)

// AccessLogPattern decomposes a common/combined access-log line:
// host ident authuser [date] "request" status bytes.
// Group 1 is the client address, group 6 the status code.
const AccessLogPattern = `(\S+) (\S+) (\S+) \[(.*?)\] "(\S+ .*?)" (\d{3}) (\S+)`

const (
	addressGroup = 1
	statusGroup  = 6
)

// Parser converts a raw line into a Record. The boolean is false when the
// line is rejected; rejection is an expected outcome, not an error.
type Parser interface {
	Parse(line model.RawLine) (model.Record, bool)
}

// New returns the parser registered under format. pattern is only used by
// the "regex" format.
func New(format, pattern string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "clf", "combined":
		return NewAccessLogParser(), nil
	case "json":
		return NewJSONParser(), nil
	case "auto":
		return NewAutoParser(), nil
	case "regex":
		if pattern == "" {
			return nil, fmt.Errorf("regex format requires a pattern")
		}
		return NewRegexParser(pattern)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Access log parser (Common/Combined Log Format)
// ---------------------------------------------------------------------------

// AccessLogParser matches lines against AccessLogPattern.
// The match may start anywhere in the line.
type AccessLogParser struct {
	re *regexp.Regexp
}

func NewAccessLogParser() *AccessLogParser {
	return &AccessLogParser{re: regexp.MustCompile(AccessLogPattern)}
}

func (p *AccessLogParser) Parse(line model.RawLine) (model.Record, bool) {
	m := p.re.FindStringSubmatch(line.Text)
	if m == nil {
		return model.Record{}, false
	}
	return record(m[addressGroup], m[statusGroup])
}

// ---------------------------------------------------------------------------
// Regex parser (user-defined patterns)
// ---------------------------------------------------------------------------

// RegexParser uses a user-supplied pattern. The address and status are read
// from the named groups "ip" and "status" when present, otherwise from
// groups 1 and 6 as in AccessLogPattern.
type RegexParser struct {
	re      *regexp.Regexp
	address int
	status  int
}

func NewRegexParser(pattern string) (*RegexParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	p := &RegexParser{re: re, address: addressGroup, status: statusGroup}
	if i := re.SubexpIndex("ip"); i > 0 {
		p.address = i
	}
	if i := re.SubexpIndex("status"); i > 0 {
		p.status = i
	}

	if n := re.NumSubexp(); p.address > n || p.status > n {
		return nil, fmt.Errorf("pattern has %d groups, need groups %d (ip) and %d (status)", n, p.address, p.status)
	}
	return p, nil
}

func (p *RegexParser) Parse(line model.RawLine) (model.Record, bool) {
	m := p.re.FindStringSubmatch(line.Text)
	if m == nil {
		return model.Record{}, false
	}
	return record(m[p.address], m[p.status])
}

// ---------------------------------------------------------------------------
// JSON parser
// ---------------------------------------------------------------------------

// JSONParser handles JSON-lines access logs as written by nginx/envoy
// json log formats. Status may be a string or a number.
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) Parse(line model.RawLine) (model.Record, bool) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(line.Text), &data); err != nil {
		return model.Record{}, false
	}

	addr, ok := strField(data, "remote_addr", "client_ip", "ip", "host")
	if !ok {
		return model.Record{}, false
	}
	status, ok := strField(data, "status", "status_code", "code")
	if !ok {
		return model.Record{}, false
	}
	return record(addr, status)
}

// ---------------------------------------------------------------------------
// Auto parser (format auto-detection)
// ---------------------------------------------------------------------------

// AutoParser tries JSON for lines that look like objects, then the access log pattern.
type AutoParser struct {
	jsonParser   *JSONParser
	accessParser *AccessLogParser
}

func NewAutoParser() *AutoParser {
	return &AutoParser{
		jsonParser:   NewJSONParser(),
		accessParser: NewAccessLogParser(),
	}
}

func (p *AutoParser) Parse(line model.RawLine) (model.Record, bool) {
	trimmed := strings.TrimSpace(line.Text)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if rec, ok := p.jsonParser.Parse(line); ok {
			return rec, true
		}
	}
	return p.accessParser.Parse(line)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// record builds a Record, rejecting degenerate matches with an empty address.
func record(addr, status string) (model.Record, bool) {
	if addr == "" {
		return model.Record{}, false
	}
	return model.Record{ClientAddress: addr, StatusCode: status}, true
}

// strField returns the first non-empty value among keys, rendered as text.
func strField(data map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := data[k]
		if !ok || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

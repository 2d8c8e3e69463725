package redirect

import (
	"net/url"
	"strings"
)

// Parameter is one response parameter. Value is nil for a bare name (no '=') and for a
// value whose percent-encoding could not be decoded, in which case DecodeErr is set.
type Parameter struct {
	Name      string
	Value     *string
	DecodeErr error
}

// Parameters is an ordered set of response parameters. Insertion order is response order;
// setting an existing name replaces its value in place. The zero value is ready to use.
type Parameters struct {
	entries []Parameter
	index   map[string]int
}

// Set adds or replaces name.
func (p *Parameters) Set(name string, value *string) {
	p.set(Parameter{Name: name, Value: value})
}

// Add adds or replaces name with a non-nil value.
func (p *Parameters) Add(name, value string) {
	p.Set(name, &value)
}

func (p *Parameters) set(param Parameter) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[param.Name]; ok {
		p.entries[i] = param
		return
	}
	p.index[param.Name] = len(p.entries)
	p.entries = append(p.entries, param)
}

// Get returns the parameter named name.
func (p *Parameters) Get(name string) (Parameter, bool) {
	i, ok := p.index[name]
	if !ok {
		return Parameter{}, false
	}
	return p.entries[i], true
}

// Value returns the value of name, or "" when absent or nil.
func (p *Parameters) Value(name string) string {
	param, ok := p.Get(name)
	if !ok || param.Value == nil {
		return ""
	}
	return *param.Value
}

func (p *Parameters) Len() int {
	return len(p.entries)
}

// All returns the parameters in insertion order.
func (p *Parameters) All() []Parameter {
	out := make([]Parameter, len(p.entries))
	copy(out, p.entries)
	return out
}

// Reset removes every parameter.
func (p *Parameters) Reset() {
	p.entries = nil
	p.index = nil
}

// Encode percent-encodes the parameters as name=value pairs joined with '&'. Parameters
// with a blank name or value are left out.
func (p *Parameters) Encode() string {
	var sb strings.Builder
	for _, param := range p.serializable() {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(param.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(*param.Value))
	}
	return sb.String()
}

func (p *Parameters) serializable() []Parameter {
	out := make([]Parameter, 0, len(p.entries))
	for _, param := range p.entries {
		if isBlank(param.Name) || param.Value == nil || isBlank(*param.Value) {
			continue
		}
		out = append(out, param)
	}
	return out
}

// ParseQueryString decomposes raw on '&' and then on the first '='. Each name and value is
// percent-decoded; a decode failure is recorded on that parameter and parsing continues.
func ParseQueryString(raw string) *Parameters {
	p := &Parameters{}
	p.parse(raw)
	return p
}

func (p *Parameters) parse(raw string) {
	for _, token := range strings.Split(raw, "&") {
		if token == "" {
			continue
		}
		rawName, rawValue, hasValue := strings.Cut(token, "=")

		param := Parameter{Name: rawName}
		if name, err := url.QueryUnescape(rawName); err == nil {
			param.Name = name
		} else {
			param.DecodeErr = err
		}
		if hasValue {
			if value, err := url.QueryUnescape(rawValue); err == nil {
				param.Value = &value
			} else {
				param.DecodeErr = err
			}
		}
		p.set(param)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
